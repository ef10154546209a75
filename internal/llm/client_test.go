package llm

import (
	"context"
	"errors"
	"testing"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("", "gpt-4o-mini", "text-embedding-3-small", 30)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestDisabledClientFailsPerCall(t *testing.T) {
	c := Disabled()

	if _, err := c.Generate(context.Background(), "system", "user", 100); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Generate on a disabled client should return ErrMissingAPIKey, got %v", err)
	}
	if _, err := c.GenerateEmbedding(context.Background(), "text"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("GenerateEmbedding on a disabled client should return ErrMissingAPIKey, got %v", err)
	}
}
