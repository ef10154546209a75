package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/arcanthyr/backend/pkg/circuitbreaker"
	"github.com/arcanthyr/backend/pkg/logger"
)

// ErrMissingAPIKey is returned when the provider credential is absent.
// Operations that do not touch the model keep working without a client.
var ErrMissingAPIKey = errors.New("llm: API key not configured")

// Client is a thin wrapper over the model provider. One Generate call maps
// to one outbound completion request; retrying is the caller's decision.
type Client struct {
	client         *openai.Client
	model          string
	embeddingModel string
	timeout        time.Duration
	cb             *circuitbreaker.CircuitBreaker
}

func NewClient(apiKey, model, embeddingModel string, timeoutSec int) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if timeoutSec <= 0 {
		timeoutSec = 60
	}

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	logger.Info("LLM client initialized", zap.String("model", model))

	return &Client{
		client:         openai.NewClient(apiKey),
		model:          model,
		embeddingModel: embeddingModel,
		timeout:        time.Duration(timeoutSec) * time.Second,
		cb:             cb,
	}, nil
}

// Disabled returns a client with no provider wired in. Every call fails
// with ErrMissingAPIKey, so a deployment without a credential still serves
// everything that does not touch the model.
func Disabled() *Client {
	return &Client{timeout: 60 * time.Second}
}

// Generate runs a single system+user completion capped at maxTokens and
// returns the trimmed response text. An empty model response is returned as
// "" without error.
func (c *Client) Generate(ctx context.Context, systemPrompt, userContent string, maxTokens int) (string, error) {
	if c.client == nil {
		return "", ErrMissingAPIKey
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var content string

	err := c.cb.Execute(ctx, func() error {
		resp, err := c.client.CreateChatCompletion(
			ctx,
			openai.ChatCompletionRequest{
				Model:     c.model,
				MaxTokens: maxTokens,
				Messages: []openai.ChatCompletionMessage{
					{
						Role:    openai.ChatMessageRoleSystem,
						Content: systemPrompt,
					},
					{
						Role:    openai.ChatMessageRoleUser,
						Content: userContent,
					},
				},
			},
		)

		if err != nil {
			return fmt.Errorf("failed to create completion: %w", err)
		}

		logger.Debug("LLM completion generated",
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		)

		if len(resp.Choices) > 0 {
			content = resp.Choices[0].Message.Content
		}

		return nil
	})

	if err != nil {
		return "", err
	}

	return strings.TrimSpace(content), nil
}

func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if c.client == nil {
		return nil, ErrMissingAPIKey
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var embedding []float32

	err := c.cb.Execute(ctx, func() error {
		resp, err := c.client.CreateEmbeddings(
			ctx,
			openai.EmbeddingRequest{
				Input: []string{text},
				Model: openai.EmbeddingModel(c.embeddingModel),
			},
		)

		if err != nil {
			return fmt.Errorf("failed to generate embedding: %w", err)
		}

		embedding = make([]float32, len(resp.Data[0].Embedding))
		copy(embedding, resp.Data[0].Embedding)

		return nil
	})

	if err != nil {
		return nil, err
	}

	return embedding, nil
}
