package milvus

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/arcanthyr/backend/internal/storage/models"
)

// excerptLength bounds how much case text is embedded and stored
// alongside the vector.
const excerptLength = 2000

// Embedder produces the vector for a piece of case text.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Indexer adapts the vector client for the sync pipeline: embed the
// head of a case's text and upsert it into the side-index.
type Indexer struct {
	client   *Client
	embedder Embedder
}

func NewIndexer(client *Client, embedder Embedder) *Indexer {
	return &Indexer{client: client, embedder: embedder}
}

func (i *Indexer) IndexCase(ctx context.Context, record *models.Case, fullText string) error {
	excerpt := truncate(fullText, excerptLength)

	embedding, err := i.embedder.GenerateEmbedding(ctx, excerpt)
	if err != nil {
		return fmt.Errorf("failed to embed case text: %w", err)
	}

	return i.client.Insert(ctx, CaseVector{
		Citation:  record.Citation,
		Embedding: embedding,
		Court:     record.Court,
		Excerpt:   excerpt,
		Timestamp: time.Now(),
	})
}

// SearchSimilar embeds the query and returns the nearest indexed cases.
func (i *Indexer) SearchSimilar(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	embedding, err := i.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return i.client.Search(ctx, embedding, topK)
}

// truncate cuts s to at most n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
