package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/arcanthyr/backend/pkg/logger"
)

// Client maintains a best-effort semantic side-index of ingested cases.
// Sync results never depend on it; callers swallow its errors.
type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

// CaseVector is one indexed case: the embedding covers the head of the
// extracted case text.
type CaseVector struct {
	Citation  string
	Embedding []float32
	Court     string
	Excerpt   string
	Timestamp time.Time
}

type SearchResult struct {
	Citation string
	Court    string
	Excerpt  string
	Score    float32
}

func NewClient(endpoint, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewGrpcClient(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) EnsureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Legal case embeddings",
		Fields: []*entity.Field{
			{
				Name:       "citation",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
			{
				Name:     "court",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "32",
				},
			},
			{
				Name:     "excerpt",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "4096",
				},
			},
			{
				Name:     "timestamp",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, _ := entity.NewIndexIvfFlat(entity.L2, 1024)
	if err := m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := m.client.LoadCollection(ctx, m.collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))

	return nil
}

func (m *Client) Insert(ctx context.Context, vec CaseVector) error {
	_, err := m.client.Insert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("citation", []string{vec.Citation}),
		entity.NewColumnFloatVector("embedding", m.vectorDim, [][]float32{vec.Embedding}),
		entity.NewColumnVarChar("court", []string{vec.Court}),
		entity.NewColumnVarChar("excerpt", []string{vec.Excerpt}),
		entity.NewColumnInt64("timestamp", []int64{vec.Timestamp.Unix()}),
	)
	if err != nil {
		return fmt.Errorf("failed to insert case vector: %w", err)
	}

	if err := m.client.Flush(ctx, m.collectionName, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Debug("Case vector indexed", zap.String("citation", vec.Citation))

	return nil
}

func (m *Client) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]SearchResult, error) {
	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		"",
		[]string{"citation", "court", "excerpt"},
		[]entity.Vector{entity.FloatVector(queryEmbedding)},
		"embedding",
		entity.L2,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0)
	for _, sr := range searchResult {
		citationCol := sr.Fields.GetColumn("citation")
		courtCol := sr.Fields.GetColumn("court")
		excerptCol := sr.Fields.GetColumn("excerpt")

		for i := 0; i < sr.ResultCount; i++ {
			citation, _ := citationCol.Get(i)
			court, _ := courtCol.Get(i)
			excerpt, _ := excerptCol.Get(i)

			results = append(results, SearchResult{
				Citation: citation.(string),
				Court:    court.(string),
				Excerpt:  excerpt.(string),
				Score:    sr.Scores[i],
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", topK),
		zap.Int("results", len(results)),
	)

	return results, nil
}
