package client

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// descriptionTask tells the embedding model the vectors are compared with each
// other, which suits near-duplicate project descriptions.
const descriptionTask = "SEMANTIC_SIMILARITY"

// DescriptionEmbedder turns project descriptions into vectors sized for the
// similar-estimate collection.
type DescriptionEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

func NewEmbedderFromClient(c *genai.Client, model string, dimensions int) *DescriptionEmbedder {
	return &DescriptionEmbedder{client: c, model: model, dimensions: dimensions}
}

func (e *DescriptionEmbedder) CreateEmbedding(ctx context.Context, description string) ([]float32, error) {
	config := &genai.EmbedContentConfig{
		TaskType:             descriptionTask,
		OutputDimensionality: genai.Ptr(int32(e.dimensions)),
	}
	res, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(description), config)
	if err != nil {
		return nil, markTransient(err)
	}
	return firstEmbedding(res, e.dimensions)
}

// firstEmbedding rejects vectors the Qdrant collection would refuse.
func firstEmbedding(res *genai.EmbedContentResponse, dimensions int) ([]float32, error) {
	if res == nil || len(res.Embeddings) == 0 || res.Embeddings[0] == nil {
		return nil, fmt.Errorf("embedding response was empty")
	}
	values := res.Embeddings[0].Values
	if len(values) != dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, collection expects %d", len(values), dimensions)
	}
	return values, nil
}
