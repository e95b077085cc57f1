package repository

import (
	"context"
	"estimator-core/internal/domain/entity"
)

// Classifier scores a text against the positive/neutral/negative label set.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]entity.LabelScore, error)
}

type ClassifierLoader interface {
	Load(ctx context.Context) (Classifier, error)
}

// ClassifierLoaderFunc adapts a plain function to ClassifierLoader.
type ClassifierLoaderFunc func(ctx context.Context) (Classifier, error)

func (f ClassifierLoaderFunc) Load(ctx context.Context) (Classifier, error) {
	return f(ctx)
}

type EstimateCache interface {
	Get(ctx context.Context, key string) (*entity.EstimationResult, error)
	Save(ctx context.Context, key string, result *entity.EstimationResult) error
	// Purge drops every cached estimate.
	Purge(ctx context.Context) error
}

type VectorStore interface {
	Search(ctx context.Context, vector []float32, threshold float32, filters map[string]string) (*entity.EstimationResult, string, error)
	Save(ctx context.Context, description string, result *entity.EstimationResult, vector []float32, metadata map[string]string) error
}

type RequestLimiter interface {
	CheckLimit(ctx context.Context, clientID string) (bool, error)
	Increment(ctx context.Context, clientID string) error
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type MetadataExtractor interface {
	ExtractMetadata(ctx context.Context, description string) map[string]string
}

type MatchEvaluator interface {
	IsMatch(ctx context.Context, description, cachedDescription string) bool
}
