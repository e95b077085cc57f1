package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"estimator-core/internal/domain/entity"
	"estimator-core/internal/domain/repository"
	"estimator-core/internal/logger"
	"estimator-core/internal/metrics"
)

const (
	MaxDescriptionLength = 20000
	backgroundTimeout    = 10 * time.Second
)

type Orchestrator struct {
	engine     *Engine
	limiter    repository.RequestLimiter
	cache      repository.EstimateCache
	similar    *SimilarLookup
	background sync.WaitGroup
}

// SimilarLookup bundles the adapters used to reuse estimates of near-identical descriptions.
type SimilarLookup struct {
	Store     repository.VectorStore
	Embedder  repository.Embedder
	Extractor repository.MetadataExtractor
	Evaluator repository.MatchEvaluator
	Threshold float32
}

func NewOrchestrator(engine *Engine, limiter repository.RequestLimiter, cache repository.EstimateCache, similar *SimilarLookup) *Orchestrator {
	return &Orchestrator{engine: engine, limiter: limiter, cache: cache, similar: similar}
}

func (u *Orchestrator) Execute(ctx context.Context, req entity.EstimationRequest) (*entity.EstimationResult, error) {
	log := logger.Get(ctx)

	if err := validate(req); err != nil {
		return nil, err
	}

	// 1. Check client quota
	if u.limiter != nil {
		allowed, err := u.limiter.CheckLimit(ctx, req.ClientID)
		if err != nil {
			return nil, fmt.Errorf("rate limiter check failed: %w", err)
		}
		if !allowed {
			return nil, entity.ErrRateLimitExceeded
		}
	}

	capable := u.engine.capable(req.UserAgent)
	key := CacheKey(req.Description, capable)

	// 2. Exact cache lookup
	if u.cache != nil {
		cached, err := u.cache.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Msg("estimate cache lookup failed")
		} else if cached != nil {
			cached.Cached = true
			metrics.EstimatesTotal.WithLabelValues("cache").Inc()
			u.afterEstimate(req, key, nil, nil, nil)
			return withAdvisories(cached, req), nil
		}
	}

	// 3. Similar description lookup, only meaningful for the classifier path
	var (
		vector   []float32
		metadata map[string]string
	)
	if u.similar != nil && capable {
		var hit *entity.EstimationResult
		hit, vector, metadata = u.lookupSimilar(ctx, req.Description)
		if hit != nil {
			hit.Cached = true
			metrics.EstimatesTotal.WithLabelValues("similar").Inc()
			u.afterEstimate(req, key, nil, nil, nil)
			return withAdvisories(hit, req), nil
		}
	}

	// 4. Run the engine
	result := u.engine.Estimate(ctx, req)

	// 5. Background: cache and count usage
	u.afterEstimate(req, key, &result, vector, metadata)

	return withAdvisories(&result, req), nil
}

func (u *Orchestrator) lookupSimilar(ctx context.Context, description string) (*entity.EstimationResult, []float32, map[string]string) {
	log := logger.Get(ctx)
	s := u.similar

	vector, err := s.Embedder.CreateEmbedding(ctx, description)
	if err != nil {
		log.Warn().Err(err).Msg("embedding generation failed, skipping similar lookup")
		return nil, nil, nil
	}

	var filters map[string]string
	if s.Extractor != nil {
		filters = s.Extractor.ExtractMetadata(ctx, description)
	}

	hit, cachedDescription, err := s.Store.Search(ctx, vector, s.Threshold, filters)
	if err != nil {
		log.Warn().Err(err).Msg("similar estimate search failed")
		return nil, vector, filters
	}
	if hit == nil {
		return nil, vector, filters
	}
	if s.Evaluator != nil && !s.Evaluator.IsMatch(ctx, description, cachedDescription) {
		log.Debug().Msg("similar estimate rejected by evaluator")
		return nil, vector, filters
	}
	return hit, vector, filters
}

// afterEstimate records usage and, for a fresh result, stores it. It runs
// detached from the request context.
func (u *Orchestrator) afterEstimate(req entity.EstimationRequest, key string, result *entity.EstimationResult, vector []float32, metadata map[string]string) {
	capable := u.engine.capable(req.UserAgent)

	u.background.Add(1)
	go func() {
		defer u.background.Done()

		bgCtx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		log := logger.Global()

		if u.limiter != nil {
			if err := u.limiter.Increment(bgCtx, req.ClientID); err != nil {
				log.Warn().Err(err).Str("client_id", req.ClientID).Msg("usage increment failed")
			}
		}
		if result == nil {
			return
		}

		// Transient fallbacks are not cached so the classifier gets another chance.
		if u.cache != nil && (result.ModelUsed || !capable) {
			if err := u.cache.Save(bgCtx, key, result); err != nil {
				log.Warn().Err(err).Msg("estimate cache save failed")
			}
		}
		if u.similar != nil && result.ModelUsed && vector != nil {
			if err := u.similar.Store.Save(bgCtx, req.Description, result, vector, metadata); err != nil {
				log.Warn().Err(err).Msg("similar estimate save failed")
			}
		}
	}()
}

// Reset drops the loaded classifier and purges the exact-match cache so
// estimates made by the previous classifier are not served again.
func (u *Orchestrator) Reset(ctx context.Context) error {
	u.engine.Reset()
	if u.cache == nil {
		return nil
	}
	if err := u.cache.Purge(ctx); err != nil {
		return fmt.Errorf("estimate cache purge failed: %w", err)
	}
	return nil
}

// Wait blocks until background writes finish.
func (u *Orchestrator) Wait() {
	u.background.Wait()
}

func (u *Orchestrator) Engine() *Engine {
	return u.engine
}

func validate(req entity.EstimationRequest) error {
	switch {
	case utf8.RuneCountInString(req.Description) > MaxDescriptionLength:
		return fmt.Errorf("%w: description longer than %d characters", entity.ErrInvalidRequest, MaxDescriptionLength)
	case req.MaxRuntimeHours < 0:
		return fmt.Errorf("%w: max_runtime_hours must not be negative", entity.ErrInvalidRequest)
	case req.MaxBudget < 0:
		return fmt.Errorf("%w: max_budget must not be negative", entity.ErrInvalidRequest)
	}
	return nil
}

// withAdvisories flags results above the caller's bounds without altering them.
func withAdvisories(r *entity.EstimationResult, req entity.EstimationRequest) *entity.EstimationResult {
	out := *r
	out.ExceedsRuntime = req.MaxRuntimeHours > 0 && out.EstimatedDurationHours > req.MaxRuntimeHours
	out.ExceedsBudget = req.MaxBudget > 0 && out.CalculatedCost > req.MaxBudget
	return &out
}

// CacheKey identifies an estimate by its exact description and the caller's capability.
func CacheKey(description string, capable bool) string {
	path := "heuristic"
	if capable {
		path = "model"
	}
	sum := sha256.Sum256([]byte(path + "|" + description))
	return "estimate:" + hex.EncodeToString(sum[:])
}
