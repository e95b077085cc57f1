package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"estimator-core/internal/domain/entity"
	"estimator-core/internal/domain/repository"
	"estimator-core/internal/logger"
	"estimator-core/internal/metrics"

	"golang.org/x/sync/singleflight"
)

const (
	msgDeviceNotCapable = "Device not capable."
	msgModelNotLoaded   = "Model not loaded."
	loadKey             = "classifier"
)

// Engine produces estimates, preferring the classifier and falling back to the heuristic.
// It owns the lazily loaded classifier handle; use Reset to force a reload.
type Engine struct {
	cfg         EstimationConfig
	loader      repository.ClassifierLoader
	capable     CapabilityFunc
	loadTimeout time.Duration

	group singleflight.Group

	mu         sync.RWMutex
	generation uint64
	loaded     bool
	classifier repository.Classifier
	loadErr    string
}

type EngineOption func(*Engine)

func WithCapability(fn CapabilityFunc) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.capable = fn
		}
	}
}

func WithLoadTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.loadTimeout = d
		}
	}
}

// NewEngine builds an engine. A nil loader leaves the engine on the heuristic path.
func NewEngine(cfg EstimationConfig, loader repository.ClassifierLoader, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:         cfg,
		loader:      loader,
		capable:     NewUserAgentCapability(cfg.IncapableDevicePatterns),
		loadTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate never fails: every classifier problem degrades to the heuristic and is reported in ModelErrorMessage.
func (e *Engine) Estimate(ctx context.Context, req entity.EstimationRequest) entity.EstimationResult {
	log := logger.Get(ctx)

	e.ensureLoaded(ctx)

	e.mu.RLock()
	classifier, loadErr := e.classifier, e.loadErr
	e.mu.RUnlock()

	var (
		duration  float64
		modelUsed bool
		reason    string
	)

	switch {
	case !e.capable(req.UserAgent):
		reason = msgDeviceNotCapable
		metrics.FallbacksTotal.WithLabelValues("incapable").Inc()
	case classifier == nil:
		reason = loadErr
		if reason == "" {
			reason = msgModelNotLoaded
		}
		metrics.FallbacksTotal.WithLabelValues("inactive").Inc()
	default:
		hours, err := e.infer(ctx, classifier, req.Description)
		if err == nil {
			duration, modelUsed = hours, true
			break
		}
		if errors.Is(err, entity.ErrUnexpectedOutput) {
			reason = fmt.Sprintf("Model output was unexpected: %v", err)
			metrics.FallbacksTotal.WithLabelValues("unexpected_output").Inc()
		} else {
			reason = fmt.Sprintf("Model inference failed: %v", err)
			metrics.FallbacksTotal.WithLabelValues("inference_error").Inc()
		}
		log.Warn().Err(err).Msg("classifier inference failed, using heuristic")
	}

	if modelUsed {
		metrics.EstimatesTotal.WithLabelValues("model").Inc()
	} else {
		duration = e.cfg.HeuristicDuration(req.Description)
		metrics.EstimatesTotal.WithLabelValues("heuristic").Inc()
	}
	metrics.EstimatedHours.Observe(duration)

	return entity.EstimationResult{
		EstimatedDurationHours: duration,
		CalculatedCost:         e.cfg.Cost(duration),
		ModelUsed:              modelUsed,
		ModelErrorMessage:      reason,
	}
}

func (e *Engine) infer(ctx context.Context, c repository.Classifier, description string) (hours float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panicked: %v", r)
		}
	}()

	scores, err := c.Classify(ctx, description)
	if err != nil {
		return 0, err
	}
	if len(scores) == 0 {
		return 0, fmt.Errorf("%w: empty label set", entity.ErrUnexpectedOutput)
	}

	hours, ok := e.cfg.ModelDuration(scores)
	if !ok {
		return 0, fmt.Errorf("%w: no usable label scores", entity.ErrUnexpectedOutput)
	}
	return hours, nil
}

// ensureLoaded loads the classifier at most once per generation. Concurrent
// first callers share a single load.
func (e *Engine) ensureLoaded(ctx context.Context) {
	e.mu.RLock()
	done, gen := e.loaded, e.generation
	e.mu.RUnlock()
	if done {
		return
	}

	_, _, _ = e.group.Do(loadKey, func() (any, error) {
		e.mu.RLock()
		done := e.loaded && e.generation == gen
		e.mu.RUnlock()
		if done {
			return nil, nil
		}

		// The load outlives the request that triggered it.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.loadTimeout)
		defer cancel()

		classifier, err := e.load(loadCtx)

		e.mu.Lock()
		defer e.mu.Unlock()
		if e.generation != gen {
			return nil, nil
		}
		e.loaded = true
		e.classifier = classifier
		e.loadErr = ""
		if err != nil {
			e.classifier = nil
			e.loadErr = fmt.Sprintf("Model failed to load: %v", err)
			metrics.ClassifierLoadsTotal.WithLabelValues("failed").Inc()
			logger.Get(ctx).Error().Err(err).Msg("classifier load failed, heuristic only until reset")
			return nil, nil
		}
		metrics.ClassifierLoadsTotal.WithLabelValues("ok").Inc()
		logger.Get(ctx).Info().Msg("classifier loaded")
		return nil, nil
	})
}

func (e *Engine) load(ctx context.Context) (c repository.Classifier, err error) {
	if e.loader == nil {
		return nil, entity.ErrNoClassifier
	}
	defer func() {
		if r := recover(); r != nil {
			c, err = nil, fmt.Errorf("classifier loader panicked: %v", r)
		}
	}()

	c, err = e.loader.Load(ctx)
	if err == nil && c == nil {
		err = entity.ErrClassifierNotReady
	}
	return c, err
}

// Reset drops the cached classifier. The next Estimate reloads it; a load
// still in flight is discarded.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.generation++
	e.loaded = false
	e.classifier = nil
	e.loadErr = ""
	e.mu.Unlock()
	e.group.Forget(loadKey)
}

func (e *Engine) Status() entity.ClassifierStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return entity.ClassifierStatus{
		Loaded:    e.loaded,
		Active:    e.classifier != nil,
		LoadError: e.loadErr,
	}
}
