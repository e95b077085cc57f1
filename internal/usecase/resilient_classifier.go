package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"estimator-core/internal/domain/entity"
	"estimator-core/internal/domain/repository"
	"estimator-core/internal/logger"
	"estimator-core/internal/metrics"
)

// ResilientClassifier retries the primary model on transient failures and then
// hands the request to the fallback model once.
type ResilientClassifier struct {
	primary  repository.Classifier
	fallback repository.Classifier // optional
	attempts int
	minDelay time.Duration
	maxDelay time.Duration
	timeout  time.Duration
}

func NewResilientClassifier(primary, fallback repository.Classifier) *ResilientClassifier {
	return &ResilientClassifier{
		primary:  primary,
		fallback: fallback,
		attempts: 3,
		minDelay: 300 * time.Millisecond,
		maxDelay: 2 * time.Second,
		timeout:  10 * time.Second,
	}
}

func (r *ResilientClassifier) Classify(ctx context.Context, text string) ([]entity.LabelScore, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	scores, err := r.classifyWithRetry(ctx, text)
	if err == nil || r.fallback == nil || ctx.Err() != nil {
		return scores, err
	}

	logger.Get(ctx).Warn().Err(err).Msg("primary classifier exhausted, switching to fallback")
	metrics.ClassifierRetriesTotal.WithLabelValues("fallback").Inc()

	scores, fbErr := r.fallback.Classify(ctx, text)
	if fbErr != nil {
		return nil, fmt.Errorf("fallback classifier failed after primary error %v: %w", err, fbErr)
	}
	return scores, nil
}

func (r *ResilientClassifier) classifyWithRetry(ctx context.Context, text string) ([]entity.LabelScore, error) {
	for attempt := 1; ; attempt++ {
		scores, err := r.primary.Classify(ctx, text)
		if err == nil {
			return scores, nil
		}
		if attempt >= r.attempts || !retryable(err) {
			return nil, err
		}

		metrics.ClassifierRetriesTotal.WithLabelValues("retry").Inc()
		timer := time.NewTimer(r.backoff(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("classifier retry abandoned: %w", ctx.Err())
		}
	}
}

// retryable accepts upstream rate limits, 5xx responses and per-call deadlines.
// Malformed model output is never retried: the same prompt yields the same answer.
func retryable(err error) bool {
	if errors.Is(err, entity.ErrUnexpectedOutput) {
		return false
	}
	return errors.Is(err, entity.ErrUpstreamTransient) || errors.Is(err, context.DeadlineExceeded)
}

// backoff doubles minDelay per attempt up to maxDelay, then adds up to 20% jitter.
func (r *ResilientClassifier) backoff(attempt int) time.Duration {
	d := r.minDelay
	for i := 1; i < attempt && d < r.maxDelay; i++ {
		d *= 2
	}
	if d > r.maxDelay {
		d = r.maxDelay
	}
	return d + time.Duration(rand.Int63n(int64(d)/5+1))
}
