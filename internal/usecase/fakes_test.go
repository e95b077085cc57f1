package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"estimator-core/internal/domain/entity"
	"estimator-core/internal/domain/repository"
)

type fakeClassifier struct {
	scores []entity.LabelScore
	err    error
	panics bool
	calls  atomic.Int32
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) ([]entity.LabelScore, error) {
	f.calls.Add(1)
	if f.panics {
		panic("tensor shape mismatch")
	}
	return f.scores, f.err
}

// countingLoader returns classifier (or err) and counts Load calls. When
// gate is non-nil each load blocks until it is closed.
type countingLoader struct {
	classifier repository.Classifier
	err        error
	gate       chan struct{}
	calls      atomic.Int32
}

func (l *countingLoader) Load(ctx context.Context) (repository.Classifier, error) {
	l.calls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.classifier, nil
}

// sequenceClassifier returns one error per call until errs is exhausted, then scores.
type sequenceClassifier struct {
	mu     sync.Mutex
	errs   []error
	scores []entity.LabelScore
	calls  int
}

func (s *sequenceClassifier) Classify(ctx context.Context, text string) ([]entity.LabelScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return s.scores, nil
}

type fakeLimiter struct {
	mu      sync.Mutex
	allowed bool
	err     error
	usage   map[string]int
}

func newFakeLimiter(allowed bool) *fakeLimiter {
	return &fakeLimiter{allowed: allowed, usage: map[string]int{}}
}

func (l *fakeLimiter) CheckLimit(ctx context.Context, clientID string) (bool, error) {
	return l.allowed, l.err
}

func (l *fakeLimiter) Increment(ctx context.Context, clientID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.usage[clientID]++
	return nil
}

func (l *fakeLimiter) count(clientID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usage[clientID]
}

type fakeCache struct {
	mu       sync.Mutex
	items    map[string]entity.EstimationResult
	getErr   error
	purgeErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string]entity.EstimationResult{}}
}

func (c *fakeCache) Get(ctx context.Context, key string) (*entity.EstimationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	r, ok := c.items[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (c *fakeCache) Save(ctx context.Context, key string, result *entity.EstimationResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = *result
	return nil
}

func (c *fakeCache) Purge(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.purgeErr != nil {
		return c.purgeErr
	}
	clear(c.items)
	return nil
}

func (c *fakeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

type fakeVectorStore struct {
	mu          sync.Mutex
	hit         *entity.EstimationResult
	description string
	saved       []string
	filters     map[string]string
}

func (s *fakeVectorStore) Search(ctx context.Context, vector []float32, threshold float32, filters map[string]string) (*entity.EstimationResult, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = filters
	if s.hit == nil {
		return nil, "", nil
	}
	hit := *s.hit
	return &hit, s.description, nil
}

func (s *fakeVectorStore) Save(ctx context.Context, description string, result *entity.EstimationResult, vector []float32, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, description)
	return nil
}

type fakeEmbedder struct{ err error }

func (e fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeExtractor map[string]string

func (e fakeExtractor) ExtractMetadata(ctx context.Context, description string) map[string]string {
	return e
}

type fakeEvaluator bool

func (e fakeEvaluator) IsMatch(ctx context.Context, description, cachedDescription string) bool {
	return bool(e)
}

var errBoom = errors.New("boom")
