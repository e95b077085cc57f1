package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"estimator-core/internal/domain/entity"
	"estimator-core/internal/domain/repository"
	"estimator-core/internal/usecase"

	"github.com/gofiber/fiber/v2"
)

type stubLimiter struct {
	allowed bool

	mu      sync.Mutex
	checked []string
}

func (s *stubLimiter) CheckLimit(ctx context.Context, clientID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checked = append(s.checked, clientID)
	return s.allowed, nil
}

func (s *stubLimiter) Increment(ctx context.Context, clientID string) error { return nil }

type stubCache struct{ purgeErr error }

func (stubCache) Get(ctx context.Context, key string) (*entity.EstimationResult, error) {
	return nil, nil
}

func (stubCache) Save(ctx context.Context, key string, result *entity.EstimationResult) error {
	return nil
}

func (s stubCache) Purge(ctx context.Context) error { return s.purgeErr }

type stubClassifier struct{}

func (stubClassifier) Classify(ctx context.Context, text string) ([]entity.LabelScore, error) {
	return []entity.LabelScore{{Label: "positive", Score: 0.9}}, nil
}

type testApp struct {
	allowed       bool
	trustClientID bool
	cache         repository.EstimateCache
}

func (ta testApp) build() (*fiber.App, *usecase.Orchestrator, *stubLimiter) {
	loader := repository.ClassifierLoaderFunc(func(ctx context.Context) (repository.Classifier, error) {
		return stubClassifier{}, nil
	})
	engine := usecase.NewEngine(usecase.DefaultEstimationConfig(), loader)
	limiter := &stubLimiter{allowed: ta.allowed}
	orch := usecase.NewOrchestrator(engine, limiter, ta.cache, nil)

	app := fiber.New()
	SetupRouter(app, NewEstimateHandler(orch, ta.trustClientID), BuildInfo{Version: "test", Env: "test"})
	return app, orch, limiter
}

func newTestApp(allowed bool) (*fiber.App, *usecase.Orchestrator) {
	app, orch, _ := testApp{allowed: allowed}.build()
	return app, orch
}

func postEstimate(t *testing.T, app *fiber.App, body, userAgent string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/estimate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	return resp
}

func decodeResult(t *testing.T, resp *http.Response) entity.EstimationResult {
	t.Helper()
	defer resp.Body.Close()
	var out entity.EstimationResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHandleEstimateModelPath(t *testing.T) {
	app, orch := newTestApp(true)
	defer orch.Wait()

	resp := postEstimate(t, app, `{"description":"A todo app","max_runtime_hours":2,"max_budget":1000}`, "")

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Estimator-Model-Used"); got != "true" {
		t.Errorf("X-Estimator-Model-Used = %q, want true", got)
	}
	if resp.Header.Get(HeaderRequestID) == "" {
		t.Error("missing request id header")
	}

	out := decodeResult(t, resp)
	if out.EstimatedDurationHours != 2.95 || out.CalculatedCost != 162.25 {
		t.Errorf("got %v h / $%v, want 2.95 h / $162.25", out.EstimatedDurationHours, out.CalculatedCost)
	}
	if !out.ExceedsRuntime || out.ExceedsBudget {
		t.Errorf("flags runtime=%v budget=%v, want true/false", out.ExceedsRuntime, out.ExceedsBudget)
	}
}

func TestHandleEstimateMobileFallsBack(t *testing.T) {
	app, orch := newTestApp(true)
	defer orch.Wait()

	resp := postEstimate(t, app, `{"description":""}`, "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148")

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	out := decodeResult(t, resp)
	if out.ModelUsed || out.ModelErrorMessage != "Device not capable." {
		t.Errorf("got %+v, want heuristic with device message", out)
	}
	if out.EstimatedDurationHours != 1 || out.CalculatedCost != 55 {
		t.Errorf("got %v h / $%v, want 1 h / $55", out.EstimatedDurationHours, out.CalculatedCost)
	}
}

func TestHandleEstimateErrors(t *testing.T) {
	tests := []struct {
		name       string
		allowed    bool
		body       string
		wantStatus int
	}{
		{"malformed body", true, `{"description":`, fiber.StatusBadRequest},
		{"negative budget", true, `{"description":"x","max_budget":-1}`, fiber.StatusBadRequest},
		{"quota exceeded", false, `{"description":"x"}`, fiber.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, orch := newTestApp(tt.allowed)
			defer orch.Wait()

			resp := postEstimate(t, app, tt.body, "")
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, tt.wantStatus, body)
			}
		})
	}
}

func TestStatusAndReset(t *testing.T) {
	app, orch := newTestApp(true)
	defer orch.Wait()

	postEstimate(t, app, `{"description":"x"}`, "").Body.Close()

	status := func() entity.ClassifierStatus {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/estimator/status", nil))
		if err != nil {
			t.Fatalf("app.Test() error = %v", err)
		}
		defer resp.Body.Close()
		var s entity.ClassifierStatus
		if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		return s
	}

	if s := status(); !s.Loaded || !s.Active {
		t.Errorf("status before reset = %+v, want loaded and active", s)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/v1/estimator/reset", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusNoContent {
		t.Errorf("reset status = %d, want 204", resp.StatusCode)
	}

	if s := status(); s.Loaded || s.Active {
		t.Errorf("status after reset = %+v, want unloaded", s)
	}
}

func TestResetPurgeFailure(t *testing.T) {
	app, orch, _ := testApp{allowed: true, cache: stubCache{purgeErr: errors.New("redis down")}}.build()
	defer orch.Wait()

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/v1/estimator/reset", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("reset status = %d, want 500", resp.StatusCode)
	}
}

func TestClientIDHeader(t *testing.T) {
	tests := []struct {
		name          string
		trustClientID bool
		wantHeaderID  bool
	}{
		{"ignored by default", false, false},
		{"honoured behind a gateway", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, orch, limiter := testApp{allowed: true, trustClientID: tt.trustClientID}.build()
			defer orch.Wait()

			for _, id := range []string{"tenant-a", "tenant-b"} {
				req := httptest.NewRequest(http.MethodPost, "/v1/estimate", strings.NewReader(`{"description":"x"}`))
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set(HeaderClientID, id)
				resp, err := app.Test(req)
				if err != nil {
					t.Fatalf("app.Test() error = %v", err)
				}
				resp.Body.Close()
			}

			limiter.mu.Lock()
			defer limiter.mu.Unlock()
			if len(limiter.checked) != 2 {
				t.Fatalf("limiter checked %v, want two requests", limiter.checked)
			}
			if tt.wantHeaderID {
				if limiter.checked[0] != "tenant-a" || limiter.checked[1] != "tenant-b" {
					t.Errorf("quota keys = %v, want header values", limiter.checked)
				}
				return
			}
			if limiter.checked[0] != limiter.checked[1] || limiter.checked[0] == "tenant-a" {
				t.Errorf("quota keys = %v, want the remote address for both", limiter.checked)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body["status"] != "healthy" || body["version"] != "test" {
		t.Errorf("health = %v", body)
	}
}
