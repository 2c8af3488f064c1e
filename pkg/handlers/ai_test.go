package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prism-bi/prism-gateway/pkg/apperrors"
	"github.com/prism-bi/prism-gateway/pkg/config"
	"github.com/prism-bi/prism-gateway/pkg/llm"
	"github.com/prism-bi/prism-gateway/pkg/services"
)

// mockGenerationService scripts the generation flow for handler tests.
type mockGenerationService struct {
	GenerateFunc func(ctx context.Context, req *services.GenerationRequest) (*services.GenerationResult, error)
	LastRequest  *services.GenerationRequest
}

func (m *mockGenerationService) Generate(ctx context.Context, req *services.GenerationRequest) (*services.GenerationResult, error) {
	m.LastRequest = req
	return m.GenerateFunc(ctx, req)
}

// mockPlanAnalysisService scripts the plan-analysis flow.
type mockPlanAnalysisService struct {
	AnalyzeFunc func(ctx context.Context, req *services.PlanAnalysisRequest) (*services.PlanAnalysis, error)
	LastRequest *services.PlanAnalysisRequest
}

func (m *mockPlanAnalysisService) Analyze(ctx context.Context, req *services.PlanAnalysisRequest) (*services.PlanAnalysis, error) {
	m.LastRequest = req
	return m.AnalyzeFunc(ctx, req)
}

// mockLedger reports fixed usage numbers for the health endpoint.
type mockLedger struct {
	used     int
	usageErr error
	limit    int
}

func (m *mockLedger) CheckAndConsume(ctx context.Context, projectID uuid.UUID) (*services.QuotaDecision, error) {
	return &services.QuotaDecision{Allowed: true, Used: m.used, Limit: m.limit}, nil
}

func (m *mockLedger) Usage(ctx context.Context) (int, error) { return m.used, m.usageErr }
func (m *mockLedger) Limit() int                             { return m.limit }

func testConfig() *config.Config {
	return &config.Config{
		AI: config.AIConfig{
			Provider:        "openai",
			Model:           "gpt-4o-mini",
			APIKey:          "server-key",
			DailyLimit:      10,
			MinPromptLength: 1,
			MaxPromptLength: 500,
		},
	}
}

func newTestMux(gen *mockGenerationService, plan *mockPlanAnalysisService, ledger *mockLedger) *http.ServeMux {
	mux := http.NewServeMux()
	NewAIHandler(testConfig(), gen, plan, ledger, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAIHandler_Generate(t *testing.T) {
	t.Run("success with rate limit info", func(t *testing.T) {
		gen := &mockGenerationService{
			GenerateFunc: func(ctx context.Context, req *services.GenerationRequest) (*services.GenerationResult, error) {
				return &services.GenerationResult{
					Query:     `{"chartType": "bar"}`,
					RateLimit: &services.RateLimitInfo{UsingServerKey: true, DailyLimit: 10},
				}, nil
			},
		}
		mux := newTestMux(gen, nil, &mockLedger{limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/generate",
			strings.NewReader(`{"text": "orders by status"}`)))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, `{"chartType": "bar"}`, body["query"])
		rateLimit := body["rateLimit"].(map[string]any)
		assert.Equal(t, true, rateLimit["usingServerKey"])
		assert.Equal(t, float64(10), rateLimit["dailyLimit"])
	})

	t.Run("user key from header reaches the service", func(t *testing.T) {
		gen := &mockGenerationService{
			GenerateFunc: func(ctx context.Context, req *services.GenerationRequest) (*services.GenerationResult, error) {
				return &services.GenerationResult{Query: "{}"}, nil
			},
		}
		mux := newTestMux(gen, nil, &mockLedger{limit: 10})

		req := httptest.NewRequest(http.MethodPost, "/api/ai/generate",
			strings.NewReader(`{"text": "orders"}`))
		req.Header.Set(APIKeyHeader, "sk-user")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "sk-user", gen.LastRequest.UserAPIKey)
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		mux := newTestMux(&mockGenerationService{}, nil, &mockLedger{limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/generate",
			strings.NewReader(`{not json`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request body", decodeBody(t, rec)["error"])
	})

	t.Run("empty prompt is a 400 with the validator's reason", func(t *testing.T) {
		gen := &mockGenerationService{
			GenerateFunc: func(ctx context.Context, req *services.GenerationRequest) (*services.GenerationResult, error) {
				return nil, apperrors.NewInvalidPrompt("Prompt cannot be empty")
			},
		}
		mux := newTestMux(gen, nil, &mockLedger{limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/generate",
			strings.NewReader(`{"text": ""}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Invalid prompt", body["error"])
		assert.Equal(t, "Prompt cannot be empty", body["message"])
	})

	t.Run("exhausted quota is a 429 with quota info", func(t *testing.T) {
		gen := &mockGenerationService{
			GenerateFunc: func(ctx context.Context, req *services.GenerationRequest) (*services.GenerationResult, error) {
				return nil, &apperrors.QuotaExceededError{Used: 10, Limit: 10}
			},
		}
		mux := newTestMux(gen, nil, &mockLedger{limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/generate",
			strings.NewReader(`{"text": "orders"}`)))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Daily quota exceeded", body["error"])
		assert.Contains(t, body["suggestion"], APIKeyHeader)
		quotaInfo := body["quotaInfo"].(map[string]any)
		assert.Equal(t, float64(10), quotaInfo["used"])
		assert.Equal(t, float64(0), quotaInfo["remaining"])
		assert.Equal(t, float64(10), quotaInfo["limit"])
	})

	t.Run("no credential is a 400 with a suggestion", func(t *testing.T) {
		gen := &mockGenerationService{
			GenerateFunc: func(ctx context.Context, req *services.GenerationRequest) (*services.GenerationResult, error) {
				return nil, apperrors.ErrNoCredential
			},
		}
		mux := newTestMux(gen, nil, &mockLedger{limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/generate",
			strings.NewReader(`{"text": "orders"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "No API key available", body["error"])
		assert.NotEmpty(t, body["suggestion"])
	})

	t.Run("ledger write failure is a 500", func(t *testing.T) {
		gen := &mockGenerationService{
			GenerateFunc: func(ctx context.Context, req *services.GenerationRequest) (*services.GenerationResult, error) {
				return nil, apperrors.ErrLedgerUpdate
			},
		}
		mux := newTestMux(gen, nil, &mockLedger{limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/generate",
			strings.NewReader(`{"text": "orders"}`)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to record quota usage", decodeBody(t, rec)["error"])
	})

	t.Run("empty generation is a 500", func(t *testing.T) {
		gen := &mockGenerationService{
			GenerateFunc: func(ctx context.Context, req *services.GenerationRequest) (*services.GenerationResult, error) {
				return nil, apperrors.ErrEmptyGeneration
			},
		}
		mux := newTestMux(gen, nil, &mockLedger{limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/generate",
			strings.NewReader(`{"text": "orders"}`)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Empty response from AI service", decodeBody(t, rec)["error"])
	})

	t.Run("upstream status and body pass through", func(t *testing.T) {
		gen := &mockGenerationService{
			GenerateFunc: func(ctx context.Context, req *services.GenerationRequest) (*services.GenerationResult, error) {
				return nil, &llm.Error{Type: llm.ErrorTypeUpstream, StatusCode: 503, Body: "overloaded"}
			},
		}
		mux := newTestMux(gen, nil, &mockLedger{limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/generate",
			strings.NewReader(`{"text": "orders"}`)))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "AI service error", body["error"])
		assert.Equal(t, "overloaded", body["details"])
	})

	t.Run("transport failure without a status is a 500", func(t *testing.T) {
		gen := &mockGenerationService{
			GenerateFunc: func(ctx context.Context, req *services.GenerationRequest) (*services.GenerationResult, error) {
				return nil, &llm.Error{Type: llm.ErrorTypeTransport, Cause: errors.New("dial tcp: timeout")}
			},
		}
		mux := newTestMux(gen, nil, &mockLedger{limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/generate",
			strings.NewReader(`{"text": "orders"}`)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("unclassified errors are an opaque 500", func(t *testing.T) {
		gen := &mockGenerationService{
			GenerateFunc: func(ctx context.Context, req *services.GenerationRequest) (*services.GenerationResult, error) {
				return nil, errors.New("something with secrets in it")
			},
		}
		mux := newTestMux(gen, nil, &mockLedger{limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/generate",
			strings.NewReader(`{"text": "orders"}`)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Internal error", body["error"])
		assert.NotContains(t, rec.Body.String(), "secrets")
	})
}

func TestAIHandler_AnalyzePlan(t *testing.T) {
	validBody := `{
		"explainResult": {"engine": "postgres", "sql": "SELECT 1", "operations": [], "rawPlan": ""},
		"query": {"measures": ["Orders.count"]}
	}`

	t.Run("success returns the analysis with meta", func(t *testing.T) {
		plan := &mockPlanAnalysisService{
			AnalyzeFunc: func(ctx context.Context, req *services.PlanAnalysisRequest) (*services.PlanAnalysis, error) {
				return &services.PlanAnalysis{
					Assessment:      "fine",
					Issues:          []string{},
					Recommendations: []string{"add index"},
					Meta:            services.PlanAnalysisMeta{Model: "gpt-4o-mini", UsingUserKey: false},
				}, nil
			},
		}
		mux := newTestMux(&mockGenerationService{}, plan, &mockLedger{limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/explain/analyze",
			strings.NewReader(validBody)))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "fine", body["assessment"])
		meta := body["_meta"].(map[string]any)
		assert.Equal(t, "gpt-4o-mini", meta["model"])

		assert.JSONEq(t, `{"measures": ["Orders.count"]}`, string(plan.LastRequest.Query))
	})

	t.Run("missing explainResult is a 400", func(t *testing.T) {
		mux := newTestMux(&mockGenerationService{}, &mockPlanAnalysisService{}, &mockLedger{limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/explain/analyze",
			strings.NewReader(`{"query": {}}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "explainResult is required", decodeBody(t, rec)["message"])
	})

	t.Run("missing query is a 400", func(t *testing.T) {
		mux := newTestMux(&mockGenerationService{}, &mockPlanAnalysisService{}, &mockLedger{limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/explain/analyze",
			strings.NewReader(`{"explainResult": {"sql": "SELECT 1"}}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "query is required", decodeBody(t, rec)["message"])
	})

	t.Run("parse failure carries the raw excerpt", func(t *testing.T) {
		plan := &mockPlanAnalysisService{
			AnalyzeFunc: func(ctx context.Context, req *services.PlanAnalysisRequest) (*services.PlanAnalysis, error) {
				return nil, apperrors.NewResponseParse("The plan seems slow.", errors.New("no valid JSON found in response"))
			},
		}
		mux := newTestMux(&mockGenerationService{}, plan, &mockLedger{limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/explain/analyze",
			strings.NewReader(validBody)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Could not parse AI response", body["error"])
		assert.Equal(t, "The plan seems slow.", body["rawResponse"])
	})
}

func TestAIHandler_Health(t *testing.T) {
	t.Run("reports quota and validation bounds", func(t *testing.T) {
		mux := newTestMux(&mockGenerationService{}, &mockPlanAnalysisService{},
			&mockLedger{used: 3, limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ai/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "openai", body["provider"])
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.Equal(t, true, body["serverKeyConfigured"])

		quota := body["quota"].(map[string]any)
		assert.Equal(t, float64(3), quota["used"])
		assert.Equal(t, float64(7), quota["remaining"])
		assert.Equal(t, float64(10), quota["limit"])

		validation := body["validation"].(map[string]any)
		assert.Equal(t, float64(1), validation["minPromptLength"])
		assert.Equal(t, float64(500), validation["maxPromptLength"])
	})

	t.Run("usage failure still answers 200", func(t *testing.T) {
		mux := newTestMux(&mockGenerationService{}, &mockPlanAnalysisService{},
			&mockLedger{usageErr: errors.New("db down"), limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ai/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		quota := decodeBody(t, rec)["quota"].(map[string]any)
		assert.Equal(t, float64(0), quota["used"])
		assert.Equal(t, float64(10), quota["remaining"])
	})

	t.Run("usage above limit clamps remaining to zero", func(t *testing.T) {
		mux := newTestMux(&mockGenerationService{}, &mockPlanAnalysisService{},
			&mockLedger{used: 12, limit: 10})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ai/health", nil))

		quota := decodeBody(t, rec)["quota"].(map[string]any)
		assert.Equal(t, float64(0), quota["remaining"])
	})
}
