package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/prism-bi/prism-gateway/pkg/apperrors"
	"github.com/prism-bi/prism-gateway/pkg/config"
	"github.com/prism-bi/prism-gateway/pkg/llm"
	"github.com/prism-bi/prism-gateway/pkg/services"
)

// APIKeyHeader carries an optional caller-supplied credential. Requests
// without it fall back to the server's shared, quota-limited key.
const APIKeyHeader = "X-AI-API-Key"

// AIHandler exposes the AI gateway endpoints.
type AIHandler struct {
	cfg          *config.Config
	generation   services.GenerationService
	planAnalysis services.PlanAnalysisService
	ledger       services.QuotaLedger
	logger       *zap.Logger
}

// NewAIHandler creates the handler for the AI gateway routes.
func NewAIHandler(
	cfg *config.Config,
	generation services.GenerationService,
	planAnalysis services.PlanAnalysisService,
	ledger services.QuotaLedger,
	logger *zap.Logger,
) *AIHandler {
	return &AIHandler{
		cfg:          cfg,
		generation:   generation,
		planAnalysis: planAnalysis,
		ledger:       ledger,
		logger:       logger.Named("ai_handler"),
	}
}

// RegisterRoutes registers the AI gateway routes on the given mux.
func (h *AIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ai/generate", h.Generate)
	mux.HandleFunc("POST /api/ai/explain/analyze", h.AnalyzePlan)
	mux.HandleFunc("GET /api/ai/health", h.Health)
}

type generateRequest struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Query     string                  `json:"query"`
	RateLimit *services.RateLimitInfo `json:"rateLimit,omitempty"`
}

// Generate handles POST /api/ai/generate.
func (h *AIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &errorBody{
			Status:  http.StatusBadRequest,
			Error:   "Invalid request body",
			Message: "expected a JSON object with a \"text\" field",
		})
		return
	}

	result, err := h.generation.Generate(r.Context(), &services.GenerationRequest{
		Text:       req.Text,
		UserAPIKey: r.Header.Get(APIKeyHeader),
	})
	if err != nil {
		h.writeError(w, h.classifyError(err))
		return
	}

	h.writeJSON(w, http.StatusOK, generateResponse{
		Query:     result.Query,
		RateLimit: result.RateLimit,
	})
}

type analyzeRequest struct {
	ExplainResult *services.ExplainResult `json:"explainResult"`
	Query         json.RawMessage         `json:"query"`
}

// AnalyzePlan handles POST /api/ai/explain/analyze.
func (h *AIHandler) AnalyzePlan(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &errorBody{
			Status:  http.StatusBadRequest,
			Error:   "Invalid request body",
			Message: "expected a JSON object with \"explainResult\" and \"query\" fields",
		})
		return
	}
	if req.ExplainResult == nil {
		h.writeError(w, &errorBody{
			Status:  http.StatusBadRequest,
			Error:   "Invalid request body",
			Message: "explainResult is required",
		})
		return
	}
	if len(req.Query) == 0 {
		h.writeError(w, &errorBody{
			Status:  http.StatusBadRequest,
			Error:   "Invalid request body",
			Message: "query is required",
		})
		return
	}

	analysis, err := h.planAnalysis.Analyze(r.Context(), &services.PlanAnalysisRequest{
		Explain:    req.ExplainResult,
		Query:      req.Query,
		UserAPIKey: r.Header.Get(APIKeyHeader),
	})
	if err != nil {
		h.writeError(w, h.classifyError(err))
		return
	}

	h.writeJSON(w, http.StatusOK, analysis)
}

type quotaStatus struct {
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
	Limit     int `json:"limit"`
}

type validationBounds struct {
	MinPromptLength int `json:"minPromptLength"`
	MaxPromptLength int `json:"maxPromptLength"`
}

type aiHealthResponse struct {
	Provider            string           `json:"provider"`
	Model               string           `json:"model"`
	ServerKeyConfigured bool             `json:"serverKeyConfigured"`
	Quota               quotaStatus      `json:"quota"`
	Validation          validationBounds `json:"validation"`
}

// Health handles GET /api/ai/health. Read-only: it never mutates the
// ledger, and it always answers 200.
func (h *AIHandler) Health(w http.ResponseWriter, r *http.Request) {
	used, err := h.ledger.Usage(r.Context())
	if err != nil {
		h.logger.Warn("quota usage unavailable", zap.Error(err))
		used = 0
	}

	limit := h.ledger.Limit()
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	h.writeJSON(w, http.StatusOK, aiHealthResponse{
		Provider:            h.cfg.AI.Provider,
		Model:               h.cfg.AI.Model,
		ServerKeyConfigured: h.cfg.AI.HasServerKey(),
		Quota:               quotaStatus{Used: used, Remaining: remaining, Limit: limit},
		Validation: validationBounds{
			MinPromptLength: h.cfg.AI.MinPromptLength,
			MaxPromptLength: h.cfg.AI.MaxPromptLength,
		},
	})
}

// errorBody is the wire shape of every failure. Optional fields are
// omitted when empty.
type errorBody struct {
	Status      int          `json:"-"`
	Error       string       `json:"error"`
	Message     string       `json:"message,omitempty"`
	Suggestion  string       `json:"suggestion,omitempty"`
	Details     string       `json:"details,omitempty"`
	RawResponse string       `json:"rawResponse,omitempty"`
	QuotaInfo   *quotaStatus `json:"quotaInfo,omitempty"`
}

// classifyError maps the service error taxonomy onto HTTP responses. No
// error propagates as an opaque server failure.
func (h *AIHandler) classifyError(err error) *errorBody {
	var invalidPrompt *apperrors.InvalidPromptError
	if errors.As(err, &invalidPrompt) {
		return &errorBody{
			Status:  http.StatusBadRequest,
			Error:   "Invalid prompt",
			Message: invalidPrompt.Reason,
		}
	}

	var quotaErr *apperrors.QuotaExceededError
	if errors.As(err, &quotaErr) {
		remaining := quotaErr.Limit - quotaErr.Used
		if remaining < 0 {
			remaining = 0
		}
		return &errorBody{
			Status:     http.StatusTooManyRequests,
			Error:      "Daily quota exceeded",
			Suggestion: "Provide your own API key in the " + APIKeyHeader + " header for unlimited use",
			QuotaInfo: &quotaStatus{
				Used:      quotaErr.Used,
				Remaining: remaining,
				Limit:     quotaErr.Limit,
			},
		}
	}

	if errors.Is(err, apperrors.ErrNoCredential) {
		return &errorBody{
			Status:     http.StatusBadRequest,
			Error:      "No API key available",
			Suggestion: "Provide an API key in the " + APIKeyHeader + " header, or configure a server key",
		}
	}

	if errors.Is(err, apperrors.ErrLedgerUpdate) {
		return &errorBody{
			Status: http.StatusInternalServerError,
			Error:  "Failed to record quota usage",
		}
	}

	if errors.Is(err, apperrors.ErrEmptyGeneration) {
		return &errorBody{
			Status: http.StatusInternalServerError,
			Error:  "Empty response from AI service",
		}
	}

	var parseErr *apperrors.ResponseParseError
	if errors.As(err, &parseErr) {
		return &errorBody{
			Status:      http.StatusInternalServerError,
			Error:       "Could not parse AI response",
			RawResponse: parseErr.RawExcerpt,
		}
	}

	var upstreamErr *llm.Error
	if errors.As(err, &upstreamErr) {
		status := upstreamErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusInternalServerError
		}
		return &errorBody{
			Status:  status,
			Error:   "AI service error",
			Details: upstreamErr.Body,
		}
	}

	h.logger.Error("unclassified AI gateway error", zap.Error(err))
	return &errorBody{
		Status: http.StatusInternalServerError,
		Error:  "Internal error",
	}
}

func (h *AIHandler) writeError(w http.ResponseWriter, body *errorBody) {
	if err := WriteJSON(w, body.Status, body); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}

func (h *AIHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
