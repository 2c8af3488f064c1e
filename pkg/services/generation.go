package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prism-bi/prism-gateway/pkg/apperrors"
	"github.com/prism-bi/prism-gateway/pkg/llm"
	"github.com/prism-bi/prism-gateway/pkg/metadata"
	"github.com/prism-bi/prism-gateway/pkg/prompts"
)

// GenerationRequest is one natural-language-to-query request. UserAPIKey
// is the caller-supplied credential from the request header, empty when
// the shared key should be used.
type GenerationRequest struct {
	Text       string
	UserAPIKey string
	ProjectID  uuid.UUID
}

// RateLimitInfo tells shared-key callers what budget applies to them.
type RateLimitInfo struct {
	UsingServerKey bool `json:"usingServerKey"`
	DailyLimit     int  `json:"dailyLimit"`
}

// GenerationResult carries the raw model text. Parsing it into a
// structured query is the caller's concern, not this subsystem's.
type GenerationResult struct {
	Query     string
	RateLimit *RateLimitInfo
}

// GenerationService turns a natural-language question into a query via
// the upstream model.
type GenerationService interface {
	Generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error)
}

type generationService struct {
	clients   llm.ClientFactory
	ledger    QuotaLedger
	cubes     metadata.CubeProvider
	validator *prompts.Validator
	logger    *zap.Logger
}

// NewGenerationService wires the generation flow.
func NewGenerationService(
	clients llm.ClientFactory,
	ledger QuotaLedger,
	cubes metadata.CubeProvider,
	validator *prompts.Validator,
	logger *zap.Logger,
) GenerationService {
	return &generationService{
		clients:   clients,
		ledger:    ledger,
		cubes:     cubes,
		validator: validator,
		logger:    logger.Named("generation"),
	}
}

// Generate runs the flow: select credential, (shared key only) consume
// quota, sanitize, validate, build prompt, call the model, extract text.
//
// Quota is consumed before validation on purpose: a malformed prompt on
// the shared key still spends a slot, which discourages blind retries.
func (s *generationService) Generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	client, source, err := s.clients.ClientFor(req.UserAPIKey)
	if err != nil {
		return nil, err
	}

	var rateLimit *RateLimitInfo
	if source == llm.CredentialServer {
		decision, err := s.ledger.CheckAndConsume(ctx, req.ProjectID)
		if err != nil {
			return nil, err
		}
		if !decision.Allowed {
			return nil, &apperrors.QuotaExceededError{Used: decision.Used, Limit: decision.Limit}
		}
		rateLimit = &RateLimitInfo{UsingServerKey: true, DailyLimit: decision.Limit}
	}

	sanitized := prompts.Sanitize(req.Text)
	if err := s.validator.Validate(sanitized); err != nil {
		return nil, err
	}

	prompt, err := prompts.BuildGenerationPrompt(s.describeSchema(ctx), sanitized)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	text, err := client.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return &GenerationResult{Query: text, RateLimit: rateLimit}, nil
}

// describeSchema renders live cube metadata, falling back to the minimal
// hard-coded schema when retrieval fails or yields no cubes. Generation
// proceeds with degraded schema knowledge rather than failing the request.
func (s *generationService) describeSchema(ctx context.Context) *prompts.SchemaDescription {
	cubes, err := s.cubes.ListCubes(ctx)
	if err != nil {
		s.logger.Warn("cube metadata unavailable, using fallback schema", zap.Error(err))
		return prompts.FallbackSchema()
	}
	if len(cubes) == 0 {
		return prompts.FallbackSchema()
	}
	return prompts.FormatSchema(cubes)
}
