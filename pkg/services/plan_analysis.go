package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/prism-bi/prism-gateway/pkg/adapters/datasource"
	"github.com/prism-bi/prism-gateway/pkg/apperrors"
	"github.com/prism-bi/prism-gateway/pkg/jsonutil"
	"github.com/prism-bi/prism-gateway/pkg/llm"
	"github.com/prism-bi/prism-gateway/pkg/metadata"
	"github.com/prism-bi/prism-gateway/pkg/prompts"
)

// ExplainResult is a previously computed execution-plan summary. This
// subsystem never runs EXPLAIN itself.
type ExplainResult struct {
	Engine     string   `json:"engine"`
	Operations []string `json:"operations"`
	RawPlan    string   `json:"rawPlan"`
	SQL        string   `json:"sql"`
}

// PlanAnalysisRequest pairs a plan summary with the logical query that
// produced it.
type PlanAnalysisRequest struct {
	Explain    *ExplainResult
	Query      json.RawMessage
	UserAPIKey string
	ProjectID  uuid.UUID
}

// PlanAnalysisMeta records which model and credential source produced an
// analysis.
type PlanAnalysisMeta struct {
	Model        string `json:"model"`
	UsingUserKey bool   `json:"usingUserKey"`
}

// PlanAnalysis is the structured critique parsed out of the model's text.
type PlanAnalysis struct {
	Assessment      string           `json:"assessment"`
	Issues          []string         `json:"issues"`
	Recommendations []string         `json:"recommendations"`
	Meta            PlanAnalysisMeta `json:"_meta"`
}

// PlanAnalysisService asks the model to critique a query execution plan.
type PlanAnalysisService interface {
	Analyze(ctx context.Context, req *PlanAnalysisRequest) (*PlanAnalysis, error)
}

type planAnalysisService struct {
	clients llm.ClientFactory
	ledger  QuotaLedger
	cubes   metadata.CubeProvider
	indexes datasource.IndexProvider
	logger  *zap.Logger
}

// NewPlanAnalysisService wires the plan-analysis flow.
func NewPlanAnalysisService(
	clients llm.ClientFactory,
	ledger QuotaLedger,
	cubes metadata.CubeProvider,
	indexes datasource.IndexProvider,
	logger *zap.Logger,
) PlanAnalysisService {
	return &planAnalysisService{
		clients: clients,
		ledger:  ledger,
		cubes:   cubes,
		indexes: indexes,
		logger:  logger.Named("plan_analysis"),
	}
}

// Analyze runs the flow: same credential and quota gating as generation,
// then table extraction, index lookup, prompt, one model call, and a
// repair-parse of the free-text answer.
func (s *planAnalysisService) Analyze(ctx context.Context, req *PlanAnalysisRequest) (*PlanAnalysis, error) {
	client, source, err := s.clients.ClientFor(req.UserAPIKey)
	if err != nil {
		return nil, err
	}

	if source == llm.CredentialServer {
		decision, err := s.ledger.CheckAndConsume(ctx, req.ProjectID)
		if err != nil {
			return nil, err
		}
		if !decision.Allowed {
			return nil, &apperrors.QuotaExceededError{Used: decision.Used, Limit: decision.Limit}
		}
	}

	tables := ExtractTableNames(req.Explain.SQL)

	// Index lookup failure degrades the prompt, it does not fail the
	// request.
	indexes, err := s.indexes.ListIndexes(ctx, tables)
	if err != nil {
		s.logger.Warn("index metadata unavailable", zap.Error(err))
		indexes = nil
	}

	prompt := prompts.BuildPlanAnalysisPrompt(s.describeSchema(ctx, tables), &prompts.PlanAnalysisInput{
		Engine:     req.Explain.Engine,
		Operations: req.Explain.Operations,
		RawPlan:    req.Explain.RawPlan,
		SQL:        req.Explain.SQL,
		QueryJSON:  string(req.Query),
		Indexes:    indexes,
	})

	text, err := client.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	analysis, err := parsePlanAnalysis(text)
	if err != nil {
		return nil, err
	}

	analysis.Meta = PlanAnalysisMeta{
		Model:        client.Model(),
		UsingUserKey: source == llm.CredentialUser,
	}
	return analysis, nil
}

// planAnalysisPayload is the loosely typed shape parsed from model text;
// list items may be strings, numbers or objects.
type planAnalysisPayload struct {
	Assessment      json.RawMessage   `json:"assessment"`
	Issues          []json.RawMessage `json:"issues"`
	Recommendations []json.RawMessage `json:"recommendations"`
}

// parsePlanAnalysis repairs and validates the model's free-text answer.
// Markdown fences are stripped before parsing; anything that still fails
// becomes a ResponseParseError carrying a truncated raw excerpt. No
// guessing, no partial results.
func parsePlanAnalysis(text string) (*PlanAnalysis, error) {
	payload, err := llm.ParseJSONResponse[planAnalysisPayload](text)
	if err != nil {
		return nil, apperrors.NewResponseParse(text, err)
	}

	assessment := jsonutil.FlexibleString(payload.Assessment)
	if assessment == "" {
		return nil, apperrors.NewResponseParse(text, nil)
	}

	return &PlanAnalysis{
		Assessment:      assessment,
		Issues:          jsonutil.FlexibleStringList(payload.Issues),
		Recommendations: jsonutil.FlexibleStringList(payload.Recommendations),
	}, nil
}

// tableRefPattern captures the identifier following FROM or JOIN. Quoted
// and schema-qualified names are captured whole and cleaned up afterwards.
var tableRefPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+("?[A-Za-z_][\w$"]*"?(?:\."?[A-Za-z_][\w$"]*"?)?)`)

// ExtractTableNames pulls referenced table names out of generated SQL by
// matching FROM and JOIN clauses. Case-insensitive, deduplicated, in
// order of first appearance. Subqueries contribute their inner tables via
// their own FROM keywords.
func ExtractTableNames(sqlText string) []string {
	matches := tableRefPattern.FindAllStringSubmatch(sqlText, -1)

	seen := make(map[string]bool)
	var tables []string
	for _, m := range matches {
		name := strings.ReplaceAll(m[1], `"`, "")
		// Drop the schema qualifier; catalog lookups key on table name.
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		key := strings.ToLower(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		tables = append(tables, name)
	}
	return tables
}

// describeSchema renders cube metadata narrowed to the cubes whose names
// plausibly map onto the referenced tables (singular/plural folding).
// When nothing matches, the full schema is kept for context.
func (s *planAnalysisService) describeSchema(ctx context.Context, tables []string) *prompts.SchemaDescription {
	cubes, err := s.cubes.ListCubes(ctx)
	if err != nil {
		s.logger.Warn("cube metadata unavailable, using fallback schema", zap.Error(err))
		return prompts.FallbackSchema()
	}
	if len(cubes) == 0 {
		return prompts.FallbackSchema()
	}

	tableSet := make(map[string]bool, len(tables))
	for _, t := range tables {
		tableSet[strings.ToLower(t)] = true
	}

	var matched []metadata.Cube
	for _, cube := range cubes {
		name := strings.ToLower(cube.Name)
		if tableSet[name] || tableSet[inflection.Plural(name)] || tableSet[inflection.Singular(name)] {
			matched = append(matched, cube)
		}
	}
	if len(matched) == 0 {
		matched = cubes
	}
	return prompts.FormatSchema(matched)
}
