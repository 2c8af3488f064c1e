package prompts

import (
	"fmt"
	"strings"

	"github.com/prism-bi/prism-gateway/pkg/adapters/datasource"
)

// PlanAnalysisInput carries everything the plan-critique prompt needs. The
// plan itself was computed upstream; this subsystem never runs EXPLAIN.
type PlanAnalysisInput struct {
	Engine     string
	Operations []string
	RawPlan    string
	SQL        string
	QueryJSON  string
	Indexes    []datasource.TableIndex
}

// BuildPlanAnalysisPrompt renders the execution-plan critique prompt. The
// response contract is a JSON object with an assessment, issues and
// recommendations; parsing and repair happen in the plan-analysis service.
func BuildPlanAnalysisPrompt(schema *SchemaDescription, input *PlanAnalysisInput) string {
	var b strings.Builder

	b.WriteString("# Query Execution Plan Review\n\n")
	b.WriteString("You are a database performance expert. Review the execution plan below and assess how the query will perform.\n\n")

	if input.Engine != "" {
		b.WriteString(fmt.Sprintf("Query engine: %s\n\n", input.Engine))
	}

	b.WriteString("## Logical Query\n\n")
	b.WriteString("```json\n")
	b.WriteString(input.QueryJSON)
	b.WriteString("\n```\n\n")

	b.WriteString("## Generated SQL\n\n")
	b.WriteString("```sql\n")
	b.WriteString(input.SQL)
	b.WriteString("\n```\n\n")

	if len(input.Operations) > 0 {
		b.WriteString("## Plan Operations\n\n")
		for i, op := range input.Operations {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, op))
		}
		b.WriteString("\n")
	}

	if input.RawPlan != "" {
		b.WriteString("## Raw Plan Output\n\n")
		b.WriteString("```\n")
		b.WriteString(input.RawPlan)
		b.WriteString("\n```\n\n")
	}

	b.WriteString("## Existing Indexes\n\n")
	if len(input.Indexes) == 0 {
		b.WriteString("No index metadata is available for the referenced tables.\n\n")
	} else {
		for _, idx := range input.Indexes {
			b.WriteString(fmt.Sprintf("- %s.%s: %s\n", idx.Table, idx.Name, idx.Definition))
		}
		b.WriteString("\n")
	}

	if schema != nil && len(schema.Cubes) > 0 {
		b.WriteString("## Cube Schema Context\n\n")
		for name, cube := range schema.Cubes {
			b.WriteString(fmt.Sprintf("- %s: %d measures, %d dimensions, %d time dimensions\n",
				name, len(cube.Measures), len(cube.Dimensions), len(cube.TimeDimensions)))
		}
		b.WriteString("\n")
	}

	b.WriteString(`## Response Format

Respond with a single JSON object, no markdown fences, no prose:
{
  "assessment": "one-paragraph overall judgement of the plan",
  "issues": ["specific problem found in the plan"],
  "recommendations": ["specific, actionable improvement, e.g. an index to add"]
}

Keep issues and recommendations concrete. An empty array is acceptable when
there is nothing to report.`)

	return b.String()
}
