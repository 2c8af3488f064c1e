package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prism-bi/prism-gateway/pkg/adapters/datasource"
)

func TestBuildPlanAnalysisPrompt(t *testing.T) {
	input := &PlanAnalysisInput{
		Engine:     "postgres",
		Operations: []string{"Seq Scan on orders", "HashAggregate"},
		RawPlan:    "Seq Scan on orders (cost=0.00..431.00)",
		SQL:        "SELECT status, count(*) FROM orders GROUP BY status",
		QueryJSON:  `{"measures":["Orders.count"]}`,
		Indexes: []datasource.TableIndex{
			{Table: "orders", Name: "orders_pkey", Definition: "CREATE UNIQUE INDEX orders_pkey ON orders (id)"},
		},
	}

	prompt := BuildPlanAnalysisPrompt(FallbackSchema(), input)

	assert.Contains(t, prompt, "# Query Execution Plan Review")
	assert.Contains(t, prompt, "Query engine: postgres")
	assert.Contains(t, prompt, `{"measures":["Orders.count"]}`)
	assert.Contains(t, prompt, "SELECT status, count(*) FROM orders GROUP BY status")
	assert.Contains(t, prompt, "1. Seq Scan on orders")
	assert.Contains(t, prompt, "2. HashAggregate")
	assert.Contains(t, prompt, "cost=0.00..431.00")
	assert.Contains(t, prompt, "- orders.orders_pkey: CREATE UNIQUE INDEX orders_pkey ON orders (id)")
	assert.Contains(t, prompt, "## Cube Schema Context")
	assert.Contains(t, prompt, `"assessment"`)
	assert.Contains(t, prompt, `"recommendations"`)
}

func TestBuildPlanAnalysisPrompt_Minimal(t *testing.T) {
	input := &PlanAnalysisInput{
		SQL:       "SELECT 1",
		QueryJSON: "{}",
	}

	prompt := BuildPlanAnalysisPrompt(nil, input)

	assert.NotContains(t, prompt, "Query engine:")
	assert.NotContains(t, prompt, "## Plan Operations")
	assert.NotContains(t, prompt, "## Raw Plan Output")
	assert.NotContains(t, prompt, "## Cube Schema Context")
	assert.Contains(t, prompt, "No index metadata is available for the referenced tables.")
}
