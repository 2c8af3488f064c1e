package prompts

import (
	"encoding/json"
	"fmt"
)

// generationTemplate is the fixed instruction text for natural-language
// query generation. Only the schema block and the user prompt vary. The
// template pins down the response contract: one JSON object holding a cube
// query plus chart selection, nothing else.
const generationTemplate = `You are a query generator for a business analytics platform.
Translate the user's question into a JSON query against the schema below.
You are a TRANSLATOR ONLY - never compute values and never answer the
question directly.

AVAILABLE SCHEMA:
%s

RESPONSE FORMAT (always a single JSON object, no markdown, no prose):
{
  "query": {
    "measures": ["Cube.measureName"],
    "dimensions": ["Cube.dimensionName"],
    "timeDimensions": [
      {
        "dimension": "Cube.timeDimensionName",
        "granularity": "day|week|month|quarter|year",
        "dateRange": "today|yesterday|this week|this month|this quarter|this year|last 7 days|last 30 days|last week|last month|last quarter|last year"
      }
    ],
    "filters": [
      {
        "member": "Cube.fieldName",
        "operator": "equals|notEquals|contains|notContains|gt|gte|lt|lte|set|notSet|inDateRange|beforeDate|afterDate",
        "values": ["value"]
      }
    ],
    "order": {"Cube.fieldName": "asc|desc"},
    "limit": 10,
    "offset": 0
  },
  "chartType": "line|area|bar|pie|scatter|bubble|table",
  "chartConfig": {
    "x": "Cube.dimensionName",
    "y": ["Cube.measureName"],
    "series": "Cube.dimensionName or null"
  }
}

QUERY RULES:
1. Use only measure and dimension names that appear in the schema, exactly
   as written (Cube.field form).
2. Time-based questions use "timeDimensions" with a granularity; never put
   a time dimension in "dimensions" when a granularity applies.
3. "filters" values must be strings. Omit "filters", "order", "limit" and
   "offset" when the question does not ask for them.
4. Prefer descriptive dimensions: when a cube has both "something.name" and
   "something.id" (or a foreign-key-like field), group by the ".name" field.

CHART TYPE RULES:
- Trend over time (a time dimension with granularity) -> "line", or "area"
  when the question asks for cumulative/stacked totals.
- Comparison across categories -> "bar".
- Proportion / share of a whole -> "pie".
- Correlation or relationship between exactly 2 measures -> "scatter".
- Correlation across 3 or more measures -> "bubble".
- Anything else, or a plain list of records -> "table".
- If the question contains correlation wording such as "correlation",
  "relationship", "versus", "vs", "compare ... against", you MUST choose
  "scatter" (2 measures) or "bubble" (3+ measures).

USER QUESTION:
%s

Respond with the JSON object only.`

// BuildGenerationPrompt interpolates the rendered schema and the sanitized
// user prompt into the generation template. The output is plain text; the
// model's reply is validated elsewhere.
func BuildGenerationPrompt(schema *SchemaDescription, userPrompt string) (string, error) {
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}
	return fmt.Sprintf(generationTemplate, schemaJSON, userPrompt), nil
}
