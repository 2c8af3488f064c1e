package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json fence",
			input:    "```json\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "bare fence",
			input:    "```\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "no fence",
			input:    `{"a": 1}`,
			expected: `{"a": 1}`,
		},
		{
			name:     "surrounding whitespace",
			input:    "  \n```json\n{\"a\": 1}\n```\n ",
			expected: `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripFences(tt.input))
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "plain object",
			input:    `{"query": {"measures": ["Orders.count"]}}`,
			expected: `{"query": {"measures": ["Orders.count"]}}`,
		},
		{
			name:     "fenced object",
			input:    "```json\n{\"chartType\": \"bar\"}\n```",
			expected: `{"chartType": "bar"}`,
		},
		{
			name:     "object surrounded by prose",
			input:    "Here is your query:\n{\"chartType\": \"line\"}\nLet me know!",
			expected: `{"chartType": "line"}`,
		},
		{
			name:     "array",
			input:    `[1, 2, 3]`,
			expected: `[1, 2, 3]`,
		},
		{
			name:     "braces inside string literals",
			input:    `{"assessment": "uses a {nested} brace and a \" quote"}`,
			expected: `{"assessment": "uses a {nested} brace and a \" quote"}`,
		},
		{
			name:    "no json at all",
			input:   "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "unbalanced object",
			input:   `{"a": 1`,
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseJSONResponse(t *testing.T) {
	type payload struct {
		Assessment string   `json:"assessment"`
		Issues     []string `json:"issues"`
	}

	got, err := ParseJSONResponse[payload]("```json\n{\"assessment\": \"fine\", \"issues\": []}\n```")
	require.NoError(t, err)
	assert.Equal(t, "fine", got.Assessment)
	assert.Empty(t, got.Issues)

	_, err = ParseJSONResponse[payload]("not json")
	assert.Error(t, err)

	// Valid JSON of the wrong shape fails at unmarshal.
	_, err = ParseJSONResponse[payload](`{"assessment": 42}`)
	assert.Error(t, err)
}
