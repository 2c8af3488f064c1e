package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexibleString(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"string", `"seq scan on orders"`, "seq scan on orders"},
		{"integer", `42`, "42"},
		{"float", `1.5`, "1.5"},
		{"bool", `true`, "true"},
		{"null", `null`, ""},
		{"empty", ``, ""},
		{"object kept raw", `{"detail": "seq scan"}`, `{"detail": "seq scan"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FlexibleString(json.RawMessage(tt.raw)))
		})
	}
}

func TestFlexibleStringList(t *testing.T) {
	raw := []json.RawMessage{
		json.RawMessage(`"first"`),
		json.RawMessage(`null`),
		json.RawMessage(`2`),
	}

	assert.Equal(t, []string{"first", "2"}, FlexibleStringList(raw))

	// Nil input serializes as [], not null.
	out := FlexibleStringList(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
