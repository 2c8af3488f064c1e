// Package jsonutil smooths over the loose typing of model-produced JSON.
package jsonutil

import (
	"encoding/json"
	"fmt"
)

// FlexibleString converts a json.RawMessage to a string, handling cases
// where LLMs return numbers, booleans or objects instead of strings.
// Returns empty string for null/empty.
func FlexibleString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	// Objects sometimes appear where a sentence was asked for; keep the
	// raw form rather than dropping the item.
	return string(raw)
}

// FlexibleStringList converts a list of raw items into strings, skipping
// nulls. A nil input yields an empty, non-nil slice so callers can
// serialize it as [] rather than null.
func FlexibleStringList(raw []json.RawMessage) []string {
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s := FlexibleString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
