package models

import (
	"time"

	"github.com/google/uuid"
)

// Setting is one row of the key-value settings store. The quota ledger
// lives here as a single counter row; the value is stored as text.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	ProjectID uuid.UUID `json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
