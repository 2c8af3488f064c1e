// Package repositories holds the PostgreSQL data access layer.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/prism-bi/prism-gateway/pkg/database"
	"github.com/prism-bi/prism-gateway/pkg/models"
)

// SettingsRepository defines access to the key-value settings store that
// backs the quota ledger. The ledger only ever reads and upserts; rows are
// never deleted from this subsystem.
type SettingsRepository interface {
	// Get retrieves a setting by key. Returns nil if not found.
	Get(ctx context.Context, key string) (*models.Setting, error)

	// Upsert creates or updates a setting, refreshing updated_at.
	Upsert(ctx context.Context, setting *models.Setting) error
}

// settingsRepository implements SettingsRepository using PostgreSQL.
type settingsRepository struct {
	db *database.DB
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *database.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// Get retrieves a setting by key.
func (r *settingsRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	query := `
		SELECT key, value, project_id, created_at, updated_at
		FROM engine_settings
		WHERE key = $1`

	var setting models.Setting
	err := r.db.QueryRow(ctx, query, key).Scan(
		&setting.Key,
		&setting.Value,
		&setting.ProjectID,
		&setting.CreatedAt,
		&setting.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found, return nil without error
		}
		return nil, fmt.Errorf("failed to get setting %q: %w", key, err)
	}

	return &setting, nil
}

// Upsert creates or updates a setting.
func (r *settingsRepository) Upsert(ctx context.Context, setting *models.Setting) error {
	now := time.Now()

	query := `
		INSERT INTO engine_settings (key, value, project_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (key)
		DO UPDATE SET value = $2, updated_at = $4`

	_, err := r.db.Exec(ctx, query, setting.Key, setting.Value, setting.ProjectID, now)
	if err != nil {
		return fmt.Errorf("failed to upsert setting %q: %w", setting.Key, err)
	}

	setting.UpdatedAt = now
	if setting.CreatedAt.IsZero() {
		setting.CreatedAt = now
	}

	return nil
}
