// Package services holds the gateway's request flows: quota accounting,
// natural-language query generation and execution-plan analysis.
package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prism-bi/prism-gateway/pkg/apperrors"
	"github.com/prism-bi/prism-gateway/pkg/models"
	"github.com/prism-bi/prism-gateway/pkg/repositories"
)

// quotaLedgerKey is the fixed settings-store key of the shared-key usage
// counter. There is exactly one ledger row per deployment.
const quotaLedgerKey = "ai_gateway.daily_usage"

// QuotaDecision is the outcome of one admission check. Used is the
// pre-increment count.
type QuotaDecision struct {
	Allowed bool
	Used    int
	Limit   int
}

// QuotaLedger enforces the shared-key daily call budget. Callers with
// their own credential bypass it entirely: no read, no write.
type QuotaLedger interface {
	// CheckAndConsume admits or rejects one shared-key call. Admission
	// increments the stored counter before the upstream call is made, so
	// a request that later fails downstream still consumed budget.
	CheckAndConsume(ctx context.Context, projectID uuid.UUID) (*QuotaDecision, error)

	// Usage reads the current counter without mutating it.
	Usage(ctx context.Context) (int, error)

	// Limit returns the configured daily budget.
	Limit() int
}

type quotaLedger struct {
	settings repositories.SettingsRepository
	limit    int
	logger   *zap.Logger
}

// NewQuotaLedger creates a ledger over the settings store.
func NewQuotaLedger(settings repositories.SettingsRepository, limit int, logger *zap.Logger) QuotaLedger {
	return &quotaLedger{
		settings: settings,
		limit:    limit,
		logger:   logger.Named("quota"),
	}
}

// CheckAndConsume implements QuotaLedger.
//
// The read-then-write sequence is not atomic: two concurrent shared-key
// requests can both observe the same pre-increment value and both be
// admitted when one slot remains. Accepted for the low-concurrency
// shared-key path; a conditional update would close the race.
func (l *quotaLedger) CheckAndConsume(ctx context.Context, projectID uuid.UUID) (*QuotaDecision, error) {
	used, err := l.readCounter(ctx)
	if err != nil {
		return nil, err
	}

	if used >= l.limit {
		return &QuotaDecision{Allowed: false, Used: used, Limit: l.limit}, nil
	}

	setting := &models.Setting{
		Key:       quotaLedgerKey,
		Value:     strconv.Itoa(used + 1),
		ProjectID: projectID,
	}
	if err := l.settings.Upsert(ctx, setting); err != nil {
		// Do not proceed to the paid upstream call when usage cannot be
		// recorded; quota would be unenforceable.
		return nil, fmt.Errorf("%w: %v", apperrors.ErrLedgerUpdate, err)
	}

	l.logger.Debug("shared key call admitted",
		zap.Int("used", used+1),
		zap.Int("limit", l.limit))

	return &QuotaDecision{Allowed: true, Used: used, Limit: l.limit}, nil
}

// Usage implements QuotaLedger.
func (l *quotaLedger) Usage(ctx context.Context) (int, error) {
	return l.readCounter(ctx)
}

// Limit implements QuotaLedger.
func (l *quotaLedger) Limit() int {
	return l.limit
}

func (l *quotaLedger) readCounter(ctx context.Context) (int, error) {
	setting, err := l.settings.Get(ctx, quotaLedgerKey)
	if err != nil {
		return 0, fmt.Errorf("read quota counter: %w", err)
	}
	if setting == nil {
		return 0, nil
	}

	used, err := strconv.Atoi(setting.Value)
	if err != nil || used < 0 {
		l.logger.Warn("quota counter is not a non-negative integer, treating as 0",
			zap.String("value", setting.Value))
		return 0, nil
	}
	return used, nil
}
