// Package postgres implements index metadata lookup against PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/prism-bi/prism-gateway/pkg/adapters/datasource"
)

// IndexProvider reads index definitions from the pg_indexes catalog view.
type IndexProvider struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewIndexProvider creates a provider over an existing connection pool.
func NewIndexProvider(pool *pgxpool.Pool, logger *zap.Logger) *IndexProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IndexProvider{pool: pool, logger: logger.Named("pg_indexes")}
}

// Connect opens a dedicated pool for the given DSN and returns a provider
// that owns it.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*IndexProvider, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres datasource: %w", err)
	}
	return NewIndexProvider(pool, logger), nil
}

// ListIndexes implements datasource.IndexProvider. Unknown table names are
// simply absent from the result.
func (p *IndexProvider) ListIndexes(ctx context.Context, tables []string) ([]datasource.TableIndex, error) {
	if len(tables) == 0 {
		return nil, nil
	}

	rows, err := p.pool.Query(ctx, `
		SELECT tablename, indexname, indexdef
		FROM pg_indexes
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
		  AND tablename = ANY($1)
		ORDER BY tablename, indexname`, tables)
	if err != nil {
		return nil, fmt.Errorf("query pg_indexes: %w", err)
	}
	defer rows.Close()

	var indexes []datasource.TableIndex
	for rows.Next() {
		var idx datasource.TableIndex
		if err := rows.Scan(&idx.Table, &idx.Name, &idx.Definition); err != nil {
			return nil, fmt.Errorf("scan index row: %w", err)
		}
		indexes = append(indexes, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index rows: %w", err)
	}

	p.logger.Debug("index metadata fetched",
		zap.Int("tables", len(tables)),
		zap.Int("indexes", len(indexes)))
	return indexes, nil
}

var _ datasource.IndexProvider = (*IndexProvider)(nil)
