// Package mssql implements index metadata lookup against SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/prism-bi/prism-gateway/pkg/adapters/datasource"
)

// IndexProvider reads index definitions from the sys.indexes catalog.
type IndexProvider struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewIndexProvider creates a provider over an existing database handle.
func NewIndexProvider(db *sql.DB, logger *zap.Logger) *IndexProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IndexProvider{db: db, logger: logger.Named("mssql_indexes")}
}

// Connect opens a connection for the given DSN and returns a provider that
// owns it.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*IndexProvider, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver datasource: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlserver datasource: %w", err)
	}
	return NewIndexProvider(db, logger), nil
}

// ListIndexes implements datasource.IndexProvider. Index definitions are
// summarized as the ordered key column list since SQL Server has no
// indexdef equivalent.
func (p *IndexProvider) ListIndexes(ctx context.Context, tables []string) ([]datasource.TableIndex, error) {
	if len(tables) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(tables))
	args := make([]any, len(tables))
	for i, table := range tables {
		placeholders[i] = fmt.Sprintf("@p%d", i+1)
		args[i] = table
	}

	query := fmt.Sprintf(`
		SELECT t.name, i.name,
		       i.type_desc + ' (' + STRING_AGG(c.name, ', ') WITHIN GROUP (ORDER BY ic.key_ordinal) + ')'
		FROM sys.indexes i
		JOIN sys.tables t ON t.object_id = i.object_id
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE i.name IS NOT NULL AND t.name IN (%s)
		GROUP BY t.name, i.name, i.type_desc
		ORDER BY t.name, i.name`, strings.Join(placeholders, ", "))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sys.indexes: %w", err)
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
