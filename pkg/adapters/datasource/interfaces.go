// Package datasource provides read-only access to the analytics database's
// physical metadata. The gateway only ever asks one question of it: which
// indexes exist on a given set of tables.
package datasource

import "context"

// TableIndex describes one existing index on a referenced table.
type TableIndex struct {
	Table      string `json:"table"`
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// IndexProvider lists indexes for a set of table names. Implementations
// must tolerate unknown table names and simply omit them.
type IndexProvider interface {
	ListIndexes(ctx context.Context, tables []string) ([]TableIndex, error)
}

// NoopIndexProvider is used when no analytics datasource is configured.
// Plan analysis then runs without index context rather than failing.
type NoopIndexProvider struct{}

// ListIndexes implements IndexProvider.
func (NoopIndexProvider) ListIndexes(ctx context.Context, tables []string) ([]TableIndex, error) {
	return nil, nil
}

var _ IndexProvider = NoopIndexProvider{}
