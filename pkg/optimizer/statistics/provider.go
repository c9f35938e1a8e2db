package statistics

import (
	dberror "imputedb/pkg/error"
)

// Provider serves precomputed statistics and primary keys by table name.
// The optimizer only reads from it.
type Provider interface {
	TableStats(table string) (*TableStats, error)
	PrimaryKey(table string) (string, bool)
}

// MapProvider is an in-memory Provider. Populate it before planning starts;
// it is not safe to modify while optimizers read from it.
type MapProvider struct {
	stats map[string]*TableStats
	keys  map[string]string
}

func NewMapProvider() *MapProvider {
	return &MapProvider{
		stats: make(map[string]*TableStats),
		keys:  make(map[string]string),
	}
}

// Put registers statistics for a table, replacing any earlier entry.
func (p *MapProvider) Put(table string, stats *TableStats) {
	p.stats[table] = stats
}

// SetPrimaryKey records the primary key column of a table.
func (p *MapProvider) SetPrimaryKey(table, column string) {
	p.keys[table] = column
}

func (p *MapProvider) TableStats(table string) (*TableStats, error) {
	ts, ok := p.stats[table]
	if !ok {
		return nil, dberror.MissingStatistics(table).At("TableStats", "MapProvider")
	}
	return ts, nil
}

func (p *MapProvider) PrimaryKey(table string) (string, bool) {
	k, ok := p.keys[table]
	return k, ok
}

// Tables returns the number of registered tables.
func (p *MapProvider) Tables() int {
	return len(p.stats)
}
