package statistics

import (
	dberror "imputedb/pkg/error"
	"imputedb/pkg/primitives"

	"gopkg.in/yaml.v3"
)

// TableDefinition describes a table's statistics declaratively. Either Rows
// lists explicit data (null cells are missing), or Cardinality together with
// per-column ranges and null counts generates an evenly spread column.
type TableDefinition struct {
	Name        string             `yaml:"name"`
	PrimaryKey  string             `yaml:"primary_key"`
	Buckets     int                `yaml:"buckets"`
	Cardinality int64              `yaml:"cardinality"`
	Columns     []ColumnDefinition `yaml:"columns"`
	Rows        [][]*int64         `yaml:"rows"`
}

// ColumnDefinition is one column of a TableDefinition.
type ColumnDefinition struct {
	Name  string `yaml:"name"`
	Min   int64  `yaml:"min"`
	Max   int64  `yaml:"max"`
	Nulls int64  `yaml:"nulls"`
}

// Definitions is the document form accepted by LoadDefinitions.
type Definitions struct {
	Tables []TableDefinition `yaml:"tables"`
}

// ParseDefinitions decodes a YAML definitions document without building it.
func ParseDefinitions(data []byte) (Definitions, error) {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return Definitions{}, dberror.Wrap(err, dberror.CodeInvalidArgument, "ParseDefinitions", "statistics")
	}
	return defs, nil
}

// LoadDefinitions parses YAML table definitions into a provider.
func LoadDefinitions(data []byte) (*MapProvider, error) {
	defs, err := ParseDefinitions(data)
	if err != nil {
		return nil, err
	}

	p := NewMapProvider()
	for _, td := range defs.Tables {
		ts, err := td.Build()
		if err != nil {
			return nil, err
		}
		p.Put(td.Name, ts)
		if td.PrimaryKey != "" {
			p.SetPrimaryKey(td.Name, td.PrimaryKey)
		}
	}
	return p, nil
}

// Build computes the statistics a definition describes.
func (td TableDefinition) Build() (*TableStats, error) {
	if td.Name == "" {
		return nil, dberror.InvalidArgument("table definition without a name")
	}

	names := make([]string, len(td.Columns))
	for i, c := range td.Columns {
		names[i] = c.Name
	}
	if len(td.Rows) > 0 {
		return Collect(names, td.Rows, td.Buckets)
	}
	if len(td.Columns) == 0 {
		return nil, dberror.InvalidArgument("table %q defines no columns", td.Name)
	}

	buckets := td.Buckets
	if buckets <= 0 {
		buckets = DefaultBuckets
	}

	cols := make([]primitives.QualifiedName, len(td.Columns))
	hists := make([]*Histogram, len(td.Columns))
	for i, c := range td.Columns {
		if c.Nulls < 0 || c.Nulls > td.Cardinality {
			return nil, dberror.InvalidArgument("column %s.%s has %d nulls for %d rows",
				td.Name, c.Name, c.Nulls, td.Cardinality)
		}
		h, err := NewHistogram(buckets, c.Min, c.Max)
		if err != nil {
			return nil, err
		}
		span := c.Max - c.Min + 1
		for r := int64(0); r < td.Cardinality-c.Nulls; r++ {
			h.AddValue(c.Min + r%span)
		}
		hists[i] = h.WithMissing(float64(c.Nulls))
		cols[i] = primitives.NewQualifiedName("", c.Name)
	}
	return newTableStats(cols, hists), nil
}
