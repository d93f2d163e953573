package schema

import (
	"strings"

	"crate-schema/internal/mapping"
)

// TableDefinition is either a full table to create or, when produced by
// UpdateDefinition, only the columns that must be added.
type TableDefinition struct {
	Name       string
	PrimaryKey []string
	Columns    []Column
}

// Column is one column of a TableDefinition. Parent holds the path of an
// existing object column when the column is added into it; it is empty for
// top-level columns and for sub-columns listed in Columns.
type Column struct {
	Name    string
	Type    mapping.DataType
	Parent  []string
	Columns []Column
}

// Path returns the full column path, parent segments first.
func (c Column) Path() []string {
	path := make([]string, 0, len(c.Parent)+1)
	path = append(path, c.Parent...)
	return append(path, c.Name)
}

// QualifiedName renders the path in CrateDB subscript notation: address['zip'].
func (c Column) QualifiedName() string {
	return FormatColumnPath(c.Path())
}

// TableMetadata is what information_schema reports for a table at one point in time.
type TableMetadata struct {
	Name    string
	Columns []ColumnMetadata
}

// ColumnMetadata is a reported column. Sub-columns of objects are nested
// under their parent.
type ColumnMetadata struct {
	Name    string
	Type    string
	Columns []ColumnMetadata
}

func findColumnMetadata(cols []ColumnMetadata, name string) (*ColumnMetadata, bool) {
	name = mapping.NormalizeName(name)
	for i := range cols {
		if mapping.NormalizeName(cols[i].Name) == name {
			return &cols[i], true
		}
	}
	return nil, false
}

// FormatColumnPath renders a column path as CrateDB reports it: a['b']['c'].
func FormatColumnPath(path []string) string {
	if len(path) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(path[0])
	for _, seg := range path[1:] {
		b.WriteString("['")
		b.WriteString(strings.ReplaceAll(seg, "'", "''"))
		b.WriteString("']")
	}
	return b.String()
}
