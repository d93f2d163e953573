package schema

import (
	"crate-schema/internal/mapping"
)

// CreateDefinition translates every property of e, recursively and in
// declared order, into the definition of a new table.
func CreateDefinition(e *mapping.PersistentEntity) *TableDefinition {
	return &TableDefinition{
		Name:       e.TableName,
		PrimaryKey: append([]string(nil), e.PrimaryKey...),
		Columns:    toColumns(e.Properties),
	}
}

// UpdateDefinition returns the columns of e that live lacks, in declared
// order, or nil when the table is in sync.
//
// Columns are matched by normalized name only; a column present on both
// sides is never retyped. An object column present in the table is diffed
// recursively and only its missing sub-columns are returned, each with
// Parent set to the object's path. Arrays of objects are matched by name.
func UpdateDefinition(e *mapping.PersistentEntity, live *TableMetadata) *TableDefinition {
	var existing []ColumnMetadata
	if live != nil {
		existing = live.Columns
	}

	missing := diffColumns(e.Properties, existing, nil)
	if len(missing) == 0 {
		return nil
	}
	return &TableDefinition{Name: e.TableName, Columns: missing}
}

func diffColumns(props []*mapping.Property, live []ColumnMetadata, parent []string) []Column {
	var missing []Column
	for _, p := range props {
		lc, ok := findColumnMetadata(live, p.Name)
		if !ok {
			c := toColumn(p)
			c.Parent = parent
			missing = append(missing, c)
			continue
		}
		if p.Type.IsObject() && p.HasNested() {
			path := append(append([]string(nil), parent...), p.Name)
			missing = append(missing, diffColumns(p.Nested, lc.Columns, path)...)
		}
	}
	return missing
}

func toColumns(props []*mapping.Property) []Column {
	if len(props) == 0 {
		return nil
	}
	cols := make([]Column, 0, len(props))
	for _, p := range props {
		cols = append(cols, toColumn(p))
	}
	return cols
}

func toColumn(p *mapping.Property) Column {
	return Column{
		Name:    p.Name,
		Type:    p.Type,
		Columns: toColumns(p.Nested),
	}
}
