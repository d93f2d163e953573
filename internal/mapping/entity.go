package mapping

import (
	"reflect"
	"strings"
)

// PersistentEntity describes how an entity type is stored as a CrateDB table.
// It is built once and never modified afterwards.
type PersistentEntity struct {
	Name       string
	Type       reflect.Type // nil for declared entities
	TableName  string
	PrimaryKey []string
	Properties []*Property
}

// Property is one column of an entity. Object columns, and arrays of
// objects, carry their sub-columns in Nested.
type Property struct {
	Name       string
	Type       DataType
	Nested     []*Property
	FieldIndex []int // nil for declared entities
}

// Property returns the top-level property with the given column name.
func (e *PersistentEntity) Property(name string) (*Property, bool) {
	return findProperty(e.Properties, name)
}

// HasNested reports whether the property declares sub-columns.
func (p *Property) HasNested() bool {
	return len(p.Nested) > 0
}

func findProperty(props []*Property, name string) (*Property, bool) {
	name = NormalizeName(name)
	for _, p := range props {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// NormalizeName folds a column or table name the way CrateDB reports it back.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
