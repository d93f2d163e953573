package mapping

import (
	"fmt"
	"slices"

	"github.com/jinzhu/inflection"

	"crate-schema/internal/apperrors"
)

// EntitySpec declares an entity without a Go type, e.g. from the config file:
//
//	entities:
//	  - name: person
//	    primary_key: [id]
//	    columns:
//	      - {name: id, type: text}
//	      - name: address
//	        type: object(strict)
//	        columns:
//	          - {name: city, type: text}
type EntitySpec struct {
	Name       string       `mapstructure:"name" yaml:"name"`
	Table      string       `mapstructure:"table" yaml:"table"`
	PrimaryKey []string     `mapstructure:"primary_key" yaml:"primary_key"`
	Columns    []ColumnSpec `mapstructure:"columns" yaml:"columns"`
}

// ColumnSpec declares one column. Columns is only valid for object types and
// arrays of objects.
type ColumnSpec struct {
	Name    string       `mapstructure:"name" yaml:"name"`
	Type    string       `mapstructure:"type" yaml:"type"`
	Columns []ColumnSpec `mapstructure:"columns" yaml:"columns"`
}

// Build validates spec and turns it into a descriptor equivalent to one
// derived from struct tags.
func Build(spec EntitySpec) (*PersistentEntity, error) {
	name := spec.Name
	if name == "" {
		name = spec.Table
	}
	if name == "" {
		return nil, &apperrors.MappingError{Entity: "<unnamed>", Reason: "entity needs a name or a table"}
	}
	table := spec.Table
	if table == "" {
		table = inflection.Plural(SnakeCase(name))
	}

	props, err := buildColumns(name, "", spec.Columns)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, &apperrors.MappingError{Entity: name, Reason: "entity declares no columns"}
	}

	e := &PersistentEntity{
		Name:       name,
		TableName:  NormalizeName(table),
		Properties: props,
	}

	if len(spec.PrimaryKey) == 0 {
		if _, ok := e.Property("id"); ok {
			e.PrimaryKey = []string{"id"}
		} else {
			return nil, &apperrors.MappingError{Entity: name, Reason: "no primary key found"}
		}
	}
	for _, pk := range spec.PrimaryKey {
		p, ok := e.Property(pk)
		if !ok {
			return nil, &apperrors.MappingError{Entity: name, Field: pk, Reason: "primary key column is not declared"}
		}
		if p.Type.IsObject() || p.Type.IsArray() {
			return nil, &apperrors.MappingError{Entity: name, Field: pk, Reason: fmt.Sprintf("primary key cannot be of type %s", p.Type)}
		}
		if slices.Contains(e.PrimaryKey, p.Name) {
			return nil, &apperrors.MappingError{Entity: name, Field: pk, Reason: "primary key column listed twice"}
		}
		e.PrimaryKey = append(e.PrimaryKey, p.Name)
	}

	return e, nil
}

func buildColumns(entity, path string, specs []ColumnSpec) ([]*Property, error) {
	props := make([]*Property, 0, len(specs))
	seen := make(map[string]bool)

	for _, cs := range specs {
		name := NormalizeName(cs.Name)
		fieldPath := joinPath(path, name)
		if name == "" {
			return nil, &apperrors.MappingError{Entity: entity, Field: path, Reason: "column without a name"}
		}
		if seen[name] {
			return nil, &apperrors.MappingError{Entity: entity, Field: fieldPath, Reason: "duplicate column"}
		}
		seen[name] = true

		dt, err := ParseDataType(cs.Type)
		if err != nil {
			return nil, &apperrors.MappingError{Entity: entity, Field: fieldPath, Reason: err.Error()}
		}

		p := &Property{Name: name, Type: dt}
		if len(cs.Columns) > 0 {
			if !dt.IsObject() && !dt.IsObjectArray() {
				return nil, &apperrors.MappingError{Entity: entity, Field: fieldPath, Reason: fmt.Sprintf("type %s cannot declare sub-columns", dt)}
			}
			p.Nested, err = buildColumns(entity, fieldPath, cs.Columns)
			if err != nil {
				return nil, err
			}
		}
		props = append(props, p)
	}
	return props, nil
}
