package mapping_test

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crate-schema/internal/apperrors"
	"crate-schema/internal/mapping"
)

const entitiesYAML = `
entities:
  - name: Person
    table: people
    primary_key: [id]
    columns:
      - {name: id, type: text}
      - {name: name, type: string}
      - name: address
        type: object(strict)
        columns:
          - {name: city, type: text}
          - {name: zip, type: text}
  - name: event
    columns:
      - {name: id, type: long}
      - {name: tags, type: array(text)}
`

func TestBuild_FromViper(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(entitiesYAML)))

	var specs []mapping.EntitySpec
	require.NoError(t, v.UnmarshalKey("entities", &specs))
	require.Len(t, specs, 2)

	person, err := mapping.Build(specs[0])
	require.NoError(t, err)
	assert.Equal(t, "people", person.TableName)
	assert.Equal(t, []string{"id"}, person.PrimaryKey)

	address, ok := person.Property("address")
	require.True(t, ok)
	assert.Equal(t, "object(strict)", address.Type.String())
	require.Len(t, address.Nested, 2)

	event, err := mapping.Build(specs[1])
	require.NoError(t, err)
	assert.Equal(t, "events", event.TableName)
	assert.Equal(t, []string{"id"}, event.PrimaryKey, "id is the default primary key")
	tags, _ := event.Property("tags")
	assert.Equal(t, "array(text)", tags.Type.String())
}

func TestBuild_MatchesReflection(t *testing.T) {
	declared, err := mapping.Build(mapping.EntitySpec{
		Name:       "Person",
		PrimaryKey: []string{"id"},
		Columns: []mapping.ColumnSpec{
			{Name: "id", Type: "text"},
			{Name: "name", Type: "text"},
			{Name: "address", Type: "object(strict)", Columns: []mapping.ColumnSpec{
				{Name: "city", Type: "text"},
				{Name: "zip", Type: "text"},
			}},
		},
	})
	require.NoError(t, err)

	reflected, err := mapping.NewPersistentEntity(Person{})
	require.NoError(t, err)

	assert.Equal(t, reflected.TableName, declared.TableName)
	assert.Equal(t, reflected.PrimaryKey, declared.PrimaryKey)
	require.Len(t, declared.Properties, len(reflected.Properties))
	for i, p := range reflected.Properties {
		assert.Equal(t, p.Name, declared.Properties[i].Name)
		assert.Equal(t, p.Type, declared.Properties[i].Type, p.Name)
		assert.Len(t, declared.Properties[i].Nested, len(p.Nested))
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec mapping.EntitySpec
	}{
		{"no name", mapping.EntitySpec{Columns: []mapping.ColumnSpec{{Name: "id", Type: "text"}}}},
		{"no columns", mapping.EntitySpec{Name: "empty"}},
		{"unnamed column", mapping.EntitySpec{Name: "x", Columns: []mapping.ColumnSpec{{Type: "text"}}}},
		{"duplicate column", mapping.EntitySpec{Name: "x", Columns: []mapping.ColumnSpec{
			{Name: "id", Type: "text"}, {Name: "ID", Type: "text"},
		}}},
		{"unknown type", mapping.EntitySpec{Name: "x", Columns: []mapping.ColumnSpec{{Name: "id", Type: "uuid"}}}},
		{"sub-columns on scalar", mapping.EntitySpec{Name: "x", Columns: []mapping.ColumnSpec{
			{Name: "id", Type: "text", Columns: []mapping.ColumnSpec{{Name: "a", Type: "text"}}},
		}}},
		{"no primary key", mapping.EntitySpec{Name: "x", Columns: []mapping.ColumnSpec{{Name: "code", Type: "text"}}}},
		{"undeclared primary key", mapping.EntitySpec{Name: "x", PrimaryKey: []string{"code"}, Columns: []mapping.ColumnSpec{{Name: "id", Type: "text"}}}},
		{"object primary key", mapping.EntitySpec{Name: "x", PrimaryKey: []string{"id"}, Columns: []mapping.ColumnSpec{{Name: "id", Type: "object"}}}},
		{"primary key listed twice", mapping.EntitySpec{Name: "x", PrimaryKey: []string{"id", "ID"}, Columns: []mapping.ColumnSpec{{Name: "id", Type: "text"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mapping.Build(tt.spec)
			require.Error(t, err)
			var me *apperrors.MappingError
			assert.ErrorAs(t, err, &me)
		})
	}
}
