package schema_test

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crate-schema/internal/mapping"
	"crate-schema/internal/schema"
)

type Address struct {
	City string `crate:"city"`
	Zip  string `crate:"zip"`
}

type Person struct {
	ID      string  `crate:"id,pk"`
	Name    string  `crate:"name"`
	Age     int32   `crate:"age"`
	Address Address `crate:"address"`
	Phones  []Phone `crate:"phones"`
}

type Phone struct {
	Kind   string `crate:"kind"`
	Number string `crate:"number"`
}

func person(t *testing.T) *mapping.PersistentEntity {
	t.Helper()
	e, err := mapping.NewPersistentEntity(Person{})
	require.NoError(t, err)
	return e
}

// rows flattens definition columns the way information_schema reports them.
func rows(cols []schema.Column, parent []string) []schema.ColumnMetadata {
	var out []schema.ColumnMetadata
	for _, c := range cols {
		path := append(append([]string{}, parent...), c.Name)
		out = append(out, schema.ColumnMetadata{Name: schema.FormatColumnPath(path), Type: c.Type.String()})
		out = append(out, rows(c.Columns, path)...)
	}
	return out
}

func TestCreateDefinition(t *testing.T) {
	def := schema.CreateDefinition(person(t))

	assert.Equal(t, "people", def.Name)
	assert.Equal(t, []string{"id"}, def.PrimaryKey)

	var names []string
	for _, c := range def.Columns {
		names = append(names, c.Name)
		assert.Empty(t, c.Parent)
	}
	assert.Equal(t, []string{"id", "name", "age", "address", "phones"}, names)

	address := def.Columns[3]
	assert.Equal(t, "object(dynamic)", address.Type.String())
	require.Len(t, address.Columns, 2)
	assert.Equal(t, "zip", address.Columns[1].Name)

	phones := def.Columns[4]
	assert.Equal(t, "array(object(dynamic))", phones.Type.String())
	require.Len(t, phones.Columns, 2)
}

func TestUpdateDefinition_MissingTableColumns(t *testing.T) {
	live := schema.NewTableMetadata("people", []schema.ColumnMetadata{
		{Name: "id", Type: "text"},
	})

	def := schema.UpdateDefinition(person(t), live)
	require.NotNil(t, def)
	assert.Equal(t, "people", def.Name)
	assert.Empty(t, def.PrimaryKey)

	var names []string
	for _, c := range def.Columns {
		names = append(names, c.QualifiedName())
	}
	assert.Equal(t, []string{"name", "age", "address", "phones"}, names, "declared order")
	assert.Len(t, def.Columns[2].Columns, 2, "a missing object is added whole")
}

func TestUpdateDefinition_PartialObject(t *testing.T) {
	live := schema.NewTableMetadata("people", []schema.ColumnMetadata{
		{Name: "id", Type: "text"},
		{Name: "name", Type: "text"},
		{Name: "age", Type: "integer"},
		{Name: "address", Type: "object"},
		{Name: "address['city']", Type: "text"},
		{Name: "phones", Type: "object_array"},
	})

	def := schema.UpdateDefinition(person(t), live)
	require.NotNil(t, def)
	require.Len(t, def.Columns, 1)

	zip := def.Columns[0]
	assert.Equal(t, "zip", zip.Name)
	assert.Equal(t, []string{"address"}, zip.Parent)
	assert.Equal(t, "address['zip']", zip.QualifiedName())
	assert.Equal(t, "text", zip.Type.String())
}

func TestUpdateDefinition_InSync(t *testing.T) {
	e := person(t)
	live := schema.NewTableMetadata(e.TableName, rows(schema.CreateDefinition(e).Columns, nil))
	assert.Nil(t, schema.UpdateDefinition(e, live))
}

func TestUpdateDefinition_IgnoresExtraAndRetypedColumns(t *testing.T) {
	e := person(t)
	live := rows(schema.CreateDefinition(e).Columns, nil)
	live = append(live,
		schema.ColumnMetadata{Name: "legacy", Type: "text"},
		schema.ColumnMetadata{Name: "address['country']", Type: "text"},
	)
	live[2].Type = "bigint" // age

	assert.Nil(t, schema.UpdateDefinition(e, schema.NewTableMetadata(e.TableName, live)))
}

func TestUpdateDefinition_ArrayOfObjectsByName(t *testing.T) {
	e := person(t)
	var live []schema.ColumnMetadata
	for _, r := range rows(schema.CreateDefinition(e).Columns, nil) {
		if r.Name == "phones['number']" {
			continue
		}
		live = append(live, r)
	}

	assert.Nil(t, schema.UpdateDefinition(e, schema.NewTableMetadata(e.TableName, live)))
}

func TestUpdateDefinition_CaseInsensitive(t *testing.T) {
	e := person(t)
	live := rows(schema.CreateDefinition(e).Columns, nil)
	for i := range live {
		live[i].Name = strings.ToUpper(live[i].Name)
	}
	assert.Nil(t, schema.UpdateDefinition(e, schema.NewTableMetadata(e.TableName, live)))
}

func TestUpdateDefinition_NilMetadata(t *testing.T) {
	def := schema.UpdateDefinition(person(t), nil)
	require.NotNil(t, def)
	assert.Len(t, def.Columns, 5)
}

// randomEntity declares an entity with random scalar and object columns.
func randomEntity(t *testing.T, f *gofakeit.Faker) *mapping.PersistentEntity {
	t.Helper()
	scalars := []string{"text", "bigint", "integer", "boolean", "double", "timestamp", "ip", "array(text)"}

	spec := mapping.EntitySpec{Name: "entity_" + strings.ToLower(f.LetterN(6)), PrimaryKey: []string{"id"}}
	spec.Columns = append(spec.Columns, mapping.ColumnSpec{Name: "id", Type: "text"})
	for i := 0; i < f.Number(1, 8); i++ {
		col := mapping.ColumnSpec{Name: fmt.Sprintf("c%s_%d", strings.ToLower(f.LetterN(5)), i)}
		if f.Bool() {
			col.Type = f.RandomString(scalars)
		} else {
			col.Type = "object"
			for j := 0; j < f.Number(1, 4); j++ {
				col.Columns = append(col.Columns, mapping.ColumnSpec{
					Name: fmt.Sprintf("s%s_%d", strings.ToLower(f.LetterN(5)), j),
					Type: f.RandomString(scalars),
				})
			}
		}
		spec.Columns = append(spec.Columns, col)
	}

	e, err := mapping.Build(spec)
	require.NoError(t, err)
	return e
}

func TestUpdateDefinition_Properties(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		f := gofakeit.New(seed)
		e := randomEntity(t, f)
		full := rows(schema.CreateDefinition(e).Columns, nil)

		// A table created from the definition is in sync.
		require.Nil(t, schema.UpdateDefinition(e, schema.NewTableMetadata(e.TableName, full)), "seed %d", seed)

		// Dropping one reported column yields exactly that column.
		victim := full[f.Number(1, len(full)-1)]
		var partial []schema.ColumnMetadata
		victimPath := schema.ParseColumnPath(victim.Name)
		for _, r := range full {
			p := schema.ParseColumnPath(r.Name)
			if len(p) >= len(victimPath) && slices.Equal(p[:len(victimPath)], victimPath) {
				continue
			}
			partial = append(partial, r)
		}

		def := schema.UpdateDefinition(e, schema.NewTableMetadata(e.TableName, partial))
		require.NotNil(t, def, "seed %d", seed)
		require.Len(t, def.Columns, 1, "seed %d", seed)
		assert.Equal(t, victim.Name, def.Columns[0].QualifiedName(), "seed %d", seed)

		// Applying the update brings the table back in sync.
		applied := append(partial, rows(def.Columns, def.Columns[0].Parent)...)
		assert.Nil(t, schema.UpdateDefinition(e, schema.NewTableMetadata(e.TableName, applied)), "seed %d", seed)
	}
}
