package mapping_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crate-schema/internal/apperrors"
	"crate-schema/internal/mapping"
)

func TestContext_Register(t *testing.T) {
	mc := mapping.NewContext()

	_, err := mc.Register(Person{})
	require.NoError(t, err)
	_, err = mc.Register(Invoice{})
	require.NoError(t, err)

	assert.Equal(t, 2, mc.Len())

	var names []string
	for _, e := range mc.PersistentEntities() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Person", "Invoice"}, names)

	e, ok := mc.PersistentEntity("Person")
	require.True(t, ok)
	assert.Equal(t, "people", e.TableName)

	e, ok = mc.PersistentEntity("Invoice")
	require.True(t, ok)
	assert.Equal(t, "invoices", e.TableName)

	_, ok = mc.PersistentEntity("Missing")
	assert.False(t, ok)
}

func TestContext_RejectsDuplicates(t *testing.T) {
	mc := mapping.NewContext()
	_, err := mc.Register(Person{})
	require.NoError(t, err)

	_, err = mc.Register(Person{})
	assert.ErrorIs(t, err, apperrors.ErrMapping)

	_, err = mc.Register(Invoice{}, mapping.WithTableName("people"))
	assert.ErrorIs(t, err, apperrors.ErrMapping)

	assert.Equal(t, 1, mc.Len())
}

func TestContext_RegisterSpecsIsAllOrNothing(t *testing.T) {
	mc := mapping.NewContext()
	err := mc.RegisterSpecs([]mapping.EntitySpec{
		{Name: "good", Columns: []mapping.ColumnSpec{{Name: "id", Type: "text"}}},
		{Name: "bad", Columns: []mapping.ColumnSpec{{Name: "id", Type: "nope"}}},
	})
	require.Error(t, err)
	assert.Equal(t, 0, mc.Len())
}

func TestContext_RegisterSpecsRejectsCollisionsAtomically(t *testing.T) {
	columns := []mapping.ColumnSpec{{Name: "id", Type: "text"}}

	tests := []struct {
		name  string
		specs []mapping.EntitySpec
	}{
		{"same table", []mapping.EntitySpec{
			{Name: "a", Table: "t", Columns: columns},
			{Name: "b", Table: "t", Columns: columns},
		}},
		{"same entity", []mapping.EntitySpec{
			{Name: "a", Table: "t1", Columns: columns},
			{Name: "a", Table: "t2", Columns: columns},
		}},
		{"table of a registered entity", []mapping.EntitySpec{
			{Name: "c", Table: "t3", Columns: columns},
			{Name: "d", Table: "people", Columns: columns},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := mapping.NewContext()
			_, err := mc.Register(Person{})
			require.NoError(t, err)

			err = mc.RegisterSpecs(tt.specs)
			assert.ErrorIs(t, err, apperrors.ErrMapping)
			assert.Equal(t, 1, mc.Len())
			for _, spec := range tt.specs {
				_, ok := mc.PersistentEntity(spec.Name)
				assert.False(t, ok, spec.Name)
			}
		})
	}
}

func TestContext_PersistentEntitiesReturnsCopy(t *testing.T) {
	mc := mapping.NewContext()
	_, err := mc.Register(Person{})
	require.NoError(t, err)

	entities := mc.PersistentEntities()
	entities[0] = nil
	assert.NotNil(t, mc.PersistentEntities()[0])
}

func TestContext_ConcurrentReads(t *testing.T) {
	mc := mapping.NewContext()
	_, err := mc.Register(Person{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = mc.PersistentEntity("Person")
				_ = mc.PersistentEntities()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, mc.Len())
}
