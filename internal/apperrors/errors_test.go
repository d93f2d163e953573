package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoSuchTableError(t *testing.T) {
	cause := errors.New("RelationUnknown")
	err := fmt.Errorf("read columns: %w", &NoSuchTableError{Table: "people", Err: cause})

	assert.True(t, IsNoSuchTable(err))
	assert.True(t, IsResourceUsage(err))
	assert.True(t, IsDataAccess(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "table 'people' does not exist", (&NoSuchTableError{Table: "people"}).Error())
}

func TestDataAccessError(t *testing.T) {
	plain := &DataAccessError{Op: "create table", Table: "people", Err: errors.New("boom")}
	assert.True(t, IsDataAccess(plain))
	assert.False(t, IsResourceUsage(plain))
	assert.False(t, IsNoSuchTable(plain))
	assert.Equal(t, "create table 'people' failed: boom", plain.Error())

	usage := &DataAccessError{Op: "drop table", Table: "people", ResourceUsage: true}
	assert.True(t, IsResourceUsage(usage))

	timeout := &DataAccessError{Op: "alter table", Timeout: true, Err: errors.New("deadline")}
	assert.Equal(t, "alter table timed out: deadline", timeout.Error())
}

func TestMappingError(t *testing.T) {
	err := &MappingError{Entity: "Person", Field: "Address.Zip", Reason: "cannot map type chan int"}
	assert.ErrorIs(t, err, ErrMapping)
	assert.False(t, IsDataAccess(err))
	assert.Equal(t, "mapping Person.Address.Zip: cannot map type chan int", err.Error())
	assert.Equal(t, "mapping Person: no primary key found", (&MappingError{Entity: "Person", Reason: "no primary key found"}).Error())
}

func TestUnknownSchemaOptionError(t *testing.T) {
	err := &UnknownSchemaOptionError{Value: "VALIDATE", Valid: []string{"CREATE", "UPDATE"}}
	assert.ErrorIs(t, err, ErrUnknownSchemaOption)
	assert.False(t, IsDataAccess(err))
	assert.Equal(t, `unknown SchemaOption "VALIDATE". valid values are [CREATE, UPDATE]`, err.Error())
}
