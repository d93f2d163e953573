package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMapping             = errors.New("mapping error")
	ErrNoSuchTable         = errors.New("no such table")
	ErrDataAccess          = errors.New("data access failure")
	ErrResourceUsage       = errors.New("invalid resource usage")
	ErrUnknownSchemaOption = errors.New("unknown schema option")
)

// MappingError reports an entity that cannot be turned into a table description.
// It is always fatal and surfaces before any database call is made.
type MappingError struct {
	Entity string
	Field  string
	Reason string
}

func (e *MappingError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("mapping %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("mapping %s.%s: %s", e.Entity, e.Field, e.Reason)
}

func (e *MappingError) Unwrap() error { return ErrMapping }

// NoSuchTableError is returned when a table is absent. It is a resource usage
// failure and therefore also a data access failure.
type NoSuchTableError struct {
	Table string
	Err   error
}

func (e *NoSuchTableError) Error() string {
	return fmt.Sprintf("table '%s' does not exist", e.Table)
}

func (e *NoSuchTableError) Unwrap() error { return e.Err }

func (e *NoSuchTableError) Is(target error) bool {
	return target == ErrNoSuchTable || target == ErrResourceUsage || target == ErrDataAccess
}

// DataAccessError wraps any other database failure.
type DataAccessError struct {
	Op            string
	Table         string
	Timeout       bool
	ResourceUsage bool
	Err           error
}

func (e *DataAccessError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Table != "" {
		fmt.Fprintf(&b, " '%s'", e.Table)
	}
	if e.Timeout {
		b.WriteString(" timed out")
	} else {
		b.WriteString(" failed")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DataAccessError) Unwrap() error { return e.Err }

func (e *DataAccessError) Is(target error) bool {
	if target == ErrDataAccess {
		return true
	}
	return target == ErrResourceUsage && e.ResourceUsage
}

// UnknownSchemaOptionError is a configuration error and always fatal.
type UnknownSchemaOptionError struct {
	Value string
	Valid []string
}

func (e *UnknownSchemaOptionError) Error() string {
	return fmt.Sprintf("unknown SchemaOption %q. valid values are [%s]", e.Value, strings.Join(e.Valid, ", "))
}

func (e *UnknownSchemaOptionError) Unwrap() error { return ErrUnknownSchemaOption }

// IsNoSuchTable reports whether err means the table does not exist.
func IsNoSuchTable(err error) bool {
	return errors.Is(err, ErrNoSuchTable)
}

// IsResourceUsage reports whether err is an expected resource usage failure,
// such as dropping a table that is already gone.
func IsResourceUsage(err error) bool {
	return errors.Is(err, ErrResourceUsage)
}

// IsDataAccess reports whether err originated from the database.
func IsDataAccess(err error) bool {
	return errors.Is(err, ErrDataAccess)
}
