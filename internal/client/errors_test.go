package client

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"crate-schema/internal/action"
	"crate-schema/internal/apperrors"
)

func TestTranslate(t *testing.T) {
	drop := action.DropTable("people")
	read := action.ReadColumns("people")
	create := action.Action{Kind: action.KindCreateTable, Table: "people"}

	tests := []struct {
		name          string
		a             action.Action
		err           error
		noSuchTable   bool
		resourceUsage bool
		timeout       bool
	}{
		{
			name:          "pq undefined table",
			a:             drop,
			err:           &pq.Error{Code: "42P01", Message: "Relation 'doc.people' unknown"},
			noSuchTable:   true,
			resourceUsage: true,
		},
		{
			name:          "pgx undefined table",
			a:             read,
			err:           fmt.Errorf("query: %w", &pgconn.PgError{Code: "42P01", Message: "RelationUnknown"}),
			noSuchTable:   true,
			resourceUsage: true,
		},
		{
			name:          "unknown schema",
			a:             drop,
			err:           &pgconn.PgError{Code: "3F000", Message: "Schema 'x' unknown"},
			noSuchTable:   true,
			resourceUsage: true,
		},
		{
			name:        "relation unknown text only",
			a:           read,
			err:         errors.New("ERROR: RelationUnknown: Relation 'doc.people' unknown"),
			noSuchTable: true,
			// NoSuchTableError is always a resource usage error.
			resourceUsage: true,
		},
		{
			name:          "drop privilege failure",
			a:             drop,
			err:           &pq.Error{Code: "42501", Message: "permission denied"},
			resourceUsage: true,
		},
		{
			name: "create conflict",
			a:    create,
			err:  &pgconn.PgError{Code: "42P07", Message: "Relation 'doc.people' already exists"},
		},
		{
			name:    "deadline",
			a:       create,
			err:     fmt.Errorf("exec: %w", context.DeadlineExceeded),
			timeout: true,
		},
		{
			name: "connection failure on drop",
			a:    drop,
			err:  errors.New("dial tcp: connection refused"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.a, tt.err)

			assert.True(t, apperrors.IsDataAccess(got))
			assert.Equal(t, tt.noSuchTable, apperrors.IsNoSuchTable(got))
			assert.Equal(t, tt.resourceUsage, apperrors.IsResourceUsage(got))
			assert.ErrorIs(t, got, tt.err)

			var dae *apperrors.DataAccessError
			if errors.As(got, &dae) {
				assert.Equal(t, tt.timeout, dae.Timeout)
				assert.Equal(t, "people", dae.Table)
			}
		})
	}
}

func TestTranslate_Nil(t *testing.T) {
	assert.NoError(t, translate(action.DropTable("people"), nil))
}

func TestTranslate_KeepsNoSuchTable(t *testing.T) {
	orig := &apperrors.NoSuchTableError{Table: "people"}
	assert.Same(t, orig, translate(action.ReadColumns("people"), orig))
}
