package client

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"crate-schema/internal/action"
	"crate-schema/internal/apperrors"
)

// SQLSTATE codes CrateDB sends over the PostgreSQL wire protocol.
const (
	codeUndefinedTable    = "42P01"
	codeInvalidSchemaName = "3F000"
)

// translate maps a driver error onto the error kinds of apperrors.
// CrateDB reports a missing relation as 42P01 (RelationUnknown); any other
// class 42 or 3F failure of a drop is a resource usage failure.
func translate(a action.Action, err error) error {
	if err == nil {
		return nil
	}

	var nst *apperrors.NoSuchTableError
	if errors.As(err, &nst) {
		return err
	}

	code, msg := sqlState(err)
	if isUndefinedTable(code, msg) {
		return &apperrors.NoSuchTableError{Table: a.Table, Err: err}
	}

	return &apperrors.DataAccessError{
		Op:            a.Kind.String(),
		Table:         a.Table,
		Timeout:       errors.Is(err, context.DeadlineExceeded),
		ResourceUsage: a.Kind == action.KindDropTable && isResourceUsageClass(code),
		Err:           err,
	}
}

// sqlState extracts the SQLSTATE code and server message from lib/pq and
// pgx errors. Other errors yield an empty code.
func sqlState(err error) (code, message string) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Message
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.Message
	}
	return "", err.Error()
}

func isUndefinedTable(code, msg string) bool {
	if code == codeUndefinedTable || code == codeInvalidSchemaName {
		return true
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "relationunknown") ||
		(strings.Contains(lower, "relation '") && strings.Contains(lower, "' unknown"))
}

func isResourceUsageClass(code string) bool {
	return strings.HasPrefix(code, "42") || strings.HasPrefix(code, "3F")
}
