package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"crate-schema/internal/action"
	"crate-schema/internal/apperrors"
	"crate-schema/internal/dialect"
	"crate-schema/internal/logging"
	"crate-schema/internal/retry"
	"crate-schema/internal/schema"
)

// Config controls how statements are sent.
type Config struct {
	Schema  string        // CrateDB schema, "doc" when empty
	Timeout time.Duration // per statement; 0 disables the deadline
	Retry   *retry.Config // transient failures; nil uses retry.DefaultConfig
}

// Client executes actions against CrateDB through database/sql.
type Client struct {
	db      *sql.DB
	dialect dialect.Dialect
	cfg     Config
	logger  *zap.Logger
}

// New creates a client. If logger is nil, a no-op logger is used.
func New(db *sql.DB, d dialect.Dialect, cfg Config, logger *zap.Logger) *Client {
	cfg.Schema = d.GetSchemaName(cfg.Schema)
	return &Client{
		db:      db,
		dialect: d,
		cfg:     cfg,
		logger:  logging.OrNop(logger).Named("client"),
	}
}

// Schema returns the CrateDB schema tables are created in.
func (c *Client) Schema() string {
	return c.cfg.Schema
}

// Ping verifies the database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if err := c.db.PingContext(ctx); err != nil {
		return &apperrors.DataAccessError{Op: "ping", Timeout: ctx.Err() != nil, Err: err}
	}
	return nil
}

// Statement renders the DDL text of a mutating action.
func (c *Client) Statement(a action.Action) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}
	switch a.Kind {
	case action.KindCreateTable:
		return c.dialect.CreateTableQuery(c.cfg.Schema, a.Definition), nil
	case action.KindDropTable:
		return c.dialect.DropTableQuery(c.cfg.Schema, a.Table), nil
	case action.KindAlterTable:
		return c.dialect.AlterTableAddColumnQuery(c.cfg.Schema, a.Table, *a.Column), nil
	default:
		return "", fmt.Errorf("%s does not mutate the schema", a.Kind)
	}
}

// Execute runs one action. Reading columns through Execute only checks that
// the table exists; use ReadColumns to get them.
func (c *Client) Execute(ctx context.Context, a action.Action) error {
	if a.Kind == action.KindReadColumns {
		_, err := c.ReadColumns(ctx, a)
		return err
	}

	stmt, err := c.Statement(a)
	if err != nil {
		return &apperrors.DataAccessError{Op: a.Kind.String(), Table: a.Table, Err: err}
	}

	c.logger.Debug("executing statement",
		zap.Stringer("action", a),
		zap.String("sql", logging.SanitizeStatement(stmt)))

	err = retry.DoIfRetryable(ctx, c.cfg.Retry, func() error {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		_, err := c.db.ExecContext(ctx, stmt)
		return err
	})
	return translate(a, err)
}

// ReadColumns returns the columns of a.Table as reported by information_schema,
// flat and in ordinal order, with normalized type names. It fails with
// apperrors.NoSuchTableError when the table does not exist.
func (c *Client) ReadColumns(ctx context.Context, a action.Action) ([]schema.ColumnMetadata, error) {
	if a.Kind != action.KindReadColumns {
		return nil, &apperrors.DataAccessError{Op: a.Kind.String(), Table: a.Table, Err: fmt.Errorf("not a read columns action")}
	}
	if err := a.Validate(); err != nil {
		return nil, &apperrors.DataAccessError{Op: a.Kind.String(), Table: a.Table, Err: err}
	}

	columns, err := retry.DoWithResult(ctx, c.cfg.Retry, func() ([]schema.ColumnMetadata, error) {
		return c.readColumns(ctx, a.Table)
	})
	if err != nil {
		return nil, translate(a, err)
	}
	return columns, nil
}

func (c *Client) readColumns(ctx context.Context, table string) ([]schema.ColumnMetadata, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var name string
	err := c.db.QueryRowContext(ctx, c.dialect.TableExistsQuery(), c.cfg.Schema, table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperrors.NoSuchTableError{Table: table}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query table: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, c.dialect.GetColumnsQuery(), c.cfg.Schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.ColumnMetadata
	for rows.Next() {
		var cName, dType sql.NullString
		if err := rows.Scan(&cName, &dType); err != nil {
			return nil, fmt.Errorf("failed to scan column (table: %s): %w", table, err)
		}
		if !cName.Valid {
			continue
		}
		columns = append(columns, schema.ColumnMetadata{
			Name: cName.String,
			Type: c.dialect.NormalizeType(dType.String),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	return columns, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}
