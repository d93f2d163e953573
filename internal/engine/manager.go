package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"crate-schema/internal/action"
	"crate-schema/internal/apperrors"
	"crate-schema/internal/logging"
	"crate-schema/internal/mapping"
	"crate-schema/internal/schema"
)

// Executor runs actions against the database. client.Client implements it.
type Executor interface {
	Execute(ctx context.Context, a action.Action) error
	ReadColumns(ctx context.Context, a action.Action) ([]schema.ColumnMetadata, error)
}

// Manager creates, alters and drops the tables of the entities registered in
// a mapping context. Start and Stop are meant to be called once each, in
// that order, by whatever owns the process lifecycle.
type Manager struct {
	mappingContext  *mapping.Context
	exec            Executor
	option          schema.SchemaOption
	ignoreFailures  bool
	continueOnError bool
	workers         int
	onProgress      func(Result)
	logger          *zap.Logger

	inspected sync.Map // entity name -> struct{}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSchemaOption sets the reconciliation policy (default schema.Update).
func WithSchemaOption(option schema.SchemaOption) ManagerOption {
	return func(m *Manager) { m.option = option }
}

// WithIgnoreFailures logs data access failures of Start instead of returning them.
func WithIgnoreFailures(ignore bool) ManagerOption {
	return func(m *Manager) { m.ignoreFailures = ignore }
}

// WithContinueOnError keeps reconciling the remaining entities after one fails.
// By default the first failure ends the run.
func WithContinueOnError(cont bool) ManagerOption {
	return func(m *Manager) { m.continueOnError = cont }
}

// WithWorkers sets how many entities are reconciled concurrently (default 1).
func WithWorkers(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithProgress registers a callback invoked after each entity is reconciled.
// It may be called from several goroutines.
func WithProgress(fn func(Result)) ManagerOption {
	return func(m *Manager) { m.onProgress = fn }
}

func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

func NewManager(mc *mapping.Context, exec Executor, opts ...ManagerOption) *Manager {
	m := &Manager{
		mappingContext: mc,
		exec:           exec,
		option:         schema.Update,
		workers:        1,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrNop(m.logger).Named("engine")
	return m
}

func (m *Manager) Option() schema.SchemaOption {
	return m.option
}

// Start reconciles every registered entity according to the schema option.
//
// The report is returned even when the run fails. A data access failure is
// returned unless failures are ignored, in which case it is logged. An
// unknown schema option is always returned, before any database call.
func (m *Manager) Start(ctx context.Context) (*Report, error) {
	if !m.option.Valid() {
		return nil, schema.UnknownOptionError(m.option.String())
	}

	start := time.Now()
	entities := m.mappingContext.PersistentEntities()
	names := make([]string, len(entities))
	tables := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
		tables[i] = e.TableName
	}

	report := newReport(uuid.NewString(), m.option, names, tables)
	logger := m.logger.With(zap.String("run_id", report.RunID), zap.Stringer("option", m.option))
	logger.Info("reconciling schema", zap.Int("entities", len(entities)), zap.Int("workers", m.workers))

	var err error
	if m.continueOnError {
		err = m.runAll(ctx, logger, entities, report)
	} else {
		err = m.runUntilFailure(ctx, logger, entities, report)
	}
	report.Elapsed = time.Since(start)

	if err != nil {
		if m.ignoreFailures && apperrors.IsDataAccess(err) {
			logger.Warn("schema reconciliation failed, failure ignored", zap.String("error", logging.SanitizeError(err)))
			return report, nil
		}
		return report, err
	}

	logger.Info("schema reconciled",
		zap.Int("actions", report.Actions()),
		zap.Duration("elapsed", report.Elapsed))
	return report, nil
}

// runUntilFailure stops scheduling entities after the first failure. An
// entity already started runs to completion on ctx so a failure elsewhere
// cannot cut it off between its drop and its create.
func (m *Manager) runUntilFailure(ctx context.Context, logger *zap.Logger, entities []*mapping.PersistentEntity, report *Report) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for i, e := range entities {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res := m.reconcile(ctx, logger, e)
			report.Results[i] = res
			return res.Err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &apperrors.DataAccessError{Op: "reconcile", Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
	}
	return nil
}

// runAll reconciles every entity and joins the failures.
func (m *Manager) runAll(ctx context.Context, logger *zap.Logger, entities []*mapping.PersistentEntity, report *Report) error {
	var g errgroup.Group
	g.SetLimit(m.workers)

	for i, e := range entities {
		g.Go(func() error {
			report.Results[i] = m.reconcile(ctx, logger, e)
			return nil
		})
	}
	_ = g.Wait()
	return report.Err()
}

// reconcile runs the operations of one entity in order.
func (m *Manager) reconcile(ctx context.Context, logger *zap.Logger, e *mapping.PersistentEntity) Result {
	start := time.Now()
	logger = logger.With(zap.String("entity", e.Name), zap.String("table", e.TableName))

	var res Result
	switch m.option {
	case schema.Create, schema.CreateDrop:
		res = m.dropAndCreate(ctx, logger, e)
	case schema.Update:
		res = m.update(ctx, logger, e)
	}
	res.Entity = e.Name
	res.Table = e.TableName
	res.Elapsed = time.Since(start)

	if res.Err != nil {
		res.Outcome = OutcomeFailed
		logger.Error("reconciliation failed", zap.String("error", logging.SanitizeError(res.Err)))
	} else {
		m.inspected.Store(e.Name, struct{}{})
	}

	if m.onProgress != nil {
		m.onProgress(res)
	}
	return res
}

func (m *Manager) dropAndCreate(ctx context.Context, logger *zap.Logger, e *mapping.PersistentEntity) Result {
	var res Result
	if err := m.dropTable(ctx, logger, e); err != nil {
		res.Err = err
		return res
	}

	create := action.CreateTable(schema.CreateDefinition(e))
	if err := m.exec.Execute(ctx, create); err != nil {
		res.Err = err
		return res
	}
	logger.Info("created table")

	res.Actions = append(res.Actions, create)
	res.Outcome = OutcomeRecreated
	return res
}

func (m *Manager) update(ctx context.Context, logger *zap.Logger, e *mapping.PersistentEntity) Result {
	var res Result

	columns, err := m.exec.ReadColumns(ctx, action.ReadColumns(e.TableName))
	if apperrors.IsNoSuchTable(err) {
		logger.Info(err.Error())
		create := action.CreateTable(schema.CreateDefinition(e))
		if err := m.exec.Execute(ctx, create); err != nil {
			res.Err = err
			return res
		}
		logger.Info("created table")
		res.Actions = append(res.Actions, create)
		res.Outcome = OutcomeCreated
		return res
	}
	if err != nil {
		res.Err = err
		return res
	}

	def := schema.UpdateDefinition(e, schema.NewTableMetadata(e.TableName, columns))
	if def == nil {
		logger.Info("entity and table are in sync")
		res.Outcome = OutcomeInSync
		return res
	}

	for _, col := range def.Columns {
		alter := action.AddColumn(def.Name, col)
		if err := m.exec.Execute(ctx, alter); err != nil {
			res.Err = err
			return res
		}
		logger.Info("altered table", zap.String("column", col.QualifiedName()), zap.Stringer("type", col.Type))
		res.Actions = append(res.Actions, alter)
	}
	res.Outcome = OutcomeAltered
	return res
}

// dropTable drops the entity's table. A table that does not exist is
// expected and only logged.
func (m *Manager) dropTable(ctx context.Context, logger *zap.Logger, e *mapping.PersistentEntity) error {
	err := m.exec.Execute(ctx, action.DropTable(e.TableName))
	switch {
	case err == nil:
		logger.Info("dropped table")
		return nil
	case apperrors.IsResourceUsage(err):
		logger.Warn("drop table skipped", zap.String("reason", logging.SanitizeError(err)))
		return nil
	default:
		return fmt.Errorf("drop table: %w", err)
	}
}

// Stop drops the tables created by Start when the option is CreateDrop.
// Failures are logged and never returned.
func (m *Manager) Stop(ctx context.Context) {
	if m.option != schema.CreateDrop {
		return
	}

	logger := m.logger.With(zap.Stringer("option", m.option))
	for _, name := range m.Inspected() {
		e, ok := m.mappingContext.PersistentEntity(name)
		if !ok {
			continue
		}
		elog := logger.With(zap.String("entity", e.Name), zap.String("table", e.TableName))
		if err := m.dropTable(ctx, elog, e); err != nil {
			elog.Warn("teardown failed", zap.String("error", logging.SanitizeError(err)))
			continue
		}
		m.inspected.Delete(e.Name)
	}
}

// Inspected returns the names of the entities reconciled successfully, in
// registration order.
func (m *Manager) Inspected() []string {
	var names []string
	for _, e := range m.mappingContext.PersistentEntities() {
		if _, ok := m.inspected.Load(e.Name); ok {
			names = append(names, e.Name)
		}
	}
	return names
}
