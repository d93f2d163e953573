package engine

import (
	"context"

	"go.uber.org/zap"

	"crate-schema/internal/action"
	"crate-schema/internal/apperrors"
	"crate-schema/internal/mapping"
	"crate-schema/internal/schema"
)

// Plan returns the actions Start would execute, in order, without changing
// the database. Only columns are read.
func (m *Manager) Plan(ctx context.Context) ([]action.Action, error) {
	if !m.option.Valid() {
		return nil, schema.UnknownOptionError(m.option.String())
	}

	var actions []action.Action
	for _, e := range m.mappingContext.PersistentEntities() {
		if err := ctx.Err(); err != nil {
			return actions, err
		}
		planned, err := m.planEntity(ctx, e)
		if err != nil {
			return actions, err
		}
		actions = append(actions, planned...)
	}
	return actions, nil
}

func (m *Manager) planEntity(ctx context.Context, e *mapping.PersistentEntity) ([]action.Action, error) {
	if m.option != schema.Update {
		return []action.Action{
			action.DropTable(e.TableName),
			action.CreateTable(schema.CreateDefinition(e)),
		}, nil
	}

	columns, err := m.exec.ReadColumns(ctx, action.ReadColumns(e.TableName))
	if apperrors.IsNoSuchTable(err) {
		return []action.Action{action.CreateTable(schema.CreateDefinition(e))}, nil
	}
	if err != nil {
		return nil, err
	}

	def := schema.UpdateDefinition(e, schema.NewTableMetadata(e.TableName, columns))
	if def == nil {
		return nil, nil
	}
	actions := make([]action.Action, 0, len(def.Columns))
	for _, col := range def.Columns {
		actions = append(actions, action.AddColumn(def.Name, col))
	}
	return actions, nil
}

// Drift describes an entity whose table does not match its descriptor.
type Drift struct {
	Entity  string
	Table   string
	Missing []string // qualified column names; nil when the table is missing
	Err     error
}

// Verify reads every table back and reports the entities that are still not
// in sync with their descriptor. An empty result means the schema matches.
func (m *Manager) Verify(ctx context.Context) []Drift {
	var drifts []Drift
	for _, e := range m.mappingContext.PersistentEntities() {
		columns, err := m.exec.ReadColumns(ctx, action.ReadColumns(e.TableName))
		if err != nil {
			drifts = append(drifts, Drift{Entity: e.Name, Table: e.TableName, Err: err})
			continue
		}

		def := schema.UpdateDefinition(e, schema.NewTableMetadata(e.TableName, columns))
		if def == nil {
			continue
		}
		d := Drift{Entity: e.Name, Table: e.TableName}
		for _, col := range def.Columns {
			d.Missing = append(d.Missing, col.QualifiedName())
		}
		drifts = append(drifts, d)
	}

	if len(drifts) > 0 {
		m.logger.Warn("schema verification found drift", zap.Int("entities", len(drifts)))
	}
	return drifts
}
