package action

import (
	"fmt"

	"crate-schema/internal/schema"
)

// Kind identifies one of the database operations the schema manager issues.
type Kind int

const (
	KindCreateTable Kind = iota + 1
	KindDropTable
	KindAlterTable
	KindReadColumns
)

func (k Kind) String() string {
	switch k {
	case KindCreateTable:
		return "create table"
	case KindDropTable:
		return "drop table"
	case KindAlterTable:
		return "alter table"
	case KindReadColumns:
		return "read columns"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Action describes one operation. Which fields are set depends on Kind:
// Definition for KindCreateTable, Column for KindAlterTable, only Table for
// the others. Use the constructors below.
type Action struct {
	Kind       Kind
	Table      string
	Definition *schema.TableDefinition
	Column     *schema.Column
}

func CreateTable(def *schema.TableDefinition) Action {
	return Action{Kind: KindCreateTable, Table: def.Name, Definition: def}
}

func DropTable(table string) Action {
	return Action{Kind: KindDropTable, Table: table}
}

// AddColumn adds one column, or one sub-column of an existing object, to table.
func AddColumn(table string, col schema.Column) Action {
	return Action{Kind: KindAlterTable, Table: table, Column: &col}
}

func ReadColumns(table string) Action {
	return Action{Kind: KindReadColumns, Table: table}
}

// Validate checks that the fields required by Kind are present.
func (a Action) Validate() error {
	if a.Table == "" {
		return fmt.Errorf("%s: table name is required", a.Kind)
	}
	switch a.Kind {
	case KindCreateTable:
		if a.Definition == nil {
			return fmt.Errorf("%s '%s': definition is required", a.Kind, a.Table)
		}
	case KindAlterTable:
		if a.Column == nil {
			return fmt.Errorf("%s '%s': column is required", a.Kind, a.Table)
		}
	case KindDropTable, KindReadColumns:
	default:
		return fmt.Errorf("unknown action %s", a.Kind)
	}
	return nil
}

func (a Action) String() string {
	if a.Kind == KindAlterTable && a.Column != nil {
		return fmt.Sprintf("%s '%s' add column %s", a.Kind, a.Table, a.Column.QualifiedName())
	}
	return fmt.Sprintf("%s '%s'", a.Kind, a.Table)
}
