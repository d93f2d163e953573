package dialect

import (
	"fmt"
	"strings"

	"crate-schema/internal/mapping"
	"crate-schema/internal/schema"
)

// DefaultSchema is the schema CrateDB puts unqualified tables in.
const DefaultSchema = "doc"

type CrateDialect struct{}

func (d *CrateDialect) TableExistsQuery() string {
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2`
}

func (d *CrateDialect) GetColumnsQuery() string {
	// Sub-columns of objects are reported as separate rows named parent['child'].
	return `SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`
}

func (d *CrateDialect) CreateTableQuery(schemaName string, def *schema.TableDefinition) string {
	parts := make([]string, 0, len(def.Columns)+1)
	for _, c := range def.Columns {
		parts = append(parts, columnDefinition(c))
	}
	if len(def.PrimaryKey) > 0 {
		keys := make([]string, len(def.PrimaryKey))
		for i, k := range def.PrimaryKey {
			keys[i] = ColumnReference([]string{k})
		}
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(keys, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)",
		QualifiedTableName(d.GetSchemaName(schemaName), def.Name),
		strings.Join(parts, ", "))
}

func (d *CrateDialect) DropTableQuery(schemaName, table string) string {
	return fmt.Sprintf("DROP TABLE %s", QualifiedTableName(d.GetSchemaName(schemaName), table))
}

func (d *CrateDialect) AlterTableAddColumnQuery(schemaName, table string, col schema.Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		QualifiedTableName(d.GetSchemaName(schemaName), table),
		ColumnReference(col.Path()),
		typeDefinition(col.Type, col.Columns))
}

// NormalizeType maps reported type names, including those of older CrateDB
// releases, onto the vocabulary used in entity descriptors.
func (d *CrateDialect) NormalizeType(sqlType string) string {
	t := DefaultNormalizeType(sqlType)
	if elem, ok := strings.CutSuffix(t, "_array"); ok {
		return fmt.Sprintf("array(%s)", d.NormalizeType(elem))
	}
	switch t {
	case "string", "varchar", "character varying":
		return mapping.TypeText
	case "short", "int2":
		return mapping.TypeSmallint
	case "int", "int4":
		return mapping.TypeInteger
	case "long", "int8":
		return mapping.TypeBigint
	case "float", "float4":
		return mapping.TypeReal
	case "double", "float8":
		return mapping.TypeDouble
	case "timestamp", "timestamptz":
		return mapping.TypeTimestamp
	default:
		return t
	}
}

func (d *CrateDialect) GetSchemaName(input string) string {
	if input == "" {
		return DefaultSchema
	}
	return input
}

func columnDefinition(c schema.Column) string {
	return ColumnReference([]string{c.Name}) + " " + typeDefinition(c.Type, c.Columns)
}

// typeDefinition renders a type together with the sub-columns of objects and
// arrays of objects: object(strict) AS ("city" text).
func typeDefinition(t mapping.DataType, nested []schema.Column) string {
	switch {
	case t.IsObject():
		if len(nested) == 0 {
			return t.String()
		}
		cols := make([]string, len(nested))
		for i, c := range nested {
			cols[i] = columnDefinition(c)
		}
		return fmt.Sprintf("%s AS (%s)", t.String(), strings.Join(cols, ", "))
	case t.IsArray() && t.Elem != nil:
		return fmt.Sprintf("array(%s)", typeDefinition(*t.Elem, nested))
	default:
		return t.String()
	}
}
