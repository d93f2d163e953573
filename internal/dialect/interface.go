package dialect

import "crate-schema/internal/schema"

// Dialect abstracts database-specific SQL text.
type Dialect interface {
	// Metadata Queries (Schema Introspection); both take (schema, table) arguments.
	TableExistsQuery() string
	GetColumnsQuery() string

	// DDL Generation
	CreateTableQuery(schemaName string, def *schema.TableDefinition) string
	DropTableQuery(schemaName, table string) string
	AlterTableAddColumnQuery(schemaName, table string, col schema.Column) string

	// Helpers
	NormalizeType(sqlType string) string
	GetSchemaName(input string) string
}
