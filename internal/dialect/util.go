package dialect

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// QualifiedTableName returns a properly quoted table reference.
// If schemaName is empty, returns just the quoted table name.
func QualifiedTableName(schemaName, tableName string) string {
	if schemaName == "" {
		return pgx.Identifier{tableName}.Sanitize()
	}
	return pgx.Identifier{schemaName, tableName}.Sanitize()
}

// ColumnReference quotes the first path segment as an identifier and renders
// the rest as subscripts: "address"['zip'].
func ColumnReference(path []string) string {
	if len(path) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(pgx.Identifier{path[0]}.Sanitize())
	for _, seg := range path[1:] {
		b.WriteByte('[')
		b.WriteString(QuoteLiteral(seg))
		b.WriteByte(']')
	}
	return b.String()
}

// QuoteLiteral quotes s as a SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// DefaultNormalizeType is a default implementation for type normalization (lowercase, single spaces).
func DefaultNormalizeType(sqlType string) string {
	return strings.ToLower(strings.Join(strings.Fields(sqlType), " "))
}
