package schema

import (
	"strings"

	"crate-schema/internal/mapping"
)

// NewTableMetadata assembles flat information_schema rows into nested
// metadata. Rows for sub-columns ("address['city']") may come before or
// after their parent; a parent that is never reported is assumed to be an
// object.
func NewTableMetadata(table string, rows []ColumnMetadata) *TableMetadata {
	m := &TableMetadata{Name: table}
	for _, row := range rows {
		path := ParseColumnPath(row.Name)
		if len(path) == 0 {
			continue
		}
		insertColumn(&m.Columns, path, row.Type)
	}
	return m
}

func insertColumn(cols *[]ColumnMetadata, path []string, typ string) {
	name := mapping.NormalizeName(path[0])
	c, ok := findColumnMetadata(*cols, name)
	if !ok {
		*cols = append(*cols, ColumnMetadata{Name: name})
		c = &(*cols)[len(*cols)-1]
	}
	if len(path) == 1 {
		c.Type = typ
		return
	}
	if c.Type == "" {
		c.Type = mapping.TypeObject
	}
	insertColumn(&c.Columns, path[1:], typ)
}

// ParseColumnPath splits a reported column name into its path segments.
// Both subscript notation (a['b']['c']) and the dotted notation of older
// CrateDB versions (a.b.c) are understood.
func ParseColumnPath(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	open := strings.Index(name, "[")
	if open < 0 {
		return strings.Split(name, ".")
	}

	path := []string{name[:open]}
	rest := name[open:]
	for len(rest) > 0 {
		if !strings.HasPrefix(rest, "['") {
			break
		}
		rest = rest[2:]
		var seg strings.Builder
		closed := false
		for i := 0; i < len(rest); i++ {
			if rest[i] != '\'' {
				seg.WriteByte(rest[i])
				continue
			}
			if i+1 < len(rest) && rest[i+1] == '\'' {
				seg.WriteByte('\'')
				i++
				continue
			}
			rest = rest[i+1:]
			closed = true
			break
		}
		if !closed {
			break
		}
		path = append(path, seg.String())
		rest = strings.TrimPrefix(rest, "]")
	}
	return path
}
