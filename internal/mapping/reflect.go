package mapping

import (
	"fmt"
	"net"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/jinzhu/inflection"

	"crate-schema/internal/apperrors"
)

const tagName = "crate"

var (
	timeType = reflect.TypeOf(time.Time{})
	ipType   = reflect.TypeOf(net.IP{})
)

// Tabler lets an entity type choose its own table name.
type Tabler interface {
	TableName() string
}

// EntityOption customizes entity registration.
type EntityOption func(*entityConfig)

type entityConfig struct {
	name  string
	table string
}

// WithTableName overrides the table name of the entity.
func WithTableName(table string) EntityOption {
	return func(c *entityConfig) { c.table = table }
}

// WithEntityName overrides the registry name of the entity (default: Go type name).
func WithEntityName(name string) EntityOption {
	return func(c *entityConfig) { c.name = name }
}

// tagOptions is the parsed form of `crate:"name,pk,type=geo_point,object=strict"`.
type tagOptions struct {
	name   string
	skip   bool
	pk     bool
	typ    string
	policy string
}

func parseTag(tag string) (tagOptions, error) {
	var opts tagOptions
	if tag == "-" {
		opts.skip = true
		return opts, nil
	}
	parts := strings.Split(tag, ",")
	opts.name = strings.TrimSpace(parts[0])
	for _, part := range parts[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(part), "=")
		switch key {
		case "pk":
			opts.pk = true
		case "type":
			opts.typ = value
		case "object":
			opts.policy = value
		case "":
		default:
			return opts, fmt.Errorf("unknown tag option %q", key)
		}
	}
	return opts, nil
}

// NewPersistentEntity builds the descriptor of a struct type from its `crate` tags.
// v may be a struct value, a pointer to one, or a reflect.Type.
func NewPersistentEntity(v any, opts ...EntityOption) (*PersistentEntity, error) {
	t, ok := v.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(v)
	}
	if t == nil {
		return nil, &apperrors.MappingError{Entity: "<nil>", Reason: "entity must be a struct"}
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, &apperrors.MappingError{Entity: t.String(), Reason: "entity must be a struct"}
	}

	var cfg entityConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	name := cfg.name
	if name == "" {
		name = t.Name()
	}
	table := cfg.table
	if table == "" {
		table = tableNameOf(t)
	}

	b := &builder{entity: name, visiting: map[reflect.Type]bool{t: true}}
	props, err := b.properties(t, nil, "", true)
	if err != nil {
		return nil, err
	}

	pk := b.pk
	if len(pk) == 0 && b.idColumn != "" {
		pk = []string{b.idColumn}
	}
	if len(pk) == 0 {
		return nil, &apperrors.MappingError{Entity: name, Reason: "no primary key found"}
	}

	return &PersistentEntity{
		Name:       name,
		Type:       t,
		TableName:  NormalizeName(table),
		PrimaryKey: pk,
		Properties: props,
	}, nil
}

func tableNameOf(t reflect.Type) string {
	if tn, ok := reflect.New(t).Interface().(Tabler); ok {
		if name := tn.TableName(); name != "" {
			return name
		}
	}
	return inflection.Plural(SnakeCase(t.Name()))
}

type builder struct {
	entity   string
	visiting map[reflect.Type]bool
	pk       []string
	idColumn string
}

func (b *builder) fail(field, format string, args ...any) error {
	return &apperrors.MappingError{Entity: b.entity, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// properties walks the fields of t in declaration order. Embedded structs
// without a column name are flattened into the enclosing level.
func (b *builder) properties(t reflect.Type, index []int, path string, top bool) ([]*Property, error) {
	var props []*Property
	seen := make(map[string]bool)

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fieldPath := joinPath(path, f.Name)

		opts, err := parseTag(f.Tag.Get(tagName))
		if err != nil {
			return nil, b.fail(fieldPath, "%v", err)
		}
		if opts.skip {
			continue
		}

		idx := append(append([]int{}, index...), i)

		if f.Anonymous && opts.name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && ft != timeType {
				if b.visiting[ft] {
					return nil, b.fail(fieldPath, "cyclic reference to %s", ft)
				}
				b.visiting[ft] = true
				embedded, err := b.properties(ft, idx, path, top)
				delete(b.visiting, ft)
				if err != nil {
					return nil, err
				}
				for _, p := range embedded {
					if seen[p.Name] {
						return nil, b.fail(fieldPath, "duplicate column %q", p.Name)
					}
					seen[p.Name] = true
				}
				props = append(props, embedded...)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}

		p, err := b.property(f, opts, idx, fieldPath)
		if err != nil {
			return nil, err
		}
		if seen[p.Name] {
			return nil, b.fail(fieldPath, "duplicate column %q", p.Name)
		}
		seen[p.Name] = true

		if opts.pk {
			if !top {
				return nil, b.fail(fieldPath, "primary key must be a top-level column")
			}
			if p.Type.IsObject() || p.Type.IsArray() {
				return nil, b.fail(fieldPath, "primary key cannot be of type %s", p.Type)
			}
			b.pk = append(b.pk, p.Name)
		} else if top && f.Name == "ID" && b.idColumn == "" {
			b.idColumn = p.Name
		}

		props = append(props, p)
	}
	return props, nil
}

func (b *builder) property(f reflect.StructField, opts tagOptions, index []int, fieldPath string) (*Property, error) {
	name := opts.name
	if name == "" {
		name = SnakeCase(f.Name)
	}
	name = NormalizeName(name)

	policy, err := ParseObjectPolicy(opts.policy)
	if err != nil {
		return nil, b.fail(fieldPath, "%v", err)
	}

	if opts.typ != "" {
		dt, err := ParseDataType(opts.typ)
		if err != nil {
			return nil, b.fail(fieldPath, "%v", err)
		}
		if dt.IsObject() || dt.IsObjectArray() {
			return nil, b.fail(fieldPath, "type override %q cannot declare an object", opts.typ)
		}
		return &Property{Name: name, Type: dt, FieldIndex: index}, nil
	}

	dt, nested, err := b.mapType(f.Type, policy, fieldPath)
	if err != nil {
		return nil, err
	}
	return &Property{Name: name, Type: dt, Nested: nested, FieldIndex: index}, nil
}

// mapType maps a Go type to a CrateDB type. Struct types become objects whose
// fields are mapped recursively; a struct reachable from itself is rejected.
func (b *builder) mapType(t reflect.Type, policy ObjectPolicy, fieldPath string) (DataType, []*Property, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t {
	case timeType:
		return Timestamp, nil, nil
	case ipType:
		return IP, nil, nil
	}

	switch t.Kind() {
	case reflect.String:
		return Text, nil, nil
	case reflect.Bool:
		return Boolean, nil, nil
	case reflect.Int8, reflect.Int16, reflect.Uint8:
		return Smallint, nil, nil
	case reflect.Int32, reflect.Uint16:
		return Integer, nil, nil
	case reflect.Int, reflect.Int64, reflect.Uint32:
		return Bigint, nil, nil
	case reflect.Float32:
		return Real, nil, nil
	case reflect.Float64:
		return Double, nil, nil

	case reflect.Slice, reflect.Array:
		elem, nested, err := b.mapType(t.Elem(), policy, fieldPath)
		if err != nil {
			return DataType{}, nil, err
		}
		if elem.IsArray() {
			return DataType{}, nil, b.fail(fieldPath, "nested arrays are not supported")
		}
		return Array(elem), nested, nil

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return DataType{}, nil, b.fail(fieldPath, "cannot map %s: object keys must be strings", t)
		}
		return Object(policy), nil, nil

	case reflect.Struct:
		if b.visiting[t] {
			return DataType{}, nil, b.fail(fieldPath, "cyclic reference to %s", t)
		}
		b.visiting[t] = true
		nested, err := b.properties(t, nil, fieldPath, false)
		delete(b.visiting, t)
		if err != nil {
			return DataType{}, nil, err
		}
		return Object(policy), nested, nil
	}

	return DataType{}, nil, b.fail(fieldPath, "cannot map type %s to a CrateDB type", t)
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// SnakeCase converts Go identifiers to column names: "UserID" -> "user_id".
func SnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
