package mapping

import (
	"fmt"
	"strings"
)

// ObjectPolicy is the column policy of a CrateDB object column.
type ObjectPolicy string

const (
	PolicyDynamic ObjectPolicy = "dynamic"
	PolicyStrict  ObjectPolicy = "strict"
	PolicyIgnored ObjectPolicy = "ignored"
)

// ParseObjectPolicy accepts an empty string as the default dynamic policy.
func ParseObjectPolicy(s string) (ObjectPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dynamic":
		return PolicyDynamic, nil
	case "strict":
		return PolicyStrict, nil
	case "ignored":
		return PolicyIgnored, nil
	default:
		return "", fmt.Errorf("unknown object policy %q", s)
	}
}

// Base type names as CrateDB reports them in information_schema.columns.
const (
	TypeText      = "text"
	TypeBoolean   = "boolean"
	TypeSmallint  = "smallint"
	TypeInteger   = "integer"
	TypeBigint    = "bigint"
	TypeReal      = "real"
	TypeDouble    = "double precision"
	TypeTimestamp = "timestamp with time zone"
	TypeIP        = "ip"
	TypeGeoPoint  = "geo_point"
	TypeGeoShape  = "geo_shape"
	TypeObject    = "object"
	TypeArray     = "array"
)

// DataType is a column type in the CrateDB type vocabulary.
// Arrays carry their element type, objects their column policy.
type DataType struct {
	Name   string
	Elem   *DataType
	Policy ObjectPolicy
}

var (
	Text      = DataType{Name: TypeText}
	Boolean   = DataType{Name: TypeBoolean}
	Smallint  = DataType{Name: TypeSmallint}
	Integer   = DataType{Name: TypeInteger}
	Bigint    = DataType{Name: TypeBigint}
	Real      = DataType{Name: TypeReal}
	Double    = DataType{Name: TypeDouble}
	Timestamp = DataType{Name: TypeTimestamp}
	IP        = DataType{Name: TypeIP}
	GeoPoint  = DataType{Name: TypeGeoPoint}
	GeoShape  = DataType{Name: TypeGeoShape}
)

// Array returns the array type of elem.
func Array(elem DataType) DataType {
	return DataType{Name: TypeArray, Elem: &elem}
}

// Object returns an object type with the given column policy.
func Object(policy ObjectPolicy) DataType {
	if policy == "" {
		policy = PolicyDynamic
	}
	return DataType{Name: TypeObject, Policy: policy}
}

func (t DataType) IsObject() bool { return t.Name == TypeObject }

func (t DataType) IsArray() bool { return t.Name == TypeArray }

// IsObjectArray reports whether t is an array of objects.
func (t DataType) IsObjectArray() bool {
	return t.IsArray() && t.Elem != nil && t.Elem.IsObject()
}

// String renders the type without nested column definitions.
func (t DataType) String() string {
	switch t.Name {
	case TypeArray:
		if t.Elem == nil {
			return "array"
		}
		return fmt.Sprintf("array(%s)", t.Elem.String())
	case TypeObject:
		return fmt.Sprintf("object(%s)", t.Policy)
	default:
		return t.Name
	}
}

var typeAliases = map[string]DataType{
	"text":                     Text,
	"string":                   Text,
	"varchar":                  Text,
	"boolean":                  Boolean,
	"bool":                     Boolean,
	"smallint":                 Smallint,
	"short":                    Smallint,
	"byte":                     Smallint,
	"integer":                  Integer,
	"int":                      Integer,
	"bigint":                   Bigint,
	"long":                     Bigint,
	"real":                     Real,
	"float":                    Real,
	"double precision":         Double,
	"double":                   Double,
	"timestamp with time zone": Timestamp,
	"timestamptz":              Timestamp,
	"timestamp":                Timestamp,
	"ip":                       IP,
	"geo_point":                GeoPoint,
	"geo_shape":                GeoShape,
}

// ParseDataType parses type names as written in entity declarations,
// e.g. "text", "long", "array(string)", "object(strict)".
func ParseDataType(s string) (DataType, error) {
	name := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if t, ok := typeAliases[name]; ok {
		return t, nil
	}

	if inner, ok := unwrap(name, "array"); ok {
		if inner == "" {
			return DataType{}, fmt.Errorf("array type %q has no element type", s)
		}
		elem, err := ParseDataType(inner)
		if err != nil {
			return DataType{}, err
		}
		if elem.IsArray() {
			return DataType{}, fmt.Errorf("nested arrays are not supported: %q", s)
		}
		return Array(elem), nil
	}

	if name == TypeObject {
		return Object(PolicyDynamic), nil
	}
	if inner, ok := unwrap(name, "object"); ok {
		policy, err := ParseObjectPolicy(inner)
		if err != nil {
			return DataType{}, err
		}
		return Object(policy), nil
	}

	return DataType{}, fmt.Errorf("unknown data type %q", s)
}

// unwrap returns the text between "prefix(" and a trailing ")".
func unwrap(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix+"(") || !strings.HasSuffix(s, ")") {
		return "", false
	}
	return strings.TrimSpace(s[len(prefix)+1 : len(s)-1]), true
}
