package schema

import (
	"strconv"
	"strings"

	"crate-schema/internal/apperrors"
)

// SchemaOption is the reconciliation policy applied on start and stop.
type SchemaOption int

const (
	// Create drops and recreates every table on start.
	Create SchemaOption = iota + 1
	// CreateDrop drops and recreates on start and drops again on stop.
	CreateDrop
	// Update adds missing columns, creating tables that do not exist.
	Update
)

var optionNames = map[SchemaOption]string{
	Create:     "CREATE",
	CreateDrop: "CREATE_DROP",
	Update:     "UPDATE",
}

// SchemaOptions lists the valid options.
func SchemaOptions() []SchemaOption {
	return []SchemaOption{Create, CreateDrop, Update}
}

func (o SchemaOption) String() string {
	if name, ok := optionNames[o]; ok {
		return name
	}
	return "SchemaOption(" + strconv.Itoa(int(o)) + ")"
}

func (o SchemaOption) Valid() bool {
	_, ok := optionNames[o]
	return ok
}

// ParseSchemaOption accepts "create", "create-drop", "create_drop" and "update"
// in any case.
func ParseSchemaOption(s string) (SchemaOption, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for opt, name := range optionNames {
		if name == norm {
			return opt, nil
		}
	}
	return 0, UnknownOptionError(s)
}

// UnknownOptionError builds the error returned for an unrecognized option.
func UnknownOptionError(value string) error {
	valid := make([]string, 0, len(optionNames))
	for _, opt := range SchemaOptions() {
		valid = append(valid, opt.String())
	}
	return &apperrors.UnknownSchemaOptionError{Value: value, Valid: valid}
}
