package schema

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/world-in-progress/docrepo/db/value"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/multierr"
)

type validatorFunc func(name string, v any) error

var typeValidators = map[string]validatorFunc{
	TypeString: func(name string, v any) error {
		if _, ok := v.(string); !ok {
			return fmt.Errorf("%s must be a string", name)
		}
		return nil
	},
	TypeInt: func(name string, v any) error {
		switch n := v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return nil
		case float64:
			if n == math.Trunc(n) && !math.IsInf(n, 0) {
				return nil
			}
		}
		return fmt.Errorf("%s must be an integer", name)
	},
	TypeFloat: func(name string, v any) error {
		switch v.(type) {
		case float64, float32, int, int32, int64:
			return nil
		}
		return fmt.Errorf("%s must be a number", name)
	},
	TypeBool: func(name string, v any) error {
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("%s must be a bool", name)
		}
		return nil
	},
	TypeDateTime: func(name string, v any) error {
		switch t := v.(type) {
		case time.Time, primitive.DateTime, primitive.Timestamp:
			return nil
		case string:
			if _, err := value.ParseTime(t); err == nil {
				return nil
			}
		}
		return fmt.Errorf("%s must be a date time", name)
	},
}

// Validate checks data against the definition and reports every problem found.
func (d *Definition) Validate(data map[string]any) error {
	return validateFields("", d.Fields, data)
}

// ValidatePartial checks only the fields present in data. Required fields may be missing.
func (d *Definition) ValidatePartial(data map[string]any) error {
	var errs error
	for _, name := range sortedKeys(data) {
		def, ok := d.Fields[name]
		if !ok {
			continue
		}
		errs = multierr.Append(errs, validateField(name, data[name], def))
	}
	return errs
}

func validateFields(prefix string, fields map[string]*FieldDefinition, data map[string]any) error {
	var errs error
	for _, name := range sortedKeys(fields) {
		def := fields[name]
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		v, exists := data[name]
		if !exists {
			if def.Required {
				errs = multierr.Append(errs, fmt.Errorf("field %s is required", path))
			}
			continue
		}
		errs = multierr.Append(errs, validateField(path, v, def))
	}
	return errs
}

func validateField(name string, v any, def *FieldDefinition) error {
	if v == nil {
		if def.Nullable || !def.Required {
			return nil
		}
		return fmt.Errorf("%s must not be null", name)
	}

	switch def.Type {
	case TypeObject:
		nested, ok := asMap(v)
		if !ok {
			return fmt.Errorf("%s must be an object", name)
		}
		return validateFields(name, def.Fields, nested)

	case TypeArray:
		items, ok := asSlice(v)
		if !ok {
			return fmt.Errorf("%s must be an array", name)
		}
		if def.Item == nil {
			return nil
		}
		var errs error
		for i, item := range items {
			errs = multierr.Append(errs, validateField(fmt.Sprintf("%s[%d]", name, i), item, def.Item))
		}
		return errs

	case TypeMap:
		m, ok := asMap(v)
		if !ok {
			return fmt.Errorf("%s must be a map", name)
		}
		if def.Item == nil {
			return nil
		}
		var errs error
		for _, key := range sortedKeys(m) {
			errs = multierr.Append(errs, validateField(fmt.Sprintf("%s[%s]", name, key), m[key], def.Item))
		}
		return errs
	}

	validator, ok := typeValidators[def.Type]
	if !ok {
		return fmt.Errorf("unsupported type %s for %s", def.Type, name)
	}
	return validator(name, v)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case primitive.M:
		return m, true
	}
	return nil, false
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case primitive.A:
		return s, true
	}
	return nil, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
