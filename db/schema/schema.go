package schema

import (
	"fmt"
	"maps"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/world-in-progress/docrepo/core/rescue"
	"github.com/world-in-progress/docrepo/db/value"
)

type (
	// Loader builds a model from a normalized record.
	Loader[T any] interface {
		Load(data map[string]any) (*T, error)
	}

	// Dumper prepares a full record for storage.
	Dumper interface {
		Dump(data map[string]any) (map[string]any, error)
	}

	// PartialDumper prepares the fields of a partial update for storage.
	PartialDumper interface {
		DumpPartial(data map[string]any) (map[string]any, error)
	}

	Option func(*settings)

	settings struct {
		dateFields []string
		definition *Definition
		hooks      []Hook
	}

	// Schema loads records into T and dumps records for storage. It is safe
	// for concurrent use once built.
	Schema[T any] struct {
		dateFields []string
		definition *Definition
		hooks      []Hook
	}
)

var timeType = reflect.TypeOf(time.Time{})

// WithDateFields replaces DefaultDateFields.
func WithDateFields(fields ...string) Option {
	return func(s *settings) {
		s.dateFields = append([]string(nil), fields...)
	}
}

// WithDefinition validates records against def on load and dump.
func WithDefinition(def *Definition) Option {
	return func(s *settings) {
		s.definition = def
	}
}

// WithHooks adds pre-load hooks run after HandleID and HandleDates.
func WithHooks(hooks ...Hook) Option {
	return func(s *settings) {
		s.hooks = append(s.hooks, hooks...)
	}
}

func New[T any](opts ...Option) *Schema[T] {
	s := &settings{dateFields: DefaultDateFields}
	for _, opt := range opts {
		opt(s)
	}

	hooks := append([]Hook{HandleID, HandleDates(s.dateFields...)}, s.hooks...)
	return &Schema[T]{
		dateFields: s.dateFields,
		definition: s.definition,
		hooks:      hooks,
	}
}

// Load runs the pre-load hooks on a copy of data, validates it and decodes it
// into a new T. Unknown fields are ignored.
func (s *Schema[T]) Load(data map[string]any) (*T, error) {
	record := copyRecord(data)

	var err error
	for _, hook := range s.hooks {
		if record, err = runHook(hook, record); err != nil {
			return nil, err
		}
	}

	if s.definition != nil {
		if err := s.definition.Validate(record); err != nil {
			return nil, fmt.Errorf("invalid %s record: %w", s.definition.Name, err)
		}
	}

	out := new(T)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: timeDecodeHook,
		Squash:     true,
		Result:     out,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(record); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return out, nil
}

// Dump validates a full record and converts its date fields to binary timestamps.
func (s *Schema[T]) Dump(data map[string]any) (map[string]any, error) {
	record := copyRecord(data)
	if s.definition != nil {
		if err := s.definition.Validate(record); err != nil {
			return nil, fmt.Errorf("invalid %s record: %w", s.definition.Name, err)
		}
	}
	return s.dumpDates(record)
}

// DumpPartial is Dump for update documents: required fields may be absent.
func (s *Schema[T]) DumpPartial(data map[string]any) (map[string]any, error) {
	record := copyRecord(data)
	if s.definition != nil {
		if err := s.definition.ValidatePartial(record); err != nil {
			return nil, fmt.Errorf("invalid %s update: %w", s.definition.Name, err)
		}
	}
	return s.dumpDates(record)
}

func (s *Schema[T]) dumpDates(record map[string]any) (map[string]any, error) {
	for _, f := range s.dateFields {
		v, ok := record[f]
		if !ok {
			continue
		}
		ts, err := value.ToTimestamp(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f, err)
		}
		if ts == nil {
			record[f] = nil
			continue
		}
		record[f] = *ts
	}
	return record, nil
}

func runHook(hook Hook, record map[string]any) (out map[string]any, err error) {
	defer rescue.Recover(&err)

	out, err = hook(record)
	if err == nil && out == nil {
		out = map[string]any{}
	}
	return out, err
}

func copyRecord(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return maps.Clone(data)
}

// timeDecodeHook lets time.Time fields be filled from any shape value.ToTime accepts.
func timeDecodeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType || from == timeType {
		return data, nil
	}
	t, err := value.ToTime(data)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return time.Time{}, nil
	}
	return *t, nil
}
