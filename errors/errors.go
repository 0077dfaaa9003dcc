package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors matched through errors.Is.
var (
	// ErrObjectNotFound is returned by Get when no live record matches.
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidValueKind is returned when a value cannot be interpreted as the requested kind.
	ErrInvalidValueKind = errors.New("invalid value kind")

	// ErrInvalidConfig is returned when a repository is constructed with missing or bad settings.
	ErrInvalidConfig = errors.New("invalid repository config")
)

// ObjectNotFoundError reports the collection and identifier a lookup was made with.
type ObjectNotFoundError struct {
	Collection string
	Attr       string
	Key        string
}

func (e *ObjectNotFoundError) Error() string {
	return fmt.Sprintf("record not found in %s where '%s' = '%s'", e.Collection, e.Attr, e.Key)
}

func (e *ObjectNotFoundError) Is(target error) bool {
	return target == ErrObjectNotFound
}

// InvalidValueKindError reports a value that does not have one of the accepted shapes.
type InvalidValueKindError struct {
	Kind   string
	Value  any
	Reason string
}

func (e *InvalidValueKindError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot use %v (%T) as %s: %s", e.Value, e.Value, e.Kind, e.Reason)
	}
	return fmt.Sprintf("cannot use %v (%T) as %s", e.Value, e.Value, e.Kind)
}

func (e *InvalidValueKindError) Is(target error) bool {
	return target == ErrInvalidValueKind
}

// ConfigError names the repository setting that is missing or malformed.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid repository config field %q: %s", e.Field, e.Message)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func NewObjectNotFoundError(collection, attr, key string) error {
	return &ObjectNotFoundError{Collection: collection, Attr: attr, Key: key}
}

func NewInvalidValueKindError(kind string, value any, reason string) error {
	return &InvalidValueKindError{Kind: kind, Value: value, Reason: reason}
}

func NewConfigError(field, message string) error {
	return &ConfigError{Field: field, Message: message}
}

// IsObjectNotFound checks if an error is a not found error.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsInvalidValueKind checks if an error is an invalid value kind error.
func IsInvalidValueKind(err error) bool {
	return errors.Is(err, ErrInvalidValueKind)
}

// IsInvalidConfig checks if an error is a repository config error.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}
