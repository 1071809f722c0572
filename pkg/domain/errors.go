package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for the write path. Callers match them with errors.Is.
var (
	ErrMissing           = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidMembership = errors.New("invalid membership")
	ErrInvalidDate       = errors.New("invalid date")
	ErrFieldNotExist     = errors.New("field does not exist")
	ErrParentRequired    = errors.New("parent not available")
	ErrInvalidParent     = errors.New("invalid parent")
)

// NonFieldErrors keys violations that are not tied to a single field.
const NonFieldErrors = "non_field_errors"

// ErrNotFound is returned when a referenced record does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is lets ErrNotFound match ErrMissing.
func (e ErrNotFound) Is(target error) bool { return target == ErrMissing }

// ValidationError carries human readable messages keyed by field name or
// nested path (for example "contact_details.0.valid_from").
type ValidationError struct {
	Fields map[string][]string
	causes []error
}

// Add records a message for field. cause is the sentinel behind the message.
func (e *ValidationError) Add(field string, cause error, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
	if cause != nil {
		e.causes = append(e.causes, cause)
	}
}

// Merge copies other's messages under prefix.
func (e *ValidationError) Merge(prefix string, other *ValidationError) {
	if other == nil {
		return
	}
	for field, msgs := range other.Fields {
		key := field
		if prefix != "" {
			key = prefix + "." + field
		}
		if e.Fields == nil {
			e.Fields = make(map[string][]string)
		}
		e.Fields[key] = append(e.Fields[key], msgs...)
	}
	e.causes = append(e.causes, other.causes...)
}

// Empty reports whether no messages were recorded.
func (e *ValidationError) Empty() bool { return e == nil || len(e.Fields) == 0 }

// Err returns e as an error, or nil when empty.
func (e *ValidationError) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Unwrap exposes the sentinel causes for errors.Is.
func (e *ValidationError) Unwrap() []error { return e.causes }
