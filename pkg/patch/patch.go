// Package patch applies JSON merge diffs (RFC 7386 semantics) to typed records.
//
// A record opts in by implementing Record, which lists every member a diff may
// touch. Keys absent from a diff leave the member unchanged, JSON null clears a
// nullable member, and any other value replaces or recursively patches it.
// Apply never mutates its input.
package patch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNoFieldTable is returned when the patch target does not implement Record.
	ErrNoFieldTable = errors.New("no field table")
	// ErrNoMember is returned for a diff key the record does not declare.
	ErrNoMember = errors.New("no member for parameter")
	// ErrNotNullable is returned when a diff sets a required member to null.
	ErrNotNullable = errors.New("not nullable")
	// ErrWrongType is returned when a diff value has the wrong JSON type.
	ErrWrongType = errors.New("wrong type")
	// ErrOverflow is returned when a number does not fit the member.
	ErrOverflow = errors.New("number out of range")
	// ErrDenied is returned for keys that identify a record and must never be patched.
	ErrDenied = errors.New("denied key")
	// ErrInvalidRecord is returned when a record created from a diff is incomplete.
	ErrInvalidRecord = errors.New("invalid record")
)

// Object is a single JSON object of a diff, keyed by member name.
// A nil Object stands for JSON null.
type Object map[string]json.RawMessage

// Record is implemented by pointer receivers of patchable types.
// PatchFields binds the field table to the receiver.
type Record interface {
	PatchFields() []Field
}

// Validator is implemented by records that must satisfy constraints when created from a diff.
type Validator interface {
	Validate() error
}

// FieldError reports a failure on a named member. Field is a dotted path for nested members.
type FieldError struct {
	Field string
	Want  string
	Err   error
}

func (e *FieldError) Error() string {
	switch {
	case errors.Is(e.Err, ErrNoMember):
		return "no member for parameter " + e.Field
	case errors.Is(e.Err, ErrNotNullable):
		return "not nullable: " + e.Field
	case errors.Is(e.Err, ErrDenied):
		return "denied key: " + e.Field
	case errors.Is(e.Err, ErrWrongType):
		return e.Field + " no " + e.Want
	case errors.Is(e.Err, ErrOverflow):
		return e.Field + " overflows " + e.Want
	default:
		return e.Field + ": " + e.Err.Error()
	}
}

func (e *FieldError) Unwrap() error { return e.Err }

// ParseObject decodes raw as an Object. JSON null yields a nil Object.
func ParseObject(raw json.RawMessage) (Object, error) {
	if IsNull(raw) {
		return nil, nil
	}
	if kindOf(raw) != kindObject {
		return nil, fmt.Errorf("%w: expected object, got %s", ErrWrongType, kindOf(raw))
	}
	obj := Object{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// IsNull reports whether raw is the JSON literal null.
func IsNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Keys returns the object's keys in sorted order.
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply returns a copy of rec with p applied.
func Apply[T any, PT interface {
	*T
	Record
}](rec T, p Object) (T, error) {
	out := rec
	if err := ApplyTo(PT(&out), p); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// ApplyNew patches rec, a record synthesized for a key the store does not
// hold yet, and validates the result. name identifies the record in errors.
func ApplyNew[T any, PT interface {
	*T
	Record
}](name string, rec T, p Object) (T, error) {
	out, err := Apply[T, PT](rec, p)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := validateNew(name, PT(&out)); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// ApplyTo patches rec in place. rec must be a private copy: members are
// replaced, never modified through shared maps, slices or pointers.
// All keys are checked before the first member changes.
func ApplyTo(rec any, p Object) error {
	r, ok := rec.(Record)
	if !ok {
		return fmt.Errorf("%w for %T", ErrNoFieldTable, rec)
	}

	table := make(map[string]Field)
	for _, f := range r.PatchFields() {
		table[f.Name] = f
	}

	keys := p.Keys()
	for _, k := range keys {
		f, ok := table[k]
		if !ok {
			return &FieldError{Field: k, Err: ErrNoMember}
		}
		if IsNull(p[k]) && !f.Nullable && !f.Delegated {
			return &FieldError{Field: k, Err: ErrNotNullable}
		}
	}

	for _, k := range keys {
		f := table[k]
		if f.Delegated {
			continue
		}
		if IsNull(p[k]) {
			f.clear()
			continue
		}
		if err := f.set(p[k]); err != nil {
			return err
		}
	}
	return nil
}

// CheckDenied fails if p carries any of the given keys.
func CheckDenied(p Object, keys ...string) error {
	for _, k := range keys {
		if _, ok := p[k]; ok {
			return &FieldError{Field: k, Err: ErrDenied}
		}
	}
	return nil
}

// validateNew runs the record's Validator, if any.
func validateNew(name string, rec any) error {
	v, ok := rec.(Validator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return &FieldError{Field: name, Err: fmt.Errorf("%w: %w", ErrInvalidRecord, err)}
	}
	return nil
}

// nest prefixes a nested member failure with its parent's name.
func nest(parent string, err error) error {
	var fe *FieldError
	if errors.As(err, &fe) {
		return &FieldError{Field: parent + "." + fe.Field, Want: fe.Want, Err: fe.Err}
	}
	return err
}
