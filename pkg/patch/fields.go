package patch

import (
	"bytes"
	"encoding/json"
	"errors"
	"maps"
	"strconv"
)

// Field is one patchable member of a record.
type Field struct {
	Name string
	// Nullable members accept JSON null, which clears them.
	Nullable bool
	// Delegated members are patched by another component and skipped here.
	Delegated bool

	set   func(raw json.RawMessage) error
	clear func()
}

type jsonKind string

const (
	kindNull   jsonKind = "null"
	kindString jsonKind = "string"
	kindNumber jsonKind = "number"
	kindBool   jsonKind = "bool"
	kindArray  jsonKind = "array"
	kindObject jsonKind = "object"
)

func kindOf(raw json.RawMessage) jsonKind {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return kindNull
	}
	switch b[0] {
	case '"':
		return kindString
	case '{':
		return kindObject
	case '[':
		return kindArray
	case 't', 'f':
		return kindBool
	case 'n':
		return kindNull
	default:
		return kindNumber
	}
}

func wrongType(name, want string) error {
	return &FieldError{Field: name, Want: want, Err: ErrWrongType}
}

func decodeString(name string, raw json.RawMessage) (string, error) {
	if kindOf(raw) != kindString {
		return "", wrongType(name, "string")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", wrongType(name, "string")
	}
	return s, nil
}

func decodeInteger(name string, raw json.RawMessage, bits int, want string) (int64, error) {
	if kindOf(raw) != kindNumber {
		return 0, wrongType(name, want)
	}
	n, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, bits)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, &FieldError{Field: name, Want: want, Err: ErrOverflow}
		}
		return 0, wrongType(name, want)
	}
	return n, nil
}

func decodeBool(name string, raw json.RawMessage) (bool, error) {
	if kindOf(raw) != kindBool {
		return false, wrongType(name, "bool")
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, wrongType(name, "bool")
	}
	return b, nil
}

func decodeStrings(name string, raw json.RawMessage) ([]string, error) {
	if kindOf(raw) != kindArray {
		return nil, wrongType(name, "array")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, wrongType(name, "array")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if kindOf(item) != kindString {
			return nil, wrongType(name, "array of string")
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, wrongType(name, "array of string")
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeDict(name string, raw json.RawMessage) (Object, error) {
	if kindOf(raw) != kindObject {
		return nil, wrongType(name, "dict")
	}
	obj, err := ParseObject(raw)
	if err != nil {
		return nil, wrongType(name, "dict")
	}
	return obj, nil
}

// String is a required string member.
func String(name string, dst *string) Field {
	return Field{
		Name: name,
		set: func(raw json.RawMessage) error {
			s, err := decodeString(name, raw)
			if err != nil {
				return err
			}
			*dst = s
			return nil
		},
	}
}

// NullableString is an optional string member.
func NullableString(name string, dst **string) Field {
	return Field{
		Name:     name,
		Nullable: true,
		set: func(raw json.RawMessage) error {
			s, err := decodeString(name, raw)
			if err != nil {
				return err
			}
			*dst = &s
			return nil
		},
		clear: func() { *dst = nil },
	}
}

// Int32 is a required 32-bit integer member. Values outside int32 fail.
func Int32(name string, dst *int32) Field {
	return Field{
		Name: name,
		set: func(raw json.RawMessage) error {
			n, err := decodeInteger(name, raw, 32, "int")
			if err != nil {
				return err
			}
			*dst = int32(n)
			return nil
		},
	}
}

// NullableInt32 is an optional 32-bit integer member.
func NullableInt32(name string, dst **int32) Field {
	return Field{
		Name:     name,
		Nullable: true,
		set: func(raw json.RawMessage) error {
			n, err := decodeInteger(name, raw, 32, "int")
			if err != nil {
				return err
			}
			v := int32(n)
			*dst = &v
			return nil
		},
		clear: func() { *dst = nil },
	}
}

// Int64 is a required 64-bit integer member.
func Int64(name string, dst *int64) Field {
	return Field{
		Name: name,
		set: func(raw json.RawMessage) error {
			n, err := decodeInteger(name, raw, 64, "long")
			if err != nil {
				return err
			}
			*dst = n
			return nil
		},
	}
}

// NullableInt64 is an optional 64-bit integer member.
func NullableInt64(name string, dst **int64) Field {
	return Field{
		Name:     name,
		Nullable: true,
		set: func(raw json.RawMessage) error {
			n, err := decodeInteger(name, raw, 64, "long")
			if err != nil {
				return err
			}
			*dst = &n
			return nil
		},
		clear: func() { *dst = nil },
	}
}

// Bool is a required boolean member.
func Bool(name string, dst *bool) Field {
	return Field{
		Name: name,
		set: func(raw json.RawMessage) error {
			b, err := decodeBool(name, raw)
			if err != nil {
				return err
			}
			*dst = b
			return nil
		},
	}
}

// Strings is an optional list of strings. A list value replaces the whole list.
func Strings[S ~[]string](name string, dst *S) Field {
	return Field{
		Name:     name,
		Nullable: true,
		set: func(raw json.RawMessage) error {
			list, err := decodeStrings(name, raw)
			if err != nil {
				return err
			}
			*dst = S(list)
			return nil
		},
		clear: func() { *dst = nil },
	}
}

// Text is an optional locale to string map. Each locale is patched on its
// own; a null locale removes it.
func Text[M ~map[string]string](name string, dst *M) Field {
	return Field{
		Name:     name,
		Nullable: true,
		set: func(raw json.RawMessage) error {
			obj, err := decodeDict(name, raw)
			if err != nil {
				return err
			}
			next, err := mergeText(name, *dst, obj)
			if err != nil {
				return err
			}
			*dst = next
			return nil
		},
		clear: func() { *dst = nil },
	}
}

func mergeText[M ~map[string]string](name string, cur M, obj Object) (M, error) {
	next := maps.Clone(cur)
	if next == nil {
		next = M{}
	}
	for _, locale := range obj.Keys() {
		v := obj[locale]
		if IsNull(v) {
			delete(next, locale)
			continue
		}
		s, err := decodeString(name+"."+locale, v)
		if err != nil {
			return nil, err
		}
		next[locale] = s
	}
	return next, nil
}

// TextMap is an optional map of keyed Text values, such as anti-feature reasons.
func TextMap[M ~map[string]T, T ~map[string]string](name string, dst *M) Field {
	return Field{
		Name:     name,
		Nullable: true,
		set: func(raw json.RawMessage) error {
			obj, err := decodeDict(name, raw)
			if err != nil {
				return err
			}
			next := maps.Clone(*dst)
			if next == nil {
				next = M{}
			}
			for _, key := range obj.Keys() {
				v := obj[key]
				if IsNull(v) {
					delete(next, key)
					continue
				}
				inner, err := decodeDict(name+"."+key, v)
				if err != nil {
					return err
				}
				merged, err := mergeText(name+"."+key, next[key], inner)
				if err != nil {
					return err
				}
				next[key] = merged
			}
			*dst = next
			return nil
		},
		clear: func() { *dst = nil },
	}
}

// Nested is a required nested record, patched recursively so untouched
// siblings keep their values.
func Nested[T any, PT interface {
	*T
	Record
}](name string, dst *T) Field {
	return Field{
		Name: name,
		set: func(raw json.RawMessage) error {
			obj, err := decodeDict(name, raw)
			if err != nil {
				return err
			}
			next, err := Apply[T, PT](*dst, obj)
			if err != nil {
				return nest(name, err)
			}
			*dst = next
			return nil
		},
	}
}

// NullableNested is an optional nested record. When the member is unset the
// diff builds a new record from the zero value, which must then validate.
func NullableNested[T any, PT interface {
	*T
	Record
}](name string, dst **T) Field {
	return Field{
		Name:     name,
		Nullable: true,
		set: func(raw json.RawMessage) error {
			obj, err := decodeDict(name, raw)
			if err != nil {
				return err
			}
			var base T
			created := *dst == nil
			if !created {
				base = **dst
			}
			next, err := Apply[T, PT](base, obj)
			if err != nil {
				return nest(name, err)
			}
			if created {
				if err := validateNew(name, PT(&next)); err != nil {
					return err
				}
			}
			*dst = &next
			return nil
		},
		clear: func() { *dst = nil },
	}
}

// ObjectMap is an optional map of nested records keyed by locale or id.
// Existing entries are patched, new entries are built from the zero value and
// validated, and null entries are removed.
func ObjectMap[M ~map[string]T, T any, PT interface {
	*T
	Record
}](name string, dst *M) Field {
	return Field{
		Name:     name,
		Nullable: true,
		set: func(raw json.RawMessage) error {
			obj, err := decodeDict(name, raw)
			if err != nil {
				return err
			}
			next := maps.Clone(*dst)
			if next == nil {
				next = M{}
			}
			for _, key := range obj.Keys() {
				v := obj[key]
				path := name + "." + key
				if IsNull(v) {
					delete(next, key)
					continue
				}
				entry, err := decodeDict(path, v)
				if err != nil {
					return err
				}
				base, exists := next[key]
				patched, err := Apply[T, PT](base, entry)
				if err != nil {
					return nest(path, err)
				}
				if !exists {
					if err := validateNew(path, PT(&patched)); err != nil {
						return err
					}
				}
				next[key] = patched
			}
			*dst = next
			return nil
		},
		clear: func() { *dst = nil },
	}
}

// Delegated declares a member whose diff is handled by another component.
func Delegated(name string) Field {
	return Field{Name: name, Delegated: true}
}
