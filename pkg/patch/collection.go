package patch

import (
	"encoding/json"
)

// OpKind is the storage action an Op asks for.
type OpKind int

const (
	// OpUpsert inserts or replaces one keyed item (or one keyed list).
	OpUpsert OpKind = iota
	// OpDelete removes one key.
	OpDelete
	// OpDeleteAll removes every key of the table.
	OpDeleteAll
)

func (k OpKind) String() string {
	switch k {
	case OpUpsert:
		return "upsert"
	case OpDelete:
		return "delete"
	case OpDeleteAll:
		return "delete-all"
	default:
		return "unknown"
	}
}

// Op is one change to a keyed sub-record table.
type Op[T any] struct {
	Kind OpKind
	Key  string
	Item T
}

// ListOp is one change to a table holding a list per key.
type ListOp[T any] struct {
	Kind  OpKind
	Key   string
	Items []T
}

// TableOptions configures DiffTable.
type TableOptions[T any] struct {
	// New builds the default item for a key that is not stored yet.
	New func(key string) T
	// Valid checks items created from a diff; an invalid new item fails with ErrInvalidRecord.
	Valid func(T) bool
	// Deny lists keys that identify an item and must not appear in its diff.
	Deny []string
}

// DiffTable reconciles the diff for a keyed table against the stored items.
//
// A nil raw (key absent from the parent diff) yields no ops. JSON null deletes
// the whole table. Inside the object a null value deletes that key, a known key
// is patched and an unknown key is created from opts.New and patched.
func DiffTable[T any, PT interface {
	*T
	Record
}](name string, existing map[string]T, raw json.RawMessage, opts TableOptions[T]) ([]Op[T], error) {
	if raw == nil {
		return nil, nil
	}
	if IsNull(raw) {
		return []Op[T]{{Kind: OpDeleteAll}}, nil
	}
	obj, err := decodeDict(name, raw)
	if err != nil {
		return nil, err
	}

	var ops []Op[T]
	for _, key := range obj.Keys() {
		v := obj[key]
		path := name + "." + key
		if IsNull(v) {
			ops = append(ops, Op[T]{Kind: OpDelete, Key: key})
			continue
		}
		item, err := decodeDict(path, v)
		if err != nil {
			return nil, err
		}
		if err := CheckDenied(item, opts.Deny...); err != nil {
			return nil, nest(path, err)
		}

		base, exists := existing[key]
		if !exists {
			base = opts.New(key)
		}
		patched, err := Apply[T, PT](base, item)
		if err != nil {
			return nil, nest(path, err)
		}
		if !exists && opts.Valid != nil && !opts.Valid(patched) {
			return nil, &FieldError{Field: path, Err: ErrInvalidRecord}
		}
		ops = append(ops, Op[T]{Kind: OpUpsert, Key: key, Item: patched})
	}
	return ops, nil
}

// DiffListTable reconciles the diff for a table holding one list per key.
// Lists are never patched element-wise: a list value replaces the key's list.
// JSON null deletes the table or, per key, that key's list.
func DiffListTable[T any](name string, raw json.RawMessage, decode func(key string, raw json.RawMessage) ([]T, error)) ([]ListOp[T], error) {
	if raw == nil {
		return nil, nil
	}
	if IsNull(raw) {
		return []ListOp[T]{{Kind: OpDeleteAll}}, nil
	}
	obj, err := decodeDict(name, raw)
	if err != nil {
		return nil, err
	}

	var ops []ListOp[T]
	for _, key := range obj.Keys() {
		v := obj[key]
		if IsNull(v) {
			ops = append(ops, ListOp[T]{Kind: OpDelete, Key: key})
			continue
		}
		if kindOf(v) != kindArray {
			return nil, wrongType(name+"."+key, "array")
		}
		items, err := decode(key, v)
		if err != nil {
			return nil, nest(name+"."+key, err)
		}
		ops = append(ops, ListOp[T]{Kind: OpUpsert, Key: key, Items: items})
	}
	return ops, nil
}
