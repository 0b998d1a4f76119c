// Package index reads index documents as a stream of events.
//
// A full index holds the complete repository section and every package. A diff
// index holds merge diffs against the index identified by its "base"
// timestamp. Both are read with a cursor: each package is decoded as one unit
// and handed to the receiver before the next one is read, so memory use is
// bounded by the largest package rather than by the document.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/cperrin88/idxsync/pkg/model"
	"github.com/cperrin88/idxsync/pkg/patch"
)

// Top level keys of an index document.
const (
	KeyRepo     = "repo"
	KeyPackages = "packages"
	KeyBase     = "base"

	keyMetadata  = "metadata"
	keyVersions  = "versions"
	keyAddress   = "address"
	keyTimestamp = "timestamp"
)

// FullReceiver consumes the events of a full index.
// Returning an error stops the parse; the error is returned unchanged.
type FullReceiver interface {
	OnRepo(repo model.Repository) error
	OnPackage(id string, pkg model.Package) error
	OnStreamEnded() error
}

// DiffReceiver consumes the events of a diff index.
// Returning an error stops the parse; the error is returned unchanged.
type DiffReceiver interface {
	// OnDiffBase reports the timestamp of the index the diff applies to.
	OnDiffBase(timestamp int64) error
	// OnRepoDiff carries the repository section diff and its new timestamp.
	OnRepoDiff(timestamp int64, diff patch.Object) error
	// OnPackageMetadataDiff carries a metadata diff. A nil diff deletes the package.
	OnPackageMetadataDiff(id string, diff patch.Object) error
	// OnVersionsDiff carries the version diffs of a package. A nil map deletes
	// every version; a nil entry deletes that version.
	OnVersionsDiff(id string, diff map[string]patch.Object) error
	OnStreamEnded() error
}

// ParseFull reads a full index from r.
func ParseFull(ctx context.Context, r io.Reader, recv FullReceiver) error {
	p := newParser(ctx, r)
	return p.run(func(key string) error {
		switch key {
		case KeyRepo:
			return p.fullRepo(recv)
		case KeyPackages:
			return p.packages(func(id string, raw json.RawMessage) error {
				if err := requireObject("$."+KeyPackages+"."+id, raw); err != nil {
					return err
				}
				var pkg model.Package
				if err := json.Unmarshal(raw, &pkg); err != nil {
					return classify(err)
				}
				return recv.OnPackage(id, pkg)
			})
		}
		return p.skip()
	}, func() error {
		if !p.seenRepo {
			return shapeError("$."+KeyRepo, "missing")
		}
		return recv.OnStreamEnded()
	})
}

// ParseDiff reads a diff index from r.
func ParseDiff(ctx context.Context, r io.Reader, recv DiffReceiver) error {
	p := newParser(ctx, r)
	seenBase := false
	return p.run(func(key string) error {
		switch key {
		case KeyBase:
			if seenBase {
				return shapeError("$."+KeyBase, "appears more than once")
			}
			seenBase = true
			raw, err := p.value()
			if err != nil {
				return err
			}
			ts, err := integer("$."+KeyBase, raw)
			if err != nil {
				return err
			}
			return recv.OnDiffBase(ts)
		case KeyRepo:
			return p.diffRepo(recv)
		case KeyPackages:
			return p.packages(func(id string, raw json.RawMessage) error {
				return diffPackage(id, raw, recv)
			})
		}
		return p.skip()
	}, func() error {
		if !seenBase {
			return shapeError("$."+KeyBase, "missing")
		}
		if !p.seenRepo {
			return shapeError("$."+KeyRepo, "missing")
		}
		return recv.OnStreamEnded()
	})
}

type parser struct {
	ctx      context.Context
	dec      *json.Decoder
	seenRepo bool
}

func newParser(ctx context.Context, r io.Reader) *parser {
	return &parser{ctx: ctx, dec: json.NewDecoder(r)}
}

// run walks the root object, calling member for each key with the decoder
// positioned at its value, then checks that nothing follows the root and
// calls end.
func (p *parser) run(member func(key string) error, end func() error) error {
	if err := p.openObject("$", "root is not an object"); err != nil {
		return err
	}
	for p.dec.More() {
		key, err := p.key()
		if err != nil {
			return err
		}
		if err := member(key); err != nil {
			return err
		}
	}
	if _, err := p.dec.Token(); err != nil {
		return classify(err)
	}

	// Reading to EOF lets the underlying reader report its own end of stream
	// failures before the document is declared complete.
	switch _, err := p.dec.Token(); err {
	case io.EOF:
	case nil:
		return shapeError("$", "trailing data after root object")
	default:
		return classify(err)
	}
	return end()
}

func (p *parser) openObject(path, reason string) error {
	if err := p.ctx.Err(); err != nil {
		return classify(err)
	}
	tok, err := p.dec.Token()
	if err != nil {
		if err == io.EOF {
			return shapeError(path, "empty document")
		}
		return classify(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return shapeError(path, "%s", reason)
	}
	return nil
}

func (p *parser) key() (string, error) {
	tok, err := p.dec.Token()
	if err != nil {
		return "", classify(err)
	}
	key, _ := tok.(string)
	return key, nil
}

func (p *parser) value() (json.RawMessage, error) {
	if err := p.ctx.Err(); err != nil {
		return nil, classify(err)
	}
	var raw json.RawMessage
	if err := p.dec.Decode(&raw); err != nil {
		return nil, classify(err)
	}
	return raw, nil
}

func (p *parser) skip() error {
	_, err := p.value()
	return err
}

// repoObject reads the repository section and checks the members every
// index must carry.
func (p *parser) repoObject(required ...string) (json.RawMessage, patch.Object, error) {
	path := "$." + KeyRepo
	if p.seenRepo {
		return nil, nil, shapeError(path, "appears more than once")
	}
	p.seenRepo = true

	raw, err := p.value()
	if err != nil {
		return nil, nil, err
	}
	obj, err := object(path, raw)
	if err != nil {
		return nil, nil, err
	}
	for _, k := range required {
		if v, ok := obj[k]; !ok || patch.IsNull(v) {
			return nil, nil, shapeError(path+"."+k, "missing")
		}
	}
	return raw, obj, nil
}

func (p *parser) fullRepo(recv FullReceiver) error {
	raw, _, err := p.repoObject(keyAddress, keyTimestamp)
	if err != nil {
		return err
	}
	var repo model.Repository
	if err := json.Unmarshal(raw, &repo); err != nil {
		return classify(err)
	}
	return recv.OnRepo(repo)
}

func (p *parser) diffRepo(recv DiffReceiver) error {
	_, obj, err := p.repoObject(keyTimestamp)
	if err != nil {
		return err
	}
	ts, err := integer("$."+KeyRepo+"."+keyTimestamp, obj[keyTimestamp])
	if err != nil {
		return err
	}
	return recv.OnRepoDiff(ts, obj)
}

// packages walks the packages object one entry at a time.
func (p *parser) packages(emit func(id string, raw json.RawMessage) error) error {
	path := "$." + KeyPackages
	if err := p.openObject(path, "not an object"); err != nil {
		return err
	}
	for p.dec.More() {
		id, err := p.key()
		if err != nil {
			return err
		}
		raw, err := p.value()
		if err != nil {
			return err
		}
		if err := emit(id, raw); err != nil {
			return err
		}
	}
	_, err := p.dec.Token()
	return classify(err)
}

func diffPackage(id string, raw json.RawMessage, recv DiffReceiver) error {
	path := "$." + KeyPackages + "." + id
	if patch.IsNull(raw) {
		return recv.OnPackageMetadataDiff(id, nil)
	}
	obj, err := object(path, raw)
	if err != nil {
		return err
	}

	if meta, ok := obj[keyMetadata]; ok {
		metaDiff, err := nullableObject(path+"."+keyMetadata, meta)
		if err != nil {
			return err
		}
		if err := recv.OnPackageMetadataDiff(id, metaDiff); err != nil {
			return err
		}
		if metaDiff == nil {
			return nil
		}
	}

	versions, ok := obj[keyVersions]
	if !ok {
		return nil
	}
	if patch.IsNull(versions) {
		return recv.OnVersionsDiff(id, nil)
	}
	entries, err := object(path+"."+keyVersions, versions)
	if err != nil {
		return err
	}
	diffs := make(map[string]patch.Object, len(entries))
	for versionID, v := range entries {
		d, err := nullableObject(path+"."+keyVersions+"."+versionID, v)
		if err != nil {
			return err
		}
		diffs[versionID] = d
	}
	return recv.OnVersionsDiff(id, diffs)
}

func requireObject(path string, raw json.RawMessage) error {
	if t := bytes.TrimLeft(raw, " \t\r\n"); len(t) == 0 || t[0] != '{' {
		return shapeError(path, "not an object")
	}
	return nil
}

func object(path string, raw json.RawMessage) (patch.Object, error) {
	obj, err := nullableObject(path, raw)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, shapeError(path, "not an object")
	}
	return obj, nil
}

func nullableObject(path string, raw json.RawMessage) (patch.Object, error) {
	obj, err := patch.ParseObject(raw)
	if err != nil {
		return nil, shapeError(path, "not an object")
	}
	return obj, nil
}

func integer(path string, raw json.RawMessage) (int64, error) {
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, shapeError(path, "not an integer")
	}
	return n, nil
}
