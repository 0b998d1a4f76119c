package index

import (
	"encoding/json"
	"errors"
	"fmt"

	pkgerrors "github.com/cperrin88/idxsync/pkg/errors"
)

// ErrMalformedDocument is wrapped by every structural failure of an index document.
var ErrMalformedDocument = fmt.Errorf("malformed index document")

// ShapeError reports a document whose structure does not match the index
// layout. Path names the failing location, for example "$.packages.org.example".
type ShapeError struct {
	Path   string
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *ShapeError) Unwrap() error { return ErrMalformedDocument }

func shapeError(path, format string, args ...interface{}) error {
	return pkgerrors.New(pkgerrors.KindStructural, "parse", &ShapeError{Path: path, Reason: fmt.Sprintf(format, args...)})
}

// classify maps decoder failures onto sync error kinds. Errors that already
// carry a kind, such as a payload digest mismatch raised by the reader, are
// returned untouched.
func classify(err error) error {
	if err == nil || pkgerrors.KindOf(err) != pkgerrors.KindUnknown {
		return err
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return pkgerrors.New(pkgerrors.KindStructural, "parse", fmt.Errorf("%w: %w", ErrMalformedDocument, err))
	}
	// Reader failures, truncation and cancellation.
	return pkgerrors.New(pkgerrors.KindIO, "parse", err)
}
