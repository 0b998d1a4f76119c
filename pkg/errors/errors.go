package errors

import (
	"errors"
	"fmt"
)

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigWrite       = fmt.Errorf("failed to write config file")
	ErrUnknownConfigKey  = fmt.Errorf("unknown configuration key")

	// Repository errors.
	ErrRepositoryNotFound = fmt.Errorf("repository not found")
	ErrRepositoryExists   = fmt.Errorf("repository already exists")
	ErrEmptyAddress       = fmt.Errorf("repository address cannot be empty")

	// Hook errors.
	ErrHookScript = fmt.Errorf("compatibility script error")
)

// Kind classifies a sync failure so callers can decide whether to retry.
type Kind int

const (
	KindUnknown Kind = iota
	// KindSigning covers every signature, certificate and digest check.
	KindSigning
	// KindStructural covers malformed payloads and patches that do not fit the record types.
	KindStructural
	// KindIO covers read failures, storage failures and cancellation.
	KindIO
	// KindState covers sync sessions used out of order, stale diffs and concurrent syncs.
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindSigning:
		return "signing"
	case KindStructural:
		return "structural"
	case KindIO:
		return "io"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// SyncError attaches a Kind and the failing operation to an underlying error.
type SyncError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *SyncError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// New classifies err. It returns nil for a nil err and leaves an already classified error untouched.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *SyncError
	if errors.As(err, &se) {
		return err
	}
	return &SyncError{Kind: kind, Op: op, Err: err}
}

// KindOf reports the Kind of the first SyncError in err's chain.
func KindOf(err error) Kind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether repeating the same sync might succeed.
// Signing, structural and state failures are deterministic for the same input.
func IsRetryable(err error) bool {
	return KindOf(err) == KindIO
}

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
