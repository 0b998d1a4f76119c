package repository

import (
	"errors"
	"fmt"

	pkgerrors "github.com/cperrin88/idxsync/pkg/errors"
)

// Session and coordinator errors.
var (
	// ErrSyncInProgress is returned when the repository is already being synced.
	ErrSyncInProgress = fmt.Errorf("sync already in progress")
	// ErrStreamAlreadyEnded is returned when a session is told twice that its stream ended.
	ErrStreamAlreadyEnded = fmt.Errorf("stream already ended")
	// ErrInvalidTransition is returned for events a session cannot accept in its current state.
	ErrInvalidTransition = fmt.Errorf("invalid session state transition")
	// ErrDiffBaseMismatch is returned when a diff was built against another index than the stored one.
	ErrDiffBaseMismatch = fmt.Errorf("diff base does not match stored index")
	// ErrDiffBaseMissing is returned when a diff ends without naming its base.
	ErrDiffBaseMissing = fmt.Errorf("diff has no base")
	// ErrRepoSectionMissing is returned when a stream ends without a repository section.
	ErrRepoSectionMissing = fmt.Errorf("stream ended without repository section")
	// ErrUnknownPackage is returned for version diffs of a package that is not stored.
	ErrUnknownPackage = fmt.Errorf("versions for unknown package")
	// ErrInvalidMode is returned for a request with an unknown sync mode.
	ErrInvalidMode = fmt.Errorf("invalid sync mode")

	// errUnchanged aborts a session whose index is not newer than the stored one.
	errUnchanged = errors.New("index not newer than stored index")
)

func stateError(op string, err error) error {
	return pkgerrors.New(pkgerrors.KindState, op, err)
}

func structuralError(op string, err error) error {
	return pkgerrors.New(pkgerrors.KindStructural, op, err)
}

func ioError(op string, err error) error {
	return pkgerrors.New(pkgerrors.KindIO, op, err)
}
