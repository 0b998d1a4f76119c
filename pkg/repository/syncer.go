// Package repository applies verified index containers to local storage.
//
// A Syncer drives one Session per request: the container is verified, its
// payload is parsed as a stream and every event is applied inside a single
// storage transaction that is committed when the stream ends.
package repository

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/cperrin88/idxsync/internal/logger"
	pkgerrors "github.com/cperrin88/idxsync/pkg/errors"
	"github.com/cperrin88/idxsync/pkg/metrics"
	"github.com/cperrin88/idxsync/pkg/signing"
)

// Request describes one sync.
type Request struct {
	RepoID int64
	Mode   Mode
	// Container is the signed index container of Size bytes.
	Container io.ReaderAt
	Size      int64
	// Expectation pins the signer when the repository has no pinned certificate yet.
	Expectation signing.Expectation
}

// Syncer applies index containers to a Store. Syncs of distinct repositories
// may run concurrently; a second sync of the same repository is rejected.
type Syncer struct {
	store    Store
	verifier *signing.Verifier
	compat   CompatibilityChecker

	mu     sync.Mutex
	active map[int64]struct{}
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithVerifier replaces the default container verifier.
func WithVerifier(v *signing.Verifier) Option {
	return func(s *Syncer) { s.verifier = v }
}

// WithCompatibility sets the checker used to compute Version.IsCompatible.
func WithCompatibility(c CompatibilityChecker) Option {
	return func(s *Syncer) { s.compat = c }
}

// NewSyncer creates a Syncer writing to store.
func NewSyncer(store Store, opts ...Option) *Syncer {
	s := &Syncer{
		store:    store,
		verifier: signing.NewVerifier(),
		compat:   AlwaysCompatible{},
		active:   map[int64]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync verifies req.Container and applies its index to the repository.
func (s *Syncer) Sync(ctx context.Context, req Request) (Result, error) {
	if req.Mode != ModeFull && req.Mode != ModeDiff {
		return 0, stateError("sync", ErrInvalidMode)
	}
	release, err := s.acquire(req.RepoID)
	if err != nil {
		return 0, err
	}
	defer release()

	start := time.Now()
	result, applied, err := s.run(ctx, req)
	label := result.String()
	if err != nil {
		kind := pkgerrors.KindOf(err)
		label = kind.String()
		if kind == pkgerrors.KindSigning {
			metrics.RecordVerificationFailure()
		}
	}
	metrics.RecordSync(req.Mode.String(), label, time.Since(start))
	if result == ResultProcessed {
		metrics.RecordPackagesApplied(req.Mode.String(), applied)
	}

	fields := logger.Fields{"repo_id": req.RepoID, "mode": req.Mode.String(), "result": label}
	if err != nil {
		fields["error"] = err.Error()
		logger.Error("sync failed", fields)
	} else {
		fields["packages"] = applied
		logger.Info("sync finished", fields)
	}
	return result, err
}

func (s *Syncer) run(ctx context.Context, req Request) (Result, int, error) {
	session, err := s.Begin(ctx, req.RepoID, req.Mode)
	if err != nil {
		return 0, 0, err
	}
	result, err := session.Run(s.verifier, req.Container, req.Size, req.Expectation)
	return result, session.Applied(), err
}

// Begin opens a transaction for repoID and returns an idle session bound to it.
// Callers that use Begin directly must ensure no other session of the same
// repository is running.
func (s *Syncer) Begin(ctx context.Context, repoID int64, mode Mode) (*Session, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, ioError("begin", err)
	}
	stored, err := tx.GetRepository(ctx, repoID)
	if err == nil && stored == nil {
		err = pkgerrors.ErrRepositoryNotFound
	}
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, pkgerrors.ErrRepositoryNotFound) {
			return nil, stateError("begin", err)
		}
		return nil, ioError("begin", err)
	}
	return newSession(ctx, repoID, mode, tx, *stored, s.compat), nil
}

func (s *Syncer) acquire(repoID int64) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.active[repoID]; busy {
		return nil, stateError("sync", ErrSyncInProgress)
	}
	s.active[repoID] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.active, repoID)
		s.mu.Unlock()
	}, nil
}
