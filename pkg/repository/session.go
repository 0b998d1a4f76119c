package repository

import (
	"context"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/cperrin88/idxsync/internal/logger"
	"github.com/cperrin88/idxsync/pkg/index"
	"github.com/cperrin88/idxsync/pkg/model"
	"github.com/cperrin88/idxsync/pkg/signing"
)

// Mode selects how an index is applied.
type Mode int

const (
	// ModeFull replaces every stored row of the repository.
	ModeFull Mode = iota
	// ModeDiff patches the stored rows with a diff index.
	ModeDiff
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeDiff:
		return "diff"
	default:
		return "unknown"
	}
}

// Result is the outcome of a successful sync.
type Result int

const (
	// ResultProcessed means the index was applied and committed.
	ResultProcessed Result = iota + 1
	// ResultUnchanged means the index was not newer than the stored one and nothing changed.
	ResultUnchanged
)

func (r Result) String() string {
	switch r {
	case ResultProcessed:
		return "processed"
	case ResultUnchanged:
		return "unchanged"
	default:
		return "none"
	}
}

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateVerifying
	StateParsing
	StateApplying
	StateCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateVerifying:
		return "verifying"
	case StateParsing:
		return "parsing"
	case StateApplying:
		return "applying"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var transitions = map[State][]State{
	StateIdle:      {StateVerifying, StateFailed},
	StateVerifying: {StateParsing, StateFailed},
	StateParsing:   {StateApplying, StateFailed},
	StateApplying:  {StateCommitted, StateFailed},
}

// Session applies one index to one repository inside one transaction.
//
// A session receives the parser events of either a full or a diff index. It
// commits exactly once, when the stream ends, and rolls back on any failure.
type Session struct {
	ctx    context.Context
	repoID int64
	mode   Mode
	tx     Tx
	compat CompatibilityChecker
	// stored is the repository row as it was when the session began.
	stored model.Repository
	log    *slog.Logger

	state       State
	signer      *x509.Certificate
	cleared     bool
	seenRepo    bool
	seenBase    bool
	baseMatches bool
	touched     map[string]struct{}
}

func newSession(ctx context.Context, repoID int64, mode Mode, tx Tx, stored model.Repository, compat CompatibilityChecker) *Session {
	return &Session{
		ctx:     ctx,
		repoID:  repoID,
		mode:    mode,
		tx:      tx,
		compat:  compat,
		stored:  stored,
		log:     logger.With(logger.Fields{"repo_id": repoID, "mode": mode.String()}),
		touched: map[string]struct{}{},
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Applied returns the number of distinct packages the session wrote or deleted.
func (s *Session) Applied() int { return len(s.touched) }

func (s *Session) transition(to State) error {
	if !slices.Contains(transitions[s.state], to) {
		return stateError("session", fmt.Errorf("%w: %s to %s", ErrInvalidTransition, s.state, to))
	}
	s.log.Debug("session state changed", "from", s.state.String(), "to", to.String())
	s.state = to
	return nil
}

// expectation returns the signer expectation for this session. A certificate
// pinned by an earlier sync always wins over the requested expectation.
func (s *Session) expectation(requested signing.Expectation) signing.Expectation {
	if s.stored.Certificate == "" {
		return requested
	}
	der, err := hex.DecodeString(s.stored.Certificate)
	if err != nil {
		s.log.Warn("ignoring unreadable pinned certificate", "error", err)
		return requested
	}
	return signing.Expectation{Certificate: der}
}

// Run verifies container and applies its payload.
func (s *Session) Run(v *signing.Verifier, container io.ReaderAt, size int64, requested signing.Expectation) (Result, error) {
	if err := s.transition(StateVerifying); err != nil {
		return 0, err
	}
	_, err := v.VerifySigned(s.ctx, container, size, s.expectation(requested), s.consume)
	if err == nil && s.state != StateCommitted {
		err = stateError("sync", fmt.Errorf("%w: payload consumed in state %s", ErrInvalidTransition, s.state))
	}
	if err != nil {
		s.fail(err)
		if errors.Is(err, errUnchanged) {
			return ResultUnchanged, nil
		}
		return 0, err
	}
	return ResultProcessed, nil
}

func (s *Session) consume(signer *x509.Certificate, r io.Reader) error {
	if err := s.transition(StateParsing); err != nil {
		return err
	}
	s.signer = signer
	if s.mode == ModeDiff {
		return index.ParseDiff(s.ctx, r, s)
	}
	return index.ParseFull(s.ctx, r, s)
}

// fail rolls the transaction back unless the session already ended.
func (s *Session) fail(cause error) {
	if s.state == StateCommitted || s.state == StateFailed {
		return
	}
	if err := s.tx.Rollback(); err != nil {
		s.log.Warn("rollback failed", "error", err)
	}
	if errors.Is(cause, errUnchanged) {
		s.log.Debug("index not newer than stored index", "timestamp", s.stored.Timestamp)
	} else {
		s.log.Warn("sync session rolled back", "state", s.state.String(), "error", cause)
	}
	s.state = StateFailed
}

// apply runs fn for one parser event.
func (s *Session) apply(fn func() error) error {
	switch s.state {
	case StateParsing:
		if err := s.transition(StateApplying); err != nil {
			return err
		}
	case StateApplying:
	case StateCommitted:
		return stateError("apply", ErrStreamAlreadyEnded)
	default:
		return stateError("apply", fmt.Errorf("%w: event in state %s", ErrInvalidTransition, s.state))
	}
	return fn()
}

// OnStreamEnded commits the transaction.
func (s *Session) OnStreamEnded() error {
	switch s.state {
	case StateApplying:
	case StateCommitted:
		return stateError("commit", ErrStreamAlreadyEnded)
	default:
		return stateError("commit", fmt.Errorf("%w: stream ended in state %s", ErrInvalidTransition, s.state))
	}
	if !s.seenRepo {
		return stateError("commit", ErrRepoSectionMissing)
	}
	if s.mode == ModeDiff {
		if !s.seenBase {
			return stateError("commit", ErrDiffBaseMissing)
		}
		if err := s.checkBase(); err != nil {
			return err
		}
	}
	if err := s.tx.Commit(); err != nil {
		return ioError("commit", err)
	}
	if err := s.transition(StateCommitted); err != nil {
		return err
	}
	s.log.Debug("sync session committed", "packages", len(s.touched))
	return nil
}

func (s *Session) certificate() string {
	if s.signer == nil {
		return s.stored.Certificate
	}
	return hex.EncodeToString(s.signer.Raw)
}

func (s *Session) touch(packageName string) {
	s.touched[packageName] = struct{}{}
}

func storeError(err error) error {
	return ioError("store", err)
}
