package txn

import (
	"context"
	"errors"
	"fmt"
)

var ErrPrepareFailed = errors.New("transaction prepare failed")

// Participant is one independently persisted party in a two-phase commit.
// Prepare stages the participant's change without making it observable;
// Commit applies it durably; Abort discards it. Commit and Abort must be
// idempotent no-ops for transaction ids the participant has already
// finalized or never staged.
type Participant interface {
	Name() string
	Prepare(ctx context.Context, txID string) error
	Commit(ctx context.Context, txID string) error
	Abort(ctx context.Context, txID string) error
}

// PrepareError reports which participant refused to stage its change.
type PrepareError struct {
	Participant string
	Err         error
}

func (e *PrepareError) Error() string {
	return fmt.Sprintf("prepare failed at %s: %v", e.Participant, e.Err)
}

func (e *PrepareError) Unwrap() error { return ErrPrepareFailed }

// Coordinator drives the Prepare/Decide/Commit-or-Abort protocol over a
// fixed, ordered participant list. It is a plain helper run by the
// initiating actor, not a long-lived service; the caller supplies the
// durable decision record through OnDecided.
type Coordinator struct {
	// OnDecided runs after every participant prepared and before any Commit
	// is issued. Persisting the decision here lets a crashed coordinator be
	// resumed: a recorded decision is re-driven to Commit, an unrecorded one
	// is presumed aborted.
	OnDecided func(ctx context.Context, txID string) error
}

// Run executes the full protocol. Participants are prepared strictly in
// slice order; the caller fixes that order deterministically to avoid
// livelock between transactions contending for the same participants.
func (c Coordinator) Run(ctx context.Context, txID string, participants []Participant) error {
	prepared := make([]Participant, 0, len(participants))
	for _, p := range participants {
		if err := p.Prepare(ctx, txID); err != nil {
			c.Abort(ctx, txID, prepared)
			return &PrepareError{Participant: p.Name(), Err: err}
		}
		prepared = append(prepared, p)
	}
	if c.OnDecided != nil {
		if err := c.OnDecided(ctx, txID); err != nil {
			c.Abort(ctx, txID, prepared)
			return err
		}
	}
	return c.Commit(ctx, txID, participants)
}

// Commit issues Commit to every participant. Once the decision is recorded
// the protocol never abandons mid-commit: all participants are attempted
// even after an error, and the first error is returned so the caller can
// retry the commit phase.
func (c Coordinator) Commit(ctx context.Context, txID string, participants []Participant) error {
	var first error
	for _, p := range participants {
		if err := p.Commit(ctx, txID); err != nil && first == nil {
			first = fmt.Errorf("commit at %s: %w", p.Name(), err)
		}
	}
	return first
}

// Abort issues Abort to every participant, ignoring individual failures:
// unstaged changes expire via the participants' staging timeout.
func (c Coordinator) Abort(ctx context.Context, txID string, participants []Participant) {
	for i := len(participants) - 1; i >= 0; i-- {
		_ = participants[i].Abort(ctx, txID)
	}
}
