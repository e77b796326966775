package trade

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest    = errors.New("invalid trade request")
	ErrAlreadyInitiated  = errors.New("trade session already initiated")
	ErrNotTradeable      = errors.New("item type is not tradeable")
	ErrOwnershipMismatch = errors.New("item not owned by character")
	ErrCommitConflict    = errors.New("trade commit conflict")
)

type NotTradeableError struct {
	ItemID string
	TypeID string
}

func (e *NotTradeableError) Error() string {
	return fmt.Sprintf("item %s of type %s is not tradeable", e.ItemID, e.TypeID)
}

func (e *NotTradeableError) Unwrap() error { return ErrNotTradeable }

type OwnershipError struct {
	CharacterID string
	ItemID      string
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("item %s is not owned by character %s", e.ItemID, e.CharacterID)
}

func (e *OwnershipError) Unwrap() error { return ErrOwnershipMismatch }

// CommitConflictError reports a commit attempt that was aborted because a
// participant refused to prepare; the trade stays pending with both accept
// flags cleared and the caller is expected to re-Accept.
type CommitConflictError struct {
	TradeID string
	Cause   error
}

func (e *CommitConflictError) Error() string {
	return fmt.Sprintf("trade %s commit aborted: %v", e.TradeID, e.Cause)
}

func (e *CommitConflictError) Unwrap() error { return ErrCommitConflict }
