package trade

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusExpired
}

var (
	ErrTerminal       = errors.New("trade is in a terminal state")
	ErrNotParticipant = errors.New("character is not a trade participant")
	ErrItemOffered    = errors.New("item already offered in this trade")
	ErrItemNotOffered = errors.New("item not offered in this trade")
	ErrLimitExceeded  = errors.New("trade side item limit exceeded")
)

// TerminalError reports which terminal status blocked a mutation, so callers
// can distinguish "already done" from a malformed request.
type TerminalError struct {
	Status Status
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("trade is %s", e.Status)
}

func (e *TerminalError) Unwrap() error { return ErrTerminal }

// Side is one participant's offered item set and acceptance flag.
type Side struct {
	CharacterID string   `json:"character_id"`
	ItemIDs     []string `json:"item_ids,omitempty"`
	Accepted    bool     `json:"accepted"`
}

func (s *Side) has(itemID string) bool {
	for _, id := range s.ItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}

// Session is one trade negotiation. Once it reaches a terminal status it is
// immutable; every mutating method guards on StatusPending.
//
// CommitTxID and CommitDecided make the session the durable decision record
// of the two-phase commit: a session persisted with CommitDecided set must be
// driven to Completed by re-issuing Commit to every participant, while an
// undecided one is presumed aborted on reactivation.
type Session struct {
	TradeID       string     `json:"trade_id"`
	SeasonID      string     `json:"season_id"`
	Initiator     Side       `json:"initiator"`
	Target        Side       `json:"target"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CommitTxID    string     `json:"commit_tx_id,omitempty"`
	CommitDecided bool       `json:"commit_decided,omitempty"`
	Version       int64      `json:"version"`
}

func NewSession(tradeID, seasonID, initiatorID, targetID string, now time.Time) Session {
	return Session{
		TradeID:   tradeID,
		SeasonID:  seasonID,
		Initiator: Side{CharacterID: initiatorID},
		Target:    Side{CharacterID: targetID},
		Status:    StatusPending,
		CreatedAt: now,
	}
}

// SideOf returns the side owned by characterID, or nil.
func (s *Session) SideOf(characterID string) *Side {
	switch characterID {
	case s.Initiator.CharacterID:
		return &s.Initiator
	case s.Target.CharacterID:
		return &s.Target
	}
	return nil
}

// OtherSide returns the counterpart of characterID, or nil.
func (s *Session) OtherSide(characterID string) *Side {
	switch characterID {
	case s.Initiator.CharacterID:
		return &s.Target
	case s.Target.CharacterID:
		return &s.Initiator
	}
	return nil
}

func (s *Session) guardPending() error {
	if s.Status.Terminal() {
		return &TerminalError{Status: s.Status}
	}
	return nil
}

// Offer appends itemID to characterID's side. An item id may appear on at
// most one side of an active trade. Offering resets the side's acceptance:
// acceptance is a commitment to the current contents only.
func (s *Session) Offer(characterID, itemID string, maxPerSide int) error {
	if err := s.guardPending(); err != nil {
		return err
	}
	side := s.SideOf(characterID)
	if side == nil {
		return ErrNotParticipant
	}
	if side.has(itemID) || s.OtherSide(characterID).has(itemID) {
		return ErrItemOffered
	}
	if maxPerSide > 0 && len(side.ItemIDs) >= maxPerSide {
		return ErrLimitExceeded
	}
	side.ItemIDs = append(side.ItemIDs, itemID)
	side.Accepted = false
	return nil
}

// Withdraw removes itemID from characterID's side and resets its acceptance.
func (s *Session) Withdraw(characterID, itemID string) error {
	if err := s.guardPending(); err != nil {
		return err
	}
	side := s.SideOf(characterID)
	if side == nil {
		return ErrNotParticipant
	}
	for i, id := range side.ItemIDs {
		if id != itemID {
			continue
		}
		side.ItemIDs = append(side.ItemIDs[:i], side.ItemIDs[i+1:]...)
		side.Accepted = false
		return nil
	}
	return ErrItemNotOffered
}

func (s *Session) SetAccepted(characterID string) error {
	if err := s.guardPending(); err != nil {
		return err
	}
	side := s.SideOf(characterID)
	if side == nil {
		return ErrNotParticipant
	}
	side.Accepted = true
	return nil
}

func (s *Session) BothAccepted() bool {
	return s.Initiator.Accepted && s.Target.Accepted
}

// ResetAcceptance clears both accept flags, used when a commit attempt is
// aborted and the trade returns to open negotiation.
func (s *Session) ResetAcceptance() {
	s.Initiator.Accepted = false
	s.Target.Accepted = false
}

func (s *Session) Complete(now time.Time) error {
	if err := s.guardPending(); err != nil {
		return err
	}
	s.Status = StatusCompleted
	s.CompletedAt = &now
	s.CommitTxID = ""
	s.CommitDecided = false
	return nil
}

func (s *Session) Cancel(now time.Time) error {
	if err := s.guardPending(); err != nil {
		return err
	}
	s.Status = StatusCancelled
	s.CompletedAt = &now
	return nil
}

func (s *Session) Expire(now time.Time) error {
	if err := s.guardPending(); err != nil {
		return err
	}
	s.Status = StatusExpired
	s.CompletedAt = &now
	return nil
}

// ExpiredBy reports whether a pending session has outlived the timeout.
func (s *Session) ExpiredBy(now time.Time, timeout time.Duration) bool {
	return s.Status == StatusPending && timeout > 0 && now.Sub(s.CreatedAt) > timeout
}

func (s Session) Clone() Session {
	out := s
	out.Initiator.ItemIDs = append([]string(nil), s.Initiator.ItemIDs...)
	out.Target.ItemIDs = append([]string(nil), s.Target.ItemIDs...)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
