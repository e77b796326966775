package inventory

import (
	"errors"
	"sort"
	"time"

	"tradecore/internal/domain/item"
)

var (
	ErrItemMissing   = errors.New("item not present in inventory")
	ErrItemStaged    = errors.New("item staged by another transaction")
	ErrDuplicateItem = errors.New("duplicate item id")
)

// StagedChange is a pending two-phase-commit change: removals and additions
// that become visible only when the owning transaction commits.
type StagedChange struct {
	TxID      string      `json:"tx_id"`
	RemoveIDs []string    `json:"remove_ids,omitempty"`
	Add       []item.Item `json:"add,omitempty"`
	StagedAt  time.Time   `json:"staged_at"`
}

// State is the item ownership aggregate for one (character, season) pair.
type State struct {
	CharacterID string                  `json:"character_id"`
	SeasonID    string                  `json:"season_id"`
	Items       map[string]item.Item    `json:"items"`
	Staged      map[string]StagedChange `json:"staged,omitempty"`
	Version     int64                   `json:"version"`
}

func NewState(characterID, seasonID string) State {
	return State{
		CharacterID: characterID,
		SeasonID:    seasonID,
		Items:       make(map[string]item.Item),
	}
}

func (s *State) Add(it item.Item) error {
	if s.Items == nil {
		s.Items = make(map[string]item.Item)
	}
	if _, ok := s.Items[it.ID]; ok {
		return ErrDuplicateItem
	}
	s.Items[it.ID] = it
	return nil
}

// Remove reports whether the item was present. Removing an absent item is a
// no-op so speculative removal during commit tolerates double delivery.
func (s *State) Remove(id string) bool {
	if _, ok := s.Items[id]; !ok {
		return false
	}
	delete(s.Items, id)
	return true
}

func (s *State) Get(id string) (item.Item, bool) {
	it, ok := s.Items[id]
	return it, ok
}

// List returns items ordered by acquisition time, then id.
func (s *State) List() []item.Item {
	out := make([]item.Item, 0, len(s.Items))
	for _, it := range s.Items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AcquiredAt.Equal(out[j].AcquiredAt) {
			return out[i].AcquiredAt.Before(out[j].AcquiredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Stage validates and records a pending change. Every removal must still be
// present and unclaimed; an expired claim from a stalled transaction is
// evicted by the contending Prepare rather than by a background sweep, so a
// delayed Commit can still land when nothing contends for its items.
// Re-staging an already-staged transaction id is a no-op.
func (s *State) Stage(ch StagedChange, now time.Time, stagingTimeout time.Duration) error {
	if s.Staged == nil {
		s.Staged = make(map[string]StagedChange)
	}
	if _, ok := s.Staged[ch.TxID]; ok {
		return nil
	}
	claims := make(map[string]string, len(s.Staged))
	for txID, staged := range s.Staged {
		for _, id := range staged.RemoveIDs {
			claims[id] = txID
		}
	}
	for _, id := range ch.RemoveIDs {
		if _, ok := s.Items[id]; !ok {
			return ErrItemMissing
		}
		holder, claimed := claims[id]
		if !claimed {
			continue
		}
		staged := s.Staged[holder]
		if stagingTimeout > 0 && now.Sub(staged.StagedAt) > stagingTimeout {
			delete(s.Staged, holder)
			continue
		}
		return ErrItemStaged
	}
	for _, it := range ch.Add {
		if _, ok := s.Items[it.ID]; ok {
			return ErrDuplicateItem
		}
	}
	ch.StagedAt = now
	s.Staged[ch.TxID] = ch
	return nil
}

// CommitStaged applies the staged change for txID. Unknown transaction ids
// report false and change nothing.
func (s *State) CommitStaged(txID string) bool {
	ch, ok := s.Staged[txID]
	if !ok {
		return false
	}
	for _, id := range ch.RemoveIDs {
		delete(s.Items, id)
	}
	if s.Items == nil {
		s.Items = make(map[string]item.Item)
	}
	for _, it := range ch.Add {
		s.Items[it.ID] = it
	}
	delete(s.Staged, txID)
	return true
}

func (s *State) AbortStaged(txID string) bool {
	if _, ok := s.Staged[txID]; !ok {
		return false
	}
	delete(s.Staged, txID)
	return true
}

func (s State) Clone() State {
	out := s
	out.Items = make(map[string]item.Item, len(s.Items))
	for k, v := range s.Items {
		out.Items[k] = v
	}
	if s.Staged != nil {
		out.Staged = make(map[string]StagedChange, len(s.Staged))
		for k, v := range s.Staged {
			v.RemoveIDs = append([]string(nil), v.RemoveIDs...)
			v.Add = append([]item.Item(nil), v.Add...)
			out.Staged[k] = v
		}
	}
	return out
}
