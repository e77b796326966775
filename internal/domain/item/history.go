package item

import "time"

type HistoryEventType string

const (
	HistoryAcquired HistoryEventType = "acquired"
	HistoryTraded   HistoryEventType = "traded"
	HistoryRemoved  HistoryEventType = "removed"
)

// HistoryEntry is one audit record in an item's append-only log.
type HistoryEntry struct {
	Timestamp     time.Time         `json:"timestamp"`
	Seq           int64             `json:"seq"`
	EventType     HistoryEventType  `json:"event_type"`
	CharacterID   string            `json:"character_id"`
	CounterpartID string            `json:"counterpart_id,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

// History is the per-item audit log aggregate. Entries are never mutated or
// removed; Staged holds entries prepared by an in-flight trade commit, keyed
// by transaction id, so a decided commit can be finished after a restart.
type History struct {
	ItemID  string                    `json:"item_id"`
	Entries []HistoryEntry            `json:"entries"`
	Staged  map[string][]HistoryEntry `json:"staged,omitempty"`
	LastSeq int64                     `json:"last_seq"`
	LastAt  time.Time                 `json:"last_at"`
	Version int64                     `json:"version"`
}

func NewHistory(itemID string) History {
	return History{ItemID: itemID}
}

// Append assigns a monotonic timestamp and sequence number and records the
// entry. A wall-clock step backwards is clamped to the previous timestamp so
// per-item ordering stays non-decreasing; ties are ordered by Seq.
func (h *History) Append(e HistoryEntry, now time.Time) HistoryEntry {
	if now.Before(h.LastAt) {
		now = h.LastAt
	}
	h.LastSeq++
	h.LastAt = now
	e.Timestamp = now
	e.Seq = h.LastSeq
	h.Entries = append(h.Entries, e)
	return e
}

// Stage records entries to be appended when the transaction commits.
// Re-staging the same transaction id is a no-op so Prepare is retry-safe.
func (h *History) Stage(txID string, entries []HistoryEntry) {
	if h.Staged == nil {
		h.Staged = make(map[string][]HistoryEntry)
	}
	if _, ok := h.Staged[txID]; ok {
		return
	}
	h.Staged[txID] = entries
}

// CommitStaged appends the staged entries for txID. Unknown transaction ids
// report false and change nothing, which makes Commit idempotent.
func (h *History) CommitStaged(txID string, now time.Time) bool {
	entries, ok := h.Staged[txID]
	if !ok {
		return false
	}
	for _, e := range entries {
		h.Append(e, now)
	}
	delete(h.Staged, txID)
	return true
}

func (h *History) AbortStaged(txID string) bool {
	if _, ok := h.Staged[txID]; !ok {
		return false
	}
	delete(h.Staged, txID)
	return true
}

// Since returns entries with Timestamp >= since, oldest first, capped at
// limit when limit > 0.
func (h *History) Since(since time.Time, limit int) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(h.Entries))
	for _, e := range h.Entries {
		if e.Timestamp.Before(since) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (h History) Clone() History {
	out := h
	out.Entries = append([]HistoryEntry(nil), h.Entries...)
	if h.Staged != nil {
		out.Staged = make(map[string][]HistoryEntry, len(h.Staged))
		for k, v := range h.Staged {
			out.Staged[k] = append([]HistoryEntry(nil), v...)
		}
	}
	return out
}
