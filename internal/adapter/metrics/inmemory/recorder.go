package inmemory

import (
	"sync"

	"tradecore/internal/domain/trade"
)

type Snapshot struct {
	TradesTotal     uint64            `json:"trades_total"`
	CommitConflicts uint64            `json:"commit_conflicts"`
	RuleViolations  uint64            `json:"rule_violations"`
	ByStatus        map[string]uint64 `json:"by_status"`
}

type Recorder struct {
	mu         sync.Mutex
	conflicts  uint64
	violations uint64
	byStatus   map[string]uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		byStatus: map[string]uint64{},
	}
}

func (r *Recorder) RecordOutcome(status trade.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byStatus[string(status)]++
}

func (r *Recorder) RecordCommitConflict() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts++
}

func (r *Recorder) RecordRuleViolation() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.violations++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		CommitConflicts: r.conflicts,
		RuleViolations:  r.violations,
		ByStatus:        make(map[string]uint64, len(r.byStatus)),
	}
	for k, v := range r.byStatus {
		out.ByStatus[k] = v
		out.TradesTotal += v
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
