package history

import (
	"context"
	"errors"
	"time"

	"tradecore/internal/app/ports"
	"tradecore/internal/domain/item"
	"tradecore/internal/runtime"
)

const Kind = "itemhistory"

var ErrInvalidRequest = errors.New("invalid history request")

func IdentityFor(itemID string) runtime.Identity {
	return runtime.Identity{Kind: Kind, Key: itemID}
}

// Actor owns the append-only event log for one item. Timestamps are assigned
// monotonically at append time; ties are broken by sequence number.
type Actor struct {
	id    runtime.Identity
	repo  ports.ItemHistoryRepository
	clock func() time.Time

	state item.History
}

func NewActor(id runtime.Identity, repo ports.ItemHistoryRepository, clock func() time.Time) *Actor {
	if clock == nil {
		clock = time.Now
	}
	return &Actor{id: id, repo: repo, clock: clock}
}

func Register(sys *runtime.System, repo ports.ItemHistoryRepository, clock func() time.Time) {
	sys.Register(Kind, func(id runtime.Identity) runtime.Actor {
		return NewActor(id, repo, clock)
	})
}

func (a *Actor) Activate(ctx context.Context) error {
	state, err := a.repo.GetByItemID(ctx, a.id.Key)
	if errors.Is(err, ports.ErrNotFound) {
		a.state = item.NewHistory(a.id.Key)
		return nil
	}
	if err != nil {
		return err
	}
	a.state = state
	return nil
}

func (a *Actor) Deactivate(context.Context) error { return nil }

func (a *Actor) persist(ctx context.Context, next item.History) error {
	expected := a.state.Version
	next.Version = expected + 1
	if err := a.repo.SaveWithVersion(ctx, next, expected); err != nil {
		if errors.Is(err, ports.ErrConflict) {
			if reloaded, loadErr := a.repo.GetByItemID(ctx, a.id.Key); loadErr == nil {
				a.state = reloaded
			}
		}
		return err
	}
	a.state = next
	return nil
}

func (a *Actor) AddEntry(ctx context.Context, eventType item.HistoryEventType, characterID, counterpartID string, details map[string]string) (item.HistoryEntry, error) {
	if eventType == "" || characterID == "" {
		return item.HistoryEntry{}, ErrInvalidRequest
	}
	next := a.state.Clone()
	entry := next.Append(item.HistoryEntry{
		EventType:     eventType,
		CharacterID:   characterID,
		CounterpartID: counterpartID,
		Details:       details,
	}, a.clock())
	if err := a.persist(ctx, next); err != nil {
		return item.HistoryEntry{}, err
	}
	return entry, nil
}

// GetHistory returns entries at or after since, oldest first. A zero since
// returns from the beginning; limit 0 means no cap.
func (a *Actor) GetHistory(_ context.Context, since time.Time, limit int) ([]item.HistoryEntry, error) {
	return a.state.Since(since, limit), nil
}

// Prepare stages trade audit entries under txID; they are appended, with
// commit-time timestamps, only when the transaction commits.
func (a *Actor) Prepare(ctx context.Context, txID string, entries []item.HistoryEntry) error {
	if _, ok := a.state.Staged[txID]; ok {
		return nil
	}
	next := a.state.Clone()
	next.Stage(txID, entries)
	return a.persist(ctx, next)
}

func (a *Actor) Commit(ctx context.Context, txID string) error {
	next := a.state.Clone()
	if !next.CommitStaged(txID, a.clock()) {
		return nil
	}
	return a.persist(ctx, next)
}

func (a *Actor) Abort(ctx context.Context, txID string) error {
	next := a.state.Clone()
	if !next.AbortStaged(txID) {
		return nil
	}
	return a.persist(ctx, next)
}
