package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradecore/internal/adapter/repo/memory"
	"tradecore/internal/domain/item"
	"tradecore/internal/runtime"
)

func newTestSystem(t *testing.T, clock func() time.Time) *runtime.System {
	t.Helper()
	sys := runtime.NewSystem(runtime.Config{})
	Register(sys, memory.NewItemHistoryRepo(memory.NewStore()), clock)
	t.Cleanup(func() { _ = sys.Stop(context.Background()) })
	return sys
}

func TestAddEntryAndGetHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sys := newTestSystem(t, func() time.Time { return now })
	id := IdentityFor("i1")
	ctx := context.Background()

	entry, err := runtime.Call(ctx, sys, id,
		func(ctx context.Context, a *Actor) (item.HistoryEntry, error) {
			return a.AddEntry(ctx, item.HistoryAcquired, "alice", "", map[string]string{"source": "drop"})
		})
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if entry.Seq != 1 || !entry.Timestamp.Equal(now) {
		t.Fatalf("entry: %+v", entry)
	}

	entries, err := runtime.Call(ctx, sys, id,
		func(ctx context.Context, a *Actor) ([]item.HistoryEntry, error) {
			return a.GetHistory(ctx, time.Time{}, 0)
		})
	if err != nil || len(entries) != 1 {
		t.Fatalf("get history: %v %v", entries, err)
	}
}

func TestAddEntryValidation(t *testing.T) {
	sys := newTestSystem(t, time.Now)
	id := IdentityFor("i1")

	_, err := runtime.Call(context.Background(), sys, id,
		func(ctx context.Context, a *Actor) (item.HistoryEntry, error) {
			return a.AddEntry(ctx, "", "alice", "", nil)
		})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("empty event type: %v", err)
	}
	_, err = runtime.Call(context.Background(), sys, id,
		func(ctx context.Context, a *Actor) (item.HistoryEntry, error) {
			return a.AddEntry(ctx, item.HistoryAcquired, "", "", nil)
		})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("empty character: %v", err)
	}
}

func TestPrepareCommitStampsAtCommitTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sys := newTestSystem(t, func() time.Time { return now })
	id := IdentityFor("i1")
	ctx := context.Background()

	staged := []item.HistoryEntry{{
		EventType:     item.HistoryTraded,
		CharacterID:   "alice",
		CounterpartID: "bob",
	}}
	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Prepare(ctx, "tx1", staged)
	}); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	entries, _ := runtime.Call(ctx, sys, id,
		func(ctx context.Context, a *Actor) ([]item.HistoryEntry, error) {
			return a.GetHistory(ctx, time.Time{}, 0)
		})
	if len(entries) != 0 {
		t.Fatal("staged entries visible before commit")
	}

	now = now.Add(time.Minute)
	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Commit(ctx, "tx1")
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	entries, _ = runtime.Call(ctx, sys, id,
		func(ctx context.Context, a *Actor) ([]item.HistoryEntry, error) {
			return a.GetHistory(ctx, time.Time{}, 0)
		})
	if len(entries) != 1 {
		t.Fatalf("entries after commit: %+v", entries)
	}
	if !entries[0].Timestamp.Equal(now) {
		t.Fatalf("entry stamped %s, want commit time %s", entries[0].Timestamp, now)
	}

	// Re-delivered commit is a no-op.
	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Commit(ctx, "tx1")
	}); err != nil {
		t.Fatalf("re-commit: %v", err)
	}
	entries, _ = runtime.Call(ctx, sys, id,
		func(ctx context.Context, a *Actor) ([]item.HistoryEntry, error) {
			return a.GetHistory(ctx, time.Time{}, 0)
		})
	if len(entries) != 1 {
		t.Fatalf("re-commit duplicated entries: %d", len(entries))
	}
}

func TestAbortDiscardsStagedEntries(t *testing.T) {
	sys := newTestSystem(t, time.Now)
	id := IdentityFor("i1")
	ctx := context.Background()

	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Prepare(ctx, "tx1", []item.HistoryEntry{{EventType: item.HistoryTraded, CharacterID: "alice"}})
	}); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Abort(ctx, "tx1")
	}); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Commit(ctx, "tx1")
	}); err != nil {
		t.Fatalf("commit after abort: %v", err)
	}

	entries, _ := runtime.Call(ctx, sys, id,
		func(ctx context.Context, a *Actor) ([]item.HistoryEntry, error) {
			return a.GetHistory(ctx, time.Time{}, 0)
		})
	if len(entries) != 0 {
		t.Fatalf("aborted entries surfaced: %+v", entries)
	}
}
