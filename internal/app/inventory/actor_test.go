package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradecore/internal/adapter/repo/memory"
	"tradecore/internal/app/ports"
	dinventory "tradecore/internal/domain/inventory"
	"tradecore/internal/domain/item"
	"tradecore/internal/runtime"
)

func newTestSystem(t *testing.T, repo ports.InventoryRepository, clock func() time.Time) *runtime.System {
	t.Helper()
	sys := runtime.NewSystem(runtime.Config{})
	Register(sys, repo, 30*time.Second, clock)
	t.Cleanup(func() { _ = sys.Stop(context.Background()) })
	return sys
}

func addItem(t *testing.T, sys *runtime.System, id runtime.Identity, typeID string) item.Item {
	t.Helper()
	it, err := runtime.Call(context.Background(), sys, id,
		func(ctx context.Context, a *Actor) (item.Item, error) {
			return a.AddItem(ctx, typeID, 1, nil)
		})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	return it
}

func TestKeyRoundTrip(t *testing.T) {
	characterID, seasonID, err := splitKey(Key("alice", "s1"))
	if err != nil || characterID != "alice" || seasonID != "s1" {
		t.Fatalf("round trip: %q %q %v", characterID, seasonID, err)
	}
	if _, _, err := splitKey("garbage"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("malformed key: %v", err)
	}
}

func TestAddRemoveGetItems(t *testing.T) {
	store := memory.NewStore()
	sys := newTestSystem(t, memory.NewInventoryRepo(store), time.Now)
	id := IdentityFor("alice", "s1")
	ctx := context.Background()

	sword := addItem(t, sys, id, "sword")
	if sword.ID == "" || sword.TypeID != "sword" {
		t.Fatalf("minted item: %+v", sword)
	}

	got, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) ([]item.Item, error) {
		return a.GetItems(ctx)
	})
	if err != nil || len(got) != 1 {
		t.Fatalf("list: %v %v", got, err)
	}

	removed, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (bool, error) {
		return a.RemoveItem(ctx, sword.ID)
	})
	if err != nil || !removed {
		t.Fatalf("remove: %v %v", removed, err)
	}
	removed, err = runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (bool, error) {
		return a.RemoveItem(ctx, sword.ID)
	})
	if err != nil || removed {
		t.Fatalf("second remove must be a no-op: %v %v", removed, err)
	}
}

func TestAddItemValidation(t *testing.T) {
	store := memory.NewStore()
	sys := newTestSystem(t, memory.NewInventoryRepo(store), time.Now)
	id := IdentityFor("alice", "s1")

	_, err := runtime.Call(context.Background(), sys, id,
		func(ctx context.Context, a *Actor) (item.Item, error) {
			return a.AddItem(ctx, "", 1, nil)
		})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("empty type: %v", err)
	}
	_, err = runtime.Call(context.Background(), sys, id,
		func(ctx context.Context, a *Actor) (item.Item, error) {
			return a.AddItem(ctx, "sword", 0, nil)
		})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("zero quantity: %v", err)
	}
}

func TestStateSurvivesDeactivation(t *testing.T) {
	store := memory.NewStore()
	sys := newTestSystem(t, memory.NewInventoryRepo(store), time.Now)
	id := IdentityFor("alice", "s1")

	sword := addItem(t, sys, id, "sword")
	if !sys.Deactivate(id) {
		t.Fatal("deactivate")
	}

	// Reactivation loads durable state.
	ok, err := runtime.Call(context.Background(), sys, id,
		func(ctx context.Context, a *Actor) (bool, error) {
			return a.HasItem(ctx, sword.ID)
		})
	if err != nil || !ok {
		t.Fatalf("item lost across reactivation: %v %v", ok, err)
	}
}

func TestPrepareCommitTransfersAtomically(t *testing.T) {
	store := memory.NewStore()
	sys := newTestSystem(t, memory.NewInventoryRepo(store), time.Now)
	id := IdentityFor("alice", "s1")
	ctx := context.Background()

	sword := addItem(t, sys, id, "sword")
	shield := item.Item{ID: "shield-1", TypeID: "shield", Quantity: 1}

	change := dinventory.StagedChange{RemoveIDs: []string{sword.ID}, Add: []item.Item{shield}}
	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Prepare(ctx, "tx1", change)
	}); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	// Prepared but uncommitted: the sword is still visible, the shield is not.
	has, _ := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (bool, error) {
		return a.HasItem(ctx, sword.ID)
	})
	if !has {
		t.Fatal("staged removal leaked before commit")
	}

	// A competing transaction cannot claim the sword.
	_, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Prepare(ctx, "tx2", dinventory.StagedChange{RemoveIDs: []string{sword.ID}})
	})
	if !errors.Is(err, dinventory.ErrItemStaged) {
		t.Fatalf("competing prepare: %v", err)
	}

	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Commit(ctx, "tx1")
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	items, _ := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) ([]item.Item, error) {
		return a.GetItems(ctx)
	})
	if len(items) != 1 || items[0].ID != "shield-1" {
		t.Fatalf("after commit: %+v", items)
	}
}

func TestPreparedChangeSurvivesRestartAndCommits(t *testing.T) {
	store := memory.NewStore()
	sys := newTestSystem(t, memory.NewInventoryRepo(store), time.Now)
	id := IdentityFor("alice", "s1")
	ctx := context.Background()

	sword := addItem(t, sys, id, "sword")
	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Prepare(ctx, "tx1", dinventory.StagedChange{RemoveIDs: []string{sword.ID}})
	}); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	// Simulated crash between prepare and commit.
	if !sys.Deactivate(id) {
		t.Fatal("deactivate")
	}

	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Commit(ctx, "tx1")
	}); err != nil {
		t.Fatalf("commit after restart: %v", err)
	}
	has, _ := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (bool, error) {
		return a.HasItem(ctx, sword.ID)
	})
	if has {
		t.Fatal("staged removal not applied after restart")
	}
}

func TestAbortAndUnknownTxAreNoOps(t *testing.T) {
	store := memory.NewStore()
	sys := newTestSystem(t, memory.NewInventoryRepo(store), time.Now)
	id := IdentityFor("alice", "s1")
	ctx := context.Background()

	sword := addItem(t, sys, id, "sword")
	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Prepare(ctx, "tx1", dinventory.StagedChange{RemoveIDs: []string{sword.ID}})
	}); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Abort(ctx, "tx1")
	}); err != nil {
		t.Fatalf("abort: %v", err)
	}
	has, _ := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (bool, error) {
		return a.HasItem(ctx, sword.ID)
	})
	if !has {
		t.Fatal("abort must leave the item in place")
	}

	// Commit/abort of unknown transactions must not error.
	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Commit(ctx, "ghost")
	}); err != nil {
		t.Fatalf("unknown commit: %v", err)
	}
	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Abort(ctx, "ghost")
	}); err != nil {
		t.Fatalf("unknown abort: %v", err)
	}
}

func TestExpiredClaimIsEvictedByContender(t *testing.T) {
	store := memory.NewStore()
	var now time.Time = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	sys := runtime.NewSystem(runtime.Config{})
	Register(sys, memory.NewInventoryRepo(store), 30*time.Second, clock)
	t.Cleanup(func() { _ = sys.Stop(context.Background()) })

	id := IdentityFor("alice", "s1")
	ctx := context.Background()
	sword := addItem(t, sys, id, "sword")

	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Prepare(ctx, "stalled", dinventory.StagedChange{RemoveIDs: []string{sword.ID}})
	}); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	now = now.Add(time.Minute) // past the 30s staging timeout
	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Prepare(ctx, "fresh", dinventory.StagedChange{RemoveIDs: []string{sword.ID}})
	}); err != nil {
		t.Fatalf("contending prepare after timeout: %v", err)
	}

	// The stalled transaction lost its claim; its commit is now a no-op.
	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.Commit(ctx, "stalled")
	}); err != nil {
		t.Fatalf("stalled commit: %v", err)
	}
	has, _ := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (bool, error) {
		return a.HasItem(ctx, sword.ID)
	})
	if !has {
		t.Fatal("evicted transaction must not remove the item")
	}
}
