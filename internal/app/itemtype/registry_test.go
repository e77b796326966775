package itemtype

import (
	"context"
	"errors"
	"testing"

	"tradecore/internal/adapter/repo/memory"
	"tradecore/internal/app/ports"
	"tradecore/internal/domain/item"
	"tradecore/internal/runtime"
)

func newTestSystem(t *testing.T, store *memory.Store) *runtime.System {
	t.Helper()
	sys := runtime.NewSystem(runtime.Config{})
	Register(sys, memory.NewItemTypeRepo(store))
	t.Cleanup(func() { _ = sys.Stop(context.Background()) })
	return sys
}

func TestRegisterGetList(t *testing.T) {
	sys := newTestSystem(t, memory.NewStore())
	ctx := context.Background()
	id := IdentityFor()

	sword := item.Type{ID: "sword", Name: "Sword", Category: "weapon", Tradeable: true, MaxStack: 1}
	if _, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (struct{}, error) {
		return struct{}{}, a.RegisterType(ctx, sword)
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) (item.Type, error) {
		return a.Get(ctx, "sword")
	})
	if err != nil || got.Name != "Sword" {
		t.Fatalf("get: %+v %v", got, err)
	}

	list, err := runtime.Call(ctx, sys, id, func(ctx context.Context, a *Actor) ([]item.Type, error) {
		return a.List(ctx)
	})
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %v", list, err)
	}
}

func TestGetUnknownType(t *testing.T) {
	sys := newTestSystem(t, memory.NewStore())
	_, err := runtime.Call(context.Background(), sys, IdentityFor(),
		func(ctx context.Context, a *Actor) (item.Type, error) {
			return a.Get(ctx, "nope")
		})
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	sys := newTestSystem(t, memory.NewStore())
	_, err := runtime.Call(context.Background(), sys, IdentityFor(),
		func(ctx context.Context, a *Actor) (struct{}, error) {
			return struct{}{}, a.RegisterType(ctx, item.Type{ID: "x"})
		})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestActivationWarmsCacheFromRepo(t *testing.T) {
	store := memory.NewStore()
	store.SeedItemType(item.Type{ID: "shield", Name: "Shield", Tradeable: true})
	sys := newTestSystem(t, store)

	got, err := runtime.Call(context.Background(), sys, IdentityFor(),
		func(ctx context.Context, a *Actor) (item.Type, error) {
			// Served from the warmed cache, not a repo round trip.
			return a.Get(ctx, "shield")
		})
	if err != nil || got.Name != "Shield" {
		t.Fatalf("get seeded type: %+v %v", got, err)
	}
}
