package itemtype

import (
	"context"
	"errors"

	"tradecore/internal/app/ports"
	"tradecore/internal/domain/item"
	"tradecore/internal/runtime"
)

const Kind = "itemtype"

// RegistryKey is the single identity the read-mostly registry lives under.
const RegistryKey = "global"

var ErrInvalidRequest = errors.New("invalid item type request")

func IdentityFor() runtime.Identity {
	return runtime.Identity{Kind: Kind, Key: RegistryKey}
}

// Actor caches the item-type reference data in memory; the repo is the
// source of truth and is only touched on activation, cache misses and
// registration.
type Actor struct {
	id   runtime.Identity
	repo ports.ItemTypeRepository

	types map[string]item.Type
}

func NewActor(id runtime.Identity, repo ports.ItemTypeRepository) *Actor {
	return &Actor{id: id, repo: repo}
}

func Register(sys *runtime.System, repo ports.ItemTypeRepository) {
	sys.Register(Kind, func(id runtime.Identity) runtime.Actor {
		return NewActor(id, repo)
	})
}

func (a *Actor) Activate(ctx context.Context) error {
	a.types = make(map[string]item.Type)
	types, err := a.repo.List(ctx)
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return err
	}
	for _, t := range types {
		a.types[t.ID] = t
	}
	return nil
}

func (a *Actor) Deactivate(context.Context) error { return nil }

func (a *Actor) Get(ctx context.Context, typeID string) (item.Type, error) {
	if t, ok := a.types[typeID]; ok {
		return t, nil
	}
	t, err := a.repo.GetByID(ctx, typeID)
	if err != nil {
		return item.Type{}, err
	}
	a.types[t.ID] = t
	return t, nil
}

func (a *Actor) RegisterType(ctx context.Context, t item.Type) error {
	if t.ID == "" || t.Name == "" {
		return ErrInvalidRequest
	}
	if err := a.repo.Upsert(ctx, t); err != nil {
		return err
	}
	a.types[t.ID] = t
	return nil
}

func (a *Actor) List(context.Context) ([]item.Type, error) {
	out := make([]item.Type, 0, len(a.types))
	for _, t := range a.types {
		out = append(out, t)
	}
	return out, nil
}
