package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradecore/internal/app/ports"
	dinventory "tradecore/internal/domain/inventory"
	"tradecore/internal/domain/item"
	"tradecore/internal/runtime"

	"github.com/google/uuid"
)

const Kind = "inventory"

var ErrInvalidRequest = errors.New("invalid inventory request")

// Key builds the composite identity key for one (character, season) pair;
// the season acts as the partition.
func Key(characterID, seasonID string) string {
	return characterID + "|" + seasonID
}

func IdentityFor(characterID, seasonID string) runtime.Identity {
	return runtime.Identity{Kind: Kind, Key: Key(characterID, seasonID)}
}

func splitKey(key string) (characterID, seasonID string, err error) {
	characterID, seasonID, ok := strings.Cut(key, "|")
	if !ok || characterID == "" || seasonID == "" {
		return "", "", fmt.Errorf("%w: malformed inventory key %q", ErrInvalidRequest, key)
	}
	return characterID, seasonID, nil
}

// Actor owns the item collection for one (character, season) pair. Every
// mutation persists eagerly with an optimistic version guard, so idle
// deactivation has nothing left to flush.
type Actor struct {
	id             runtime.Identity
	repo           ports.InventoryRepository
	stagingTimeout time.Duration
	clock          func() time.Time

	state dinventory.State
}

func NewActor(id runtime.Identity, repo ports.InventoryRepository, stagingTimeout time.Duration, clock func() time.Time) *Actor {
	if clock == nil {
		clock = time.Now
	}
	return &Actor{id: id, repo: repo, stagingTimeout: stagingTimeout, clock: clock}
}

// Register installs the inventory factory on the actor system.
func Register(sys *runtime.System, repo ports.InventoryRepository, stagingTimeout time.Duration, clock func() time.Time) {
	sys.Register(Kind, func(id runtime.Identity) runtime.Actor {
		return NewActor(id, repo, stagingTimeout, clock)
	})
}

func (a *Actor) Activate(ctx context.Context) error {
	characterID, seasonID, err := splitKey(a.id.Key)
	if err != nil {
		return err
	}
	state, err := a.repo.Get(ctx, characterID, seasonID)
	if errors.Is(err, ports.ErrNotFound) {
		a.state = dinventory.NewState(characterID, seasonID)
		return nil
	}
	if err != nil {
		return err
	}
	a.state = state
	return nil
}

func (a *Actor) Deactivate(context.Context) error { return nil }

func (a *Actor) persist(ctx context.Context, next dinventory.State) error {
	expected := a.state.Version
	next.Version = expected + 1
	if err := a.repo.SaveWithVersion(ctx, next, expected); err != nil {
		if errors.Is(err, ports.ErrConflict) {
			// The stored version advanced behind our back; reload so the
			// next turn sees current state, and let the caller retry.
			if reloaded, loadErr := a.repo.Get(ctx, a.state.CharacterID, a.state.SeasonID); loadErr == nil {
				a.state = reloaded
			}
		}
		return err
	}
	a.state = next
	return nil
}

// AddItem mints a new item owned by this inventory.
func (a *Actor) AddItem(ctx context.Context, typeID string, quantity int, metadata map[string]string) (item.Item, error) {
	if typeID == "" || quantity <= 0 {
		return item.Item{}, ErrInvalidRequest
	}
	it := item.Item{
		ID:         uuid.NewString(),
		TypeID:     typeID,
		Quantity:   quantity,
		Metadata:   metadata,
		AcquiredAt: a.clock(),
	}
	next := a.state.Clone()
	if err := next.Add(it); err != nil {
		return item.Item{}, err
	}
	if err := a.persist(ctx, next); err != nil {
		return item.Item{}, err
	}
	return it, nil
}

// RemoveItem reports whether the item was present; removing an absent item
// returns false rather than erroring so retried removals are harmless.
func (a *Actor) RemoveItem(ctx context.Context, itemID string) (bool, error) {
	next := a.state.Clone()
	if !next.Remove(itemID) {
		return false, nil
	}
	if err := a.persist(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

func (a *Actor) GetItem(_ context.Context, itemID string) (item.Item, bool, error) {
	it, ok := a.state.Get(itemID)
	return it, ok, nil
}

func (a *Actor) HasItem(_ context.Context, itemID string) (bool, error) {
	_, ok := a.state.Get(itemID)
	return ok, nil
}

func (a *Actor) GetItems(_ context.Context) ([]item.Item, error) {
	return a.state.List(), nil
}

// Prepare stages a transfer for txID: the removals must still be owned here
// and unclaimed by a competing transaction. The staged set is persisted with
// the aggregate so a decided commit survives a restart.
func (a *Actor) Prepare(ctx context.Context, txID string, change dinventory.StagedChange) error {
	change.TxID = txID
	next := a.state.Clone()
	if err := next.Stage(change, a.clock(), a.stagingTimeout); err != nil {
		return err
	}
	return a.persist(ctx, next)
}

// Commit applies the staged change for txID; unknown ids are a no-op.
func (a *Actor) Commit(ctx context.Context, txID string) error {
	next := a.state.Clone()
	if !next.CommitStaged(txID) {
		return nil
	}
	return a.persist(ctx, next)
}

// Abort discards the staged change for txID; unknown ids are a no-op.
func (a *Actor) Abort(ctx context.Context, txID string) error {
	next := a.state.Clone()
	if !next.AbortStaged(txID) {
		return nil
	}
	return a.persist(ctx, next)
}
