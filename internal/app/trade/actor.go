package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tradecore/internal/app/inventory"
	"tradecore/internal/app/itemtype"
	"tradecore/internal/app/ports"
	"tradecore/internal/app/rules"
	"tradecore/internal/domain/item"
	dtrade "tradecore/internal/domain/trade"
	"tradecore/internal/runtime"
)

const Kind = "trade"

func IdentityFor(tradeID string) runtime.Identity {
	return runtime.Identity{Kind: Kind, Key: tradeID}
}

type Config struct {
	TradeTimeout          time.Duration
	ExpireCheckInterval   time.Duration
	MaxItemsPerSide       int
	AllowUnknownItemTypes bool
}

type Deps struct {
	System   *runtime.System
	Sessions ports.TradeSessionRepository
	Profiles ports.CharacterProfileRepository
	Rules    rules.Engine
	Events   ports.EventPublisher
	Metrics  ports.TradeMetrics
	Logger   *slog.Logger
	Clock    func() time.Time
}

// Actor orchestrates one trade session end to end: the state machine, item
// staging, acceptance, the atomic commit across both inventories and the
// item history actors, and expiration. All calls arrive serialized through
// the actor system, so a session is never mutated by two callers at once.
type Actor struct {
	id   runtime.Identity
	cfg  Config
	deps Deps

	session   dtrade.Session
	exists    bool
	timerStop chan struct{}
}

func NewActor(id runtime.Identity, cfg Config, deps Deps) *Actor {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Actor{id: id, cfg: cfg, deps: deps}
}

func Register(sys *runtime.System, cfg Config, deps Deps) {
	deps.System = sys
	sys.Register(Kind, func(id runtime.Identity) runtime.Actor {
		return NewActor(id, cfg, deps)
	})
}

func (a *Actor) Activate(ctx context.Context) error {
	session, err := a.deps.Sessions.GetByTradeID(ctx, a.id.Key)
	if errors.Is(err, ports.ErrNotFound) {
		a.exists = false
		return nil
	}
	if err != nil {
		return err
	}
	a.session = session
	a.exists = true
	if a.session.Status == dtrade.StatusPending {
		// Finish or abort a commit the previous activation left in flight.
		if err := a.resolveInFlight(ctx); err != nil && a.deps.Logger != nil {
			a.deps.Logger.Warn("resume trade commit",
				"trade_id", a.id.Key, "error", err)
		}
		a.startTimer()
	}
	return nil
}

func (a *Actor) Deactivate(context.Context) error {
	a.stopTimer()
	return nil
}

// Pinned keeps a pending trade resident so its expiration timer stays alive;
// terminal trades deactivate normally.
func (a *Actor) Pinned() bool {
	return a.exists && a.session.Status == dtrade.StatusPending
}

func (a *Actor) persist(ctx context.Context, next dtrade.Session) error {
	expected := a.session.Version
	next.Version = expected + 1
	if err := a.deps.Sessions.SaveWithVersion(ctx, next, expected); err != nil {
		if errors.Is(err, ports.ErrConflict) {
			if reloaded, loadErr := a.deps.Sessions.GetByTradeID(ctx, a.id.Key); loadErr == nil {
				a.session = reloaded
			}
		}
		return err
	}
	a.session = next
	return nil
}

func (a *Actor) publish(ctx context.Context, evType dtrade.EventType, characterID, itemID string) {
	if a.deps.Events == nil {
		return
	}
	snap := a.session.Clone()
	ev := dtrade.Event{
		TradeID:     a.session.TradeID,
		Type:        evType,
		OccurredAt:  a.deps.Clock(),
		CharacterID: characterID,
		ItemID:      itemID,
		Session:     &snap,
	}
	if err := a.deps.Events.Publish(ctx, ev); err != nil && a.deps.Logger != nil {
		a.deps.Logger.Warn("publish trade event",
			"trade_id", a.session.TradeID, "type", string(evType), "error", err)
	}
}

func (a *Actor) recordOutcome(status dtrade.Status) {
	if a.deps.Metrics != nil {
		a.deps.Metrics.RecordOutcome(status)
	}
}

func (a *Actor) notFound() error {
	return fmt.Errorf("trade session %s: %w", a.id.Key, ports.ErrNotFound)
}

// Initiate creates the session after the rules pipeline allows it. Retrying
// an identical Initiate returns the existing session.
func (a *Actor) Initiate(ctx context.Context, initiatorID, targetID, seasonID string) (dtrade.Session, error) {
	if initiatorID == "" || targetID == "" || seasonID == "" {
		return dtrade.Session{}, ErrInvalidRequest
	}
	if a.exists {
		if a.session.Initiator.CharacterID == initiatorID &&
			a.session.Target.CharacterID == targetID &&
			a.session.SeasonID == seasonID {
			return a.session.Clone(), nil
		}
		return dtrade.Session{}, ErrAlreadyInitiated
	}

	initiator, err := a.deps.Profiles.GetByCharacterID(ctx, initiatorID)
	if err != nil {
		return dtrade.Session{}, fmt.Errorf("initiator %s: %w", initiatorID, err)
	}
	target, err := a.deps.Profiles.GetByCharacterID(ctx, targetID)
	if err != nil {
		return dtrade.Session{}, fmt.Errorf("target %s: %w", targetID, err)
	}
	if err := a.deps.Rules.Evaluate(rules.Context{
		SeasonID:  seasonID,
		Initiator: initiator,
		Target:    target,
	}); err != nil {
		if a.deps.Metrics != nil && errors.Is(err, rules.ErrRuleViolation) {
			a.deps.Metrics.RecordRuleViolation()
		}
		return dtrade.Session{}, err
	}

	session := dtrade.NewSession(a.id.Key, seasonID, initiatorID, targetID, a.deps.Clock())
	if err := a.persist(ctx, session); err != nil {
		return dtrade.Session{}, err
	}
	a.exists = true
	a.startTimer()
	a.publish(ctx, dtrade.EventTradeStarted, initiatorID, "")
	return a.session.Clone(), nil
}

// AddItem stages one item on characterID's side.
func (a *Actor) AddItem(ctx context.Context, characterID, itemID string) (dtrade.Session, error) {
	return a.AddItems(ctx, characterID, []string{itemID})
}

// AddItems stages items all-or-nothing: if any item fails validation the
// session is left untouched. Each staged item resets the side's acceptance.
func (a *Actor) AddItems(ctx context.Context, characterID string, itemIDs []string) (dtrade.Session, error) {
	if !a.exists {
		return dtrade.Session{}, a.notFound()
	}
	if characterID == "" || len(itemIDs) == 0 {
		return dtrade.Session{}, ErrInvalidRequest
	}
	if err := a.resolveInFlight(ctx); err != nil {
		return dtrade.Session{}, err
	}
	if a.session.Status.Terminal() {
		return dtrade.Session{}, &dtrade.TerminalError{Status: a.session.Status}
	}
	if a.session.SideOf(characterID) == nil {
		return dtrade.Session{}, dtrade.ErrNotParticipant
	}

	next := a.session.Clone()
	for _, itemID := range itemIDs {
		if err := a.validateOffered(ctx, characterID, itemID); err != nil {
			return dtrade.Session{}, err
		}
		if err := next.Offer(characterID, itemID, a.cfg.MaxItemsPerSide); err != nil {
			return dtrade.Session{}, err
		}
	}
	if err := a.persist(ctx, next); err != nil {
		return dtrade.Session{}, err
	}
	for _, itemID := range itemIDs {
		a.publish(ctx, dtrade.EventItemAdded, characterID, itemID)
	}
	return a.session.Clone(), nil
}

// validateOffered checks ownership and tradeability at add time. Ownership
// is re-validated during commit Prepare regardless, since it may change
// between add and accept.
func (a *Actor) validateOffered(ctx context.Context, characterID, itemID string) error {
	invID := inventory.IdentityFor(characterID, a.session.SeasonID)
	offered, err := runtime.Call(ctx, a.deps.System, invID,
		func(ctx context.Context, inv *inventory.Actor) (item.Item, error) {
			it, ok, err := inv.GetItem(ctx, itemID)
			if err != nil {
				return item.Item{}, err
			}
			if !ok {
				return item.Item{}, &OwnershipError{CharacterID: characterID, ItemID: itemID}
			}
			return it, nil
		})
	if err != nil {
		return err
	}

	t, err := runtime.Call(ctx, a.deps.System, itemtype.IdentityFor(),
		func(ctx context.Context, reg *itemtype.Actor) (item.Type, error) {
			return reg.Get(ctx, offered.TypeID)
		})
	if errors.Is(err, ports.ErrNotFound) {
		if a.cfg.AllowUnknownItemTypes {
			return nil
		}
		return &NotTradeableError{ItemID: itemID, TypeID: offered.TypeID}
	}
	if err != nil {
		return err
	}
	if !t.Tradeable {
		return &NotTradeableError{ItemID: itemID, TypeID: offered.TypeID}
	}
	return nil
}

func (a *Actor) RemoveItem(ctx context.Context, characterID, itemID string) (dtrade.Session, error) {
	return a.RemoveItems(ctx, characterID, []string{itemID})
}

// RemoveItems withdraws items all-or-nothing and resets the side's
// acceptance.
func (a *Actor) RemoveItems(ctx context.Context, characterID string, itemIDs []string) (dtrade.Session, error) {
	if !a.exists {
		return dtrade.Session{}, a.notFound()
	}
	if characterID == "" || len(itemIDs) == 0 {
		return dtrade.Session{}, ErrInvalidRequest
	}
	if err := a.resolveInFlight(ctx); err != nil {
		return dtrade.Session{}, err
	}
	if a.session.Status.Terminal() {
		return dtrade.Session{}, &dtrade.TerminalError{Status: a.session.Status}
	}

	next := a.session.Clone()
	for _, itemID := range itemIDs {
		if err := next.Withdraw(characterID, itemID); err != nil {
			return dtrade.Session{}, err
		}
	}
	if err := a.persist(ctx, next); err != nil {
		return dtrade.Session{}, err
	}
	for _, itemID := range itemIDs {
		a.publish(ctx, dtrade.EventItemRemoved, characterID, itemID)
	}
	return a.session.Clone(), nil
}

// Accept marks characterID's side accepted; when both sides have accepted it
// runs the atomic commit. Accepting a terminal trade returns the terminal
// status rather than erroring, so retries after completion are harmless.
func (a *Actor) Accept(ctx context.Context, characterID string) (dtrade.Status, error) {
	if !a.exists {
		return "", a.notFound()
	}
	if a.session.Status.Terminal() {
		return a.session.Status, nil
	}
	if a.session.SideOf(characterID) == nil {
		return "", dtrade.ErrNotParticipant
	}
	if err := a.resolveInFlight(ctx); err != nil {
		return a.session.Status, err
	}
	if a.session.Status.Terminal() {
		return a.session.Status, nil
	}

	next := a.session.Clone()
	if err := next.SetAccepted(characterID); err != nil {
		return a.session.Status, err
	}
	if err := a.persist(ctx, next); err != nil {
		return a.session.Status, err
	}
	a.publish(ctx, dtrade.EventTradeAccepted, characterID, "")
	if !a.session.BothAccepted() {
		return a.session.Status, nil
	}
	return a.commit(ctx)
}

// Cancel moves a pending trade to Cancelled; cancelling a terminal trade is
// a no-op.
func (a *Actor) Cancel(ctx context.Context, characterID string) error {
	if !a.exists {
		return a.notFound()
	}
	if a.session.Status.Terminal() {
		return nil
	}
	if a.session.SideOf(characterID) == nil {
		return dtrade.ErrNotParticipant
	}
	if err := a.resolveInFlight(ctx); err != nil {
		return err
	}
	if a.session.Status.Terminal() {
		return nil
	}

	next := a.session.Clone()
	if err := next.Cancel(a.deps.Clock()); err != nil {
		return err
	}
	if err := a.persist(ctx, next); err != nil {
		return err
	}
	a.publish(ctx, dtrade.EventTradeCancelled, characterID, "")
	a.recordOutcome(dtrade.StatusCancelled)
	a.stopTimer()
	return nil
}

// GetSession returns a snapshot, expiring the session lazily if the timeout
// elapsed between scheduler ticks.
func (a *Actor) GetSession(ctx context.Context) (dtrade.Session, error) {
	if !a.exists {
		return dtrade.Session{}, a.notFound()
	}
	if _, err := a.checkExpire(ctx); err != nil {
		return dtrade.Session{}, err
	}
	return a.session.Clone(), nil
}

// checkExpire performs the Expire transition once a pending session outlives
// the timeout. A session mid-commit is never expired.
func (a *Actor) checkExpire(ctx context.Context) (dtrade.Status, error) {
	if !a.exists {
		return "", a.notFound()
	}
	if a.session.Status.Terminal() {
		a.stopTimer()
		return a.session.Status, nil
	}
	if a.session.CommitTxID != "" {
		return a.session.Status, nil
	}
	now := a.deps.Clock()
	if !a.session.ExpiredBy(now, a.cfg.TradeTimeout) {
		return a.session.Status, nil
	}
	next := a.session.Clone()
	if err := next.Expire(now); err != nil {
		return a.session.Status, err
	}
	if err := a.persist(ctx, next); err != nil {
		return a.session.Status, err
	}
	a.publish(ctx, dtrade.EventTradeExpired, "", "")
	a.recordOutcome(dtrade.StatusExpired)
	a.stopTimer()
	return a.session.Status, nil
}

// startTimer begins the recurring expiration check. The ticker goroutine
// re-enters the actor through its own mailbox, so the check is serialized
// with every other call; it stops itself once the session is terminal.
func (a *Actor) startTimer() {
	if a.timerStop != nil || a.cfg.ExpireCheckInterval <= 0 || a.deps.System == nil {
		return
	}
	stop := make(chan struct{})
	a.timerStop = stop
	id := a.id
	sys := a.deps.System
	interval := a.cfg.ExpireCheckInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				status, err := runtime.Call(context.Background(), sys, id,
					func(ctx context.Context, t *Actor) (dtrade.Status, error) {
						return t.checkExpire(ctx)
					})
				if err != nil || status.Terminal() {
					return
				}
			}
		}
	}()
}

func (a *Actor) stopTimer() {
	if a.timerStop != nil {
		close(a.timerStop)
		a.timerStop = nil
	}
}
