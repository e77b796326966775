package trade

import (
	"context"
	"errors"
	"sort"

	"tradecore/internal/app/history"
	"tradecore/internal/app/inventory"
	"tradecore/internal/app/txn"
	dinventory "tradecore/internal/domain/inventory"
	"tradecore/internal/domain/item"
	dtrade "tradecore/internal/domain/trade"
	"tradecore/internal/runtime"

	"github.com/google/uuid"
)

// commit runs the two-phase exchange once both sides accepted. The session
// itself is the durable decision record: CommitTxID is persisted before
// Prepare, CommitDecided before any Commit, so Activate can finish or abort
// whatever a crash left behind.
func (a *Actor) commit(ctx context.Context) (dtrade.Status, error) {
	offered, err := a.fetchOffered(ctx)
	if err != nil {
		return a.abortAccept(ctx, err)
	}

	txID := uuid.NewString()
	pending := a.session.Clone()
	pending.CommitTxID = txID
	if err := a.persist(ctx, pending); err != nil {
		return a.session.Status, err
	}

	coord := txn.Coordinator{
		OnDecided: func(ctx context.Context, _ string) error {
			decided := a.session.Clone()
			decided.CommitDecided = true
			return a.persist(ctx, decided)
		},
	}
	err = coord.Run(ctx, txID, a.prepareParticipants(offered))
	if err != nil {
		if errors.Is(err, txn.ErrPrepareFailed) || !a.session.CommitDecided {
			return a.abortAccept(ctx, err)
		}
		// Decided but a Commit failed: never abandon mid-commit. The next
		// Accept (or reactivation) re-drives the commit phase.
		return a.session.Status, err
	}
	return a.finishCommit(ctx)
}

// abortAccept returns the trade to open negotiation after a failed commit
// attempt: both accept flags cleared, transaction id released.
func (a *Actor) abortAccept(ctx context.Context, cause error) (dtrade.Status, error) {
	next := a.session.Clone()
	next.ResetAcceptance()
	next.CommitTxID = ""
	next.CommitDecided = false
	if err := a.persist(ctx, next); err != nil {
		return a.session.Status, err
	}
	if a.deps.Metrics != nil {
		a.deps.Metrics.RecordCommitConflict()
	}
	return a.session.Status, &CommitConflictError{TradeID: a.session.TradeID, Cause: cause}
}

func (a *Actor) finishCommit(ctx context.Context) (dtrade.Status, error) {
	final := a.session.Clone()
	if err := final.Complete(a.deps.Clock()); err != nil {
		return a.session.Status, err
	}
	if err := a.persist(ctx, final); err != nil {
		return a.session.Status, err
	}
	a.publish(ctx, dtrade.EventTradeCompleted, "", "")
	a.recordOutcome(dtrade.StatusCompleted)
	a.stopTimer()
	return a.session.Status, nil
}

// resolveInFlight settles a commit left over from a previous activation:
// a decided transaction is re-driven to Commit, an undecided one is presumed
// aborted and the session returns to Pending with acceptance cleared.
func (a *Actor) resolveInFlight(ctx context.Context) error {
	if a.session.CommitTxID == "" {
		return nil
	}
	txID := a.session.CommitTxID
	parts := a.resumeParticipants()
	coord := txn.Coordinator{}
	if a.session.CommitDecided {
		if err := coord.Commit(ctx, txID, parts); err != nil {
			return err
		}
		_, err := a.finishCommit(ctx)
		return err
	}
	coord.Abort(ctx, txID, parts)
	next := a.session.Clone()
	next.ResetAcceptance()
	next.CommitTxID = ""
	if err := a.persist(ctx, next); err != nil {
		return err
	}
	return nil
}

// fetchOffered loads every offered item from its current owner. A missing
// item means ownership changed since it was staged, which aborts the whole
// accept.
func (a *Actor) fetchOffered(ctx context.Context) (map[string]item.Item, error) {
	out := make(map[string]item.Item)
	for _, side := range []dtrade.Side{a.session.Initiator, a.session.Target} {
		invID := inventory.IdentityFor(side.CharacterID, a.session.SeasonID)
		for _, itemID := range side.ItemIDs {
			characterID := side.CharacterID
			id := itemID
			it, err := runtime.Call(ctx, a.deps.System, invID,
				func(ctx context.Context, inv *inventory.Actor) (item.Item, error) {
					got, ok, err := inv.GetItem(ctx, id)
					if err != nil {
						return item.Item{}, err
					}
					if !ok {
						return item.Item{}, &OwnershipError{CharacterID: characterID, ItemID: id}
					}
					return got, nil
				})
			if err != nil {
				return nil, err
			}
			out[id] = it
		}
	}
	return out, nil
}

// prepareParticipants builds the fixed, deterministically ordered
// participant set: initiator inventory, target inventory, then the history
// actor of every exchanged item sorted by item id. The fixed order prevents
// coordinator livelock on shared history actors.
func (a *Actor) prepareParticipants(offered map[string]item.Item) []txn.Participant {
	initiator := a.session.Initiator
	target := a.session.Target
	pick := func(ids []string) []item.Item {
		out := make([]item.Item, 0, len(ids))
		for _, id := range ids {
			out = append(out, offered[id])
		}
		return out
	}
	initiatorGives := pick(initiator.ItemIDs)
	targetGives := pick(target.ItemIDs)

	parts := []txn.Participant{
		&inventoryParticipant{
			name: "inventory/" + initiator.CharacterID,
			sys:  a.deps.System,
			id:   inventory.IdentityFor(initiator.CharacterID, a.session.SeasonID),
			change: dinventory.StagedChange{
				RemoveIDs: append([]string(nil), initiator.ItemIDs...),
				Add:       targetGives,
			},
		},
		&inventoryParticipant{
			name: "inventory/" + target.CharacterID,
			sys:  a.deps.System,
			id:   inventory.IdentityFor(target.CharacterID, a.session.SeasonID),
			change: dinventory.StagedChange{
				RemoveIDs: append([]string(nil), target.ItemIDs...),
				Add:       initiatorGives,
			},
		},
	}
	for _, p := range a.historyParticipants() {
		parts = append(parts, p)
	}
	return parts
}

// resumeParticipants rebuilds the participant set from the persisted session
// for the commit/abort-only resume paths. Prepare is never called on these,
// so no change payload is needed: each participant applies or discards what
// it has durably staged under the transaction id.
func (a *Actor) resumeParticipants() []txn.Participant {
	parts := []txn.Participant{
		&inventoryParticipant{
			name: "inventory/" + a.session.Initiator.CharacterID,
			sys:  a.deps.System,
			id:   inventory.IdentityFor(a.session.Initiator.CharacterID, a.session.SeasonID),
		},
		&inventoryParticipant{
			name: "inventory/" + a.session.Target.CharacterID,
			sys:  a.deps.System,
			id:   inventory.IdentityFor(a.session.Target.CharacterID, a.session.SeasonID),
		},
	}
	for _, p := range a.historyParticipants() {
		parts = append(parts, p)
	}
	return parts
}

func (a *Actor) historyParticipants() []txn.Participant {
	type transfer struct {
		itemID string
		giver  string
		taker  string
	}
	transfers := make([]transfer, 0, len(a.session.Initiator.ItemIDs)+len(a.session.Target.ItemIDs))
	for _, id := range a.session.Initiator.ItemIDs {
		transfers = append(transfers, transfer{
			itemID: id,
			giver:  a.session.Initiator.CharacterID,
			taker:  a.session.Target.CharacterID,
		})
	}
	for _, id := range a.session.Target.ItemIDs {
		transfers = append(transfers, transfer{
			itemID: id,
			giver:  a.session.Target.CharacterID,
			taker:  a.session.Initiator.CharacterID,
		})
	}
	sort.Slice(transfers, func(i, j int) bool { return transfers[i].itemID < transfers[j].itemID })

	parts := make([]txn.Participant, 0, len(transfers))
	for _, tr := range transfers {
		parts = append(parts, &historyParticipant{
			name: "history/" + tr.itemID,
			sys:  a.deps.System,
			id:   history.IdentityFor(tr.itemID),
			entries: []item.HistoryEntry{{
				EventType:     item.HistoryTraded,
				CharacterID:   tr.giver,
				CounterpartID: tr.taker,
				Details: map[string]string{
					"trade_id":  a.session.TradeID,
					"season_id": a.session.SeasonID,
				},
			}},
		})
	}
	return parts
}

type inventoryParticipant struct {
	name   string
	sys    *runtime.System
	id     runtime.Identity
	change dinventory.StagedChange
}

func (p *inventoryParticipant) Name() string { return p.name }

func (p *inventoryParticipant) Prepare(ctx context.Context, txID string) error {
	_, err := runtime.Call(ctx, p.sys, p.id,
		func(ctx context.Context, inv *inventory.Actor) (struct{}, error) {
			return struct{}{}, inv.Prepare(ctx, txID, p.change)
		})
	return err
}

func (p *inventoryParticipant) Commit(ctx context.Context, txID string) error {
	_, err := runtime.Call(ctx, p.sys, p.id,
		func(ctx context.Context, inv *inventory.Actor) (struct{}, error) {
			return struct{}{}, inv.Commit(ctx, txID)
		})
	return err
}

func (p *inventoryParticipant) Abort(ctx context.Context, txID string) error {
	_, err := runtime.Call(ctx, p.sys, p.id,
		func(ctx context.Context, inv *inventory.Actor) (struct{}, error) {
			return struct{}{}, inv.Abort(ctx, txID)
		})
	return err
}

type historyParticipant struct {
	name    string
	sys     *runtime.System
	id      runtime.Identity
	entries []item.HistoryEntry
}

func (p *historyParticipant) Name() string { return p.name }

func (p *historyParticipant) Prepare(ctx context.Context, txID string) error {
	_, err := runtime.Call(ctx, p.sys, p.id,
		func(ctx context.Context, h *history.Actor) (struct{}, error) {
			return struct{}{}, h.Prepare(ctx, txID, p.entries)
		})
	return err
}

func (p *historyParticipant) Commit(ctx context.Context, txID string) error {
	_, err := runtime.Call(ctx, p.sys, p.id,
		func(ctx context.Context, h *history.Actor) (struct{}, error) {
			return struct{}{}, h.Commit(ctx, txID)
		})
	return err
}

func (p *historyParticipant) Abort(ctx context.Context, txID string) error {
	_, err := runtime.Call(ctx, p.sys, p.id,
		func(ctx context.Context, h *history.Actor) (struct{}, error) {
			return struct{}{}, h.Abort(ctx, txID)
		})
	return err
}
