package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"tradecore/internal/app/history"
	appinv "tradecore/internal/app/inventory"
	"tradecore/internal/app/itemtype"
	"tradecore/internal/app/ports"
	"tradecore/internal/app/rules"
	apptrade "tradecore/internal/app/trade"
	dinventory "tradecore/internal/domain/inventory"
	"tradecore/internal/domain/item"
	dtrade "tradecore/internal/domain/trade"
	"tradecore/internal/runtime"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
)

// Handler exposes the trade core over HTTP. It is a thin shell: each
// request maps onto actor invocations, and all domain decisions happen
// inside the actors.
type Handler struct {
	System   *runtime.System
	Profiles ports.CharacterProfileRepository
	Metrics  MetricsSource
}

// MetricsSource is anything that can dump its counters for the metrics
// endpoint.
type MetricsSource interface {
	SnapshotAny() any
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware())

	trades := s.Group("/api/trades")
	trades.POST("", h.initiateTrade)
	trades.GET("/:trade_id", h.getTrade)
	trades.POST("/:trade_id/items", h.addTradeItems)
	trades.POST("/:trade_id/items/remove", h.removeTradeItems)
	trades.POST("/:trade_id/accept", h.acceptTrade)
	trades.POST("/:trade_id/cancel", h.cancelTrade)

	chars := s.Group("/api/characters/:character_id")
	chars.POST("/items", h.addInventoryItem)
	chars.GET("/items", h.listInventory)
	chars.DELETE("/items/:item_id", h.removeInventoryItem)
	chars.PUT("/profile", h.upsertProfile)

	s.GET("/api/items/:item_id/history", h.itemHistory)

	s.POST("/api/item-types", h.registerItemType)
	s.GET("/api/item-types", h.listItemTypes)

	if h.Metrics != nil {
		s.GET("/api/metrics", h.metrics)
	}
}

func (h Handler) metrics(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, h.Metrics.SnapshotAny())
}

type initiateTradeRequest struct {
	InitiatorID string `json:"initiator_id"`
	TargetID    string `json:"target_id"`
	SeasonID    string `json:"season_id"`
}

func (h Handler) initiateTrade(c context.Context, ctx *app.RequestContext) {
	var body initiateTradeRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if body.InitiatorID == "" || body.TargetID == "" || body.SeasonID == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "initiator_id, target_id and season_id are required")
		return
	}

	tradeID := uuid.NewString()
	session, err := runtime.Call(c, h.System, apptrade.IdentityFor(tradeID),
		func(ctx context.Context, a *apptrade.Actor) (dtrade.Session, error) {
			return a.Initiate(ctx, body.InitiatorID, body.TargetID, body.SeasonID)
		})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, session)
}

func (h Handler) getTrade(c context.Context, ctx *app.RequestContext) {
	tradeID := ctx.Param("trade_id")
	session, err := runtime.Call(c, h.System, apptrade.IdentityFor(tradeID),
		func(ctx context.Context, a *apptrade.Actor) (dtrade.Session, error) {
			return a.GetSession(ctx)
		})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, session)
}

type tradeItemsRequest struct {
	CharacterID string   `json:"character_id"`
	ItemIDs     []string `json:"item_ids"`
}

func (h Handler) addTradeItems(c context.Context, ctx *app.RequestContext) {
	h.mutateTradeItems(c, ctx, func(ictx context.Context, a *apptrade.Actor, body tradeItemsRequest) (dtrade.Session, error) {
		return a.AddItems(ictx, body.CharacterID, body.ItemIDs)
	})
}

func (h Handler) removeTradeItems(c context.Context, ctx *app.RequestContext) {
	h.mutateTradeItems(c, ctx, func(ictx context.Context, a *apptrade.Actor, body tradeItemsRequest) (dtrade.Session, error) {
		return a.RemoveItems(ictx, body.CharacterID, body.ItemIDs)
	})
}

func (h Handler) mutateTradeItems(c context.Context, ctx *app.RequestContext, op func(context.Context, *apptrade.Actor, tradeItemsRequest) (dtrade.Session, error)) {
	var body tradeItemsRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if body.CharacterID == "" || len(body.ItemIDs) == 0 {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "character_id and item_ids are required")
		return
	}

	tradeID := ctx.Param("trade_id")
	session, err := runtime.Call(c, h.System, apptrade.IdentityFor(tradeID),
		func(ictx context.Context, a *apptrade.Actor) (dtrade.Session, error) {
			return op(ictx, a, body)
		})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, session)
}

type tradeActionRequest struct {
	CharacterID string `json:"character_id"`
}

func (h Handler) acceptTrade(c context.Context, ctx *app.RequestContext) {
	var body tradeActionRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	tradeID := ctx.Param("trade_id")
	status, err := runtime.Call(c, h.System, apptrade.IdentityFor(tradeID),
		func(ictx context.Context, a *apptrade.Actor) (dtrade.Status, error) {
			return a.Accept(ictx, body.CharacterID)
		})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"trade_id": tradeID, "status": status})
}

func (h Handler) cancelTrade(c context.Context, ctx *app.RequestContext) {
	var body tradeActionRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	tradeID := ctx.Param("trade_id")
	_, err := runtime.Call(c, h.System, apptrade.IdentityFor(tradeID),
		func(ictx context.Context, a *apptrade.Actor) (struct{}, error) {
			return struct{}{}, a.Cancel(ictx, body.CharacterID)
		})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"trade_id": tradeID, "status": dtrade.StatusCancelled})
}

type addInventoryItemRequest struct {
	SeasonID string            `json:"season_id"`
	TypeID   string            `json:"type_id"`
	Quantity int               `json:"quantity"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (h Handler) addInventoryItem(c context.Context, ctx *app.RequestContext) {
	var body addInventoryItemRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if body.SeasonID == "" || body.TypeID == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "season_id and type_id are required")
		return
	}
	if body.Quantity <= 0 {
		body.Quantity = 1
	}

	characterID := ctx.Param("character_id")
	it, err := runtime.Call(c, h.System, appinv.IdentityFor(characterID, body.SeasonID),
		func(ictx context.Context, a *appinv.Actor) (item.Item, error) {
			return a.AddItem(ictx, body.TypeID, body.Quantity, body.Metadata)
		})
	if err != nil {
		writeError(ctx, err)
		return
	}
	h.appendHistory(c, it.ID, item.HistoryAcquired, characterID, map[string]string{"type_id": body.TypeID})
	ctx.JSON(consts.StatusCreated, it)
}

func (h Handler) removeInventoryItem(c context.Context, ctx *app.RequestContext) {
	seasonID := string(ctx.Query("season_id"))
	if seasonID == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "season_id is required")
		return
	}

	characterID := ctx.Param("character_id")
	itemID := ctx.Param("item_id")
	removed, err := runtime.Call(c, h.System, appinv.IdentityFor(characterID, seasonID),
		func(ictx context.Context, a *appinv.Actor) (bool, error) {
			return a.RemoveItem(ictx, itemID)
		})
	if err != nil {
		writeError(ctx, err)
		return
	}
	if removed {
		h.appendHistory(c, itemID, item.HistoryRemoved, characterID, nil)
	}
	ctx.JSON(consts.StatusOK, map[string]any{"item_id": itemID, "removed": removed})
}

// appendHistory records a grant or removal in the item's audit log. The
// inventory mutation has already been persisted, so a failed append must
// not unwind it; the entry is lost rather than the item duplicated by a
// client retry.
func (h Handler) appendHistory(c context.Context, itemID string, eventType item.HistoryEventType, characterID string, details map[string]string) {
	_, _ = runtime.Call(c, h.System, history.IdentityFor(itemID),
		func(ictx context.Context, a *history.Actor) (item.HistoryEntry, error) {
			return a.AddEntry(ictx, eventType, characterID, "", details)
		})
}

func (h Handler) listInventory(c context.Context, ctx *app.RequestContext) {
	seasonID := string(ctx.Query("season_id"))
	if seasonID == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "season_id is required")
		return
	}

	characterID := ctx.Param("character_id")
	items, err := runtime.Call(c, h.System, appinv.IdentityFor(characterID, seasonID),
		func(ictx context.Context, a *appinv.Actor) ([]item.Item, error) {
			return a.GetItems(ictx)
		})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"items": items})
}

type upsertProfileRequest struct {
	SeasonID      string `json:"season_id"`
	SoloSelfFound bool   `json:"solo_self_found"`
}

func (h Handler) upsertProfile(c context.Context, ctx *app.RequestContext) {
	var body upsertProfileRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if body.SeasonID == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "season_id is required")
		return
	}

	profile := ports.CharacterProfile{
		CharacterID:   ctx.Param("character_id"),
		SeasonID:      body.SeasonID,
		SoloSelfFound: body.SoloSelfFound,
	}
	if err := h.Profiles.Upsert(c, profile); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, profile)
}

func (h Handler) itemHistory(c context.Context, ctx *app.RequestContext) {
	itemID := ctx.Param("item_id")
	limit, _ := strconv.Atoi(string(ctx.Query("limit")))

	var since time.Time
	if raw := string(ctx.Query("since")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "since must be RFC 3339")
			return
		}
		since = parsed
	}

	entries, err := runtime.Call(c, h.System, history.IdentityFor(itemID),
		func(ictx context.Context, a *history.Actor) ([]item.HistoryEntry, error) {
			return a.GetHistory(ictx, since, limit)
		})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"item_id": itemID, "entries": entries})
}

type registerItemTypeRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Tradeable bool   `json:"tradeable"`
	MaxStack  int    `json:"max_stack"`
}

func (h Handler) registerItemType(c context.Context, ctx *app.RequestContext) {
	var body registerItemTypeRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if body.ID == "" || body.Name == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "id and name are required")
		return
	}

	t := item.Type{
		ID:        body.ID,
		Name:      body.Name,
		Category:  body.Category,
		Tradeable: body.Tradeable,
		MaxStack:  body.MaxStack,
	}
	_, err := runtime.Call(c, h.System, itemtype.IdentityFor(),
		func(ictx context.Context, a *itemtype.Actor) (struct{}, error) {
			return struct{}{}, a.RegisterType(ictx, t)
		})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, t)
}

func (h Handler) listItemTypes(c context.Context, ctx *app.RequestContext) {
	types, err := runtime.Call(c, h.System, itemtype.IdentityFor(),
		func(ictx context.Context, a *itemtype.Actor) ([]item.Type, error) {
			return a.List(ictx)
		})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"item_types": types})
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, apptrade.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, apptrade.ErrAlreadyInitiated):
		writeErrorBody(ctx, consts.StatusConflict, "trade_already_initiated", err.Error())
	case errors.Is(err, rules.ErrRuleViolation):
		writeErrorBody(ctx, consts.StatusConflict, "trade_rule_violation", err.Error())
	case errors.Is(err, apptrade.ErrNotTradeable):
		writeErrorBody(ctx, consts.StatusConflict, "item_not_tradeable", err.Error())
	case errors.Is(err, apptrade.ErrOwnershipMismatch):
		writeErrorBody(ctx, consts.StatusConflict, "item_not_owned", err.Error())
	case errors.Is(err, apptrade.ErrCommitConflict):
		writeErrorBody(ctx, consts.StatusConflict, "trade_commit_conflict", err.Error())
	case errors.Is(err, dtrade.ErrTerminal):
		writeErrorBody(ctx, consts.StatusConflict, "trade_closed", err.Error())
	case errors.Is(err, dtrade.ErrNotParticipant):
		writeErrorBody(ctx, consts.StatusForbidden, "not_a_participant", err.Error())
	case errors.Is(err, dtrade.ErrItemOffered):
		writeErrorBody(ctx, consts.StatusConflict, "item_already_offered", err.Error())
	case errors.Is(err, dtrade.ErrItemNotOffered):
		writeErrorBody(ctx, consts.StatusConflict, "item_not_offered", err.Error())
	case errors.Is(err, dtrade.ErrLimitExceeded):
		writeErrorBody(ctx, consts.StatusConflict, "side_limit_exceeded", err.Error())
	case errors.Is(err, dinventory.ErrDuplicateItem):
		writeErrorBody(ctx, consts.StatusConflict, "duplicate_item", err.Error())
	case errors.Is(err, dinventory.ErrItemStaged):
		writeErrorBody(ctx, consts.StatusConflict, "item_locked_by_trade", err.Error())
	case errors.Is(err, dinventory.ErrItemMissing):
		writeErrorBody(ctx, consts.StatusNotFound, "item_not_found", err.Error())
	case errors.Is(err, runtime.ErrNotLocal):
		writeErrorBody(ctx, http.StatusMisdirectedRequest, "wrong_host", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
