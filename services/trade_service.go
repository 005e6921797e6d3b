package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kendall-kelly/barter-api/models"
	"github.com/kendall-kelly/barter-api/observability"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TradeLedger owns trade proposals and their lifecycle
type TradeLedger interface {
	CheckExisting(ctx context.Context, callerID, requestedItemID, counterpartyID uint) (*models.ExistingTrade, error)
	Create(ctx context.Context, callerID uint, in CreateTradeInput) (*models.Trade, error)
	UpdateStatus(ctx context.Context, callerID, tradeID uint, status string) (*models.Trade, error)
	Get(ctx context.Context, tradeID, callerID uint) (*models.TradeDetail, error)
	ListSent(ctx context.Context, callerID uint) ([]models.TradeSummary, error)
	ListReceived(ctx context.Context, callerID uint) ([]models.TradeSummary, error)
}

// CreateTradeInput proposes swapping the caller's offered item for the receiver's requested item
type CreateTradeInput struct {
	OfferedItemID   uint
	RequestedItemID uint
	ReceiverID      uint
}

// TradeService is the gorm-backed TradeLedger. Create serializes on both
// item ids and UpdateStatus on the trade id (plus its items when accepting),
// and each runs its read-validate-write inside one transaction with the
// rows locked.
type TradeService struct {
	Deps
}

func NewTradeService(deps Deps) *TradeService {
	return &TradeService{Deps: deps.withDefaults()}
}

// CheckExisting looks for a pending or accepted trade involving the caller and
// the requested item. counterpartyID is required but does not narrow the search.
func (s *TradeService) CheckExisting(ctx context.Context, callerID, requestedItemID, counterpartyID uint) (result *models.ExistingTrade, err error) {
	ctx, span := startSpan(ctx, "TradeService.CheckExisting",
		attribute.Int64("caller.id", int64(callerID)),
		attribute.Int64("item.requested", int64(requestedItemID)))
	defer func() { endSpan(span, "trade.check_existing", err) }()

	if callerID == 0 {
		return nil, ErrUnauthorized
	}
	if requestedItemID == 0 || counterpartyID == 0 {
		return nil, validation("MISSING_FIELDS", "requested_item_id and receiver_id are required")
	}

	var trades []models.Trade
	err = s.DB.WithContext(ctx).
		Where("(sender_id = ? OR receiver_id = ?) AND (item1_id = ? OR item2_id = ?)", callerID, callerID, requestedItemID, requestedItemID).
		Where("status IN ?", []models.TradeStatus{models.TradePending, models.TradeAccepted}).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&trades).Error
	if err != nil {
		return nil, storageFailure("check existing trade", err)
	}
	if len(trades) == 0 {
		return &models.ExistingTrade{Exists: false}, nil
	}

	trade := trades[0]
	items, err := s.Catalog.LookupMany(ctx, trade.ItemIDs())
	if err != nil {
		return nil, err
	}

	result = &models.ExistingTrade{
		Exists:  true,
		TradeID: trade.ID,
		Status:  trade.Status,
		Item1ID: trade.Item1ID,
		Item2ID: trade.Item2ID,
	}
	for _, item := range items {
		view := s.itemView(ctx, item, true)
		switch item.ID {
		case trade.Item1ID:
			result.OfferedItem = &view
		case trade.Item2ID:
			result.RequestedItem = &view
		}
	}
	return result, nil
}

// Create inserts a pending trade. Failures, in the order they are checked:
// missing or identical ids (Validation), either item missing (NotFound),
// offered item not the caller's or requested item the caller's (Validation),
// requested item not owned by the receiver (Validation), either item not
// available (Conflict).
func (s *TradeService) Create(ctx context.Context, callerID uint, in CreateTradeInput) (trade *models.Trade, err error) {
	ctx, span := startSpan(ctx, "TradeService.Create",
		attribute.Int64("caller.id", int64(callerID)),
		attribute.Int64("item.offered", int64(in.OfferedItemID)),
		attribute.Int64("item.requested", int64(in.RequestedItemID)))
	defer func() { endSpan(span, "trade.create", err) }()

	if callerID == 0 {
		return nil, ErrUnauthorized
	}
	if in.OfferedItemID == 0 || in.RequestedItemID == 0 || in.ReceiverID == 0 {
		return nil, validation("MISSING_FIELDS", "offered_item_id, requested_item_id and receiver_id are required")
	}
	if in.OfferedItemID == in.RequestedItemID {
		return nil, validation("SAME_ITEM", "An item cannot be traded for itself")
	}

	release, err := acquireLocks(ctx, s.Locker, s.LockWait, itemLockKey(in.OfferedItemID), itemLockKey(in.RequestedItemID))
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err := s.Catalog.WithTx(tx).LookupMany(ctx, []uint{in.OfferedItemID, in.RequestedItemID})
		if err != nil {
			return err
		}
		if len(items) != 2 {
			return ErrItemNotFound
		}

		var offered, requested models.Item
		for _, item := range items {
			if item.ID == in.OfferedItemID {
				offered = item
			} else {
				requested = item
			}
		}

		if offered.OwnerID != callerID || requested.OwnerID == callerID {
			return validation("OWNERSHIP_MISMATCH", "You must offer one of your own items for an item owned by someone else")
		}
		if requested.OwnerID != in.ReceiverID {
			return validation("RECEIVER_MISMATCH", "The requested item does not belong to the receiver")
		}
		if !offered.IsAvailable() || !requested.IsAvailable() {
			return ErrItemNotAvailable
		}

		trade = &models.Trade{
			Item1ID:    offered.ID,
			Item2ID:    requested.ID,
			SenderID:   callerID,
			ReceiverID: in.ReceiverID,
			Status:     models.TradePending,
		}
		if err := tx.Create(trade).Error; err != nil {
			return storageFailure("create trade", err)
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError("create trade", err)
	}

	observability.TradesCreated.Inc()
	slog.InfoContext(ctx, "trade created",
		"trade_id", trade.ID,
		"sender_id", trade.SenderID,
		"receiver_id", trade.ReceiverID,
		"item1_id", trade.Item1ID,
		"item2_id", trade.Item2ID)
	publishAfterCommit(ctx, s.Publisher, newTradeEvent(EventTradeCreated, trade, "", callerID))

	return trade, nil
}

// UpdateStatus moves a trade to status on behalf of a participant. Accepting
// marks both items traded in the same transaction.
func (s *TradeService) UpdateStatus(ctx context.Context, callerID, tradeID uint, status string) (trade *models.Trade, err error) {
	ctx, span := startSpan(ctx, "TradeService.UpdateStatus",
		attribute.Int64("caller.id", int64(callerID)),
		attribute.Int64("trade.id", int64(tradeID)),
		attribute.String("trade.requested_status", status))
	defer func() { endSpan(span, "trade.update_status", err) }()

	if callerID == 0 {
		return nil, ErrUnauthorized
	}
	next, ok := models.ParseTradeStatus(status)
	if !ok {
		return nil, validation("INVALID_STATUS", "Invalid status. Must be one of: accepted, declined, pending, completed, cancelled")
	}

	// item ids never change, so an unlocked read is enough to pick the lock keys
	snapshot, err := findTrade(s.DB.WithContext(ctx), tradeID)
	if err != nil {
		return nil, err
	}
	if !snapshot.IsParticipant(callerID) {
		return nil, ErrNotParticipant
	}

	keys := []string{tradeLockKey(tradeID)}
	if next == models.TradeAccepted {
		keys = append(keys, itemLockKey(snapshot.Item1ID), itemLockKey(snapshot.Item2ID))
	}
	release, err := acquireLocks(ctx, s.Locker, s.LockWait, keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	var previous models.TradeStatus
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findTrade(tx.Clauses(clause.Locking{Strength: "UPDATE"}), tradeID)
		if err != nil {
			return err
		}
		if !current.IsParticipant(callerID) {
			return ErrNotParticipant
		}

		role := RoleReceiver
		if callerID == current.SenderID {
			role = RoleSender
		}
		if err := s.Policy.Check(current.Status, next, role); err != nil {
			return err
		}

		if next == models.TradeAccepted && current.Status != models.TradeAccepted {
			catalog := s.Catalog.WithTx(tx)
			items, err := catalog.LookupMany(ctx, current.ItemIDs())
			if err != nil {
				return err
			}
			if len(items) != 2 {
				return ErrItemNotFound
			}
			for _, item := range items {
				if !item.IsAvailable() {
					return ErrItemNotAvailable
				}
			}
			if err := catalog.SetStatus(ctx, current.ItemIDs(), models.ItemTraded); err != nil {
				return err
			}
		}

		// Update writes next back into current
		previous = current.Status
		if err := tx.Model(current).Update("status", next).Error; err != nil {
			return storageFailure("update trade status", err)
		}
		current.Status = next
		trade = current
		return nil
	})
	if err != nil {
		return nil, asServiceError("update trade status", err)
	}

	observability.TradeTransitions.WithLabelValues(string(next)).Inc()
	slog.InfoContext(ctx, "trade status updated",
		"trade_id", trade.ID,
		"from", previous,
		"to", next,
		"actor_id", callerID)
	publishAfterCommit(ctx, s.Publisher, newTradeEvent(EventTradeStatusChanged, trade, previous, callerID))

	return trade, nil
}

// Get returns the joined view of a trade the caller participates in
func (s *TradeService) Get(ctx context.Context, tradeID, callerID uint) (detail *models.TradeDetail, err error) {
	ctx, span := startSpan(ctx, "TradeService.Get",
		attribute.Int64("caller.id", int64(callerID)),
		attribute.Int64("trade.id", int64(tradeID)))
	defer func() { endSpan(span, "trade.get", err) }()

	if callerID == 0 {
		return nil, ErrUnauthorized
	}

	trade, err := findTrade(s.joined(ctx), tradeID)
	if err != nil {
		return nil, err
	}
	if !trade.IsParticipant(callerID) {
		return nil, ErrNotParticipant
	}

	return &models.TradeDetail{
		ID:        trade.ID,
		Status:    trade.Status,
		CreatedAt: trade.CreatedAt,
		Item1:     s.itemView(ctx, trade.Item1, true),
		Item2:     s.itemView(ctx, trade.Item2, true),
		Sender:    s.userView(ctx, trade.Sender, true),
		Receiver:  s.userView(ctx, trade.Receiver, true),
	}, nil
}

// ListSent returns the caller's proposals, newest first
func (s *TradeService) ListSent(ctx context.Context, callerID uint) (out []models.TradeSummary, err error) {
	ctx, span := startSpan(ctx, "TradeService.ListSent", attribute.Int64("caller.id", int64(callerID)))
	defer func() { endSpan(span, "trade.list_sent", err) }()

	return s.list(ctx, callerID, "sender_id")
}

// ListReceived returns proposals addressed to the caller, newest first
func (s *TradeService) ListReceived(ctx context.Context, callerID uint) (out []models.TradeSummary, err error) {
	ctx, span := startSpan(ctx, "TradeService.ListReceived", attribute.Int64("caller.id", int64(callerID)))
	defer func() { endSpan(span, "trade.list_received", err) }()

	return s.list(ctx, callerID, "receiver_id")
}

func (s *TradeService) list(ctx context.Context, callerID uint, column string) ([]models.TradeSummary, error) {
	if callerID == 0 {
		return nil, ErrUnauthorized
	}

	var trades []models.Trade
	err := s.DB.WithContext(ctx).
		Preload("Item1").
		Preload("Item2").
		Where(column+" = ?", callerID).
		Order("created_at DESC, id DESC").
		Find(&trades).Error
	if err != nil {
		return nil, storageFailure("list trades", err)
	}

	sentList := column == "sender_id"
	counterparts := make([]uint, 0, len(trades))
	for _, t := range trades {
		if sentList {
			counterparts = append(counterparts, t.ReceiverID)
		} else {
			counterparts = append(counterparts, t.SenderID)
		}
	}
	users, err := s.Identity.ByIDs(ctx, counterparts)
	if err != nil {
		return nil, asServiceError("load trade participants", err)
	}

	out := make([]models.TradeSummary, 0, len(trades))
	for i, t := range trades {
		summary := models.TradeSummary{
			ID:            t.ID,
			Status:        t.Status,
			CreatedAt:     t.CreatedAt,
			OfferedItem:   s.itemView(ctx, t.Item1, false),
			RequestedItem: s.itemView(ctx, t.Item2, false),
		}
		// a missing user still renders, with an empty name
		view := s.userView(ctx, users[counterparts[i]], false)
		view.ID = counterparts[i]
		if sentList {
			summary.Receiver = &view
		} else {
			summary.Sender = &view
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *TradeService) joined(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).
		Preload("Item1").
		Preload("Item2").
		Preload("Sender").
		Preload("Receiver")
}

// findTrade loads a trade through q, mapping a missing row to ErrTradeNotFound
func findTrade(q *gorm.DB, tradeID uint) (*models.Trade, error) {
	if tradeID == 0 {
		return nil, ErrTradeNotFound
	}
	var trade models.Trade
	err := q.First(&trade, tradeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTradeNotFound
	}
	if err != nil {
		return nil, storageFailure("load trade", err)
	}
	return &trade, nil
}
