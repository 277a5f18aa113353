package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"litewms/internal/broker"
	"litewms/internal/ledger"
	"litewms/internal/models"
	"litewms/internal/redisclient"
	"litewms/internal/specs"
	"litewms/internal/store"
	"litewms/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockService is the operation façade over the ledger engine: it
// turns inbound/outbound/adjust/transfer requests into mutation lists,
// validates specs against category schemas, and publishes audit events
// after the engine commits.
type StockService struct {
	store          *store.Store
	engine         *ledger.Engine
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	idempotencyTTL time.Duration
	logger         *zap.Logger
}

// NewStockService creates a new stock service
func NewStockService(
	st *store.Store,
	engine *ledger.Engine,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	idempotencyTTL time.Duration,
) *StockService {
	return &StockService{
		store:          st,
		engine:         engine,
		redis:          redis,
		eventPublisher: eventPublisher,
		idempotencyTTL: idempotencyTTL,
		logger:         util.GetLogger(),
	}
}

// InboundLine is one received item: either an existing item id, or a
// category+specs pair to merge into an existing SKU or create fresh
type InboundLine struct {
	ItemID     int64             `json:"item_id,omitempty"`
	CategoryID int64             `json:"category_id,omitempty"`
	Specs      map[string]string `json:"specs,omitempty"`
	Quantity   float64           `json:"quantity" binding:"required"`
}

// InboundRequest receives stock into one warehouse
type InboundRequest struct {
	WarehouseID    int64         `json:"warehouse_id" binding:"required"`
	Lines          []InboundLine `json:"lines" binding:"required,min=1"`
	Date           time.Time     `json:"date,omitempty"`
	User           string        `json:"user"`
	Notes          string        `json:"notes"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
}

// Inbound receives stock: positive deltas, SKU merge via spec match
func (s *StockService) Inbound(ctx context.Context, req *InboundRequest) (*ledger.Result, error) {
	ctx, span := util.StartSpan(ctx, "StockService.Inbound")
	defer span.End()

	release, err := s.claimIdempotency(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	mutations := make([]ledger.Mutation, 0, len(req.Lines))
	for i, line := range req.Lines {
		qty, err := wholeQuantity(line.Quantity)
		if err != nil {
			release(ctx)
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		if qty <= 0 {
			release(ctx)
			return nil, fmt.Errorf("line %d: inbound quantity must be positive: %w", i, models.ErrValidation)
		}

		if line.ItemID != 0 {
			mutations = append(mutations, ledger.Mutation{ItemID: line.ItemID, Delta: qty})
			continue
		}

		if err := s.validateSpecs(ctx, line.CategoryID, line.Specs); err != nil {
			release(ctx)
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		mutations = append(mutations, ledger.Mutation{
			WarehouseID: req.WarehouseID,
			CategoryID:  line.CategoryID,
			Specs:       line.Specs,
			Delta:       qty,
		})
	}

	result, err := s.engine.Commit(ctx, mutations, ledger.Meta{
		Type:        models.TxTypeIn,
		WarehouseID: req.WarehouseID,
		Date:        req.Date,
		UserName:    req.User,
		Notes:       req.Notes,
	})
	if err != nil {
		release(ctx)
		return nil, err
	}

	s.publishCommitted(ctx, result, models.TxTypeIn, req.WarehouseID, req.User)
	return result, nil
}

// OutboundLine takes stock from one existing item
type OutboundLine struct {
	ItemID   int64   `json:"item_id" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required"`
}

// OutboundRequest issues stock out of one warehouse
type OutboundRequest struct {
	WarehouseID    int64          `json:"warehouse_id" binding:"required"`
	Lines          []OutboundLine `json:"lines" binding:"required,min=1"`
	Date           time.Time      `json:"date,omitempty"`
	User           string         `json:"user"`
	Notes          string         `json:"notes"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// Outbound issues stock: negative deltas against explicit items only
func (s *StockService) Outbound(ctx context.Context, req *OutboundRequest) (*ledger.Result, error) {
	ctx, span := util.StartSpan(ctx, "StockService.Outbound")
	defer span.End()

	release, err := s.claimIdempotency(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	mutations := make([]ledger.Mutation, 0, len(req.Lines))
	for i, line := range req.Lines {
		qty, err := wholeQuantity(line.Quantity)
		if err != nil {
			release(ctx)
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		if qty <= 0 {
			release(ctx)
			return nil, fmt.Errorf("line %d: outbound quantity must be positive: %w", i, models.ErrValidation)
		}
		mutations = append(mutations, ledger.Mutation{ItemID: line.ItemID, Delta: -qty})
	}

	result, err := s.engine.Commit(ctx, mutations, ledger.Meta{
		Type:        models.TxTypeOut,
		WarehouseID: req.WarehouseID,
		Date:        req.Date,
		UserName:    req.User,
		Notes:       req.Notes,
	})
	if err != nil {
		release(ctx)
		return nil, err
	}

	s.publishCommitted(ctx, result, models.TxTypeOut, req.WarehouseID, req.User)
	return result, nil
}

// AdjustLine sets one item to a new absolute quantity
type AdjustLine struct {
	ItemID      int64   `json:"item_id" binding:"required"`
	NewQuantity float64 `json:"new_quantity"`
}

// AdjustRequest corrects item quantities in one warehouse
type AdjustRequest struct {
	WarehouseID    int64        `json:"warehouse_id" binding:"required"`
	Lines          []AdjustLine `json:"lines" binding:"required,min=1"`
	Date           time.Time    `json:"date,omitempty"`
	User           string       `json:"user"`
	Notes          string       `json:"notes"`
	IdempotencyKey string       `json:"idempotency_key,omitempty"`
}

// Adjust records quantity corrections as signed diffs against the
// current quantities. Lines whose quantity is unchanged are dropped.
func (s *StockService) Adjust(ctx context.Context, req *AdjustRequest) (*ledger.Result, error) {
	ctx, span := util.StartSpan(ctx, "StockService.Adjust")
	defer span.End()

	release, err := s.claimIdempotency(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	q := s.store.Queries()
	mutations := make([]ledger.Mutation, 0, len(req.Lines))
	for i, line := range req.Lines {
		newQty, err := wholeQuantity(line.NewQuantity)
		if err != nil {
			release(ctx)
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		if newQty < 0 {
			release(ctx)
			return nil, fmt.Errorf("line %d: quantity cannot be negative: %w", i, models.ErrValidation)
		}

		item, err := q.GetItem(ctx, line.ItemID)
		if err != nil {
			release(ctx)
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		if delta := newQty - item.Quantity; delta != 0 {
			mutations = append(mutations, ledger.Mutation{ItemID: line.ItemID, Delta: delta})
		}
	}
	if len(mutations) == 0 {
		release(ctx)
		return nil, fmt.Errorf("no quantity changed: %w", models.ErrValidation)
	}

	result, err := s.engine.Commit(ctx, mutations, ledger.Meta{
		Type:        models.TxTypeAdjust,
		WarehouseID: req.WarehouseID,
		Date:        req.Date,
		UserName:    req.User,
		Notes:       req.Notes,
	})
	if err != nil {
		release(ctx)
		return nil, err
	}

	s.publishCommitted(ctx, result, models.TxTypeAdjust, req.WarehouseID, req.User)
	return result, nil
}

// TransferLine moves quantity from one source item to the target
// warehouse, merging into a matching SKU there or creating one
type TransferLine struct {
	ItemID   int64   `json:"item_id" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required"`
}

// TransferRequest moves stock between two warehouses
type TransferRequest struct {
	SourceWarehouseID int64          `json:"source_warehouse_id" binding:"required"`
	TargetWarehouseID int64          `json:"target_warehouse_id" binding:"required"`
	Lines             []TransferLine `json:"lines" binding:"required,min=1"`
	Date              time.Time      `json:"date,omitempty"`
	User              string         `json:"user"`
	Notes             string         `json:"notes"`
	IdempotencyKey    string         `json:"idempotency_key,omitempty"`
}

// Transfer moves stock between warehouses as one dual-entry commit
func (s *StockService) Transfer(ctx context.Context, req *TransferRequest) (*ledger.Result, error) {
	ctx, span := util.StartSpan(ctx, "StockService.Transfer")
	defer span.End()

	if req.SourceWarehouseID == req.TargetWarehouseID {
		return nil, fmt.Errorf("source and target warehouse are the same: %w", models.ErrValidation)
	}

	release, err := s.claimIdempotency(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	q := s.store.Queries()
	if _, err := q.GetWarehouse(ctx, req.TargetWarehouseID); err != nil {
		release(ctx)
		return nil, err
	}

	mutations := make([]ledger.Mutation, 0, 2*len(req.Lines))
	for i, line := range req.Lines {
		qty, err := wholeQuantity(line.Quantity)
		if err != nil {
			release(ctx)
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		if qty <= 0 {
			release(ctx)
			return nil, fmt.Errorf("line %d: transfer quantity must be positive: %w", i, models.ErrValidation)
		}

		item, err := q.GetItem(ctx, line.ItemID)
		if err != nil {
			release(ctx)
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		if item.WarehouseID != req.SourceWarehouseID {
			release(ctx)
			return nil, fmt.Errorf("line %d: item %d is not in warehouse %d: %w",
				i, item.ID, req.SourceWarehouseID, models.ErrValidation)
		}

		mutations = append(mutations,
			ledger.Mutation{ItemID: item.ID, Delta: -qty},
			ledger.Mutation{
				WarehouseID: req.TargetWarehouseID,
				CategoryID:  item.CategoryID,
				Specs:       item.Specs,
				Delta:       qty,
			})
	}

	result, err := s.engine.Commit(ctx, mutations, ledger.Meta{
		Type:               models.TxTypeTransfer,
		WarehouseID:        req.SourceWarehouseID,
		RelatedWarehouseID: &req.TargetWarehouseID,
		Date:               req.Date,
		UserName:           req.User,
		Notes:              req.Notes,
	})
	if err != nil {
		release(ctx)
		return nil, err
	}

	s.publishCommitted(ctx, result, models.TxTypeTransfer, req.SourceWarehouseID, req.User)
	return result, nil
}

// Revert undoes a committed transaction. A short redis lock keeps two
// concurrent requests for the same id from racing ahead of the
// database-level already-reverted check.
func (s *StockService) Revert(ctx context.Context, transactionID int64, user, notes string) (*ledger.Result, error) {
	ctx, span := util.StartSpan(ctx, "StockService.Revert")
	defer span.End()

	locked, err := s.redis.AcquireRevertLock(ctx, transactionID, 30*time.Second)
	if err != nil {
		s.logger.Warn("Revert lock unavailable, relying on database check",
			zap.Int64("transaction_id", transactionID), zap.Error(err))
	} else if !locked {
		return nil, fmt.Errorf("transaction %d revert already in progress: %w",
			transactionID, models.ErrInvalidRevert)
	} else {
		defer func() {
			if err := s.redis.ReleaseRevertLock(context.Background(), transactionID); err != nil {
				s.logger.Warn("Failed to release revert lock", zap.Error(err))
			}
		}()
	}

	result, err := s.engine.Revert(ctx, transactionID, user, notes)
	if err != nil {
		return nil, err
	}

	event := &models.StockRevertedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStockReverted,
			Timestamp: time.Now(),
		},
		WarehouseID: result.Transactions[0].WarehouseID,
		UserName:    user,
		Items:       result.Items,
	}
	for _, txn := range result.Transactions {
		event.TransactionIDs = append(event.TransactionIDs, txn.ID)
		if txn.RevertsTransactionID != nil {
			event.RevertedIDs = append(event.RevertedIDs, *txn.RevertsTransactionID)
		}
	}
	if err := s.eventPublisher.PublishStockReverted(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockReverted event", zap.Error(err))
	}

	return result, nil
}

// RemoveItem deletes an item through the inventory-edit path: stock
// still on hand is first written off with an ADJUST transaction, then
// the row is removed.
func (s *StockService) RemoveItem(ctx context.Context, itemID int64, user, notes string) error {
	ctx, span := util.StartSpan(ctx, "StockService.RemoveItem")
	defer span.End()

	q := s.store.Queries()
	item, err := q.GetItem(ctx, itemID)
	if err != nil {
		return err
	}

	if item.Quantity > 0 {
		result, err := s.engine.Commit(ctx, []ledger.Mutation{{ItemID: itemID, Delta: -item.Quantity}},
			ledger.Meta{
				Type:        models.TxTypeAdjust,
				WarehouseID: item.WarehouseID,
				UserName:    user,
				Notes:       notes,
			})
		if err != nil {
			return err
		}
		s.publishCommitted(ctx, result, models.TxTypeAdjust, item.WarehouseID, user)
	}

	if err := q.DeleteItem(ctx, itemID); err != nil {
		return err
	}
	if err := s.redis.InvalidateItem(ctx, itemID); err != nil {
		s.logger.Warn("Failed to invalidate item cache", zap.Int64("item_id", itemID), zap.Error(err))
	}

	s.logger.Info("Item removed", zap.Int64("item_id", itemID), zap.String("user", user))
	return nil
}

// ItemQuantity reads the quantity of an item, preferring the cache
func (s *StockService) ItemQuantity(ctx context.Context, itemID int64) (int, error) {
	if qty, ok, err := s.redis.GetItemQuantity(ctx, itemID); err == nil && ok {
		return qty, nil
	}

	item, err := s.store.Queries().GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return item.Quantity, nil
}

// History lists a warehouse's ledger entries with decoded snapshots
func (s *StockService) History(ctx context.Context, warehouseID int64, limit int) ([]models.Transaction, error) {
	return s.store.Queries().ListTransactionsByWarehouse(ctx, warehouseID, limit)
}

// GetTransaction retrieves one ledger entry
func (s *StockService) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	return s.store.Queries().GetTransaction(ctx, id)
}

func (s *StockService) validateSpecs(ctx context.Context, categoryID int64, sp map[string]string) error {
	cat, err := s.store.Queries().GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	return specs.Validate(cat, sp)
}

func (s *StockService) publishCommitted(ctx context.Context, result *ledger.Result, txType string, warehouseID int64, user string) {
	event := &models.StockCommittedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStockCommitted,
			Timestamp: time.Now(),
		},
		GroupID:     result.Transactions[0].GroupID,
		WarehouseID: warehouseID,
		TxType:      txType,
		UserName:    user,
		Items:       result.Items,
	}
	for _, txn := range result.Transactions {
		event.TransactionIDs = append(event.TransactionIDs, txn.ID)
	}

	if err := s.eventPublisher.PublishStockCommitted(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockCommitted event", zap.Error(err))
	}
}

// claimIdempotency reserves the request key. The returned func frees
// the key again so a failed request may be retried.
func (s *StockService) claimIdempotency(ctx context.Context, key string) (func(context.Context), error) {
	if key == "" {
		return func(context.Context) {}, nil
	}

	fresh, err := s.redis.SetIdempotencyKey(ctx, key, s.idempotencyTTL)
	if err != nil {
		s.logger.Warn("Idempotency check unavailable", zap.Error(err))
		return func(context.Context) {}, nil
	}
	if !fresh {
		return nil, fmt.Errorf("duplicate request %q: %w", key, models.ErrValidation)
	}

	return func(ctx context.Context) {
		if err := s.redis.ClearIdempotencyKey(ctx, key); err != nil {
			s.logger.Warn("Failed to clear idempotency key", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// wholeQuantity converts a request quantity to an integer, rejecting
// fractional values rather than truncating them
func wholeQuantity(f float64) (int, error) {
	if f != math.Trunc(f) || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("quantity %v is not a whole number: %w", f, models.ErrValidation)
	}
	return int(f), nil
}
