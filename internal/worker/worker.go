package worker

import (
	"context"

	"litewms/internal/broker"
	"litewms/internal/models"
	"litewms/internal/redisclient"
	"litewms/internal/util"

	"go.uber.org/zap"
)

// CacheWorker tails the stock audit stream and keeps the Redis
// quantity cache in line with what the ledger committed. It also
// raises a low-stock warning when an item drops under the threshold.
type CacheWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	redis        *redisclient.Client
	lowStock     int
	logger       *zap.Logger
}

// NewCacheWorker creates a new cache worker
func NewCacheWorker(consumer *broker.Consumer, redis *redisclient.Client, lowStockThreshold int) *CacheWorker {
	w := &CacheWorker{
		consumer: consumer,
		redis:    redis,
		lowStock: lowStockThreshold,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnStockCommitted(w.handleCommitted)
	eventHandler.OnStockReverted(w.handleReverted)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *CacheWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock cache worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CacheWorker) Stop() error {
	w.logger.Info("Stopping stock cache worker")
	return w.consumer.Close()
}

func (w *CacheWorker) handleCommitted(ctx context.Context, event *models.StockCommittedEvent) error {
	return w.syncItems(ctx, event.Items)
}

func (w *CacheWorker) handleReverted(ctx context.Context, event *models.StockRevertedEvent) error {
	return w.syncItems(ctx, event.Items)
}

func (w *CacheWorker) syncItems(ctx context.Context, items []models.StockItemData) error {
	for _, item := range items {
		if err := w.redis.SetItemQuantity(ctx, item.ItemID, item.NewQuantity); err != nil {
			w.logger.Error("Failed to refresh quantity cache",
				zap.Int64("item_id", item.ItemID), zap.Error(err))
			return err
		}
		util.CacheSyncTotal.Inc()

		if item.NewQuantity < w.lowStock {
			w.logger.Warn("Item below low-stock threshold",
				zap.Int64("item_id", item.ItemID),
				zap.Int64("warehouse_id", item.WarehouseID),
				zap.Int("quantity", item.NewQuantity))
		}
	}
	return nil
}
