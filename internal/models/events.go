package models

import "time"

// Event types
const (
	EventTypePriceChanged           = "PRICE_CHANGED"
	EventTypeReconciliationRequest  = "RECONCILIATION_REQUESTED"
	EventTypeReconciliationComplete = "RECONCILIATION_COMPLETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceChangedEvent published for every applied price change
type PriceChangedEvent struct {
	BaseEvent
	ItemID        string `json:"item_id"`
	SKU           string `json:"sku,omitempty"`
	OldPrice      string `json:"old_price"`
	NewPrice      string `json:"new_price"`
	StrategyID    string `json:"strategy_id,omitempty"`
	RunID         string `json:"run_id"`
	ChangePercent string `json:"change_percent"`
}

// ReconciliationRequestedEvent is consumed to trigger a run from outside
// (an external scheduler publishes it).
type ReconciliationRequestedEvent struct {
	BaseEvent
	SyncType              string `json:"sync_type,omitempty"`
	BatchSize             int    `json:"batch_size,omitempty"`
	DelayBetweenItemsMs   int    `json:"delay_between_items_ms,omitempty"`
	DelayBetweenBatchesMs int    `json:"delay_between_batches_ms,omitempty"`
	ForceUpdate           bool   `json:"force_update,omitempty"`
	DryRun                bool   `json:"dry_run,omitempty"`
}

// ReconciliationCompletedEvent published when a run finishes
type ReconciliationCompletedEvent struct {
	BaseEvent
	RunID      string `json:"run_id"`
	Total      int    `json:"total"`
	Success    int    `json:"success"`
	Skipped    int    `json:"skipped"`
	Errors     int    `json:"errors"`
	DurationMs int64  `json:"duration_ms"`
	DryRun     bool   `json:"dry_run"`
}
