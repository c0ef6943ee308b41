// Package ledger defines the append-only price history. One record is
// written per attempted price change, success or failure; skipped items
// never reach the ledger.
package ledger

import (
	"context"

	"repricer-service/internal/models"
)

// Ledger is the price-change audit trail. Records are immutable once
// written.
type Ledger interface {
	// Record appends one price-change attempt and fills in its ID and
	// timestamp.
	Record(ctx context.Context, rec *models.PriceChangeRecord) error

	// Latest returns the most recent record for (itemID, sku), or nil when
	// the item has no history.
	Latest(ctx context.Context, itemID, sku string) (*models.PriceChangeRecord, error)

	// History returns one page of records for an item, newest first, plus
	// the total record count.
	History(ctx context.Context, itemID string, page, limit int) ([]models.PriceChangeRecord, int64, error)

	// Summary aggregates the item's history.
	Summary(ctx context.Context, itemID string) (*models.HistorySummary, error)
}
