package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"repricer-service/internal/models"
)

// MemoryLedger is the in-process Ledger used in tests and development. It
// keeps insertion order and hands out copies so stored records stay
// immutable.
type MemoryLedger struct {
	mu      sync.Mutex
	records []models.PriceChangeRecord
	nextID  int64
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{nextID: 1}
}

func (l *MemoryLedger) Record(ctx context.Context, rec *models.PriceChangeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec.ID = l.nextID
	l.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	l.records = append(l.records, *rec)
	return nil
}

func (l *MemoryLedger) Latest(ctx context.Context, itemID, sku string) (*models.PriceChangeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.records) - 1; i >= 0; i-- {
		rec := l.records[i]
		if rec.ItemID == itemID && rec.SKU == sku {
			return &rec, nil
		}
	}
	return nil, nil
}

func (l *MemoryLedger) History(ctx context.Context, itemID string, page, limit int) ([]models.PriceChangeRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []models.PriceChangeRecord
	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].ItemID == itemID {
			matched = append(matched, l.records[i])
		}
	}

	total := int64(len(matched))
	start := (page - 1) * limit
	if start >= len(matched) {
		return []models.PriceChangeRecord{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]models.PriceChangeRecord, end-start)
	copy(out, matched[start:end])
	return out, total, nil
}

func (l *MemoryLedger) Summary(ctx context.Context, itemID string) (*models.HistorySummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	summary := &models.HistorySummary{ItemID: itemID}
	var sum decimal.Decimal

	for i := range l.records {
		rec := l.records[i]
		if rec.ItemID != itemID {
			continue
		}
		summary.Count++
		sum = sum.Add(rec.NewPrice)

		if !summary.MinNewPrice.Valid || rec.NewPrice.LessThan(summary.MinNewPrice.Decimal) {
			summary.MinNewPrice = decimal.NullDecimal{Decimal: rec.NewPrice, Valid: true}
		}
		if !summary.MaxNewPrice.Valid || rec.NewPrice.GreaterThan(summary.MaxNewPrice.Decimal) {
			summary.MaxNewPrice = decimal.NullDecimal{Decimal: rec.NewPrice, Valid: true}
		}
		if summary.FirstAt == nil || rec.CreatedAt.Before(*summary.FirstAt) {
			ts := rec.CreatedAt
			summary.FirstAt = &ts
		}
		if summary.LastAt == nil || rec.CreatedAt.After(*summary.LastAt) {
			ts := rec.CreatedAt
			summary.LastAt = &ts
		}
	}

	if summary.Count > 0 {
		avg := sum.Div(decimal.NewFromInt(summary.Count)).Round(2)
		summary.AvgNewPrice = decimal.NullDecimal{Decimal: avg, Valid: true}
	}
	return summary, nil
}
