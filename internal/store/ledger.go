package store

import (
	"context"
	"database/sql"

	"repricer-service/internal/models"
)

// Record appends a price-change attempt to the price_history table. Rows
// are insert-only; there is no update path.
func (s *Store) Record(ctx context.Context, rec *models.PriceChangeRecord) error {
	query := `
		INSERT INTO price_history
			(item_id, sku, old_price, new_price, competitor_lowest_price,
			 strategy_id, status, change_amount, change_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	return s.db.QueryRowxContext(ctx, query,
		rec.ItemID, rec.SKU, rec.OldPrice, rec.NewPrice, rec.CompetitorLowestPrice,
		rec.StrategyID, rec.Status, rec.ChangeAmount, rec.ChangePercent,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// Latest returns the most recent record for (itemID, sku), nil when absent.
func (s *Store) Latest(ctx context.Context, itemID, sku string) (*models.PriceChangeRecord, error) {
	var rec models.PriceChangeRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT * FROM price_history
		 WHERE item_id = $1 AND sku = $2
		 ORDER BY created_at DESC, id DESC LIMIT 1`, itemID, sku)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// History returns one page of an item's records, newest first, with the
// total count.
func (s *Store) History(ctx context.Context, itemID string, page, limit int) ([]models.PriceChangeRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var total int64
	if err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM price_history WHERE item_id = $1", itemID); err != nil {
		return nil, 0, err
	}

	records := []models.PriceChangeRecord{}
	err := s.db.SelectContext(ctx, &records,
		`SELECT * FROM price_history
		 WHERE item_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`, itemID, limit, (page-1)*limit)
	return records, total, err
}

// Summary aggregates an item's history.
func (s *Store) Summary(ctx context.Context, itemID string) (*models.HistorySummary, error) {
	var summary models.HistorySummary
	err := s.db.GetContext(ctx, &summary,
		`SELECT $1 AS item_id,
		        COUNT(*) AS count,
		        MIN(new_price) AS min_new_price,
		        MAX(new_price) AS max_new_price,
		        ROUND(AVG(new_price), 2) AS avg_new_price,
		        MIN(created_at) AS first_at,
		        MAX(created_at) AS last_at
		 FROM price_history WHERE item_id = $1`, itemID)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
