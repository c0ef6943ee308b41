package store

import (
	"context"
	"database/sql"
	"fmt"

	"repricer-service/internal/models"
)

// SaveStrategy inserts or replaces a pricing strategy definition.
func (s *Store) SaveStrategy(ctx context.Context, st *models.PricingStrategy) error {
	query := `
		INSERT INTO pricing_strategies
			(id, rule, amount, percentage, min_price, max_price, max_change, applies_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			rule = EXCLUDED.rule,
			amount = EXCLUDED.amount,
			percentage = EXCLUDED.percentage,
			min_price = EXCLUDED.min_price,
			max_price = EXCLUDED.max_price,
			max_change = EXCLUDED.max_change,
			applies_to = EXCLUDED.applies_to,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		st.ID, st.Rule, st.Amount, st.Percentage,
		st.MinPrice, st.MaxPrice, st.MaxChange, st.AppliesTo,
	).Scan(&st.CreatedAt, &st.UpdatedAt)
}

// GetStrategy retrieves a strategy by ID.
func (s *Store) GetStrategy(ctx context.Context, id string) (*models.PricingStrategy, error) {
	var st models.PricingStrategy
	err := s.db.GetContext(ctx, &st, "SELECT * FROM pricing_strategies WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("strategy not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListStrategies retrieves all strategy definitions.
func (s *Store) ListStrategies(ctx context.Context) ([]models.PricingStrategy, error) {
	strategies := []models.PricingStrategy{}
	err := s.db.SelectContext(ctx, &strategies, "SELECT * FROM pricing_strategies ORDER BY id")
	return strategies, err
}
