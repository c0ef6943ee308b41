package reconcile

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"repricer-service/internal/models"
	"repricer-service/internal/strategy"
	"repricer-service/internal/util"
)

// ApplyItem is one listing submitted to the strategy-apply endpoint.
type ApplyItem struct {
	ItemID       string          `json:"item_id" binding:"required"`
	CurrentPrice decimal.Decimal `json:"current_price" binding:"required"`
}

// ApplyResult is the per-item outcome of a strategy application. No
// marketplace write happens on this path, so nothing reaches the ledger.
type ApplyResult struct {
	ItemID   string              `json:"item_id"`
	Success  bool                `json:"success"`
	OldPrice decimal.Decimal     `json:"old_price"`
	NewPrice decimal.NullDecimal `json:"new_price,omitempty"`
	Message  string              `json:"message,omitempty"`
}

// ApplyStrategy evaluates one strategy against a list of items, fetching
// competitor prices per item through the gateway. Item failures are
// isolated; only an unknown strategy is a top-level error.
func (s *Service) ApplyStrategy(ctx context.Context, strategyID string, items []ApplyItem) ([]ApplyResult, error) {
	ctx, span := util.StartSpan(ctx, "Reconcile.ApplyStrategy")
	defer span.End()

	st, err := s.strategies.GetStrategy(ctx, strategyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load strategy %s: %w", strategyID, err)
	}

	results := make([]ApplyResult, 0, len(items))
	for _, item := range items {
		results = append(results, s.applyToItem(ctx, *st, item))
	}
	return results, nil
}

func (s *Service) applyToItem(ctx context.Context, st models.PricingStrategy, item ApplyItem) ApplyResult {
	result := ApplyResult{ItemID: item.ItemID, OldPrice: item.CurrentPrice}

	marketItem, err := s.gw.GetItem(ctx, item.ItemID)
	if err != nil {
		result.Message = fmt.Sprintf("item lookup failed: %v", err)
		return result
	}

	set, err := s.gw.FetchCompetitorPrices(ctx, item.ItemID, marketItem.Title, marketItem.CategoryID)
	if err != nil {
		result.Message = fmt.Sprintf("competitor fetch failed: %v", err)
		return result
	}

	res := strategy.Evaluate(item.CurrentPrice, set.Prices, st)
	if !res.Success {
		result.Message = res.Message
		return result
	}

	result.Success = true
	result.NewPrice = decimal.NullDecimal{Decimal: res.NewPrice, Valid: true}
	result.Message = fmt.Sprintf("computed from %d competitor prices", len(res.CompetitorPrices))
	if set.IsSynthetic {
		result.Message += " (synthetic)"
	}

	s.logger.Info("Strategy applied",
		zap.String("strategy_id", st.ID),
		zap.String("item_id", item.ItemID),
		zap.String("old_price", res.OldPrice.String()),
		zap.String("new_price", res.NewPrice.String()))

	return result
}
