package reconcile

import (
	"context"

	"repricer-service/internal/marketplace"
	"repricer-service/internal/models"
)

// MarketGateway is what the engine needs from the rate-limited gateway.
type MarketGateway interface {
	GetActiveListings(ctx context.Context) ([]marketplace.Item, error)
	GetItem(ctx context.Context, itemID string) (*marketplace.Item, error)
	FetchCompetitorPrices(ctx context.Context, itemID, title, categoryID string) (models.CompetitorPriceSet, error)
	ReviseItem(ctx context.Context, itemID, sku string, rev marketplace.Revision) (*marketplace.ReviseResult, error)
}

// StrategyStore provides the persisted pricing strategy definitions.
type StrategyStore interface {
	GetStrategy(ctx context.Context, id string) (*models.PricingStrategy, error)
	ListStrategies(ctx context.Context) ([]models.PricingStrategy, error)
	SaveStrategy(ctx context.Context, st *models.PricingStrategy) error
}

// CatalogState carries the desired non-price fields for a listing. Nil
// fields mean the source of truth has no opinion.
type CatalogState struct {
	Quantity    *int
	Title       *string
	Description *string
}

// CatalogSource is the external source of truth for non-price listing
// fields (quantity, title, description). The repricing engine only consumes
// it.
type CatalogSource interface {
	DesiredState(ctx context.Context, listing models.Listing) (CatalogState, error)
}

// StaticCatalog is the default CatalogSource: no desired changes beyond
// price.
type StaticCatalog struct{}

func (StaticCatalog) DesiredState(ctx context.Context, listing models.Listing) (CatalogState, error) {
	return CatalogState{}, nil
}

// EventPublisher is the optional event sink for applied changes and run
// completions.
type EventPublisher interface {
	PublishPriceChanged(ctx context.Context, event *models.PriceChangedEvent) error
	PublishRunCompleted(ctx context.Context, event *models.ReconciliationCompletedEvent) error
}
