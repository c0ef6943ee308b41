// Package reconcile implements the reconciliation engine: enumerate active
// listings, derive desired state, diff against current state, and apply
// bounded updates through the rate-limited gateway with a full audit trail.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"repricer-service/internal/ledger"
	"repricer-service/internal/marketplace"
	"repricer-service/internal/models"
	"repricer-service/internal/strategy"
	"repricer-service/internal/util"
)

// ErrRunInProgress is returned when a run is requested while another one is
// active. The engine assumes a single active run; overlap is rejected at
// this edge.
var ErrRunInProgress = errors.New("reconciliation run already in progress")

// priceEpsilon is the minimum price difference treated as a real change, so
// floating-point noise never triggers a spurious revision.
var priceEpsilon = decimal.NewFromFloat(0.01)

// Sync types
const (
	SyncAll         = "all"
	SyncPrice       = "price"
	SyncInventory   = "inventory"
	SyncTitle       = "title"
	SyncDescription = "description"
)

// Item outcome statuses
const (
	ItemStatusSuccess = "success"
	ItemStatusSkipped = "skipped"
	ItemStatusError   = "error"
)

// Options control one reconciliation run. Zero values mean "use the
// configured defaults"; pacing with no delay at all requires defaults of
// zero.
type Options struct {
	SyncType              string `json:"sync_type"`
	BatchSize             int    `json:"batch_size"`
	DelayBetweenBatchesMs int    `json:"delay_between_batches_ms"`
	DelayBetweenItemsMs   int    `json:"delay_between_items_ms"`
	ForceUpdate           bool   `json:"force_update"`
	DryRun                bool   `json:"dry_run"`
}

// Defaults are the fallback run options, constructed from config.
type Defaults struct {
	BatchSize             int
	DelayBetweenBatchesMs int
	DelayBetweenItemsMs   int
}

// ItemResult is the outcome for one listing within a run.
type ItemResult struct {
	ItemID        string              `json:"item_id"`
	SKU           string              `json:"sku,omitempty"`
	Status        string              `json:"status"`
	OldPrice      decimal.Decimal     `json:"old_price"`
	NewPrice      decimal.NullDecimal `json:"new_price,omitempty"`
	ChangedFields []string            `json:"changed_fields,omitempty"`
	Synthetic     bool                `json:"synthetic,omitempty"`
	Message       string              `json:"message,omitempty"`
}

// RunSummary is returned by every run, even when individual items failed.
type RunSummary struct {
	RunID      string       `json:"run_id"`
	SyncType   string       `json:"sync_type"`
	DryRun     bool         `json:"dry_run"`
	Total      int          `json:"total"`
	Processed  int          `json:"processed"`
	Success    int          `json:"success"`
	Skipped    int          `json:"skipped"`
	Errors     int          `json:"errors"`
	Items      []ItemResult `json:"items"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	DurationMs int64        `json:"duration_ms"`
}

// Service is the reconciliation engine.
type Service struct {
	gw         MarketGateway
	strategies StrategyStore
	ledger     ledger.Ledger
	catalog    CatalogSource
	events     EventPublisher
	defaults   Defaults
	logger     *zap.Logger
	running    atomic.Bool
}

// NewService creates the engine. events may be nil when no broker is
// configured.
func NewService(
	gw MarketGateway,
	strategies StrategyStore,
	priceLedger ledger.Ledger,
	catalog CatalogSource,
	events EventPublisher,
	defaults Defaults,
) *Service {
	if catalog == nil {
		catalog = StaticCatalog{}
	}
	return &Service{
		gw:         gw,
		strategies: strategies,
		ledger:     priceLedger,
		catalog:    catalog,
		events:     events,
		defaults:   defaults,
		logger:     util.NamedLogger("reconcile"),
	}
}

func (s *Service) applyDefaults(opts *Options) {
	if opts.SyncType == "" {
		opts.SyncType = SyncAll
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = s.defaults.BatchSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.DelayBetweenBatchesMs <= 0 {
		opts.DelayBetweenBatchesMs = s.defaults.DelayBetweenBatchesMs
	}
	if opts.DelayBetweenItemsMs <= 0 {
		opts.DelayBetweenItemsMs = s.defaults.DelayBetweenItemsMs
	}
}

// Run executes one full reconciliation pass. One item's failure never
// aborts the batch; only a failure to enumerate listings at all surfaces as
// a top-level error. Re-running with unchanged market data resolves every
// item to skipped.
func (s *Service) Run(ctx context.Context, opts Options) (*RunSummary, error) {
	ctx, span := util.StartSpan(ctx, "Reconcile.Run")
	defer span.End()

	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	s.applyDefaults(&opts)

	summary := &RunSummary{
		RunID:     uuid.New().String(),
		SyncType:  opts.SyncType,
		DryRun:    opts.DryRun,
		StartedAt: time.Now(),
		Items:     []ItemResult{},
	}

	s.logger.Info("Starting reconciliation run",
		zap.String("run_id", summary.RunID),
		zap.String("sync_type", opts.SyncType),
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("force_update", opts.ForceUpdate))

	items, err := s.gw.GetActiveListings(ctx)
	if err != nil {
		util.ReconciliationRunsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to enumerate active listings: %w", err)
	}

	listings := flattenListings(items)
	summary.Total = len(listings)

	strategyIndex, err := s.buildStrategyIndex(ctx)
	if err != nil {
		util.ReconciliationRunsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to load pricing strategies: %w", err)
	}

	itemDelay := time.Duration(opts.DelayBetweenItemsMs) * time.Millisecond
	batchDelay := time.Duration(opts.DelayBetweenBatchesMs) * time.Millisecond

	for i, listing := range listings {
		if ctx.Err() != nil {
			s.logger.Warn("Run cancelled, stopping between items",
				zap.String("run_id", summary.RunID),
				zap.Int("processed", summary.Processed))
			break
		}

		st := strategyIndex.lookup(listing.ItemID, listing.SKU)
		result := s.processItem(ctx, listing, st, opts, summary.RunID)

		summary.Items = append(summary.Items, result)
		summary.Processed++
		switch result.Status {
		case ItemStatusSuccess:
			summary.Success++
		case ItemStatusSkipped:
			summary.Skipped++
		default:
			summary.Errors++
		}
		util.ItemsProcessedTotal.WithLabelValues(result.Status).Inc()

		if i == len(listings)-1 {
			break
		}
		delay := itemDelay
		if (i+1)%opts.BatchSize == 0 {
			delay = batchDelay
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
		}
	}

	summary.FinishedAt = time.Now()
	summary.DurationMs = summary.FinishedAt.Sub(summary.StartedAt).Milliseconds()

	util.ReconciliationRunsTotal.WithLabelValues("completed").Inc()
	util.ReconciliationRunDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())

	s.publishRunCompleted(ctx, summary)

	s.logger.Info("Reconciliation run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("total", summary.Total),
		zap.Int("success", summary.Success),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors),
		zap.Int64("duration_ms", summary.DurationMs))

	return summary, nil
}

// processItem moves one listing through candidate → changed|unchanged →
// applied|failed|skipped. All changed fields go out in a single revise
// call. The ledger is written only when a write is actually attempted.
func (s *Service) processItem(ctx context.Context, listing models.Listing, st *models.PricingStrategy, opts Options, runID string) ItemResult {
	result := ItemResult{
		ItemID:   listing.ItemID,
		SKU:      listing.SKU,
		OldPrice: listing.CurrentPrice,
	}

	var rev marketplace.Revision
	var evalRes *strategy.Result
	var skipReason string

	if opts.SyncType == SyncAll || opts.SyncType == SyncPrice {
		if st == nil {
			skipReason = "no pricing strategy assigned"
		} else {
			set, err := s.gw.FetchCompetitorPrices(ctx, listing.ItemID, listing.Title, listing.CategoryID)
			if err != nil {
				result.Status = ItemStatusError
				result.Message = fmt.Sprintf("competitor fetch failed: %v", err)
				return result
			}
			result.Synthetic = set.IsSynthetic

			res := strategy.Evaluate(listing.CurrentPrice, set.Prices, *st)
			evalRes = &res
			if res.Success {
				if res.NewPrice.Sub(listing.CurrentPrice).Abs().GreaterThan(priceEpsilon) {
					target := res.NewPrice
					rev.Price = &target
					result.ChangedFields = append(result.ChangedFields, "price")
					result.NewPrice = decimal.NullDecimal{Decimal: target, Valid: true}
				}
			} else {
				skipReason = res.Message
			}
		}
	}

	if state, err := s.catalog.DesiredState(ctx, listing); err != nil {
		s.logger.Warn("Catalog source failed, syncing price only",
			zap.String("item_id", listing.ItemID), zap.Error(err))
	} else {
		if (opts.SyncType == SyncAll || opts.SyncType == SyncInventory) &&
			state.Quantity != nil && *state.Quantity != listing.Quantity {
			rev.Quantity = state.Quantity
			result.ChangedFields = append(result.ChangedFields, "quantity")
		}
		if (opts.SyncType == SyncAll || opts.SyncType == SyncTitle) &&
			state.Title != nil && *state.Title != listing.Title {
			rev.Title = state.Title
			result.ChangedFields = append(result.ChangedFields, "title")
		}
		if (opts.SyncType == SyncAll || opts.SyncType == SyncDescription) &&
			state.Description != nil && *state.Description != listing.Description {
			rev.Description = state.Description
			result.ChangedFields = append(result.ChangedFields, "description")
		}
	}

	if rev.Empty() && !opts.ForceUpdate {
		result.Status = ItemStatusSkipped
		if skipReason == "" {
			skipReason = "no changes detected"
		}
		result.Message = skipReason
		return result
	}

	if rev.Empty() {
		// Forced no-op: re-assert the current price so the write (and its
		// ledger record) still happens.
		current := listing.CurrentPrice
		rev.Price = &current
	}

	if opts.DryRun {
		result.Status = ItemStatusSuccess
		result.Message = "dry run, changes not applied"
		return result
	}

	return s.applyRevision(ctx, listing, st, rev, evalRes, result, runID)
}

// applyRevision performs the marketplace write and records the attempt.
func (s *Service) applyRevision(ctx context.Context, listing models.Listing, st *models.PricingStrategy, rev marketplace.Revision, evalRes *strategy.Result, result ItemResult, runID string) ItemResult {
	newPrice := listing.CurrentPrice
	if rev.Price != nil {
		newPrice = *rev.Price
	}

	record := &models.PriceChangeRecord{
		ItemID:   listing.ItemID,
		SKU:      listing.SKU,
		OldPrice: listing.CurrentPrice,
		NewPrice: newPrice,
	}
	if st != nil {
		record.StrategyID = st.ID
	}
	if evalRes != nil {
		record.CompetitorLowestPrice = evalRes.CompetitorLowest
	}
	record.ChangeAmount = newPrice.Sub(listing.CurrentPrice)
	if listing.CurrentPrice.IsPositive() {
		record.ChangePercent = record.ChangeAmount.
			Div(listing.CurrentPrice).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	reviseRes, err := s.gw.ReviseItem(ctx, listing.ItemID, listing.SKU, rev)
	switch {
	case err != nil:
		record.Status = models.ChangeStatusFailed
		result.Status = ItemStatusError
		result.Message = fmt.Sprintf("revise failed: %v", err)
	case reviseRes.Ack == marketplace.AckFailure:
		record.Status = models.ChangeStatusFailed
		result.Status = ItemStatusError
		result.Message = "marketplace rejected revision: " + strings.Join(reviseRes.Errors, "; ")
	default:
		record.Status = models.ChangeStatusCompleted
		result.Status = ItemStatusSuccess
		result.NewPrice = decimal.NullDecimal{Decimal: newPrice, Valid: true}
		if reviseRes.Ack == marketplace.AckWarning {
			result.Message = "applied with warnings: " + strings.Join(reviseRes.Errors, "; ")
		}
		if rev.Price != nil {
			util.PriceChangesAppliedTotal.Inc()
			s.publishPriceChanged(ctx, record, runID)
		}
	}

	if err := s.ledger.Record(ctx, record); err != nil {
		s.logger.Error("Failed to write ledger record",
			zap.String("item_id", listing.ItemID), zap.Error(err))
	} else {
		util.LedgerRecordsTotal.WithLabelValues(record.Status).Inc()
	}

	return result
}

func (s *Service) publishPriceChanged(ctx context.Context, record *models.PriceChangeRecord, runID string) {
	if s.events == nil {
		return
	}
	event := &models.PriceChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePriceChanged,
			Timestamp: time.Now(),
		},
		ItemID:        record.ItemID,
		SKU:           record.SKU,
		OldPrice:      record.OldPrice.String(),
		NewPrice:      record.NewPrice.String(),
		StrategyID:    record.StrategyID,
		RunID:         runID,
		ChangePercent: record.ChangePercent.String(),
	}
	if err := s.events.PublishPriceChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish PriceChanged event", zap.Error(err))
	}
}

func (s *Service) publishRunCompleted(ctx context.Context, summary *RunSummary) {
	if s.events == nil {
		return
	}
	event := &models.ReconciliationCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReconciliationComplete,
			Timestamp: time.Now(),
		},
		RunID:      summary.RunID,
		Total:      summary.Total,
		Success:    summary.Success,
		Skipped:    summary.Skipped,
		Errors:     summary.Errors,
		DurationMs: summary.DurationMs,
		DryRun:     summary.DryRun,
	}
	if err := s.events.PublishRunCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish ReconciliationCompleted event", zap.Error(err))
	}
}

// flattenListings converts marketplace items into one Listing per
// (itemID, sku) pair.
func flattenListings(items []marketplace.Item) []models.Listing {
	listings := make([]models.Listing, 0, len(items))
	for _, item := range items {
		if len(item.Variations) == 0 {
			listings = append(listings, models.Listing{
				ItemID:       item.ItemID,
				Title:        item.Title,
				Description:  item.Description,
				CategoryID:   item.CategoryID,
				CurrentPrice: item.Price,
				Quantity:     item.Quantity,
			})
			continue
		}
		for _, v := range item.Variations {
			listings = append(listings, models.Listing{
				ItemID:        item.ItemID,
				SKU:           v.SKU,
				Title:         item.Title,
				Description:   item.Description,
				CategoryID:    item.CategoryID,
				CurrentPrice:  v.Price,
				Quantity:      v.Quantity,
				HasVariations: true,
			})
		}
	}
	return listings
}

// strategyIndex resolves the strategy assigned to a listing, most specific
// reference first.
type strategyIndex struct {
	bySKU  map[string]*models.PricingStrategy
	byItem map[string]*models.PricingStrategy
}

func (idx strategyIndex) lookup(itemID, sku string) *models.PricingStrategy {
	if sku != "" {
		if st, ok := idx.bySKU[itemID+"|"+sku]; ok {
			return st
		}
	}
	return idx.byItem[itemID]
}

func (s *Service) buildStrategyIndex(ctx context.Context) (strategyIndex, error) {
	idx := strategyIndex{
		bySKU:  make(map[string]*models.PricingStrategy),
		byItem: make(map[string]*models.PricingStrategy),
	}

	strategies, err := s.strategies.ListStrategies(ctx)
	if err != nil {
		return idx, err
	}

	for i := range strategies {
		st := &strategies[i]
		for _, ref := range st.AppliesTo {
			if ref.SKU != "" {
				idx.bySKU[ref.ItemID+"|"+ref.SKU] = st
			} else {
				idx.byItem[ref.ItemID] = st
			}
		}
	}
	return idx, nil
}
