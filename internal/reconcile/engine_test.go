package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repricer-service/internal/ledger"
	"repricer-service/internal/marketplace"
	"repricer-service/internal/models"
)

func d(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func nd(v float64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(v), Valid: true}
}

// fakeGateway is an in-memory MarketGateway whose revisions take effect, so
// a second run sees the prices the first run wrote.
type fakeGateway struct {
	mu          sync.Mutex
	items       map[string]*marketplace.Item
	order       []string
	competitors map[string][]decimal.Decimal
	synthetic   map[string]bool
	fetchErr    map[string]error
	reviseErr   map[string]error
	reviseAck   map[string]*marketplace.ReviseResult
	reviseCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		items:       make(map[string]*marketplace.Item),
		competitors: make(map[string][]decimal.Decimal),
		synthetic:   make(map[string]bool),
		fetchErr:    make(map[string]error),
		reviseErr:   make(map[string]error),
		reviseAck:   make(map[string]*marketplace.ReviseResult),
	}
}

func (g *fakeGateway) addItem(item marketplace.Item) {
	g.items[item.ItemID] = &item
	g.order = append(g.order, item.ItemID)
}

func (g *fakeGateway) GetActiveListings(ctx context.Context) ([]marketplace.Item, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]marketplace.Item, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.items[id])
	}
	return out, nil
}

func (g *fakeGateway) GetItem(ctx context.Context, itemID string) (*marketplace.Item, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	item, ok := g.items[itemID]
	if !ok {
		return nil, &marketplace.APIError{Kind: marketplace.KindNotFound, ItemID: itemID, Msg: "unknown item"}
	}
	copied := *item
	return &copied, nil
}

func (g *fakeGateway) FetchCompetitorPrices(ctx context.Context, itemID, title, categoryID string) (models.CompetitorPriceSet, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fetchErr[itemID]; err != nil {
		return models.CompetitorPriceSet{}, err
	}
	now := time.Now()
	return models.CompetitorPriceSet{
		Key:         itemID,
		Prices:      g.competitors[itemID],
		FetchedAt:   now,
		ExpiresAt:   now.Add(30 * time.Minute),
		IsSynthetic: g.synthetic[itemID],
	}, nil
}

func (g *fakeGateway) ReviseItem(ctx context.Context, itemID, sku string, rev marketplace.Revision) (*marketplace.ReviseResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reviseCalls++
	if err := g.reviseErr[itemID]; err != nil {
		return nil, err
	}
	if res, ok := g.reviseAck[itemID]; ok {
		return res, nil
	}

	item, ok := g.items[itemID]
	if !ok {
		return nil, &marketplace.APIError{Kind: marketplace.KindNotFound, ItemID: itemID, Msg: "unknown item"}
	}
	if sku == "" {
		if rev.Price != nil {
			item.Price = *rev.Price
		}
		if rev.Quantity != nil {
			item.Quantity = *rev.Quantity
		}
	} else {
		for i := range item.Variations {
			if item.Variations[i].SKU == sku {
				if rev.Price != nil {
					item.Variations[i].Price = *rev.Price
				}
				if rev.Quantity != nil {
					item.Variations[i].Quantity = *rev.Quantity
				}
			}
		}
	}
	if rev.Title != nil {
		item.Title = *rev.Title
	}
	if rev.Description != nil {
		item.Description = *rev.Description
	}
	return &marketplace.ReviseResult{Ack: marketplace.AckSuccess}, nil
}

// fakeStrategies serves strategies from a slice.
type fakeStrategies struct {
	list    []models.PricingStrategy
	listErr error
}

func (f *fakeStrategies) GetStrategy(ctx context.Context, id string) (*models.PricingStrategy, error) {
	for i := range f.list {
		if f.list[i].ID == id {
			return &f.list[i], nil
		}
	}
	return nil, fmt.Errorf("strategy not found: %s", id)
}

func (f *fakeStrategies) ListStrategies(ctx context.Context) ([]models.PricingStrategy, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.list, nil
}

func (f *fakeStrategies) SaveStrategy(ctx context.Context, st *models.PricingStrategy) error {
	f.list = append(f.list, *st)
	return nil
}

// fakePublisher collects published events.
type fakePublisher struct {
	mu        sync.Mutex
	changed   []*models.PriceChangedEvent
	completed []*models.ReconciliationCompletedEvent
}

func (p *fakePublisher) PublishPriceChanged(ctx context.Context, event *models.PriceChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, event)
	return nil
}

func (p *fakePublisher) PublishRunCompleted(ctx context.Context, event *models.ReconciliationCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, event)
	return nil
}

func newTestService(gw MarketGateway, strategies StrategyStore) (*Service, *ledger.MemoryLedger, *fakePublisher) {
	priceLedger := ledger.NewMemoryLedger()
	publisher := &fakePublisher{}
	svc := NewService(gw, strategies, priceLedger, StaticCatalog{}, publisher, Defaults{BatchSize: 10})
	return svc, priceLedger, publisher
}

func headphonesGateway() *fakeGateway {
	gw := newFakeGateway()
	gw.addItem(marketplace.Item{
		ItemID:     "314851424639",
		Title:      "Wireless Noise Cancelling Headphones",
		CategoryID: "112529",
		Price:      d(84.50),
		Currency:   "USD",
		Quantity:   12,
	})
	gw.competitors["314851424639"] = []decimal.Decimal{d(89.99), d(95.50), d(87.00)}
	return gw
}

func beatLowestStrategies() *fakeStrategies {
	return &fakeStrategies{list: []models.PricingStrategy{{
		ID:        "undercut-5",
		Rule:      models.RuleBeatLowest,
		Amount:    nd(5.00),
		AppliesTo: models.ItemRefList{{ItemID: "314851424639"}},
	}}}
}

func TestRunAppliesBeatLowest(t *testing.T) {
	gw := headphonesGateway()
	svc, priceLedger, publisher := newTestService(gw, beatLowestStrategies())

	summary, err := svc.Run(context.Background(), Options{SyncType: SyncPrice})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Errors)
	require.Len(t, summary.Items, 1)

	item := summary.Items[0]
	assert.Equal(t, ItemStatusSuccess, item.Status)
	assert.True(t, item.OldPrice.Equal(d(84.50)))
	require.True(t, item.NewPrice.Valid)
	assert.True(t, item.NewPrice.Decimal.Equal(d(82.00)), "lowest 87.00 minus 5.00")

	// The write took effect on the marketplace.
	assert.True(t, gw.items["314851424639"].Price.Equal(d(82.00)))

	// Exactly one completed ledger record for the attempted write.
	latest, err := priceLedger.Latest(context.Background(), "314851424639", "")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, models.ChangeStatusCompleted, latest.Status)
	assert.True(t, latest.OldPrice.Equal(d(84.50)))
	assert.True(t, latest.NewPrice.Equal(d(82.00)))
	assert.Equal(t, "undercut-5", latest.StrategyID)
	require.True(t, latest.CompetitorLowestPrice.Valid)
	assert.True(t, latest.CompetitorLowestPrice.Decimal.Equal(d(87.00)))
	assert.True(t, latest.ChangeAmount.Equal(d(-2.50)))

	require.Len(t, publisher.changed, 1)
	assert.Equal(t, "82", publisher.changed[0].NewPrice)
	require.Len(t, publisher.completed, 1)
	assert.Equal(t, summary.RunID, publisher.completed[0].RunID)
}

func TestRunIsIdempotent(t *testing.T) {
	gw := headphonesGateway()
	svc, priceLedger, _ := newTestService(gw, beatLowestStrategies())
	ctx := context.Background()

	first, err := svc.Run(ctx, Options{SyncType: SyncPrice})
	require.NoError(t, err)
	require.Equal(t, 1, first.Success)
	callsAfterFirst := gw.reviseCalls

	// Market data unchanged: the second run resolves to skipped with no
	// writes and no new ledger entries.
	second, err := svc.Run(ctx, Options{SyncType: SyncPrice})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Success)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, "no changes detected", second.Items[0].Message)
	assert.Equal(t, callsAfterFirst, gw.reviseCalls)

	_, total, err := priceLedger.History(ctx, "314851424639", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestRunSkipsWithoutStrategy(t *testing.T) {
	gw := headphonesGateway()
	svc, priceLedger, _ := newTestService(gw, &fakeStrategies{})

	summary, err := svc.Run(context.Background(), Options{SyncType: SyncPrice})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, "no pricing strategy assigned", summary.Items[0].Message)
	assert.Equal(t, 0, gw.reviseCalls)

	_, total, err := priceLedger.History(context.Background(), "314851424639", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total, "skipped items never reach the ledger")
}

func TestRunSkipsOnEmptyCompetitorSet(t *testing.T) {
	gw := headphonesGateway()
	gw.competitors["314851424639"] = nil
	svc, priceLedger, _ := newTestService(gw, beatLowestStrategies())

	summary, err := svc.Run(context.Background(), Options{SyncType: SyncPrice})
	require.NoError(t, err)

	require.Equal(t, 1, summary.Skipped)
	assert.Contains(t, summary.Items[0].Message, "no competitor")
	assert.Equal(t, 0, gw.reviseCalls)

	_, total, err := priceLedger.History(context.Background(), "314851424639", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestRunIsolatesItemFailures(t *testing.T) {
	gw := headphonesGateway()
	gw.addItem(marketplace.Item{
		ItemID:     "204557118209",
		Title:      "USB-C Docking Station 11-in-1",
		CategoryID: "80053",
		Price:      d(59.99),
		Quantity:   30,
	})
	gw.competitors["204557118209"] = []decimal.Decimal{d(64.00)}
	gw.fetchErr["314851424639"] = errors.New("marketplace unavailable")

	strategies := beatLowestStrategies()
	strategies.list[0].AppliesTo = append(strategies.list[0].AppliesTo,
		models.ItemRef{ItemID: "204557118209"})

	svc, _, _ := newTestService(gw, strategies)

	summary, err := svc.Run(context.Background(), Options{SyncType: SyncPrice})
	require.NoError(t, err, "item failures never abort the run")

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, ItemStatusError, summary.Items[0].Status)
	assert.Contains(t, summary.Items[0].Message, "competitor fetch failed")
	assert.Equal(t, ItemStatusSuccess, summary.Items[1].Status)
	assert.True(t, gw.items["204557118209"].Price.Equal(d(59.00)))
}

func TestRunRecordsFailedWrite(t *testing.T) {
	gw := headphonesGateway()
	gw.reviseErr["314851424639"] = errors.New("revise refused")
	svc, priceLedger, publisher := newTestService(gw, beatLowestStrategies())

	summary, err := svc.Run(context.Background(), Options{SyncType: SyncPrice})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Errors)
	assert.Contains(t, summary.Items[0].Message, "revise failed")

	// The attempt is on the ledger as failed, and no event went out.
	latest, err := priceLedger.Latest(context.Background(), "314851424639", "")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, models.ChangeStatusFailed, latest.Status)
	assert.Empty(t, publisher.changed)

	// The marketplace still shows the old price.
	assert.True(t, gw.items["314851424639"].Price.Equal(d(84.50)))
}

func TestRunRecordsRejectedAck(t *testing.T) {
	gw := headphonesGateway()
	gw.reviseAck["314851424639"] = &marketplace.ReviseResult{
		Ack:    marketplace.AckFailure,
		Errors: []string{"price below category floor"},
	}
	svc, priceLedger, _ := newTestService(gw, beatLowestStrategies())

	summary, err := svc.Run(context.Background(), Options{SyncType: SyncPrice})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Errors)
	assert.Contains(t, summary.Items[0].Message, "price below category floor")

	latest, err := priceLedger.Latest(context.Background(), "314851424639", "")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, models.ChangeStatusFailed, latest.Status)
}

func TestDryRunWritesNothing(t *testing.T) {
	gw := headphonesGateway()
	svc, priceLedger, publisher := newTestService(gw, beatLowestStrategies())

	summary, err := svc.Run(context.Background(), Options{SyncType: SyncPrice, DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Success)
	assert.True(t, summary.DryRun)
	assert.Equal(t, "dry run, changes not applied", summary.Items[0].Message)
	assert.Equal(t, 0, gw.reviseCalls)
	assert.Empty(t, publisher.changed)
	assert.True(t, gw.items["314851424639"].Price.Equal(d(84.50)))

	_, total, err := priceLedger.History(context.Background(), "314851424639", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestForceUpdateReassertsCurrentPrice(t *testing.T) {
	gw := headphonesGateway()
	svc, priceLedger, _ := newTestService(gw, &fakeStrategies{})

	summary, err := svc.Run(context.Background(), Options{SyncType: SyncPrice, ForceUpdate: true})
	require.NoError(t, err)

	require.Equal(t, 1, summary.Success)
	assert.Equal(t, 1, gw.reviseCalls)
	assert.True(t, gw.items["314851424639"].Price.Equal(d(84.50)))

	// A forced no-op is still an attempted write, so it reaches the ledger.
	latest, err := priceLedger.Latest(context.Background(), "314851424639", "")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, models.ChangeStatusCompleted, latest.Status)
	assert.True(t, latest.OldPrice.Equal(latest.NewPrice))
	assert.True(t, latest.ChangeAmount.IsZero())
}

func TestVariationsRepricedPerSKU(t *testing.T) {
	gw := newFakeGateway()
	gw.addItem(marketplace.Item{
		ItemID:     "175903342211",
		Title:      "Mechanical Keyboard Hot-Swap 75%",
		CategoryID: "33963",
		Price:      d(112.00),
		Quantity:   8,
		Variations: []marketplace.Variation{
			{SKU: "KB75-RED", Price: d(112.00), Quantity: 5},
			{SKU: "KB75-BROWN", Price: d(118.00), Quantity: 3},
		},
	})
	gw.competitors["175903342211"] = []decimal.Decimal{d(105.00), d(109.99)}

	strategies := &fakeStrategies{list: []models.PricingStrategy{{
		ID:        "match-red",
		Rule:      models.RuleMatchLowest,
		AppliesTo: models.ItemRefList{{ItemID: "175903342211", SKU: "KB75-RED"}},
	}}}

	svc, _, _ := newTestService(gw, strategies)

	summary, err := svc.Run(context.Background(), Options{SyncType: SyncPrice})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total, "variations flatten to one listing per sku")
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 1, summary.Skipped)

	item := gw.items["175903342211"]
	assert.True(t, item.Variations[0].Price.Equal(d(105.00)), "red variant repriced")
	assert.True(t, item.Variations[1].Price.Equal(d(118.00)), "brown variant untouched")
}

func TestSyntheticDataFlagsResult(t *testing.T) {
	gw := headphonesGateway()
	gw.synthetic["314851424639"] = true
	svc, _, _ := newTestService(gw, beatLowestStrategies())

	summary, err := svc.Run(context.Background(), Options{SyncType: SyncPrice})
	require.NoError(t, err)

	require.Len(t, summary.Items, 1)
	assert.True(t, summary.Items[0].Synthetic)
}

func TestRunOverlapRejected(t *testing.T) {
	gw := headphonesGateway()
	svc, _, _ := newTestService(gw, beatLowestStrategies())

	release := make(chan struct{})
	started := make(chan struct{})
	blocking := &blockingGateway{fakeGateway: gw, started: started, release: release}
	svc.gw = blocking

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), Options{SyncType: SyncPrice})
		done <- err
	}()
	<-started

	_, err := svc.Run(context.Background(), Options{SyncType: SyncPrice})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	require.NoError(t, <-done)

	// The guard is released once the first run finishes.
	_, err = svc.Run(context.Background(), Options{SyncType: SyncPrice})
	assert.NoError(t, err)
}

type blockingGateway struct {
	*fakeGateway
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *blockingGateway) GetActiveListings(ctx context.Context) ([]marketplace.Item, error) {
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return g.fakeGateway.GetActiveListings(ctx)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	gw := headphonesGateway()
	svc, _, _ := newTestService(gw, beatLowestStrategies())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := svc.Run(ctx, Options{SyncType: SyncPrice})
	require.NoError(t, err, "cancellation between items ends the run cleanly")
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 0, gw.reviseCalls)
}

func TestApplyStrategyComputesWithoutWriting(t *testing.T) {
	gw := headphonesGateway()
	svc, priceLedger, _ := newTestService(gw, beatLowestStrategies())

	results, err := svc.ApplyStrategy(context.Background(), "undercut-5", []ApplyItem{
		{ItemID: "314851424639", CurrentPrice: d(84.50)},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.True(t, res.Success)
	require.True(t, res.NewPrice.Valid)
	assert.True(t, res.NewPrice.Decimal.Equal(d(82.00)))

	// Read-only path: no marketplace write, no ledger entry.
	assert.Equal(t, 0, gw.reviseCalls)
	_, total, err := priceLedger.History(context.Background(), "314851424639", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestApplyStrategyUnknownStrategyFails(t *testing.T) {
	gw := headphonesGateway()
	svc, _, _ := newTestService(gw, beatLowestStrategies())

	_, err := svc.ApplyStrategy(context.Background(), "nope", []ApplyItem{
		{ItemID: "314851424639", CurrentPrice: d(84.50)},
	})
	require.Error(t, err)
}

func TestApplyStrategyIsolatesItemFailures(t *testing.T) {
	gw := headphonesGateway()
	svc, _, _ := newTestService(gw, beatLowestStrategies())

	results, err := svc.ApplyStrategy(context.Background(), "undercut-5", []ApplyItem{
		{ItemID: "missing", CurrentPrice: d(10.00)},
		{ItemID: "314851424639", CurrentPrice: d(84.50)},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Message, "item lookup failed")
	assert.True(t, results[1].Success)
}

func TestApplyDefaultsSubstitutesZeroDelays(t *testing.T) {
	svc := NewService(newFakeGateway(), &fakeStrategies{}, ledger.NewMemoryLedger(), nil, nil, Defaults{
		BatchSize:             5,
		DelayBetweenItemsMs:   500,
		DelayBetweenBatchesMs: 5000,
	})

	// An empty options struct, as produced by an empty trigger body or a
	// broker command without delay fields, picks up every configured default.
	opts := Options{}
	svc.applyDefaults(&opts)

	assert.Equal(t, SyncAll, opts.SyncType)
	assert.Equal(t, 5, opts.BatchSize)
	assert.Equal(t, 500, opts.DelayBetweenItemsMs)
	assert.Equal(t, 5000, opts.DelayBetweenBatchesMs)

	// Explicit values always win.
	opts = Options{BatchSize: 2, DelayBetweenItemsMs: 10, DelayBetweenBatchesMs: 20}
	svc.applyDefaults(&opts)
	assert.Equal(t, 2, opts.BatchSize)
	assert.Equal(t, 10, opts.DelayBetweenItemsMs)
	assert.Equal(t, 20, opts.DelayBetweenBatchesMs)
}

func TestDefaultDelaysPaceRun(t *testing.T) {
	gw := newFakeGateway()
	for _, id := range []string{"item-1", "item-2", "item-3"} {
		gw.addItem(marketplace.Item{ItemID: id, Title: "Widget", Price: d(10), Quantity: 1})
	}

	svc := NewService(gw, &fakeStrategies{}, ledger.NewMemoryLedger(), nil, nil, Defaults{
		BatchSize:           10,
		DelayBetweenItemsMs: 60,
	})

	summary, err := svc.Run(context.Background(), Options{SyncType: SyncPrice})
	require.NoError(t, err)

	// Three items mean two inter-item gaps at the configured default.
	assert.Equal(t, 3, summary.Processed)
	assert.GreaterOrEqual(t, summary.DurationMs, int64(120),
		"default inter-item delay must pace a run that sets no explicit delays")
}

type fakeCatalog struct {
	state CatalogState
}

func (f *fakeCatalog) DesiredState(ctx context.Context, listing models.Listing) (CatalogState, error) {
	return f.state, nil
}

func TestDescriptionSyncDiffsAgainstCurrent(t *testing.T) {
	gw := newFakeGateway()
	gw.addItem(marketplace.Item{
		ItemID:      "204557118209",
		Title:       "USB-C Docking Station 11-in-1",
		Description: "11-in-1 dock with dual HDMI",
		CategoryID:  "80053",
		Price:       d(59.99),
		Quantity:    30,
	})

	desc := "11-in-1 dock with dual HDMI"
	catalog := &fakeCatalog{state: CatalogState{Description: &desc}}
	svc := NewService(gw, &fakeStrategies{}, ledger.NewMemoryLedger(), catalog, nil, Defaults{BatchSize: 10})
	ctx := context.Background()

	// Desired matches current: nothing to write.
	summary, err := svc.Run(ctx, Options{SyncType: SyncDescription})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, gw.reviseCalls)

	// A real difference goes out once, then the next run converges.
	updated := "11-in-1 dock with dual HDMI and 100W PD"
	catalog.state = CatalogState{Description: &updated}

	summary, err = svc.Run(ctx, Options{SyncType: SyncDescription})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, []string{"description"}, summary.Items[0].ChangedFields)
	assert.Equal(t, updated, gw.items["204557118209"].Description)

	summary, err = svc.Run(ctx, Options{SyncType: SyncDescription})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, gw.reviseCalls)
}

func TestStrategyIndexPrefersSKUOverItem(t *testing.T) {
	skuStrategy := models.PricingStrategy{ID: "per-sku"}
	itemStrategy := models.PricingStrategy{ID: "per-item"}
	idx := strategyIndex{
		bySKU:  map[string]*models.PricingStrategy{"i1|s1": &skuStrategy},
		byItem: map[string]*models.PricingStrategy{"i1": &itemStrategy},
	}

	assert.Equal(t, "per-sku", idx.lookup("i1", "s1").ID)
	assert.Equal(t, "per-item", idx.lookup("i1", "s2").ID)
	assert.Equal(t, "per-item", idx.lookup("i1", "").ID)
	assert.Nil(t, idx.lookup("i2", ""))
}
