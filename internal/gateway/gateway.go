// Package gateway serializes and throttles every outbound marketplace call.
// At most one call is in flight at a time; pending calls wait in a bounded
// queue with leaky-bucket semantics (the oldest waiter is dropped when the
// queue is full). Rate-limit responses are retried with exponential backoff;
// for read-only competitor fetches, exhausted retries fall back to a
// deterministic synthetic price set so the engine can proceed degraded.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"repricer-service/internal/cache"
	"repricer-service/internal/marketplace"
	"repricer-service/internal/models"
	"repricer-service/internal/strategy"
	"repricer-service/internal/util"
)

var (
	// ErrDropped is returned to a caller whose pending call was evicted
	// from the full queue to make room for a newer one.
	ErrDropped = errors.New("gateway: call dropped from pending queue")

	// ErrRetriesExhausted wraps the last rate-limit error after all retry
	// attempts failed.
	ErrRetriesExhausted = errors.New("gateway: rate-limit retries exhausted")
)

// Options are the gateway tunables, constructed once from config.
type Options struct {
	CallInterval   time.Duration
	QueueCapacity  int
	MaxRetries     int
	RetryBaseDelay time.Duration
	CacheTTL       time.Duration
	SyntheticTTL   time.Duration
}

type callResult struct {
	value interface{}
	err   error
}

type pendingCall struct {
	ctx   context.Context
	op    string
	fn    func(ctx context.Context) (interface{}, error)
	reply chan callResult
}

// Gateway is the single serialization point for marketplace traffic.
type Gateway struct {
	client marketplace.Client
	cache  cache.PriceCache
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	pending  []*pendingCall
	notify   chan struct{}
	lastCall time.Time

	quit chan struct{}
	done chan struct{}
}

// New creates a gateway and starts its worker loop.
func New(client marketplace.Client, priceCache cache.PriceCache, opts Options) *Gateway {
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 64
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	g := &Gateway{
		client: client,
		cache:  priceCache,
		opts:   opts,
		logger: util.NamedLogger("gateway"),
		notify: make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go g.worker()
	return g
}

// Close stops the worker and fails all still-pending calls.
func (g *Gateway) Close() {
	close(g.quit)
	<-g.done

	g.mu.Lock()
	pending := g.pending
	g.pending = nil
	g.mu.Unlock()
	for _, pc := range pending {
		pc.reply <- callResult{err: errors.New("gateway: closed")}
	}
}

// enqueue appends a call to the pending queue, dropping the oldest waiter
// when the queue is at capacity.
func (g *Gateway) enqueue(pc *pendingCall) {
	g.mu.Lock()
	if len(g.pending) >= g.opts.QueueCapacity {
		oldest := g.pending[0]
		g.pending = g.pending[1:]
		util.GatewayDroppedTotal.Inc()
		g.logger.Warn("Pending queue full, dropping oldest call",
			zap.String("dropped_op", oldest.op),
			zap.Int("capacity", g.opts.QueueCapacity))
		oldest.reply <- callResult{err: ErrDropped}
	}
	g.pending = append(g.pending, pc)
	g.mu.Unlock()

	select {
	case g.notify <- struct{}{}:
	default:
	}
}

func (g *Gateway) dequeue() *pendingCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.pending) == 0 {
		return nil
	}
	pc := g.pending[0]
	g.pending = g.pending[1:]
	return pc
}

// worker executes pending calls one at a time, enforcing the minimum
// inter-call interval.
func (g *Gateway) worker() {
	defer close(g.done)
	for {
		pc := g.dequeue()
		if pc == nil {
			select {
			case <-g.quit:
				return
			case <-g.notify:
				continue
			}
		}

		if pc.ctx.Err() != nil {
			pc.reply <- callResult{err: pc.ctx.Err()}
			continue
		}

		g.pace()

		start := time.Now()
		value, err := g.executeWithRetry(pc.ctx, pc.op, pc.fn)
		util.GatewayCallLatency.WithLabelValues(pc.op).Observe(time.Since(start).Seconds())
		pc.reply <- callResult{value: value, err: err}

		select {
		case <-g.quit:
			return
		default:
		}
	}
}

func (g *Gateway) pace() {
	if g.opts.CallInterval <= 0 {
		return
	}
	if wait := g.opts.CallInterval - time.Since(g.lastCall); wait > 0 {
		time.Sleep(wait)
	}
	g.lastCall = time.Now()
}

// executeWithRetry runs fn, retrying classified rate-limit failures with
// exponential backoff (base, 2x, 4x, ...). Every other error propagates
// immediately.
func (g *Gateway) executeWithRetry(ctx context.Context, op string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	delay := g.opts.RetryBaseDelay

	for attempt := 0; ; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			util.GatewayCallsTotal.WithLabelValues(op, "success").Inc()
			return value, nil
		}

		if !marketplace.IsRateLimited(err) {
			util.GatewayCallsTotal.WithLabelValues(op, string(marketplace.Classify(err))).Inc()
			return nil, err
		}

		if attempt >= g.opts.MaxRetries {
			util.GatewayCallsTotal.WithLabelValues(op, "exhausted").Inc()
			return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrRetriesExhausted, op, attempt+1, err)
		}

		util.GatewayRetriesTotal.Inc()
		g.logger.Warn("Rate limited, backing off",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// call submits fn to the serialized worker and waits for its result.
func (g *Gateway) call(ctx context.Context, op string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	pc := &pendingCall{
		ctx:   ctx,
		op:    op,
		fn:    fn,
		reply: make(chan callResult, 1),
	}
	g.enqueue(pc)

	select {
	case res := <-pc.reply:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetActiveListings fetches all active listings through the gateway.
func (g *Gateway) GetActiveListings(ctx context.Context) ([]marketplace.Item, error) {
	value, err := g.call(ctx, "get_active_listings", func(ctx context.Context) (interface{}, error) {
		return g.client.GetActiveListings(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value.([]marketplace.Item), nil
}

// GetItem fetches one item through the gateway.
func (g *Gateway) GetItem(ctx context.Context, itemID string) (*marketplace.Item, error) {
	value, err := g.call(ctx, "get_item", func(ctx context.Context) (interface{}, error) {
		return g.client.GetItem(ctx, itemID)
	})
	if err != nil {
		return nil, err
	}
	return value.(*marketplace.Item), nil
}

// ReviseItem pushes a revision through the gateway. Revisions are never
// retried into synthetic results; rate-limit exhaustion surfaces as an
// explicit error.
func (g *Gateway) ReviseItem(ctx context.Context, itemID, sku string, rev marketplace.Revision) (*marketplace.ReviseResult, error) {
	value, err := g.call(ctx, "revise_item", func(ctx context.Context) (interface{}, error) {
		return g.client.ReviseItem(ctx, itemID, sku, rev)
	})
	if err != nil {
		return nil, err
	}
	return value.(*marketplace.ReviseResult), nil
}

// FetchCompetitorPrices returns the competitor price set for an item,
// consulting the cache first. A cache hit skips the external call entirely.
// When retries are exhausted the gateway always serves the deterministic
// synthetic set for the item (never an empty list), tagged IsSynthetic and
// cached with the short synthetic TTL.
func (g *Gateway) FetchCompetitorPrices(ctx context.Context, itemID, title, categoryID string) (models.CompetitorPriceSet, error) {
	key := cacheKey(itemID, title)

	if set, ok := g.cache.Get(ctx, key); ok {
		util.CompetitorCacheHits.Inc()
		return set, nil
	}
	util.CompetitorCacheMisses.Inc()

	value, err := g.call(ctx, "search_competitors", func(ctx context.Context) (interface{}, error) {
		return g.client.SearchCompetitors(ctx, title, categoryID)
	})
	if err != nil {
		if !errors.Is(err, ErrRetriesExhausted) {
			return models.CompetitorPriceSet{}, err
		}

		util.GatewaySyntheticTotal.Inc()
		g.logger.Warn("Serving synthetic competitor prices",
			zap.String("item_id", itemID),
			zap.Error(err))

		now := time.Now()
		set := models.CompetitorPriceSet{
			Key:         key,
			Prices:      SyntheticPrices(itemID),
			FetchedAt:   now,
			ExpiresAt:   now.Add(g.opts.SyntheticTTL),
			IsSynthetic: true,
		}
		g.cache.Set(ctx, set)
		return set, nil
	}

	offers := value.([]marketplace.Offer)

	now := time.Now()
	set := models.CompetitorPriceSet{
		Key:       key,
		Prices:    strategy.NormalizePrices(offers),
		FetchedAt: now,
		ExpiresAt: now.Add(g.opts.CacheTTL),
	}
	g.cache.Set(ctx, set)
	return set, nil
}

func cacheKey(itemID, title string) string {
	if title == "" {
		return itemID
	}
	return itemID + "|" + title
}
