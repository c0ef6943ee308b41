package marketplace

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// SimulatedClient is an in-memory marketplace used when no live endpoint is
// configured, and by tests. Competitor searches are deterministic per
// (title, category) so repeated runs see a stable market; revisions mutate
// the stored listings so consecutive reconciliation runs converge.
type SimulatedClient struct {
	mu       sync.Mutex
	items    map[string]*Item
	order    []string
	failRate float64
	rng      *rand.Rand
}

// NewSimulatedClient creates an empty simulated marketplace. failRate is the
// probability that any call is answered with a rate-limit error, for
// exercising the gateway retry path.
func NewSimulatedClient(failRate float64) *SimulatedClient {
	return &SimulatedClient{
		items:    make(map[string]*Item),
		failRate: failRate,
		rng:      rand.New(rand.NewSource(42)),
	}
}

// Seed adds or replaces listings.
func (c *SimulatedClient) Seed(items ...Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range items {
		item := items[i]
		if _, ok := c.items[item.ItemID]; !ok {
			c.order = append(c.order, item.ItemID)
		}
		c.items[item.ItemID] = &item
	}
}

func (c *SimulatedClient) maybeRateLimit() error {
	if c.failRate > 0 && c.rng.Float64() < c.failRate {
		return &APIError{Kind: KindRateLimited, Msg: "simulated rate limit"}
	}
	return nil
}

func (c *SimulatedClient) GetActiveListings(ctx context.Context) ([]Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.maybeRateLimit(); err != nil {
		return nil, err
	}

	listings := make([]Item, 0, len(c.order))
	for _, id := range c.order {
		listings = append(listings, *c.items[id])
	}
	return listings, nil
}

func (c *SimulatedClient) GetItem(ctx context.Context, itemID string) (*Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.maybeRateLimit(); err != nil {
		return nil, err
	}

	item, ok := c.items[itemID]
	if !ok {
		return nil, &APIError{Kind: KindNotFound, ItemID: itemID, Msg: "item not found"}
	}
	copied := *item
	return &copied, nil
}

// SearchCompetitors returns a deterministic offer set derived from the
// search terms: the same title and category always describe the same market.
func (c *SimulatedClient) SearchCompetitors(ctx context.Context, title, categoryID string) ([]Offer, error) {
	c.mu.Lock()
	err := c.maybeRateLimit()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	h := fnv.New64a()
	h.Write([]byte(title))
	h.Write([]byte(categoryID))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	count := 3 + rng.Intn(5)
	offers := make([]Offer, 0, count)
	for i := 0; i < count; i++ {
		price := decimal.NewFromFloat(20 + rng.Float64()*180).Round(2)
		shipping := decimal.NewFromFloat(rng.Float64() * 12).Round(2)
		offers = append(offers, Offer{Price: price, Shipping: shipping})
	}
	sort.Slice(offers, func(i, j int) bool { return offers[i].Price.LessThan(offers[j].Price) })
	return offers, nil
}

func (c *SimulatedClient) ReviseItem(ctx context.Context, itemID, sku string, rev Revision) (*ReviseResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.maybeRateLimit(); err != nil {
		return nil, err
	}

	item, ok := c.items[itemID]
	if !ok {
		return nil, &APIError{Kind: KindNotFound, ItemID: itemID, Msg: "item not found"}
	}

	if rev.Price != nil && rev.Price.LessThanOrEqual(decimal.Zero) {
		return &ReviseResult{Ack: AckFailure, Errors: []string{"price must be positive"}}, nil
	}

	if sku != "" {
		found := false
		for i := range item.Variations {
			if item.Variations[i].SKU != sku {
				continue
			}
			found = true
			if rev.Price != nil {
				item.Variations[i].Price = *rev.Price
			}
			if rev.Quantity != nil {
				item.Variations[i].Quantity = *rev.Quantity
			}
		}
		if !found {
			return nil, &APIError{Kind: KindNotFound, ItemID: itemID, Msg: "variation not found: " + sku}
		}
	} else {
		if rev.Price != nil {
			item.Price = *rev.Price
		}
		if rev.Quantity != nil {
			item.Quantity = *rev.Quantity
		}
	}
	if rev.Title != nil {
		item.Title = *rev.Title
	}
	if rev.Description != nil {
		item.Description = *rev.Description
	}

	return &ReviseResult{Ack: AckSuccess}, nil
}
