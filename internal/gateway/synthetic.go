package gateway

import (
	"hash/fnv"
	"math/rand"

	"github.com/shopspring/decimal"
)

// SyntheticPrices generates the degraded-mode competitor price set for an
// item. Seeded from the item identifier, so the same item always yields the
// same prices and a retried run stays idempotent.
func SyntheticPrices(itemID string) []decimal.Decimal {
	h := fnv.New64a()
	h.Write([]byte(itemID))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	count := 3 + rng.Intn(3)
	prices := make([]decimal.Decimal, 0, count)
	for i := 0; i < count; i++ {
		prices = append(prices, decimal.NewFromFloat(25+rng.Float64()*150).Round(2))
	}
	return prices
}
