package strategy

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"repricer-service/internal/marketplace"
)

// price-like field names accepted on record-shaped competitor input, in
// lookup order.
var priceFields = []string{"price", "current_price", "currentPrice", "amount", "value"}

// NormalizePrices converts any accepted competitor price shape into a flat
// decimal list: plain numeric slices, marketplace offers, or generic JSON
// records carrying a price-like field. Non-positive and non-numeric entries
// are dropped. A nil result means the input normalized to nothing and the
// caller must treat it as no competitor data.
func NormalizePrices(raw interface{}) []decimal.Decimal {
	switch v := raw.(type) {
	case nil:
		return nil
	case []decimal.Decimal:
		return keepPositive(v)
	case []float64:
		out := make([]decimal.Decimal, 0, len(v))
		for _, f := range v {
			out = append(out, decimal.NewFromFloat(f))
		}
		return keepPositive(out)
	case []marketplace.Offer:
		out := make([]decimal.Decimal, 0, len(v))
		for _, o := range v {
			out = append(out, o.Price)
		}
		return keepPositive(out)
	case []interface{}:
		out := make([]decimal.Decimal, 0, len(v))
		for _, el := range v {
			if d, ok := normalizeScalar(el); ok {
				out = append(out, d)
			}
		}
		return keepPositive(out)
	default:
		return nil
	}
}

func normalizeScalar(el interface{}) (decimal.Decimal, bool) {
	switch v := el.(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case decimal.Decimal:
		return v, true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	case map[string]interface{}:
		for _, field := range priceFields {
			if inner, ok := v[field]; ok {
				return normalizeScalar(inner)
			}
		}
		return decimal.Decimal{}, false
	default:
		return decimal.Decimal{}, false
	}
}

func keepPositive(prices []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(prices))
	for _, p := range prices {
		if p.GreaterThan(decimal.Zero) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
