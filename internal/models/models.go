package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Listing is a read-only snapshot of a marketplace listing. A listing with
// variations is flattened to one Listing per (item_id, sku) pair before
// reconciliation.
type Listing struct {
	ItemID        string          `json:"item_id"`
	SKU           string          `json:"sku,omitempty"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	CategoryID    string          `json:"category_id,omitempty"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	Quantity      int             `json:"quantity"`
	HasVariations bool            `json:"has_variations"`
}

// CompetitorPriceSet is the last fetched set of competitor prices for a
// listing. Expired entries are cache misses, never served stale.
type CompetitorPriceSet struct {
	Key         string            `json:"key"`
	Prices      []decimal.Decimal `json:"prices"`
	FetchedAt   time.Time         `json:"fetched_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
	IsSynthetic bool              `json:"is_synthetic"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (s CompetitorPriceSet) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Pricing rules
const (
	RuleMatchLowest = "MATCH_LOWEST"
	RuleBeatLowest  = "BEAT_LOWEST"
	RuleStayAbove   = "STAY_ABOVE"
)

// ItemRef identifies a listing a strategy applies to.
type ItemRef struct {
	ItemID string `json:"item_id"`
	SKU    string `json:"sku,omitempty"`
}

// ItemRefList is stored as a JSON column.
type ItemRefList []ItemRef

func (l ItemRefList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(ItemRefList{})
	}
	return json.Marshal(l)
}

func (l *ItemRefList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into ItemRefList", src)
	}
}

// PricingStrategy is an operator-defined repricing rule with safety
// constraints. Immutable for the duration of a reconciliation run: edits
// take effect on the next run.
type PricingStrategy struct {
	ID         string              `db:"id" json:"id"`
	Rule       string              `db:"rule" json:"rule"`
	Amount     decimal.NullDecimal `db:"amount" json:"amount,omitempty"`
	Percentage decimal.NullDecimal `db:"percentage" json:"percentage,omitempty"`
	MinPrice   decimal.NullDecimal `db:"min_price" json:"min_price,omitempty"`
	MaxPrice   decimal.NullDecimal `db:"max_price" json:"max_price,omitempty"`
	MaxChange  decimal.NullDecimal `db:"max_change" json:"max_change,omitempty"`
	AppliesTo  ItemRefList         `db:"applies_to" json:"applies_to"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time           `db:"updated_at" json:"updated_at"`
}

// Price change statuses
const (
	ChangeStatusCompleted = "completed"
	ChangeStatusFailed    = "failed"
	ChangeStatusSkipped   = "skipped"
)

// PriceChangeRecord is one ledger entry per attempted price write. Append
// only; never mutated after creation.
type PriceChangeRecord struct {
	ID                    int64               `db:"id" json:"id"`
	ItemID                string              `db:"item_id" json:"item_id"`
	SKU                   string              `db:"sku" json:"sku,omitempty"`
	OldPrice              decimal.Decimal     `db:"old_price" json:"old_price"`
	NewPrice              decimal.Decimal     `db:"new_price" json:"new_price"`
	CompetitorLowestPrice decimal.NullDecimal `db:"competitor_lowest_price" json:"competitor_lowest_price,omitempty"`
	StrategyID            string              `db:"strategy_id" json:"strategy_id,omitempty"`
	Status                string              `db:"status" json:"status"`
	ChangeAmount          decimal.Decimal     `db:"change_amount" json:"change_amount"`
	ChangePercent         decimal.Decimal     `db:"change_percent" json:"change_percent"`
	CreatedAt             time.Time           `db:"created_at" json:"created_at"`
}

// HistorySummary aggregates the ledger for one item.
type HistorySummary struct {
	ItemID      string              `db:"item_id" json:"item_id"`
	Count       int64               `db:"count" json:"count"`
	MinNewPrice decimal.NullDecimal `db:"min_new_price" json:"min_new_price"`
	MaxNewPrice decimal.NullDecimal `db:"max_new_price" json:"max_new_price"`
	AvgNewPrice decimal.NullDecimal `db:"avg_new_price" json:"avg_new_price"`
	FirstAt     *time.Time          `db:"first_at" json:"first_at,omitempty"`
	LastAt      *time.Time          `db:"last_at" json:"last_at,omitempty"`
}
