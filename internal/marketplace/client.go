package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorKind classifies marketplace API failures.
type ErrorKind string

const (
	KindRateLimited   ErrorKind = "rate_limited"
	KindTransient     ErrorKind = "transient"
	KindNotFound      ErrorKind = "not_found"
	KindWriteRejected ErrorKind = "write_rejected"
)

// APIError is a classified failure from the marketplace boundary.
type APIError struct {
	Kind   ErrorKind
	ItemID string
	Msg    string
}

func (e *APIError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("marketplace %s: item %s: %s", e.Kind, e.ItemID, e.Msg)
	}
	return fmt.Sprintf("marketplace %s: %s", e.Kind, e.Msg)
}

// Classify returns the error kind, or empty when err is not an APIError.
func Classify(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsRateLimited reports whether err is a retryable rate-limit response.
func IsRateLimited(err error) bool {
	return Classify(err) == KindRateLimited
}

// Variation is one purchasable variant of a multi-variation item.
type Variation struct {
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Item is the marketplace's view of a listing.
type Item struct {
	ItemID      string          `json:"item_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	CategoryID  string          `json:"category_id"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Quantity    int             `json:"quantity"`
	Variations  []Variation     `json:"variations,omitempty"`
}

// Offer is one competitor listing returned by a search.
type Offer struct {
	Price    decimal.Decimal `json:"price"`
	Shipping decimal.Decimal `json:"shipping"`
}

// Revision carries the fields to change on a listing. Nil fields are left
// untouched; all set fields go out in a single revise call.
type Revision struct {
	Price       *decimal.Decimal
	Quantity    *int
	Title       *string
	Description *string
}

// Empty reports whether the revision would change nothing.
func (r Revision) Empty() bool {
	return r.Price == nil && r.Quantity == nil && r.Title == nil && r.Description == nil
}

// Ack statuses for a revise call.
const (
	AckSuccess = "success"
	AckWarning = "warning"
	AckFailure = "failure"
)

// ReviseResult is the marketplace acknowledgment of a revision.
type ReviseResult struct {
	Ack    string   `json:"ack"`
	Errors []string `json:"errors,omitempty"`
}

// Client is the marketplace boundary. Implementations perform item lookups,
// competitor searches and price/quantity revisions. All calls from the
// repricing engine go through the rate-limited gateway, never directly.
type Client interface {
	GetActiveListings(ctx context.Context) ([]Item, error)
	GetItem(ctx context.Context, itemID string) (*Item, error)
	SearchCompetitors(ctx context.Context, title, categoryID string) ([]Offer, error)
	ReviseItem(ctx context.Context, itemID, sku string, rev Revision) (*ReviseResult, error)
}
