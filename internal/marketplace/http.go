package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPClient talks to a live marketplace REST endpoint. Expected routes:
//
//	GET  {base}/listings/active                    -> []Item
//	GET  {base}/items/{item_id}                    -> Item
//	GET  {base}/competitors?title=&category_id=    -> []Offer
//	POST {base}/items/{item_id}/revise             -> ReviseResult
//
// Responses are classified by status: 429 is a rate limit, 404 is not found,
// any other non-2xx is transient. The gateway owns pacing and retries; this
// client performs exactly one request per call.
type HTTPClient struct {
	baseURL   string
	authToken string
	client    *http.Client
}

// NewHTTPClient creates a client for the configured marketplace endpoint.
func NewHTTPClient(endpoint, authToken string) *HTTPClient {
	return &HTTPClient{
		baseURL:   strings.TrimRight(endpoint, "/"),
		authToken: authToken,
		client:    &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *HTTPClient) GetActiveListings(ctx context.Context) ([]Item, error) {
	var items []Item
	if err := c.do(ctx, http.MethodGet, "/listings/active", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *HTTPClient) GetItem(ctx context.Context, itemID string) (*Item, error) {
	var item Item
	if err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(itemID), nil, nil, &item); err != nil {
		return nil, tagItem(err, itemID)
	}
	if item.ItemID == "" {
		item.ItemID = itemID
	}
	return &item, nil
}

func (c *HTTPClient) SearchCompetitors(ctx context.Context, title, categoryID string) ([]Offer, error) {
	query := url.Values{}
	query.Set("title", title)
	if categoryID != "" {
		query.Set("category_id", categoryID)
	}

	var offers []Offer
	if err := c.do(ctx, http.MethodGet, "/competitors", query, nil, &offers); err != nil {
		return nil, err
	}
	return offers, nil
}

type revisionPayload struct {
	SKU         string           `json:"sku,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Quantity    *int             `json:"quantity,omitempty"`
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
}

func (c *HTTPClient) ReviseItem(ctx context.Context, itemID, sku string, rev Revision) (*ReviseResult, error) {
	payload := revisionPayload{
		SKU:         sku,
		Price:       rev.Price,
		Quantity:    rev.Quantity,
		Title:       rev.Title,
		Description: rev.Description,
	}

	var res ReviseResult
	path := "/items/" + url.PathEscape(itemID) + "/revise"
	if err := c.do(ctx, http.MethodPost, path, nil, payload, &res); err != nil {
		return nil, tagItem(err, itemID)
	}
	return &res, nil
}

// do performs one request and decodes the response into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &APIError{Kind: KindTransient, Msg: "request marshal: " + err.Error()}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return &APIError{Kind: KindTransient, Msg: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &APIError{Kind: KindTransient, Msg: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &APIError{Kind: KindRateLimited, Msg: fmt.Sprintf("http %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusNotFound:
		return &APIError{Kind: KindNotFound, Msg: fmt.Sprintf("http %d", resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &APIError{Kind: KindTransient, Msg: fmt.Sprintf("http %d: %s", resp.StatusCode, truncate(raw))}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &APIError{Kind: KindTransient, Msg: "malformed response: " + err.Error()}
		}
	}
	return nil
}

func tagItem(err error, itemID string) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.ItemID == "" {
		apiErr.ItemID = itemID
	}
	return err
}

func truncate(raw []byte) string {
	const max = 200
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
