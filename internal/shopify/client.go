// Package shopify is a narrow client for the Shopify Admin REST API,
// covering only the calls the support backend needs: looking up a
// customer by email and attaching a note to the order that triggered a
// grading request.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	apiVersion  = "2024-10"
	httpTimeout = 10 * time.Second
)

// ErrDisabled is returned when the client has no access token configured.
var ErrDisabled = errors.New("shopify: integration not configured")

// ErrNotFound is returned when a customer or order does not exist.
var ErrNotFound = errors.New("shopify: resource not found")

// Customer is the subset of Shopify customer fields the backend reads.
type Customer struct {
	ID          uint64 `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	OrdersCount int    `json:"orders_count"`
	TotalSpent  string `json:"total_spent"`
}

// Client talks to a single Shopify shop.
type Client struct {
	shopDomain  string
	accessToken string
	httpClient  *http.Client
}

// NewClient builds a Client for the given shop domain, for example
// "example.myshopify.com". An empty token yields a disabled client.
func NewClient(shopDomain, accessToken string) *Client {
	return &Client{
		shopDomain:  shopDomain,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: httpTimeout},
	}
}

// Enabled reports whether an access token is configured.
func (cl *Client) Enabled() bool {
	return cl != nil && cl.accessToken != "" && cl.shopDomain != ""
}

func (cl *Client) endpoint(p string, query url.Values) string {
	u := url.URL{
		Scheme:   "https",
		Host:     cl.shopDomain,
		Path:     fmt.Sprintf("/admin/api/%s%s", apiVersion, p),
		RawQuery: query.Encode(),
	}
	return u.String()
}

func (cl *Client) do(ctx context.Context, method, rawURL string, payload any, out any) (err error) {
	if !cl.Enabled() {
		return ErrDisabled
	}

	var body *bytes.Reader
	if payload != nil {
		raw, errEncode := json.Marshal(payload)
		if errEncode != nil {
			return fmt.Errorf("shopify: encode request: %w", errEncode)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, errReq := http.NewRequestWithContext(ctx, method, rawURL, body)
	if errReq != nil {
		return fmt.Errorf("shopify: create request: %w", errReq)
	}
	req.Header.Set("X-Shopify-Access-Token", cl.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, errDo := cl.httpClient.Do(req)
	if errDo != nil {
		return fmt.Errorf("shopify: %s %s: %w", method, rawURL, errDo)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			if err == nil {
				err = fmt.Errorf("shopify: close response body: %w", errClose)
			}
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("shopify: API returned status %d", resp.StatusCode)
	}

	if out != nil {
		if errDecode := json.NewDecoder(resp.Body).Decode(out); errDecode != nil {
			return fmt.Errorf("shopify: decode response: %w", errDecode)
		}
	}
	return nil
}

// CustomerByEmail looks up a customer record by exact email match.
func (cl *Client) CustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	query := url.Values{}
	query.Set("email", email)

	var wrapper struct {
		Customers []Customer `json:"customers"`
	}
	if err := cl.do(ctx, http.MethodGet, cl.endpoint("/customers/search.json", query), nil, &wrapper); err != nil {
		return nil, err
	}
	if len(wrapper.Customers) == 0 {
		return nil, ErrNotFound
	}
	return &wrapper.Customers[0], nil
}

// AppendOrderNote sets the note field on an order, used to mirror
// grading progress back onto the originating Shopify order.
func (cl *Client) AppendOrderNote(ctx context.Context, orderID uint64, note string) error {
	payload := map[string]any{
		"order": map[string]any{
			"id":   orderID,
			"note": note,
		},
	}
	rawURL := cl.endpoint(fmt.Sprintf("/orders/%d.json", orderID), nil)
	return cl.do(ctx, http.MethodPut, rawURL, payload, nil)
}
