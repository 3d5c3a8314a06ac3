// Package shiphero talks to the ShipHero public API: the GraphQL endpoint
// for product updates and the auth endpoint for refresh-token exchange.
package shiphero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JonMunkholm/casesync/internal/core"
)

const (
	DefaultAPIURL  = "https://public-api.shiphero.com/graphql"
	DefaultAuthURL = "https://public-api.shiphero.com/auth/refresh"
	DefaultTimeout = 30 * time.Second
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 64 << 10

const productUpdateMutation = `mutation product_update($data: UpdateProductInput!) {
  product_update(data: $data) {
    request_id
    complexity
    product {
      sku
      name
    }
  }
}`

// Client is a ShipHero API client. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	apiURL  string
	authURL string
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithAPIURL overrides the GraphQL endpoint.
func WithAPIURL(u string) Option {
	return func(c *Client) { c.apiURL = u }
}

// WithAuthURL overrides the refresh endpoint.
func WithAuthURL(u string) Option {
	return func(c *Client) { c.authURL = u }
}

// WithTimeout sets the per-request timeout. A client passed to
// WithHTTPClient is copied first and never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		apiURL:  DefaultAPIURL,
		authURL: DefaultAuthURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 && c.http.Timeout != c.timeout {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// HTTPError is a non-2xx response from the GraphQL endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %d - %s", e.StatusCode, e.Body)
}

// GraphQLError is an application-level failure reported in a 2xx response.
type GraphQLError struct {
	Message   string
	Code      string
	Operation string
	Field     string
	Count     int // total errors in the response
}

func (e *GraphQLError) Error() string {
	if e.Message == "" {
		return "GraphQL error"
	}
	return e.Message
}

type graphQLRequest struct {
	Query     string `json:"query"`
	Variables any    `json:"variables"`
}

type productCase struct {
	CaseBarcode  string `json:"case_barcode"`
	CaseQuantity int    `json:"case_quantity"`
}

type productUpdateData struct {
	SKU   string        `json:"sku"`
	Cases []productCase `json:"cases"`
}

type graphQLErrorItem struct {
	Message   string `json:"message"`
	Code      any    `json:"code"`
	Operation string `json:"operation"`
	Field     string `json:"field"`
}

type graphQLResponse struct {
	Data json.RawMessage `json:"data"`
	// Errors is nil when the field is absent or null. A present but empty
	// list still fails the update.
	Errors *[]graphQLErrorItem `json:"errors"`
}

// UpdateProductCases replaces the case definition of one product.
// The account id in cred is not sent; the token already scopes the account.
func (c *Client) UpdateProductCases(ctx context.Context, cred core.Credential, p core.ValidatedProduct) error {
	payload, err := json.Marshal(graphQLRequest{
		Query: productUpdateMutation,
		Variables: map[string]productUpdateData{
			"data": {
				SKU:   p.SKU,
				Cases: []productCase{{CaseBarcode: p.CaseBarcode, CaseQuantity: p.CaseQuantity}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if out.Errors == nil {
		return nil
	}
	errs := *out.Errors
	if len(errs) == 0 {
		return &GraphQLError{}
	}
	first := errs[0]
	return &GraphQLError{
		Message:   first.Message,
		Code:      codeString(first.Code),
		Operation: first.Operation,
		Field:     first.Field,
		Count:     len(errs),
	}
}

// codeString renders ShipHero's error code, which is a number or a string.
func codeString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return fmt.Sprintf("%g", c)
	default:
		return fmt.Sprint(c)
	}
}
