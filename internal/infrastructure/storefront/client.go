package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmespath/go-jmespath"
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
)

const (
	// maxResponseSize limits the response body size to prevent memory exhaustion
	maxResponseSize = 5 * 1024 * 1024
	userAgent       = "storesync/1.0"
)

var (
	remoteIDExpr     = jmespath.MustCompile("product.id || category.id || inventory.productId || id")
	errorMessageExpr = jmespath.MustCompile("message || error.message || error_description || details.applicationError.description || error")
)

// Client implements integration.StorefrontClient over the storefront REST
// API. It holds no credentials: every call derives its headers and timeout
// from the Settings it is given.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = l.Named("storefront") }
}

// NewClient creates a storefront client
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Transport: http.DefaultTransport},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ integration.StorefrontClient = (*Client)(nil)

// ---------------------------------------------------------------------------
// Product Operations
// ---------------------------------------------------------------------------

// CreateProduct posts a new product
func (c *Client) CreateProduct(ctx context.Context, s integration.Settings, payload *integration.ProductPayload) *integration.RemoteResult {
	return c.do(ctx, s, http.MethodPost, "/products", map[string]any{"product": payload}, http.StatusOK, http.StatusCreated)
}

// UpdateProduct patches an existing product
func (c *Client) UpdateProduct(ctx context.Context, s integration.Settings, remoteID string, payload *integration.ProductPayload) *integration.RemoteResult {
	return c.do(ctx, s, http.MethodPatch, "/products/"+url.PathEscape(remoteID), map[string]any{"product": payload}, http.StatusOK)
}

// GetProduct fetches a product
func (c *Client) GetProduct(ctx context.Context, s integration.Settings, remoteID string) *integration.RemoteResult {
	return c.do(ctx, s, http.MethodGet, "/products/"+url.PathEscape(remoteID), nil, http.StatusOK)
}

// DeleteProduct deletes a product. A product that is already gone counts as deleted.
func (c *Client) DeleteProduct(ctx context.Context, s integration.Settings, remoteID string) *integration.RemoteResult {
	res := c.do(ctx, s, http.MethodDelete, "/products/"+url.PathEscape(remoteID), nil, http.StatusOK, http.StatusNoContent, http.StatusNotFound)
	if res.Success && res.RemoteID == "" {
		res.RemoteID = remoteID
	}
	return res
}

// UpdateInventory sets the stock level of a product
func (c *Client) UpdateInventory(ctx context.Context, s integration.Settings, remoteID string, payload *integration.InventoryPayload) *integration.RemoteResult {
	res := c.do(ctx, s, http.MethodPatch, "/products/"+url.PathEscape(remoteID)+"/inventory", map[string]any{"inventory": payload}, http.StatusOK, http.StatusNoContent)
	if res.Success && res.RemoteID == "" {
		res.RemoteID = remoteID
	}
	return res
}

// ---------------------------------------------------------------------------
// Category and connection
// ---------------------------------------------------------------------------

// CreateCategory posts a new category
func (c *Client) CreateCategory(ctx context.Context, s integration.Settings, payload *integration.CategoryPayload) *integration.RemoteResult {
	return c.do(ctx, s, http.MethodPost, "/categories", map[string]any{"category": payload}, http.StatusOK, http.StatusCreated)
}

// TestConnection reads the site properties to validate the credentials
func (c *Client) TestConnection(ctx context.Context, s integration.Settings) *integration.RemoteResult {
	if !s.HasCredentials() {
		return integration.Failed(integration.FailureNone, 0, integration.ErrCredentialsIncomplete.Error(), nil)
	}
	return c.do(ctx, s, http.MethodGet, "/site-properties", nil, http.StatusOK)
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// do performs one request and converts every outcome into a RemoteResult
func (c *Client) do(ctx context.Context, s integration.Settings, method, path string, body any, okStatuses ...int) *integration.RemoteResult {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout())
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return integration.Failed(integration.FailureNone, 0, fmt.Sprintf("failed to encode request: %v", err), nil)
		}
		reader = bytes.NewReader(raw)
	}

	endpoint := strings.TrimRight(s.APIBaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return integration.Failed(integration.FailureConnection, 0, fmt.Sprintf("failed to create request: %v", err), nil)
	}
	setHeaders(req, s, body != nil)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		failure := classifyTransportError(err)
		c.logger.Warn("Storefront request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("failure", string(failure)),
			zap.Error(err),
		)
		return integration.Failed(failure, 0, err.Error(), nil)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return integration.Failed(classifyTransportError(err), resp.StatusCode, fmt.Sprintf("failed to read response: %v", err), nil)
	}

	c.logger.Debug("Storefront request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if !containsStatus(okStatuses, resp.StatusCode) {
		errData := decodeErrorBody(raw)
		return integration.Failed(integration.FailureHTTP, resp.StatusCode, errorMessage(resp, errData), errData)
	}

	data := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 && resp.StatusCode != http.StatusNotFound {
		if err := json.Unmarshal(raw, &data); err != nil {
			return integration.Failed(integration.FailureDecode, resp.StatusCode, fmt.Sprintf("failed to decode response: %v", err), string(raw))
		}
	}
	return integration.Succeeded(resp.StatusCode, extractRemoteID(data), data)
}

func setHeaders(req *http.Request, s integration.Settings, hasBody bool) {
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.SiteID != "" {
		req.Header.Set("X-Site-Id", s.SiteID)
	}
	if s.AccountID != "" {
		req.Header.Set("X-Account-Id", s.AccountID)
	}
	if s.TestMode {
		req.Header.Set("X-Test-Mode", "true")
	}
}

// classifyTransportError separates timeouts from other connection failures
func classifyTransportError(err error) integration.FailureType {
	if errors.Is(err, context.DeadlineExceeded) {
		return integration.FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return integration.FailureTimeout
	}
	return integration.FailureConnection
}

// decodeErrorBody returns the parsed JSON error body, or the raw text
func decodeErrorBody(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	var parsed any
	if err := json.Unmarshal(trimmed, &parsed); err == nil {
		return parsed
	}
	return string(trimmed)
}

func errorMessage(resp *http.Response, errData any) string {
	switch v := errData.(type) {
	case string:
		return v
	case map[string]any:
		if msg, err := errorMessageExpr.Search(v); err == nil {
			if s, ok := msg.(string); ok && s != "" {
				return s
			}
		}
	}
	return http.StatusText(resp.StatusCode)
}

func extractRemoteID(data map[string]any) string {
	v, err := remoteIDExpr.Search(data)
	if err != nil || v == nil {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return ""
	}
}

func containsStatus(statuses []int, code int) bool {
	for _, s := range statuses {
		if s == code {
			return true
		}
	}
	return false
}
