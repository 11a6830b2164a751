// Package backend talks to the storefront API. Every request is tried
// against a prioritized list of base URLs; the first 2xx answer wins.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lemonade/internal/apperr"
	"lemonade/internal/models"

	"go.uber.org/zap"
)

const maxBodyBytes = 4 << 20

// AdminKeyHeader carries the dashboard key.
const AdminKeyHeader = "X-Admin-Key"

// LocalBaseURL is the development server every storefront falls back to.
const LocalBaseURL = "http://localhost:3000"

type Client struct {
	baseURLs   []string
	httpClient *http.Client
	logger     *zap.Logger
	adminKey   string
}

// New returns a client trying baseURLs in order. A nil httpClient gets a
// 10s timeout client.
func New(baseURLs []string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	urls := make([]string, 0, len(baseURLs))
	for _, u := range baseURLs {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u != "" {
			urls = append(urls, u)
		}
	}
	return &Client{baseURLs: urls, httpClient: httpClient, logger: logger}
}

// SetAdminKey sets the key sent with every request for the dashboard
// endpoints.
func (c *Client) SetAdminKey(key string) {
	c.adminKey = key
}

// BaseURLs returns the candidate list in priority order.
func (c *Client) BaseURLs() []string {
	out := make([]string, len(c.baseURLs))
	copy(out, c.baseURLs)
	return out
}

// Credentials is the body of signup and login.
type Credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// ListProducts accepts both a bare array and the {success, products} envelope.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	raw, err := c.fetch(ctx, http.MethodGet, "/api/products", nil)
	if err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		var products []models.Product
		if err := json.Unmarshal(trimmed, &products); err != nil {
			return nil, fmt.Errorf("decode products: %w", err)
		}
		return products, nil
	}
	var resp models.ProductsResponse
	if err := decode(raw, &resp, &resp.Envelope); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

func (c *Client) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	raw, err := c.fetch(ctx, http.MethodGet, "/api/products/"+strconv.Itoa(id), nil)
	if err != nil {
		return nil, err
	}
	var resp models.ProductResponse
	if err := decode(raw, &resp, &resp.Envelope); err != nil {
		return nil, err
	}
	if resp.Product == nil {
		return nil, errors.New("product missing from response")
	}
	return resp.Product, nil
}

// CreateOrder posts the order. The returned record is nil when the backend
// acknowledged without echoing the order.
func (c *Client) CreateOrder(ctx context.Context, req models.OrderRequest) (*models.OrderRecord, error) {
	raw, err := c.fetch(ctx, http.MethodPost, "/api/orders", req)
	if err != nil {
		return nil, err
	}
	var resp models.OrderResponse
	if err := decode(raw, &resp, &resp.Envelope); err != nil {
		return nil, err
	}
	return resp.Order, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	raw, err := c.fetch(ctx, http.MethodPut, "/api/orders/"+orderID, map[string]models.OrderStatus{"status": status})
	if err != nil {
		return err
	}
	var resp models.Envelope
	return decode(raw, &resp, &resp)
}

func (c *Client) UserOrders(ctx context.Context, userID int) ([]models.OrderRecord, error) {
	raw, err := c.fetch(ctx, http.MethodGet, "/api/user/orders/"+strconv.Itoa(userID), nil)
	if err != nil {
		return nil, err
	}
	var resp models.OrdersResponse
	if err := decode(raw, &resp, &resp.Envelope); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// SaveAddress stores addr as the user's saved address and returns the
// updated profile, if the backend sent one.
func (c *Client) SaveAddress(ctx context.Context, userID int, addr models.Address) (*models.UserProfile, error) {
	body := map[string]models.Address{"address": addr}
	raw, err := c.fetch(ctx, http.MethodPut, "/api/user/address/"+strconv.Itoa(userID), body)
	if err != nil {
		return nil, err
	}
	var resp models.UserResponse
	if err := decode(raw, &resp, &resp.Envelope); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) Signup(ctx context.Context, creds Credentials) (*models.UserProfile, error) {
	return c.authenticate(ctx, "/api/auth/signup", creds)
}

func (c *Client) Login(ctx context.Context, creds Credentials) (*models.UserProfile, error) {
	return c.authenticate(ctx, "/api/auth/login", creds)
}

func (c *Client) authenticate(ctx context.Context, path string, creds Credentials) (*models.UserProfile, error) {
	raw, err := c.fetch(ctx, http.MethodPost, path, creds)
	if err != nil {
		return nil, err
	}
	var resp models.UserResponse
	if err := decode(raw, &resp, &resp.Envelope); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, &apperr.BackendRejection{Message: "No user returned"}
	}
	return resp.User, nil
}

// AdminOrders lists every order, newest first.
func (c *Client) AdminOrders(ctx context.Context) ([]models.OrderRecord, error) {
	raw, err := c.fetch(ctx, http.MethodGet, "/api/admin/orders", nil)
	if err != nil {
		return nil, err
	}
	var resp models.OrdersResponse
	if err := decode(raw, &resp, &resp.Envelope); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

func (c *Client) Stats(ctx context.Context) (*models.DashboardStats, error) {
	raw, err := c.fetch(ctx, http.MethodGet, "/api/admin/stats", nil)
	if err != nil {
		return nil, err
	}
	var resp models.StatsResponse
	if err := decode(raw, &resp, &resp.Envelope); err != nil {
		return nil, err
	}
	return &resp.Stats, nil
}

// decode unmarshals raw into out and turns success:false into a
// BackendRejection. env must point into out.
func decode(raw []byte, out any, env *models.Envelope) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return &apperr.BackendRejection{Message: env.Message}
	}
	return nil
}

// fetch tries every base URL in order and returns the body of the first
// 2xx response. Any other outcome moves on to the next candidate; when none
// is left the attempts come back as a NetworkError. The request body is
// encoded once and replayed per attempt.
func (c *Client) fetch(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	attempts := make([]*apperr.AttemptError, 0, len(c.baseURLs))
	for _, base := range c.baseURLs {
		raw, attempt := c.try(ctx, method, base+path, payload)
		if attempt == nil {
			return raw, nil
		}
		c.logger.Warn("⚠️ endpoint failed, trying next",
			zap.String("url", attempt.URL),
			zap.Int("status", attempt.Status),
			zap.Error(attempt))
		attempts = append(attempts, attempt)

		// A cancelled caller should not walk the remaining candidates.
		if ctx.Err() != nil {
			break
		}
	}

	err := apperr.NewNetworkError(path, attempts)
	c.logger.Error("❌ all endpoints failed", zap.String("path", path), zap.Error(err))
	return nil, err
}

func (c *Client) try(ctx context.Context, method, url string, payload []byte) ([]byte, *apperr.AttemptError) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &apperr.AttemptError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.adminKey != "" {
		req.Header.Set(AdminKeyHeader, c.adminKey)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperr.AttemptError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &apperr.AttemptError{URL: url, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Keep the envelope message so it can reach the customer if every
		// candidate fails.
		var env models.Envelope
		_ = json.Unmarshal(raw, &env)
		return nil, &apperr.AttemptError{URL: url, Status: resp.StatusCode, Message: env.Message}
	}
	return raw, nil
}
