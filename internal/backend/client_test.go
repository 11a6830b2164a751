package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"lemonade/internal/apperr"
	"lemonade/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// closedURL is a base URL nothing listens on.
func closedURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestFetch_FallsBackToSecondary(t *testing.T) {
	var primaryHits int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&primaryHits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer primary.Close()
	secondary := httptest.NewServer(jsonHandler(http.StatusOK,
		`{"success":true,"products":[{"id":1,"name":"Classic","price":120,"category":"drinks","stock":5,"status":"active"}]}`))
	defer secondary.Close()

	c := New([]string{primary.URL, secondary.URL}, nil, nil)
	products, err := c.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Classic", products[0].Name)
	assert.True(t, products[0].Price.Equal(decimal.NewFromInt(120)))
	assert.EqualValues(t, 1, atomic.LoadInt32(&primaryHits))
}

func TestFetch_UnreachablePrimary(t *testing.T) {
	secondary := httptest.NewServer(jsonHandler(http.StatusOK, `[{"id":2,"name":"Mint","price":90}]`))
	defer secondary.Close()

	c := New([]string{closedURL(t), secondary.URL}, nil, nil)
	products, err := c.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 2, products[0].ID)
}

func TestFetch_PrimaryWinsWhenHealthy(t *testing.T) {
	var secondaryHits int32
	primary := httptest.NewServer(jsonHandler(http.StatusOK, `{"success":true,"products":[]}`))
	defer primary.Close()
	secondary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&secondaryHits, 1)
	}))
	defer secondary.Close()

	c := New([]string{primary.URL, secondary.URL}, nil, nil)
	_, err := c.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, atomic.LoadInt32(&secondaryHits))
}

func TestFetch_AllFailAggregates(t *testing.T) {
	primary := httptest.NewServer(jsonHandler(http.StatusInternalServerError, `{"success":false,"message":"db down"}`))
	defer primary.Close()
	dead := closedURL(t)

	c := New([]string{primary.URL, dead}, nil, nil)
	_, err := c.UserOrders(context.Background(), 7)
	require.Error(t, err)

	var nerr *apperr.NetworkError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, "/api/user/orders/7", nerr.Path)
	require.Len(t, nerr.Attempts, 2)
	assert.Equal(t, http.StatusInternalServerError, nerr.Attempts[0].Status)
	assert.Equal(t, "db down", nerr.Attempts[0].Message)
	assert.Error(t, nerr.Attempts[1].Err)
	assert.Equal(t, "db down", nerr.ServerMessage())
	assert.Contains(t, err.Error(), "failed to fetch /api/user/orders/7 from all available endpoints")
}

func TestFetch_NoCandidates(t *testing.T) {
	c := New(nil, nil, nil)
	_, err := c.ListProducts(context.Background())
	var nerr *apperr.NetworkError
	require.True(t, errors.As(err, &nerr))
	assert.Empty(t, nerr.Attempts)
	assert.Equal(t, "failed to fetch /api/products: no endpoints configured", err.Error())
}

func TestCreateOrder_RejectionDoesNotFallBack(t *testing.T) {
	var secondaryHits int32
	primary := httptest.NewServer(jsonHandler(http.StatusOK, `{"success":false,"message":"X"}`))
	defer primary.Close()
	secondary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&secondaryHits, 1)
	}))
	defer secondary.Close()

	c := New([]string{primary.URL, secondary.URL}, nil, nil)
	_, err := c.CreateOrder(context.Background(), models.OrderRequest{})

	var rej *apperr.BackendRejection
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, "X", rej.Message)
	assert.Zero(t, atomic.LoadInt32(&secondaryHits))
}

func TestCreateOrder_ClientErrorFallsBack(t *testing.T) {
	var secondaryHits int32
	primary := httptest.NewServer(jsonHandler(http.StatusBadRequest, `{"success":false,"message":"stale deploy rejects"}`))
	defer primary.Close()
	secondary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&secondaryHits, 1)
		jsonHandler(http.StatusCreated, `{"success":true,"order":{"id":"o-1","orderNumber":"LMN-0A1B2C3D"}}`)(w, r)
	}))
	defer secondary.Close()

	c := New([]string{primary.URL, secondary.URL}, nil, nil)
	rec, err := c.CreateOrder(context.Background(), models.OrderRequest{})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "LMN-0A1B2C3D", rec.OrderNumber)
	assert.EqualValues(t, 1, atomic.LoadInt32(&secondaryHits))
}

func TestLogin_ClientErrorOnEveryCandidate(t *testing.T) {
	primary := httptest.NewServer(jsonHandler(http.StatusUnauthorized, `{"success":false,"message":"Invalid credentials"}`))
	defer primary.Close()
	secondary := httptest.NewServer(jsonHandler(http.StatusUnauthorized, `{"success":false,"message":"Invalid credentials"}`))
	defer secondary.Close()

	c := New([]string{primary.URL, secondary.URL}, nil, nil)
	_, err := c.Login(context.Background(), Credentials{Email: "a@b.c", Password: "nope"})

	var nerr *apperr.NetworkError
	require.True(t, errors.As(err, &nerr))
	assert.Len(t, nerr.Attempts, 2)
	assert.Equal(t, "Invalid credentials", nerr.ServerMessage())
	assert.Equal(t, "❌ Network error: Invalid credentials", apperr.UserMessage(err))
}

func TestFetch_NonSuccessStatusFallsBack(t *testing.T) {
	for _, status := range []int{
		http.StatusBadRequest,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusTooManyRequests,
		http.StatusServiceUnavailable,
	} {
		primary := httptest.NewServer(jsonHandler(status, `{"success":false,"message":"nope"}`))
		secondary := httptest.NewServer(jsonHandler(http.StatusOK, `{"success":true,"products":[{"id":1,"name":"Lemonade","price":100}]}`))

		c := New([]string{primary.URL, secondary.URL}, nil, nil)
		products, err := c.ListProducts(context.Background())
		require.NoError(t, err, status)
		assert.Len(t, products, 1, status)

		primary.Close()
		secondary.Close()
	}
}

func TestCreateOrder_SendsBodyToEveryCandidate(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []models.OrderRequest
	)
	record := func(r *http.Request) models.OrderRequest {
		var req models.OrderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/orders", r.URL.Path)
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()
		return req
	}
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer primary.Close()
	secondary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := record(r)
		_ = json.NewEncoder(w).Encode(models.OrderResponse{
			Envelope: models.Envelope{Success: true},
			Order: &models.OrderRecord{
				ID: "ord-1", OrderNumber: "LMN-0001", Items: req.Items, Total: req.Total,
				PaymentMethod: req.PaymentMethod, Status: models.StatusPending,
			},
		})
	}))
	defer secondary.Close()

	req := models.OrderRequest{
		CustomerName:  "Wanjiru",
		CustomerPhone: "0712345678",
		Items:         []models.CartLine{{ProductID: 1, Name: "Classic", UnitPrice: decimal.NewFromInt(100), Quantity: 2}},
		Total:         decimal.NewFromInt(200),
		PaymentMethod: models.PaymentMpesa,
		PaymentStatus: "pending",
		Status:        models.StatusPending,
	}
	c := New([]string{primary.URL, secondary.URL}, nil, nil)
	order, err := c.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "LMN-0001", order.OrderNumber)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	for _, got := range seen {
		assert.Equal(t, "Wanjiru", got.CustomerName)
		require.Len(t, got.Items, 1)
		assert.Equal(t, 2, got.Items[0].Quantity)
		assert.True(t, got.Total.Equal(decimal.NewFromInt(200)))
	}
}

func TestSaveAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/user/address/4", r.URL.Path)
		var body struct {
			Address models.Address `json:"address"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(models.UserResponse{
			Envelope: models.Envelope{Success: true},
			User:     &models.UserProfile{ID: 4, Name: "Otieno", Address: &body.Address},
		})
	}))
	defer srv.Close()

	c := New([]string{srv.URL + "/"}, nil, nil)
	user, err := c.SaveAddress(context.Background(), 4, models.NewAddress("Moi Ave", "", "Nairobi"))
	require.NoError(t, err)
	require.NotNil(t, user.Address)
	assert.Equal(t, "Moi Ave, Nairobi", user.Address.FullAddress)
}

func TestLogin_MissingUserIsRejection(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(http.StatusOK, `{"success":true}`))
	defer srv.Close()

	c := New([]string{srv.URL}, nil, nil)
	_, err := c.Login(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})
	var rej *apperr.BackendRejection
	assert.True(t, errors.As(err, &rej))
}

func TestUpdateOrderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders/ord-9", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "completed", body["status"])
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := New([]string{srv.URL}, nil, nil)
	require.NoError(t, c.UpdateOrderStatus(context.Background(), "ord-9", models.StatusCompleted))
}

func TestNew_TrimsCandidates(t *testing.T) {
	c := New([]string{" https://shop.example.com/ ", "", LocalBaseURL}, nil, nil)
	assert.Equal(t, []string{"https://shop.example.com", LocalBaseURL}, c.BaseURLs())
}
