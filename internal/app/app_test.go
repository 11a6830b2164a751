package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"lemonade/internal/apperr"
	"lemonade/internal/backend"
	"lemonade/internal/checkout"
	"lemonade/internal/models"
	"lemonade/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu     sync.Mutex
	orders []models.OrderRequest
}

func (f *fakeBackend) received() []models.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OrderRequest(nil), f.orders...)
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		write(w, models.ProductsResponse{
			Envelope: models.Envelope{Success: true},
			Products: []models.Product{
				{ID: 1, Name: "Classic", Price: decimal.NewFromInt(100), Stock: 20},
				{ID: 2, Name: "Mint", Price: decimal.NewFromInt(50), Stock: 3},
				{ID: 9, Name: "Sold out", Price: decimal.NewFromInt(80)},
			},
		})
	})
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds backend.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "pw" {
			write(w, models.UserResponse{Envelope: models.Envelope{Message: "Invalid credentials"}})
			return
		}
		write(w, models.UserResponse{
			Envelope: models.Envelope{Success: true},
			User:     &models.UserProfile{ID: 7, Name: "Wanjiru", Email: creds.Email, Phone: "0700000000"},
		})
	})
	mux.HandleFunc("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		var req models.OrderRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.orders = append(f.orders, req)
		f.mu.Unlock()
		write(w, models.OrderResponse{
			Envelope: models.Envelope{Success: true},
			Order: &models.OrderRecord{
				ID: "ord-1", OrderNumber: "LMN-00AA11", Items: req.Items, Total: req.Total,
				PaymentMethod: req.PaymentMethod, Status: models.StatusPending,
			},
		})
	})
	mux.HandleFunc("/api/user/orders/7", func(w http.ResponseWriter, r *http.Request) {
		write(w, models.OrdersResponse{
			Envelope: models.Envelope{Success: true},
			Orders:   []models.OrderRecord{{ID: "ord-1", OrderNumber: "LMN-00AA11", Status: models.StatusPending, Total: decimal.NewFromInt(250)}},
		})
	})
	return mux
}

func newTestApp(t *testing.T, urls []string, shell *Shell) *App {
	t.Helper()
	var prompter checkout.AddressPrompter
	if shell != nil {
		prompter = shell
	}
	a, err := Assemble(context.Background(), storage.NewMemoryStore(), backend.New(urls, nil, nil), nil, prompter)
	require.NoError(t, err)
	return a
}

func TestShell_CashCheckoutEndToEnd(t *testing.T) {
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	input := strings.Join([]string{
		"login wanjiru@example.com pw",
		"products",
		"add 1 2",
		"add 2",
		"checkout cash",
		"Moi Avenue", "Hilton", "Nairobi", "",
		"y",
		"n",
		"cart",
		"orders",
		"notifications",
		"quit",
	}, "\n")
	var out bytes.Buffer
	shell := NewShell(strings.NewReader(input), &out)
	a := newTestApp(t, []string{srv.URL}, shell)

	require.NoError(t, shell.Run(context.Background(), a))

	text := out.String()
	assert.Contains(t, text, "Welcome back, Wanjiru!")
	assert.Contains(t, text, "Classic added to cart! (2 items)")
	assert.Contains(t, text, "Mint added to cart! (3 items)")
	assert.Contains(t, text, "Order #LMN-00AA11 Confirmed")
	assert.Contains(t, text, "Your CASH order with 3 items is being prepared")
	assert.Contains(t, text, "Delivery to: Moi Avenue (Near Hilton), Nairobi")
	assert.Contains(t, text, "Your cart is empty!")

	sent := fb.received()
	require.Len(t, sent, 1)
	assert.True(t, sent[0].Total.Equal(decimal.NewFromInt(250)))
	assert.True(t, a.Cart.IsEmpty())

	p, ok := a.Accounts.Current()
	require.True(t, ok)
	assert.Equal(t, 1, p.OrderCount)
	assert.Nil(t, p.Address)
}

func TestShell_MpesaCancel(t *testing.T) {
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	input := strings.Join([]string{
		"login wanjiru@example.com pw",
		"add 1",
		"checkout mpesa 0712 345 678",
		"Moi Avenue", "", "Nairobi", "",
		"y",
		"n",
	}, "\n")
	var out bytes.Buffer
	shell := NewShell(strings.NewReader(input), &out)
	a := newTestApp(t, []string{srv.URL}, shell)

	require.NoError(t, shell.Run(context.Background(), a))
	assert.Contains(t, out.String(), "Pay KES 100.00 via M-Pesa from 0712345678?")
	assert.Contains(t, out.String(), "Payment cancelled")
	assert.Empty(t, fb.received())
	assert.Equal(t, 1, a.Cart.ItemCount())
}

func TestShell_ErrorsAreRendered(t *testing.T) {
	input := strings.Join([]string{
		"checkout cash",
		"", "", "", "",
		"y",
		"bogus",
		"add x",
	}, "\n")
	var out bytes.Buffer
	shell := NewShell(strings.NewReader(input), &out)
	a := newTestApp(t, []string{"http://127.0.0.1:1"}, shell)

	require.NoError(t, shell.Run(context.Background(), a))
	text := out.String()
	assert.Contains(t, text, "Your cart is empty!")
	assert.Contains(t, text, `Unknown command "bogus"`)
	assert.Contains(t, text, "Product id must be a number")
}

func TestAddToCart_OutOfStock(t *testing.T) {
	srv := httptest.NewServer((&fakeBackend{}).handler())
	defer srv.Close()

	a := newTestApp(t, []string{srv.URL}, nil)
	_, err := a.AddToCart(context.Background(), 9, 5)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, "Sold out is out of stock", apperr.UserMessage(err))
	assert.Empty(t, a.Cart.Lines())
	assert.Zero(t, a.Cart.ItemCount())

	_, err = a.AddToCart(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Cart.ItemCount())
}

func TestLoginRejected(t *testing.T) {
	srv := httptest.NewServer((&fakeBackend{}).handler())
	defer srv.Close()

	a := newTestApp(t, []string{srv.URL}, nil)
	_, err := a.Login(context.Background(), backend.Credentials{Email: "x@y.z", Password: "nope"})
	require.Error(t, err)
	assert.False(t, a.Accounts.Authenticated())
}

func TestHistoryRequiresUser(t *testing.T) {
	a := newTestApp(t, nil, nil)
	orders, err := a.History(context.Background())
	assert.Error(t, err)
	assert.Empty(t, orders)
}
