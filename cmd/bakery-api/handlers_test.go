package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RZKY888X/bakery-store/internal/auth"
	"github.com/RZKY888X/bakery-store/internal/httpx"
	"github.com/RZKY888X/bakery-store/internal/order"
	"github.com/RZKY888X/bakery-store/internal/payment"
	"github.com/RZKY888X/bakery-store/internal/product"
	"github.com/RZKY888X/bakery-store/internal/report"
)

func init() {
	gin.SetMode(gin.TestMode)
	log.SetOutput(io.Discard)
}

// stubRepo is an in-memory order.Repository with the same compare-and-swap
// behavior as the Postgres one.
type stubRepo struct {
	mu     sync.Mutex
	seq    int64
	orders map[int64]*order.Order
}

func newStubRepo() *stubRepo {
	return &stubRepo{orders: make(map[int64]*order.Order)}
}

func (r *stubRepo) seed(o order.Order) *order.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	o.ID = r.seq
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	r.orders[o.ID] = &o
	return &o
}

func (r *stubRepo) get(id int64) order.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.orders[id]
}

func (r *stubRepo) Create(_ context.Context, o *order.Order, items []order.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	o.ID = r.seq
	o.CreatedAt = time.Now()
	for i := range items {
		items[i].OrderID = o.ID
		items[i].ID = int64(i + 1)
	}
	o.Items = items
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *stubRepo) GetByID(_ context.Context, id int64) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *stubRepo) GetByExternalID(_ context.Context, externalID string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ExternalID == externalID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (r *stubRepo) ListByUser(_ context.Context, userID int64, _ int) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []order.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *stubRepo) ListRecent(_ context.Context, _ int) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []order.Order
	for _, o := range r.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (r *stubRepo) UpdateStatus(_ context.Context, id int64, from, to order.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != from {
		return order.ErrConflict
	}
	o.Status = to
	return nil
}

func (r *stubRepo) SetInvoiceRef(_ context.Context, id int64, invoiceID, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.InvoiceID = invoiceID
	o.ExternalID = externalID
	return nil
}

func (r *stubRepo) ListCreatedSince(_ context.Context, since time.Time, statuses []order.Status) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []order.Order
	for _, o := range r.orders {
		if o.CreatedAt.Before(since) {
			continue
		}
		for _, st := range statuses {
			if o.Status == st {
				out = append(out, *o)
				break
			}
		}
	}
	return out, nil
}

func (r *stubRepo) SumTotals(_ context.Context, statuses []order.Status) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, o := range r.orders {
		for _, st := range statuses {
			if o.Status == st {
				sum = sum.Add(o.TotalAmount)
				break
			}
		}
	}
	return sum, nil
}

func (r *stubRepo) CountByStatus(_ context.Context, statuses []order.Status) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.orders {
		for _, st := range statuses {
			if o.Status == st {
				n++
				break
			}
		}
	}
	return n, nil
}

var tokens = auth.NewManager("test-secret", time.Hour)

func bearerFor(t *testing.T, userID int64, role string) string {
	t.Helper()
	tok, err := tokens.Issue(userID, role)
	require.NoError(t, err)
	return "Bearer " + tok
}

func perform(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateOrderHandler(t *testing.T) {
	repo := newStubRepo()
	svc := order.NewService(repo)

	router := gin.New()
	router.POST("/api/orders", httpx.Auth(tokens), createOrderHandler(svc))

	body := gin.H{
		"items": []gin.H{
			{"productId": 1, "quantity": 2, "price": 14000},
			{"productId": 2, "quantity": 1, "price": 18000},
		},
		"totalAmount":     46000,
		"shippingAddress": "Jl. Melati 5, Bandung",
		"paymentMethod":   "XENDIT",
	}
	w := perform(router, http.MethodPost, "/api/orders", bearerFor(t, 9, "USER"), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var got order.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(9), got.UserID)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(46000)))
	assert.Len(t, got.Items, 2)
}

func TestCreateOrderHandler_Rejections(t *testing.T) {
	repo := newStubRepo()
	router := gin.New()
	router.POST("/api/orders", httpx.Auth(tokens), createOrderHandler(order.NewService(repo)))

	t.Run("no token", func(t *testing.T) {
		w := perform(router, http.MethodPost, "/api/orders", "", gin.H{})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("empty cart", func(t *testing.T) {
		w := perform(router, http.MethodPost, "/api/orders", bearerFor(t, 9, "USER"),
			gin.H{"items": []gin.H{}, "totalAmount": 0})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("declared total off by one", func(t *testing.T) {
		w := perform(router, http.MethodPost, "/api/orders", bearerFor(t, 9, "USER"), gin.H{
			"items":       []gin.H{{"productId": 1, "quantity": 1, "price": 14000}},
			"totalAmount": 13999,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	assert.Empty(t, repo.orders)
}

func TestUpdateOrderStatusHandler(t *testing.T) {
	repo := newStubRepo()
	svc := order.NewService(repo)

	router := gin.New()
	router.PUT("/api/orders/:id/status",
		httpx.Auth(tokens), httpx.AdminOnly(), updateOrderStatusHandler(svc))

	admin := bearerFor(t, 1, auth.RoleAdmin)
	pending := repo.seed(order.Order{UserID: 2, Status: order.StatusPending,
		TotalAmount: decimal.NewFromInt(46000)})
	done := repo.seed(order.Order{UserID: 2, Status: order.StatusCompleted,
		TotalAmount: decimal.NewFromInt(20000)})

	t.Run("pending to paid", func(t *testing.T) {
		w := perform(router, http.MethodPut, "/api/orders/1/status", admin, gin.H{"status": "PAID"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, order.StatusPaid, repo.get(pending.ID).Status)
	})

	t.Run("completed is terminal", func(t *testing.T) {
		w := perform(router, http.MethodPut, "/api/orders/2/status", admin, gin.H{"status": "CANCELLED"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, order.StatusCompleted, repo.get(done.ID).Status)
	})

	t.Run("unknown order", func(t *testing.T) {
		w := perform(router, http.MethodPut, "/api/orders/999/status", admin, gin.H{"status": "PAID"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown status", func(t *testing.T) {
		w := perform(router, http.MethodPut, "/api/orders/1/status", admin, gin.H{"status": "SHIPPING"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		w := perform(router, http.MethodPut, "/api/orders/1/status",
			bearerFor(t, 2, "USER"), gin.H{"status": "PAID"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestPaymentWebhookHandler(t *testing.T) {
	repo := newStubRepo()
	svc := order.NewService(repo)

	router := gin.New()
	router.POST("/api/payment/webhook", paymentWebhookHandler(svc, "cb-secret"))

	o := repo.seed(order.Order{UserID: 3, Status: order.StatusPending,
		TotalAmount: decimal.NewFromInt(46000), ExternalID: "ORDER-abc"})

	post := func(token string, payload gin.H) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		_ = json.NewEncoder(&buf).Encode(payload)
		req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", &buf)
		if token != "" {
			req.Header.Set("X-Callback-Token", token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("bad token", func(t *testing.T) {
		w := post("wrong", gin.H{"external_id": "ORDER-abc", "status": "PAID"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, order.StatusPending, repo.get(o.ID).Status)
	})

	t.Run("expired invoice is acknowledged but ignored", func(t *testing.T) {
		w := post("cb-secret", gin.H{"external_id": "ORDER-abc", "status": "EXPIRED"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, order.StatusPending, repo.get(o.ID).Status)
	})

	t.Run("paid advances to processed", func(t *testing.T) {
		w := post("cb-secret", gin.H{"external_id": "ORDER-abc", "status": "PAID"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, order.StatusProcessed, repo.get(o.ID).Status)
	})

	t.Run("redelivery is a no-op", func(t *testing.T) {
		w := post("cb-secret", gin.H{"external_id": "ORDER-abc", "status": "SETTLED"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, order.StatusProcessed, repo.get(o.ID).Status)
	})

	t.Run("unknown external id", func(t *testing.T) {
		w := post("cb-secret", gin.H{"external_id": "ORDER-nope", "status": "PAID"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// conflictedRepo loses every status compare-and-swap to an admin who
// cancels the order at the same moment.
type conflictedRepo struct {
	*stubRepo
}

func (r *conflictedRepo) UpdateStatus(_ context.Context, id int64, _, _ order.Status) error {
	r.mu.Lock()
	r.orders[id].Status = order.StatusCancelled
	r.mu.Unlock()
	return order.ErrConflict
}

func TestPaymentWebhookHandler_LostRaceIsConflict(t *testing.T) {
	repo := &conflictedRepo{stubRepo: newStubRepo()}
	svc := order.NewService(repo)

	router := gin.New()
	router.POST("/api/payment/webhook", paymentWebhookHandler(svc, "cb-secret"))

	o := repo.seed(order.Order{UserID: 3, Status: order.StatusPending,
		TotalAmount: decimal.NewFromInt(46000), ExternalID: "ORDER-raced"})

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(gin.H{"external_id": "ORDER-raced", "status": "PAID"})
	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", &buf)
	req.Header.Set("X-Callback-Token", "cb-secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, order.StatusCancelled, repo.get(o.ID).Status)
}

func testXenditServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(gin.H{"message": "server error"})
			return
		}
		_ = json.NewEncoder(w).Encode(gin.H{
			"id":          "inv-777",
			"external_id": in["external_id"],
			"invoice_url": "https://checkout.example/inv-777",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testPaymentGateway(t *testing.T, baseURL string) *payment.Gateway {
	t.Helper()
	gw, err := payment.New(payment.Config{
		BaseURL:       baseURL,
		SecretKey:     "xnd_test",
		Currency:      "IDR",
		WebSuccessURL: "http://localhost:3000/success",
		WebFailureURL: "http://localhost:3000/failed",
		MobileScheme:  "swadista",
	})
	require.NoError(t, err)
	return gw
}

func TestCheckoutHandler(t *testing.T) {
	repo := newStubRepo()
	svc := order.NewService(repo)
	gw := testPaymentGateway(t, testXenditServer(t, http.StatusOK).URL)

	router := gin.New()
	router.POST("/api/payment/invoice", httpx.Auth(tokens), checkoutHandler(svc, repo, gw))

	body := gin.H{
		"items": []gin.H{
			{"id": 1, "name": "Roti Sobek Coklat", "quantity": 2, "price": 14000},
			{"id": 2, "name": "Bolu Pandan", "quantity": 1, "price": 18000},
		},
		"total":           46000,
		"customer":        gin.H{"firstName": "Siti", "lastName": "Rahma", "phone": "+628123456789"},
		"shippingAddress": "Jl. Melati 5, Bandung",
	}
	w := perform(router, http.MethodPost, "/api/payment/invoice", bearerFor(t, 4, "USER"), body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		InvoiceURL string `json:"invoiceUrl"`
		InvoiceID  string `json:"invoiceId"`
		ExternalID string `json:"externalId"`
		OrderID    int64  `json:"orderId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "https://checkout.example/inv-777", res.InvoiceURL)
	assert.Equal(t, "inv-777", res.InvoiceID)

	stored := repo.get(res.OrderID)
	assert.Equal(t, order.StatusPending, stored.Status)
	assert.Equal(t, "inv-777", stored.InvoiceID)
	assert.Equal(t, res.ExternalID, stored.ExternalID)
}

func TestCheckoutHandler_GatewayDown(t *testing.T) {
	repo := newStubRepo()
	svc := order.NewService(repo)
	gw := testPaymentGateway(t, testXenditServer(t, http.StatusInternalServerError).URL)

	router := gin.New()
	router.POST("/api/payment/invoice", httpx.Auth(tokens), checkoutHandler(svc, repo, gw))

	body := gin.H{
		"items": []gin.H{{"id": 1, "name": "Roti Tawar", "quantity": 1, "price": 12000}},
		"total": 12000,
	}
	w := perform(router, http.MethodPost, "/api/payment/invoice", bearerFor(t, 4, "USER"), body)
	require.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())

	var res struct {
		OrderID int64 `json:"orderId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotZero(t, res.OrderID, "order id must be returned so the invoice can be retried")

	// the order survives the gateway failure, still payable
	stored := repo.get(res.OrderID)
	assert.Equal(t, order.StatusPending, stored.Status)
	assert.Empty(t, stored.InvoiceID)
}

// stubProducts serves catalog names for invoice line items.
type stubProducts struct {
	names map[int64]string
}

func (s *stubProducts) Create(context.Context, *product.Product) error { return nil }

func (s *stubProducts) GetByID(_ context.Context, id int64) (*product.Product, error) {
	name, ok := s.names[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &product.Product{ID: id, Name: name}, nil
}

func (s *stubProducts) List(context.Context) ([]product.Product, error) { return nil, nil }

func (s *stubProducts) ListFavorites(context.Context, int) ([]product.Product, error) {
	return nil, nil
}

func (s *stubProducts) Update(context.Context, *product.Product) error { return nil }

func (s *stubProducts) Delete(context.Context, int64) (bool, error) { return false, nil }

func (s *stubProducts) ListCategories(context.Context) ([]product.Category, error) {
	return nil, nil
}

func (s *stubProducts) CreateCategory(_ context.Context, name string) (*product.Category, error) {
	return &product.Category{Name: name}, nil
}

func (s *stubProducts) DeleteCategory(context.Context, int64) (bool, error) { return false, nil }

func TestRetryInvoiceHandler_ReusesExternalID(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(gin.H{
			"id":          "inv-2",
			"external_id": captured["external_id"],
			"invoice_url": "https://checkout.example/inv-2",
		})
	}))
	t.Cleanup(srv.Close)

	repo := newStubRepo()
	products := &stubProducts{names: map[int64]string{1: "Roti Sobek Coklat"}}
	gw := testPaymentGateway(t, srv.URL)

	// the first invoice for this order was issued and its ref persisted
	o := repo.seed(order.Order{
		UserID:      4,
		Status:      order.StatusPending,
		TotalAmount: decimal.NewFromInt(14000),
		InvoiceID:   "inv-1",
		ExternalID:  "ORDER-first",
		Items: []order.Item{
			{ID: 1, ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(14000)},
		},
	})

	router := gin.New()
	router.POST("/api/orders/:id/invoice",
		httpx.Auth(tokens), retryInvoiceHandler(repo, products, gw))

	w := perform(router, http.MethodPost, "/api/orders/1/invoice", bearerFor(t, 4, "USER"), gin.H{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the webhook for the first invoice must still match this order
	assert.Equal(t, "ORDER-first", captured["external_id"])
	items, ok := captured["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "Roti Sobek Coklat", items[0].(map[string]any)["name"])

	stored := repo.get(o.ID)
	assert.Equal(t, "ORDER-first", stored.ExternalID)
	assert.Equal(t, "inv-2", stored.InvoiceID)
}

func TestRetryInvoiceHandler_MintsExternalIDWhenMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(gin.H{
			"id": "inv-3", "external_id": in["external_id"], "invoice_url": "u",
		})
	}))
	t.Cleanup(srv.Close)

	repo := newStubRepo()
	gw := testPaymentGateway(t, srv.URL)

	// order committed but the first gateway call never succeeded
	o := repo.seed(order.Order{UserID: 4, Status: order.StatusPending,
		TotalAmount: decimal.NewFromInt(14000)})

	router := gin.New()
	router.POST("/api/orders/:id/invoice",
		httpx.Auth(tokens), retryInvoiceHandler(repo, &stubProducts{}, gw))

	w := perform(router, http.MethodPost, "/api/orders/1/invoice", bearerFor(t, 4, "USER"), gin.H{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored := repo.get(o.ID)
	assert.True(t, strings.HasPrefix(stored.ExternalID, "ORDER-"), "externalId=%s", stored.ExternalID)
	assert.Equal(t, "inv-3", stored.InvoiceID)
}

func TestRetryInvoiceHandler_NotPending(t *testing.T) {
	repo := newStubRepo()
	gw := testPaymentGateway(t, "http://127.0.0.1:0")

	repo.seed(order.Order{UserID: 4, Status: order.StatusProcessed,
		TotalAmount: decimal.NewFromInt(14000), ExternalID: "ORDER-paid"})

	router := gin.New()
	router.POST("/api/orders/:id/invoice",
		httpx.Auth(tokens), retryInvoiceHandler(repo, &stubProducts{}, gw))

	w := perform(router, http.MethodPost, "/api/orders/1/invoice", bearerFor(t, 4, "USER"), gin.H{})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSalesReportHandler(t *testing.T) {
	repo := newStubRepo()
	now := time.Now()
	repo.seed(order.Order{UserID: 1, Status: order.StatusPaid,
		TotalAmount: decimal.NewFromInt(30000), CreatedAt: now})
	repo.seed(order.Order{UserID: 1, Status: order.StatusPending,
		TotalAmount: decimal.NewFromInt(99999), CreatedAt: now})

	router := gin.New()
	router.GET("/api/orders/report",
		httpx.Auth(tokens), httpx.AdminOnly(), salesReportHandler(report.NewService(repo)))

	w := perform(router, http.MethodGet, "/api/orders/report?range=weekly",
		bearerFor(t, 1, auth.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		SalesData []report.Bucket `json:"salesData"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.SalesData, 1, "pending orders must not count as revenue")
	assert.True(t, res.SalesData[0].Sales.Equal(decimal.NewFromInt(30000)))
}
