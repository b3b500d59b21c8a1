package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/abgdnv/gocrm/internal/service"
	"github.com/abgdnv/gocrm/internal/store"
	"github.com/abgdnv/gocrm/pkg/server"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRouter wires the full HTTP stack over the in-memory store.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewService(store.NewInMemoryStore(), logger)
	mux := server.NewChiRouter(logger)
	NewHandler(svc, logger).RegisterRoutes(mux)
	return mux
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doRaw(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func createCustomer(t *testing.T, router http.Handler, name, email string) service.CustomerDto {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/customers/", map[string]string{"name": name, "email": email})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[service.CustomerResult](t, rec)
	require.True(t, result.Success, "customer creation failed: %v", result.Errors)
	return *result.Customer
}

func createProduct(t *testing.T, router http.Handler, name, price string) service.ProductDto {
	t.Helper()
	rec := doRaw(t, router, http.MethodPost, "/api/v1/products/",
		fmt.Sprintf(`{"name": %q, "price": %s}`, name, price))
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[service.ProductResult](t, rec)
	require.True(t, result.Success, "product creation failed: %v", result.Errors)
	return *result.Product
}

func Test_CreateCustomer_Endpoint(t *testing.T) {
	t.Run("Success envelope", func(t *testing.T) {
		// given
		router := newTestRouter(t)
		// when
		rec := doJSON(t, router, http.MethodPost, "/api/v1/customers/",
			map[string]string{"name": "Alice", "email": "alice@example.com", "phone": "+1234567890"})
		// then
		require.Equal(t, http.StatusOK, rec.Code)
		result := decodeBody[service.CustomerResult](t, rec)
		assert.True(t, result.Success)
		assert.Equal(t, "Customer created successfully", result.Message)
		require.NotNil(t, result.Customer)
		assert.Equal(t, "Alice", result.Customer.Name)
	})

	t.Run("Validation failure still answers 200", func(t *testing.T) {
		// given
		router := newTestRouter(t)
		// when
		rec := doJSON(t, router, http.MethodPost, "/api/v1/customers/", map[string]string{"name": "Alice"})
		// then
		require.Equal(t, http.StatusOK, rec.Code)
		result := decodeBody[service.CustomerResult](t, rec)
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Errors)
	})

	t.Run("Malformed JSON answers 400", func(t *testing.T) {
		// given
		router := newTestRouter(t)
		// when
		rec := doRaw(t, router, http.MethodPost, "/api/v1/customers/", "{not json")
		// then
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody[map[string]string](t, rec)
		assert.Equal(t, "Invalid request body", body["error"])
	})
}

func Test_BulkCreateCustomers_Endpoint(t *testing.T) {
	// given
	router := newTestRouter(t)
	createCustomer(t, router, "Alice", "alice@example.com")
	inputs := []map[string]string{
		{"name": "Bob", "email": "bob@example.com"},
		{"name": "Mallory", "email": "alice@example.com"},
	}
	// when
	rec := doJSON(t, router, http.MethodPost, "/api/v1/customers/bulk", inputs)
	// then
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[service.BulkCustomerResult](t, rec)
	assert.True(t, result.Success)
	require.Len(t, result.Customers, 1)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Customer 2: Email already exists", result.Errors[0])
}

func Test_CustomerByID_Endpoint(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		// given
		router := newTestRouter(t)
		created := createCustomer(t, router, "Alice", "alice@example.com")
		// when
		rec := doJSON(t, router, http.MethodGet, "/api/v1/customers/"+created.ID.String(), nil)
		// then
		require.Equal(t, http.StatusOK, rec.Code)
		found := decodeBody[service.CustomerDto](t, rec)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("Not found", func(t *testing.T) {
		// given
		router := newTestRouter(t)
		// when
		rec := doJSON(t, router, http.MethodGet, "/api/v1/customers/"+uuid.NewString(), nil)
		// then
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Invalid id", func(t *testing.T) {
		// given
		router := newTestRouter(t)
		// when
		rec := doJSON(t, router, http.MethodGet, "/api/v1/customers/not-a-uuid", nil)
		// then
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_CreateOrder_Endpoint(t *testing.T) {
	// given
	router := newTestRouter(t)
	customer := createCustomer(t, router, "Alice", "alice@example.com")
	p1 := createProduct(t, router, "Widget", "10.00")
	p2 := createProduct(t, router, "Gadget", "5.00")
	// when: p1 referenced twice
	rec := doJSON(t, router, http.MethodPost, "/api/v1/orders/", map[string]any{
		"customer_id": customer.ID,
		"product_ids": []uuid.UUID{p1.ID, p1.ID, p2.ID},
	})
	// then
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[service.OrderResult](t, rec)
	require.True(t, result.Success, "order creation failed: %v", result.Errors)
	assert.Equal(t, "15", result.Order.TotalAmount.String())
	assert.Len(t, result.Order.ProductIDs, 2)
}

func Test_RestockLowStock_Endpoint(t *testing.T) {
	// given
	router := newTestRouter(t)
	rec := doRaw(t, router, http.MethodPost, "/api/v1/products/",
		`{"name": "Widget", "price": 10.00, "stock": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	// when
	rec = doJSON(t, router, http.MethodPost, "/api/v1/products/restock", nil)
	// then
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[service.RestockResult](t, rec)
	assert.True(t, result.Success)
	assert.Equal(t, "Low stock update successful", result.Message)
	require.Len(t, result.UpdatedProducts, 1)
	assert.Equal(t, int32(12), result.UpdatedProducts[0].Stock)
}

func Test_OrdersSince_Endpoint(t *testing.T) {
	t.Run("Window filter", func(t *testing.T) {
		// given
		router := newTestRouter(t)
		customer := createCustomer(t, router, "Alice", "alice@example.com")
		p1 := createProduct(t, router, "Widget", "10.00")
		recent := time.Now().Add(-24 * time.Hour)
		old := time.Now().Add(-10 * 24 * time.Hour)
		for _, orderDate := range []time.Time{recent, old} {
			rec := doJSON(t, router, http.MethodPost, "/api/v1/orders/", map[string]any{
				"customer_id": customer.ID,
				"product_ids": []uuid.UUID{p1.ID},
				"order_date":  orderDate.Format(time.RFC3339),
			})
			require.Equal(t, http.StatusOK, rec.Code)
			require.True(t, decodeBody[service.OrderResult](t, rec).Success)
		}
		since := time.Now().Add(-7 * 24 * time.Hour).Format(time.RFC3339)
		// when
		rec := doJSON(t, router, http.MethodGet, "/api/v1/orders/?since="+url.QueryEscape(since), nil)
		// then
		require.Equal(t, http.StatusOK, rec.Code)
		list := decodeBody[[]service.OrderSummaryDto](t, rec)
		require.Len(t, list, 1)
		assert.Equal(t, "Alice", list[0].CustomerName)
	})

	t.Run("Missing since parameter", func(t *testing.T) {
		// given
		router := newTestRouter(t)
		// when
		rec := doJSON(t, router, http.MethodGet, "/api/v1/orders/", nil)
		// then
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Invalid since timestamp", func(t *testing.T) {
		// given
		router := newTestRouter(t)
		// when
		rec := doJSON(t, router, http.MethodGet, "/api/v1/orders/?since=yesterday", nil)
		// then
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_Hello_Endpoint(t *testing.T) {
	// given
	router := newTestRouter(t)
	// when
	rec := doJSON(t, router, http.MethodGet, "/hello", nil)
	// then
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "Hello, CRM!", body["hello"])
}

func Test_HealthCheck_Endpoint(t *testing.T) {
	// given
	router := newTestRouter(t)
	// when
	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	// then
	assert.Equal(t, http.StatusOK, rec.Code)
}
