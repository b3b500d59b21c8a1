// Package rest provides HTTP handlers for the CRM API.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	crmerrors "github.com/abgdnv/gocrm/internal/errors"
	"github.com/abgdnv/gocrm/internal/service"
	"github.com/abgdnv/gocrm/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handler struct {
	service service.CRMService
	logger  *slog.Logger
}

// NewHandler creates a new instance of the CRM API with the provided service.
func NewHandler(service service.CRMService, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the CRM service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.Customers)
			r.Post("/", h.CreateCustomer)
			r.Post("/bulk", h.BulkCreateCustomers)
			r.Get("/{id}", h.CustomerByID)
		})
		r.Route("/products", func(r chi.Router) {
			r.Post("/", h.CreateProduct)
			r.Post("/restock", h.RestockLowStock)
			r.Get("/{id}", h.ProductByID)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.OrdersSince)
			r.Post("/", h.CreateOrder)
			r.Get("/{id}", h.OrderByID)
		})
	})
	r.Get("/hello", h.Hello)
	r.Get("/healthz", h.HealthCheck)
}

// CreateCustomer handles the creation of a single customer. Validation
// failures are reported inside the result envelope, not as HTTP faults.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var in service.CustomerCreateDto
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	result := h.service.CreateCustomer(r.Context(), in)
	if result.Success {
		mLogger.InfoContext(r.Context(), "Customer created successfully", slog.String("ID", result.Customer.ID.String()))
	} else {
		mLogger.WarnContext(r.Context(), "Customer creation rejected", "errors", result.Errors)
	}
	web.RespondJSON(w, mLogger, http.StatusOK, result)
}

// BulkCreateCustomers handles batch customer creation with partial-failure
// reporting.
func (h *Handler) BulkCreateCustomers(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var inputs []service.CustomerCreateDto
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	result := h.service.BulkCreateCustomers(r.Context(), inputs)
	mLogger.InfoContext(r.Context(), "Bulk customer creation finished",
		"created", len(result.Customers), "errors", len(result.Errors))
	web.RespondJSON(w, mLogger, http.StatusOK, result)
}

// CreateProduct handles the creation of a single product.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var in service.ProductCreateDto
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	result := h.service.CreateProduct(r.Context(), in)
	if result.Success {
		mLogger.InfoContext(r.Context(), "Product created successfully", slog.String("ID", result.Product.ID.String()))
	} else {
		mLogger.WarnContext(r.Context(), "Product creation rejected", "errors", result.Errors)
	}
	web.RespondJSON(w, mLogger, http.StatusOK, result)
}

// CreateOrder handles the creation of a single order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var in service.OrderCreateDto
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	result := h.service.CreateOrder(r.Context(), in)
	if result.Success {
		mLogger.InfoContext(r.Context(), "Order created successfully", slog.String("ID", result.Order.ID.String()))
	} else {
		mLogger.WarnContext(r.Context(), "Order creation rejected", "errors", result.Errors)
	}
	web.RespondJSON(w, mLogger, http.StatusOK, result)
}

// RestockLowStock triggers the store-side low-stock replenishment.
func (h *Handler) RestockLowStock(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	result := h.service.RestockLowStock(r.Context())
	mLogger.InfoContext(r.Context(), "Low stock replenishment finished",
		"success", result.Success, "updated", len(result.UpdatedProducts))
	web.RespondJSON(w, mLogger, http.StatusOK, result)
}

// CustomerByID retrieves a customer by its ID.
func (h *Handler) CustomerByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	found, err := h.service.CustomerByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, crmerrors.ErrCustomerNotFound) {
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Customer with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving customer", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve customer with ID %s", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// Customers retrieves all customers.
func (h *Handler) Customers(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	list, err := h.service.Customers(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving customer list", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch customers")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// ProductByID retrieves a product by its ID.
func (h *Handler) ProductByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	found, err := h.service.ProductByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, crmerrors.ErrProductNotFound) {
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve product with ID %s", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// OrderByID retrieves an order by its ID.
func (h *Handler) OrderByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	found, err := h.service.OrderByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, crmerrors.ErrOrderNotFound) {
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Order with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving order", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve order with ID %s", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// OrdersSince retrieves all orders with order_date >= the "since" query
// parameter (RFC3339, inclusive).
func (h *Handler) OrdersSince(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sinceParam := r.URL.Query().Get("since")
	if sinceParam == "" {
		web.RespondError(w, mLogger, http.StatusBadRequest, "since url parameter is required")
		return
	}
	since, err := time.Parse(time.RFC3339, sinceParam)
	if err != nil {
		web.RespondError(w, mLogger, http.StatusBadRequest, fmt.Sprintf("Invalid since timestamp: %s", sinceParam))
		return
	}

	list, err := h.service.OrdersSince(r.Context(), since)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving order list", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// Hello is the liveness endpoint probed by the heartbeat job.
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.loggerWithReqID(r), http.StatusOK, map[string]string{"hello": "Hello, CRM!"})
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
