// Package service provides the implementation of CRM business logic: the
// validated mutation pipeline, the bulk creation engine and the query surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	crmerrors "github.com/abgdnv/gocrm/internal/errors"
	"github.com/abgdnv/gocrm/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CRMService defines the mutation and query operations of the CRM backend.
// Mutations never return a Go error for caller-input problems: every failure
// is folded into the result's Success/Errors fields.
type CRMService interface {
	// CreateCustomer validates and persists a single customer. All-or-nothing.
	CreateCustomer(ctx context.Context, in CustomerCreateDto) *CustomerResult

	// BulkCreateCustomers processes each input independently inside one
	// enclosing transaction. A bad item is skipped with a labeled error;
	// the rest of the batch proceeds. Success is true iff at least one
	// customer was created.
	BulkCreateCustomers(ctx context.Context, inputs []CustomerCreateDto) *BulkCustomerResult

	// CreateProduct validates and persists a single product. All-or-nothing.
	CreateProduct(ctx context.Context, in ProductCreateDto) *ProductResult

	// CreateOrder validates the customer and product references, de-duplicates
	// the product set, computes the total and persists everything in one
	// transaction. All-or-nothing.
	CreateOrder(ctx context.Context, in OrderCreateDto) *OrderResult

	// RestockLowStock triggers the store-side low-stock replenishment.
	RestockLowStock(ctx context.Context) *RestockResult

	// CustomerByID retrieves a single customer.
	// Returns ErrCustomerNotFound if no customer exists with the given ID.
	CustomerByID(ctx context.Context, id uuid.UUID) (*CustomerDto, error)

	// Customers returns all customers.
	Customers(ctx context.Context) ([]CustomerDto, error)

	// ProductByID retrieves a single product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	ProductByID(ctx context.Context, id uuid.UUID) (*ProductDto, error)

	// OrderByID retrieves a single order.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	OrderByID(ctx context.Context, id uuid.UUID) (*OrderDto, error)

	// OrdersSince returns all orders with order_date >= since (inclusive).
	OrdersSince(ctx context.Context, since time.Time) ([]OrderSummaryDto, error)
}

// Service implements CRMService on top of a Store.
type Service struct {
	store    store.Store
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService creates a new instance of CRMService with the provided store.
func NewService(st store.Store, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		validate: validator.New(),
		logger:   logger.With("component", "service"),
	}
}

// CustomerCreateDto represents the data transfer object for creating a new customer.
type CustomerCreateDto struct {
	Name  string `json:"name"  validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone,omitempty"`
}

// ProductCreateDto represents the data transfer object for creating a new product.
// Stock defaults to 0 when omitted.
type ProductCreateDto struct {
	Name  string          `json:"name" validate:"required,max=100"`
	Price decimal.Decimal `json:"price"`
	Stock *int32          `json:"stock,omitempty"`
}

// OrderCreateDto represents the data transfer object for creating a new order.
// OrderDate defaults to the creation time when omitted.
type OrderCreateDto struct {
	CustomerID uuid.UUID   `json:"customer_id" validate:"required"`
	ProductIDs []uuid.UUID `json:"product_ids"`
	OrderDate  *time.Time  `json:"order_date,omitempty"`
}

// CustomerDto represents the data transfer object for a customer.
type CustomerDto struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt string    `json:"created_at"`
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int32           `json:"stock"`
	CreatedAt string          `json:"created_at"`
}

// OrderDto represents the data transfer object for an order.
// TotalAmount is derived; ProductIDs is the distinct associated set.
type OrderDto struct {
	ID          uuid.UUID       `json:"id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	ProductIDs  []uuid.UUID     `json:"product_ids"`
	OrderDate   string          `json:"order_date"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   string          `json:"created_at"`
}

// OrderSummaryDto is the order-with-customer view served to the reminder scan.
type OrderSummaryDto struct {
	ID            uuid.UUID       `json:"id"`
	OrderDate     string          `json:"order_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
}

// RestockedProductDto reports one product touched by a restock run.
type RestockedProductDto struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Stock int32     `json:"stock"`
}

// CustomerResult is the structured outcome of a single customer mutation.
type CustomerResult struct {
	Customer *CustomerDto `json:"customer,omitempty"`
	Message  string       `json:"message,omitempty"`
	Success  bool         `json:"success"`
	Errors   []string     `json:"errors,omitempty"`
}

// BulkCustomerResult is the structured outcome of a bulk customer mutation.
type BulkCustomerResult struct {
	Customers []CustomerDto `json:"customers"`
	Errors    []string      `json:"errors,omitempty"`
	Success   bool          `json:"success"`
}

// ProductResult is the structured outcome of a product mutation.
type ProductResult struct {
	Product *ProductDto `json:"product,omitempty"`
	Message string      `json:"message,omitempty"`
	Success bool        `json:"success"`
	Errors  []string    `json:"errors,omitempty"`
}

// OrderResult is the structured outcome of an order mutation.
type OrderResult struct {
	Order   *OrderDto `json:"order,omitempty"`
	Message string    `json:"message,omitempty"`
	Success bool      `json:"success"`
	Errors  []string  `json:"errors,omitempty"`
}

// RestockResult is the structured outcome of a low-stock replenishment run.
type RestockResult struct {
	Success         bool                  `json:"success"`
	Message         string                `json:"message"`
	UpdatedProducts []RestockedProductDto `json:"updated_products"`
}

// CreateCustomer validates and persists a single customer.
// Any failure leaves the store untouched.
func (s *Service) CreateCustomer(ctx context.Context, in CustomerCreateDto) *CustomerResult {
	customer, err := s.createCustomer(ctx, s.store, in)
	if err != nil {
		if _, ok := crmerrors.AsValidation(err); !ok {
			s.logger.ErrorContext(ctx, "Failed to create customer", "error", err)
		}
		return &CustomerResult{Success: false, Errors: []string{err.Error()}}
	}
	return &CustomerResult{
		Customer: customer,
		Message:  "Customer created successfully",
		Success:  true,
	}
}

// BulkCreateCustomers processes each input independently inside one enclosing
// transaction. Deliberately not all-or-nothing: bulk import tolerates bad
// rows instead of rejecting the whole batch. Error labels are 1-based.
func (s *Service) BulkCreateCustomers(ctx context.Context, inputs []CustomerCreateDto) *BulkCustomerResult {
	created := make([]CustomerDto, 0, len(inputs))
	itemErrors := make([]string, 0)

	txErr := s.store.WithinTx(ctx, func(tx store.Store) error {
		// Sequential on purpose: a later item's uniqueness check must see
		// earlier items' writes within the same transaction.
		for i, in := range inputs {
			customer, err := s.createCustomer(ctx, tx, in)
			if err != nil {
				itemErrors = append(itemErrors, fmt.Sprintf("Customer %d: %s", i+1, err.Error()))
				continue
			}
			created = append(created, *customer)
		}
		return nil
	})
	if txErr != nil {
		s.logger.ErrorContext(ctx, "Bulk customer creation failed", "error", txErr)
		return &BulkCustomerResult{Customers: []CustomerDto{}, Errors: []string{txErr.Error()}, Success: false}
	}

	return &BulkCustomerResult{
		Customers: created,
		Errors:    itemErrors,
		Success:   len(created) > 0,
	}
}

// createCustomer runs the full customer pipeline (field validation, email
// uniqueness, persist) against the given store view, so single and bulk
// creation share one code path.
func (s *Service) createCustomer(ctx context.Context, view store.Store, in CustomerCreateDto) (*CustomerDto, error) {
	if err := validateCustomerFields(s.validate, in); err != nil {
		return nil, err
	}
	exists, err := view.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if exists {
		return nil, crmerrors.NewValidationError(crmerrors.CodeDuplicateEmail, "Email already exists")
	}

	customer, err := view.CreateCustomer(ctx, store.CreateCustomerParams{
		Name:  in.Name,
		Email: in.Email,
		Phone: in.Phone,
	})
	if err != nil {
		return nil, err
	}
	return toCustomerDto(customer), nil
}

// CreateProduct validates and persists a single product.
func (s *Service) CreateProduct(ctx context.Context, in ProductCreateDto) *ProductResult {
	if err := validateProductFields(s.validate, in); err != nil {
		return &ProductResult{Success: false, Errors: []string{err.Error()}}
	}

	var stock int32
	if in.Stock != nil {
		stock = *in.Stock
	}
	product, err := s.store.CreateProduct(ctx, store.CreateProductParams{
		Name:  in.Name,
		Price: in.Price,
		Stock: stock,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create product", "error", err)
		return &ProductResult{Success: false, Errors: []string{err.Error()}}
	}
	return &ProductResult{
		Product: toProductDto(product),
		Message: "Product created successfully",
		Success: true,
	}
}

// CreateOrder validates the customer and product references, persists the
// order with its de-duplicated product set and derived total in one
// transaction. All-or-nothing, unlike bulk customer creation.
func (s *Service) CreateOrder(ctx context.Context, in OrderCreateDto) *OrderResult {
	fail := func(err error) *OrderResult {
		if _, ok := crmerrors.AsValidation(err); !ok {
			s.logger.ErrorContext(ctx, "Failed to create order", "error", err)
		}
		return &OrderResult{Success: false, Errors: []string{err.Error()}}
	}

	if len(in.ProductIDs) == 0 {
		return fail(crmerrors.NewValidationError(crmerrors.CodeEmptyProductList,
			"At least one product must be selected"))
	}

	if _, err := s.store.CustomerByID(ctx, in.CustomerID); err != nil {
		if errors.Is(err, crmerrors.ErrCustomerNotFound) {
			return fail(crmerrors.NewValidationError(crmerrors.CodeInvalidCustomer, "Invalid customer ID"))
		}
		return fail(fmt.Errorf("failed to resolve customer: %w", err))
	}

	distinct := dedupeIDs(in.ProductIDs)
	products, err := s.store.ProductsByIDs(ctx, distinct)
	if err != nil {
		return fail(fmt.Errorf("failed to resolve products: %w", err))
	}
	// Set difference between requested and resolved ids, so every dangling
	// reference is reported at once instead of one-by-one.
	if missing := missingIDs(distinct, products); len(missing) > 0 {
		return fail(crmerrors.NewValidationError(crmerrors.CodeInvalidProduct,
			"One or more invalid product IDs: "+joinIDs(missing)))
	}

	orderDate := time.Now()
	if in.OrderDate != nil {
		orderDate = *in.OrderDate
	}

	order, err := s.store.CreateOrder(ctx, store.CreateOrderParams{
		CustomerID:  in.CustomerID,
		ProductIDs:  distinct,
		OrderDate:   orderDate,
		TotalAmount: orderTotal(products),
	})
	if err != nil {
		return fail(err)
	}
	return &OrderResult{
		Order:   toOrderDto(order),
		Message: "Order created successfully",
		Success: true,
	}
}

// RestockLowStock triggers the store-side low-stock replenishment and
// reports the touched products.
func (s *Service) RestockLowStock(ctx context.Context) *RestockResult {
	updated, err := s.store.RestockLowStock(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Low stock replenishment failed", "error", err)
		return &RestockResult{Success: false, Message: err.Error(), UpdatedProducts: []RestockedProductDto{}}
	}

	dtos := make([]RestockedProductDto, 0, len(updated))
	for _, rp := range updated {
		dtos = append(dtos, RestockedProductDto{ID: rp.ID, Name: rp.Name, Stock: rp.Stock})
	}
	return &RestockResult{
		Success:         true,
		Message:         "Low stock update successful",
		UpdatedProducts: dtos,
	}
}

// CustomerByID retrieves a customer by its ID and returns it as a CustomerDto.
func (s *Service) CustomerByID(ctx context.Context, id uuid.UUID) (*CustomerDto, error) {
	customer, err := s.store.CustomerByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toCustomerDto(customer), nil
}

// Customers retrieves all customers as CustomerDtos.
func (s *Service) Customers(ctx context.Context) ([]CustomerDto, error) {
	customers, err := s.store.Customers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch customers: %w", err)
	}
	dtos := make([]CustomerDto, 0, len(customers))
	for i := range customers {
		dtos = append(dtos, *toCustomerDto(&customers[i]))
	}
	return dtos, nil
}

// ProductByID retrieves a product by its ID and returns it as a ProductDto.
func (s *Service) ProductByID(ctx context.Context, id uuid.UUID) (*ProductDto, error) {
	product, err := s.store.ProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toProductDto(product), nil
}

// OrderByID retrieves an order by its ID and returns it as an OrderDto.
func (s *Service) OrderByID(ctx context.Context, id uuid.UUID) (*OrderDto, error) {
	order, err := s.store.OrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toOrderDto(order), nil
}

// OrdersSince retrieves all orders with order_date >= since (inclusive).
func (s *Service) OrdersSince(ctx context.Context, since time.Time) ([]OrderSummaryDto, error) {
	summaries, err := s.store.OrdersSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders since %s: %w", since, err)
	}
	dtos := make([]OrderSummaryDto, 0, len(summaries))
	for _, summary := range summaries {
		dtos = append(dtos, OrderSummaryDto{
			ID:            summary.ID,
			OrderDate:     summary.OrderDate.Format(time.RFC3339),
			TotalAmount:   summary.TotalAmount,
			CustomerName:  summary.CustomerName,
			CustomerEmail: summary.CustomerEmail,
		})
	}
	return dtos, nil
}

// missingIDs returns the requested ids that did not resolve to a product.
func missingIDs(requested []uuid.UUID, resolved []store.Product) []uuid.UUID {
	found := make(map[uuid.UUID]bool, len(resolved))
	for _, p := range resolved {
		found[p.ID] = true
	}
	missing := make([]uuid.UUID, 0)
	for _, id := range requested {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id.String())
	}
	return strings.Join(parts, ", ")
}

// toCustomerDto converts a store.Customer to a CustomerDto.
func toCustomerDto(c *store.Customer) *CustomerDto {
	if c == nil {
		return nil
	}
	return &CustomerDto{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

// toProductDto converts a store.Product to a ProductDto.
func toProductDto(p *store.Product) *ProductDto {
	if p == nil {
		return nil
	}
	return &ProductDto{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

// toOrderDto converts a store.Order to an OrderDto.
func toOrderDto(o *store.Order) *OrderDto {
	if o == nil {
		return nil
	}
	return &OrderDto{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		ProductIDs:  o.ProductIDs,
		OrderDate:   o.OrderDate.Format(time.RFC3339),
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
	}
}
