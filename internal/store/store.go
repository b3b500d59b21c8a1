// Package store provides entity records and an interface for CRM storage operations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer represents a customer record. Phone is empty when not provided.
type Customer struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// Product represents a product record. Price is an exact decimal currency value.
type Product struct {
	ID        uuid.UUID
	Name      string
	Price     decimal.Decimal
	Stock     int32
	CreatedAt time.Time
}

// Order represents an order record. ProductIDs holds the distinct set of
// associated products; TotalAmount is derived from their prices.
type Order struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	OrderDate   time.Time
	TotalAmount decimal.Decimal
	ProductIDs  []uuid.UUID
	CreatedAt   time.Time
}

// OrderSummary is the order-with-customer view the reminder scan reads.
type OrderSummary struct {
	ID            uuid.UUID
	OrderDate     time.Time
	TotalAmount   decimal.Decimal
	CustomerName  string
	CustomerEmail string
}

// RestockedProduct reports one product touched by a low-stock restock run.
type RestockedProduct struct {
	ID    uuid.UUID
	Name  string
	Stock int32
}

// CreateCustomerParams holds the fields for creating a customer.
type CreateCustomerParams struct {
	Name  string
	Email string
	Phone string
}

// CreateProductParams holds the fields for creating a product.
type CreateProductParams struct {
	Name  string
	Price decimal.Decimal
	Stock int32
}

// CreateOrderParams holds the fields for creating an order. ProductIDs must
// already be de-duplicated; TotalAmount is the pre-computed order total.
type CreateOrderParams struct {
	CustomerID  uuid.UUID
	ProductIDs  []uuid.UUID
	OrderDate   time.Time
	TotalAmount decimal.Decimal
}

// Store is an interface for CRM storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type Store interface {
	// CreateCustomer adds a new customer to the system.
	// Returns error if the customer cannot be created.
	CreateCustomer(ctx context.Context, params CreateCustomerParams) (*Customer, error)

	// CustomerByID retrieves a single customer by its unique identifier.
	// Returns ErrCustomerNotFound if no customer exists with the given ID.
	CustomerByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// Customers returns all customers.
	// Returns an empty slice if no customers exist.
	Customers(ctx context.Context) ([]Customer, error)

	// EmailExists reports whether any customer already uses the given email.
	EmailExists(ctx context.Context, email string) (bool, error)

	// CreateProduct adds a new product to the system.
	// Returns error if the product cannot be created.
	CreateProduct(ctx context.Context, params CreateProductParams) (*Product, error)

	// ProductByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	ProductByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// ProductsByIDs retrieves products by IDs. Missing IDs are simply absent
	// from the result; callers detect them by set difference.
	ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// RestockLowStock replenishes every product below the store's low-stock
	// threshold and returns the touched products. The threshold and the
	// replenishment quantity are store-internal policy.
	RestockLowStock(ctx context.Context) ([]RestockedProduct, error)

	// CreateOrder persists an order together with its product associations
	// and total in one transaction. All-or-nothing.
	CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error)

	// OrderByID retrieves a single order by its unique identifier.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	OrderByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// OrdersSince returns all orders with order_date >= since (inclusive),
	// joined with their customers.
	OrdersSince(ctx context.Context, since time.Time) ([]OrderSummary, error)

	// WithinTx runs fn against a transaction-scoped view of the store.
	// Writes made through that view are visible to its later reads and are
	// committed only if fn returns nil.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
