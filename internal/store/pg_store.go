package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	crmerrors "github.com/abgdnv/gocrm/internal/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Low-stock policy is store-internal: products below the threshold are
// topped up by the restock quantity.
const (
	lowStockThreshold = 10
	restockQuantity   = 10
)

// dbConn is the subset of pgx operations shared by a pool and a transaction.
type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore implements Store using PostgreSQL as the data store.
type PgStore struct {
	pool *pgxpool.Pool
	db   dbConn
}

// NewPgStore creates a new instance of Store using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{pool: dbp, db: dbp}
}

const customerColumns = "id, name, email, COALESCE(phone, ''), created_at"

// CreateCustomer adds a new customer to the system.
func (p *PgStore) CreateCustomer(ctx context.Context, params CreateCustomerParams) (*Customer, error) {
	row := p.db.QueryRow(ctx,
		"INSERT INTO customers (name, email, phone) VALUES ($1, $2, NULLIF($3, '')) RETURNING "+customerColumns,
		params.Name, params.Email, params.Phone)
	customer, err := scanCustomer(row)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", crmerrors.ErrCreateCustomer, err)
	}
	return customer, nil
}

// CustomerByID retrieves a customer by its unique identifier.
// Returns ErrCustomerNotFound if no customer exists with the given ID.
func (p *PgStore) CustomerByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	row := p.db.QueryRow(ctx, "SELECT "+customerColumns+" FROM customers WHERE id = $1", id)
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, crmerrors.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to find customer by ID: %w", err)
	}
	return customer, nil
}

// Customers retrieves all customers ordered by creation time.
func (p *PgStore) Customers(ctx context.Context) ([]Customer, error) {
	rows, err := p.db.Query(ctx, "SELECT "+customerColumns+" FROM customers ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to find customers: %w", err)
	}
	defer rows.Close()

	customers := make([]Customer, 0)
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// EmailExists reports whether any customer already uses the given email.
func (p *PgStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM customers WHERE email = $1)", email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

const productColumns = "id, name, price::text, stock, created_at"

// CreateProduct adds a new product to the system.
func (p *PgStore) CreateProduct(ctx context.Context, params CreateProductParams) (*Product, error) {
	row := p.db.QueryRow(ctx,
		"INSERT INTO products (name, price, stock) VALUES ($1, $2::numeric, $3) RETURNING "+productColumns,
		params.Name, params.Price.String(), params.Stock)
	product, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", crmerrors.ErrCreateProduct, err)
	}
	return product, nil
}

// ProductByID retrieves a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) ProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := p.db.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, crmerrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

// ProductsByIDs retrieves products by IDs. Missing IDs are absent from the result.
func (p *PgStore) ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	rows, err := p.db.Query(ctx, "SELECT "+productColumns+" FROM products WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to find products by IDs: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0, len(ids))
	for rows.Next() {
		product, err := scanProductRows(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

// RestockLowStock tops up every product below the low-stock threshold and
// returns the touched products. Returns an empty slice when nothing is low.
func (p *PgStore) RestockLowStock(ctx context.Context) ([]RestockedProduct, error) {
	rows, err := p.db.Query(ctx,
		"UPDATE products SET stock = stock + $2 WHERE stock < $1 RETURNING id, name, stock",
		lowStockThreshold, restockQuantity)
	if err != nil {
		return nil, fmt.Errorf("failed to restock low-stock products: %w", err)
	}
	defer rows.Close()

	updated := make([]RestockedProduct, 0)
	for rows.Next() {
		var rp RestockedProduct
		if err := rows.Scan(&rp.ID, &rp.Name, &rp.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan restocked product: %w", err)
		}
		updated = append(updated, rp)
	}
	return updated, rows.Err()
}

// CreateOrder persists an order together with its product associations in
// one transaction. All-or-nothing.
func (p *PgStore) CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	var created *Order

	txErr := p.withTransaction(ctx, func(db dbConn) error {
		var o Order
		var totalText string
		err := db.QueryRow(ctx,
			"INSERT INTO orders (customer_id, order_date, total_amount) VALUES ($1, $2, $3::numeric) RETURNING id, customer_id, order_date, total_amount::text, created_at",
			params.CustomerID, params.OrderDate, params.TotalAmount.String(),
		).Scan(&o.ID, &o.CustomerID, &o.OrderDate, &totalText, &o.CreatedAt)
		if err != nil {
			return fmt.Errorf("%w: %w", crmerrors.ErrCreateOrder, err)
		}
		if o.TotalAmount, err = decimal.NewFromString(totalText); err != nil {
			return fmt.Errorf("%w: %w", crmerrors.ErrCreateOrder, err)
		}
		for _, productID := range params.ProductIDs {
			if _, err := db.Exec(ctx,
				"INSERT INTO order_products (order_id, product_id) VALUES ($1, $2)",
				o.ID, productID); err != nil {
				return fmt.Errorf("%w: %w", crmerrors.ErrCreateOrder, err)
			}
		}
		o.ProductIDs = params.ProductIDs
		created = &o
		return nil
	})

	if txErr != nil {
		return nil, txErr
	}
	return created, nil
}

// OrderByID retrieves an order and its associated product set.
// Returns ErrOrderNotFound if no order exists with the given ID.
func (p *PgStore) OrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	var totalText string
	err := p.db.QueryRow(ctx,
		"SELECT id, customer_id, order_date, total_amount::text, created_at FROM orders WHERE id = $1", id,
	).Scan(&o.ID, &o.CustomerID, &o.OrderDate, &totalText, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, crmerrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}
	if o.TotalAmount, err = decimal.NewFromString(totalText); err != nil {
		return nil, fmt.Errorf("failed to parse order total: %w", err)
	}

	rows, err := p.db.Query(ctx, "SELECT product_id FROM order_products WHERE order_id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to find order products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var productID uuid.UUID
		if err := rows.Scan(&productID); err != nil {
			return nil, fmt.Errorf("failed to scan order product: %w", err)
		}
		o.ProductIDs = append(o.ProductIDs, productID)
	}
	return &o, rows.Err()
}

// OrdersSince returns all orders with order_date >= since, joined with their customers.
func (p *PgStore) OrdersSince(ctx context.Context, since time.Time) ([]OrderSummary, error) {
	rows, err := p.db.Query(ctx,
		`SELECT o.id, o.order_date, o.total_amount::text, c.name, c.email
		   FROM orders o JOIN customers c ON c.id = o.customer_id
		  WHERE o.order_date >= $1
		  ORDER BY o.order_date`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to find orders since %s: %w", since, err)
	}
	defer rows.Close()

	summaries := make([]OrderSummary, 0)
	for rows.Next() {
		var s OrderSummary
		var totalText string
		if err := rows.Scan(&s.ID, &s.OrderDate, &totalText, &s.CustomerName, &s.CustomerEmail); err != nil {
			return nil, fmt.Errorf("failed to scan order summary: %w", err)
		}
		if s.TotalAmount, err = decimal.NewFromString(totalText); err != nil {
			return nil, fmt.Errorf("failed to parse order total: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// WithinTx runs fn against a transaction-scoped view of the store.
func (p *PgStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return p.withTransaction(ctx, func(db dbConn) error {
		return fn(&PgStore{pool: p.pool, db: db})
	})
}

func (p *PgStore) withTransaction(ctx context.Context, fn func(db dbConn) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return crmerrors.ErrTransactionBegin
	}

	err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return crmerrors.ErrTransactionRollback
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return crmerrors.ErrTransactionCommit
	}
	return nil
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var pr Product
	var priceText string
	if err := row.Scan(&pr.ID, &pr.Name, &priceText, &pr.Stock, &pr.CreatedAt); err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(priceText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse product price: %w", err)
	}
	pr.Price = price
	return &pr, nil
}

func scanProductRows(rows pgx.Rows) (*Product, error) {
	var pr Product
	var priceText string
	if err := rows.Scan(&pr.ID, &pr.Name, &priceText, &pr.Stock, &pr.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	price, err := decimal.NewFromString(priceText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse product price: %w", err)
	}
	pr.Price = price
	return &pr, nil
}
