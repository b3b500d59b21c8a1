package store

import (
	"context"
	"sync"
	"time"

	crmerrors "github.com/abgdnv/gocrm/internal/errors"
	"github.com/google/uuid"
)

// inMemory implements Store using in-memory maps. Used by unit tests and
// local runs without a database.
type inMemory struct {
	mu        sync.RWMutex
	customers map[uuid.UUID]Customer
	products  map[uuid.UUID]Product
	orders    map[uuid.UUID]Order
	// insertion order, so listings are deterministic
	customerIDs []uuid.UUID
	orderIDs    []uuid.UUID
}

// NewInMemoryStore creates a new instance of Store backed by process memory.
func NewInMemoryStore() Store {
	return &inMemory{
		customers: make(map[uuid.UUID]Customer),
		products:  make(map[uuid.UUID]Product),
		orders:    make(map[uuid.UUID]Order),
	}
}

func (s *inMemory) CreateCustomer(_ context.Context, params CreateCustomerParams) (*Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer := Customer{
		ID:        uuid.New(),
		Name:      params.Name,
		Email:     params.Email,
		Phone:     params.Phone,
		CreatedAt: time.Now(),
	}
	s.customers[customer.ID] = customer
	s.customerIDs = append(s.customerIDs, customer.ID)
	return &customer, nil
}

func (s *inMemory) CustomerByID(_ context.Context, id uuid.UUID) (*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, crmerrors.ErrCustomerNotFound
	}
	return &c, nil
}

func (s *inMemory) Customers(_ context.Context) ([]Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Customer, 0, len(s.customerIDs))
	for _, id := range s.customerIDs {
		list = append(list, s.customers[id])
	}
	return list, nil
}

func (s *inMemory) EmailExists(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customers {
		if c.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *inMemory) CreateProduct(_ context.Context, params CreateProductParams) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product := Product{
		ID:        uuid.New(),
		Name:      params.Name,
		Price:     params.Price,
		Stock:     params.Stock,
		CreatedAt: time.Now(),
	}
	s.products[product.ID] = product
	return &product, nil
}

func (s *inMemory) ProductByID(_ context.Context, id uuid.UUID) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, crmerrors.ErrProductNotFound
	}
	return &p, nil
}

func (s *inMemory) ProductsByIDs(_ context.Context, ids []uuid.UUID) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := s.products[id]; ok {
			list = append(list, p)
		}
	}
	return list, nil
}

func (s *inMemory) RestockLowStock(_ context.Context) ([]RestockedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]RestockedProduct, 0)
	for id, p := range s.products {
		if p.Stock < lowStockThreshold {
			p.Stock += restockQuantity
			s.products[id] = p
			updated = append(updated, RestockedProduct{ID: p.ID, Name: p.Name, Stock: p.Stock})
		}
	}
	return updated, nil
}

func (s *inMemory) CreateOrder(_ context.Context, params CreateOrderParams) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[params.CustomerID]; !ok {
		return nil, crmerrors.ErrCustomerNotFound
	}
	for _, productID := range params.ProductIDs {
		if _, ok := s.products[productID]; !ok {
			return nil, crmerrors.ErrProductNotFound
		}
	}

	order := Order{
		ID:          uuid.New(),
		CustomerID:  params.CustomerID,
		OrderDate:   params.OrderDate,
		TotalAmount: params.TotalAmount,
		ProductIDs:  append([]uuid.UUID(nil), params.ProductIDs...),
		CreatedAt:   time.Now(),
	}
	s.orders[order.ID] = order
	s.orderIDs = append(s.orderIDs, order.ID)
	return &order, nil
}

func (s *inMemory) OrderByID(_ context.Context, id uuid.UUID) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, crmerrors.ErrOrderNotFound
	}
	return &o, nil
}

func (s *inMemory) OrdersSince(_ context.Context, since time.Time) ([]OrderSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]OrderSummary, 0)
	for _, id := range s.orderIDs {
		o := s.orders[id]
		if o.OrderDate.Before(since) {
			continue
		}
		c := s.customers[o.CustomerID]
		summaries = append(summaries, OrderSummary{
			ID:            o.ID,
			OrderDate:     o.OrderDate,
			TotalAmount:   o.TotalAmount,
			CustomerName:  c.Name,
			CustomerEmail: c.Email,
		})
	}
	return summaries, nil
}

// WithinTx runs fn against the store itself. The in-memory store applies
// writes immediately, which preserves the visibility guarantee bulk
// creation relies on; rollback is not supported.
func (s *inMemory) WithinTx(_ context.Context, fn func(tx Store) error) error {
	return fn(s)
}
