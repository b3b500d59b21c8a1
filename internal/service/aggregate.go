package service

import (
	"github.com/abgdnv/gocrm/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// orderTotal sums each product's price exactly once. Callers pass the
// distinct product set, so a product ordered twice still contributes one
// price. Exact decimal arithmetic; totals are currency values.
func orderTotal(products []store.Product) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(p.Price)
	}
	return total
}

// dedupeIDs removes duplicate ids while preserving first-occurrence order.
// The order-product association is a set: duplicates in one create call are
// intentional no-ops, not double billing.
func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	distinct := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		distinct = append(distinct, id)
	}
	return distinct
}
