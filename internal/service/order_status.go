package service

import (
	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/enum"
)

// DeriveOrderStatus is the only place an order's status is computed: an
// order is Completed iff it has at least one item and every item is
// Completed. The stored orders.status column is a cache of this value.
func DeriveOrderStatus(items []database.OrderItem) string {
	if len(items) == 0 {
		return enum.OrderStatusPending
	}
	for _, it := range items {
		if it.Status != enum.OrderItemStatusCompleted {
			return enum.OrderStatusPending
		}
	}
	return enum.OrderStatusCompleted
}

func isValidItemStatus(s string) bool {
	switch s {
	case enum.OrderItemStatusPending, enum.OrderItemStatusCompleted:
		return true
	}
	return false
}
