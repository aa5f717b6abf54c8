package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/events"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Side-effect kinds and outcomes reported after order creation.
const (
	EffectLoyaltyRedeem = "loyalty_redeem"
	EffectLoyaltyAccrue = "loyalty_accrue"
	EffectInventory     = "inventory"

	EffectOK      = "ok"
	EffectSkipped = "skipped"
	EffectFailed  = "failed"
)

// SideEffectResult records the outcome of one best-effort action.
type SideEffectResult struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// SideEffectStore defines the DB methods used after the order commits.
// Satisfied by *database.Queries.
type SideEffectStore interface {
	RedeemLoyaltyPoints(ctx context.Context, arg database.RedeemLoyaltyPointsParams) (database.Customer, error)
	AccrueCustomerOrder(ctx context.Context, arg database.AccrueCustomerOrderParams) (database.Customer, error)
	GetProductMetadata(ctx context.Context, arg database.GetProductMetadataParams) ([]byte, error)
	DecrementInventoryByName(ctx context.Context, arg database.DecrementInventoryByNameParams) ([]database.InventoryItem, error)
}

func (s *OrderService) runSideEffects(ctx context.Context, req CreateOrderRequest, result *OrderResult) []SideEffectResult {
	var out []SideEffectResult
	if req.CustomerRef != nil {
		if req.RedeemPoints > 0 {
			out = append(out, s.redeemPoints(ctx, *req.CustomerRef, req.RedeemPoints))
		}
		out = append(out, s.accrue(ctx, *req.CustomerRef, numericToDecimal(result.Order.TotalAmount)))
	}
	out = append(out, s.decrementInventory(ctx, req.BusinessID, result.Items)...)
	return out
}

func (s *OrderService) redeemPoints(ctx context.Context, customerRef int64, points int32) SideEffectResult {
	res := SideEffectResult{Kind: EffectLoyaltyRedeem, Target: fmt.Sprintf("customer:%d", customerRef)}
	_, err := s.effects.RedeemLoyaltyPoints(ctx, database.RedeemLoyaltyPointsParams{ID: customerRef, Points: points})
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		log.Printf("WARN: customer %d: insufficient loyalty points to redeem %d", customerRef, points)
		res.Status = EffectSkipped
		res.Detail = "insufficient loyalty points"
	case err != nil:
		log.Printf("ERROR: redeem loyalty points for customer %d: %v", customerRef, err)
		res.Status = EffectFailed
		res.Detail = "redeem failed"
	default:
		res.Status = EffectOK
		res.Detail = fmt.Sprintf("redeemed %d", points)
	}
	return res
}

func (s *OrderService) accrue(ctx context.Context, customerRef int64, total decimal.Decimal) SideEffectResult {
	res := SideEffectResult{Kind: EffectLoyaltyAccrue, Target: fmt.Sprintf("customer:%d", customerRef)}
	points := PointsForTotal(total)
	if _, err := s.effects.AccrueCustomerOrder(ctx, database.AccrueCustomerOrderParams{
		ID:          customerRef,
		TotalAmount: decimalToNumeric(total),
		Points:      points,
	}); err != nil {
		log.Printf("ERROR: accrue order for customer %d: %v", customerRef, err)
		res.Status = EffectFailed
		res.Detail = "accrual failed"
		return res
	}
	res.Status = EffectOK
	res.Detail = fmt.Sprintf("earned %d", points)
	return res
}

type lowStockEvent struct {
	InventoryID int64  `json:"inventory_id"`
	Name        string `json:"name"`
	Quantity    string `json:"quantity"`
	Threshold   string `json:"threshold"`
}

// decrementInventory subtracts each line's recipe from the tenant's
// inventory. Problems with one line never stop the others.
func (s *OrderService) decrementInventory(ctx context.Context, businessID int64, items []database.OrderItem) []SideEffectResult {
	var out []SideEffectResult
	metadata := make(map[int64][]byte)

	for _, item := range items {
		meta, seen := metadata[item.ProductID]
		if !seen {
			var err error
			meta, err = s.effects.GetProductMetadata(ctx, database.GetProductMetadataParams{
				ID:         item.ProductID,
				BusinessID: businessID,
			})
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				log.Printf("ERROR: load metadata for product %d: %v", item.ProductID, err)
				out = append(out, SideEffectResult{Kind: EffectInventory, Target: item.Name, Status: EffectFailed, Detail: "load product failed"})
				continue
			}
			metadata[item.ProductID] = meta
		}

		ingredients, skipped, err := ParseIngredients(meta)
		if err != nil {
			log.Printf("WARN: product %d: %v", item.ProductID, err)
			out = append(out, SideEffectResult{Kind: EffectInventory, Target: item.Name, Status: EffectSkipped, Detail: "unreadable ingredient metadata"})
			continue
		}
		for _, reason := range skipped {
			log.Printf("WARN: product %d: skipped %s", item.ProductID, reason)
			out = append(out, SideEffectResult{Kind: EffectInventory, Target: item.Name, Status: EffectSkipped, Detail: reason})
		}

		for _, ing := range ingredients {
			amount := ing.Quantity.Mul(decimal.NewFromInt32(item.Quantity))
			rows, err := s.effects.DecrementInventoryByName(ctx, database.DecrementInventoryByNameParams{
				BusinessID: businessID,
				Name:       ing.Name,
				Amount:     quantityToNumeric(amount),
			})
			if err != nil {
				log.Printf("ERROR: decrement inventory %q for business %d: %v", ing.Name, businessID, err)
				out = append(out, SideEffectResult{Kind: EffectInventory, Target: ing.Name, Status: EffectFailed, Detail: "decrement failed"})
				continue
			}
			if len(rows) == 0 {
				out = append(out, SideEffectResult{Kind: EffectInventory, Target: ing.Name, Status: EffectSkipped, Detail: "no matching inventory item"})
				continue
			}
			out = append(out, SideEffectResult{Kind: EffectInventory, Target: ing.Name, Status: EffectOK, Detail: "-" + amount.String()})
			for _, row := range rows {
				qty := numericToDecimal(row.Quantity)
				threshold := numericToDecimal(row.LowStockThreshold)
				if qty.LessThanOrEqual(threshold) {
					s.notifier.Emit(ctx, businessID, events.InventoryLowStock, lowStockEvent{
						InventoryID: row.ID,
						Name:        row.Name,
						Quantity:    qty.String(),
						Threshold:   threshold.String(),
					})
				}
			}
		}
	}
	return out
}
