package service

import "github.com/shopspring/decimal"

// PointsForTotal returns the loyalty points earned for an order total:
// one point per full 100 currency units.
func PointsForTotal(total decimal.Decimal) int32 {
	if !total.IsPositive() {
		return 0
	}
	return int32(total.Div(hundred).Floor().IntPart())
}
