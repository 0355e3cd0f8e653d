// Package pricing reconciles an invoice's total with its line items. Pure
// arithmetic on integer cents; no side effects.
package pricing

import (
	"math"

	"github.com/ironlot/settlement/internal/invoice/domain"
)

// BuyerPremium returns the buyer premium in cents for a sale amount and a
// percentage fee, rounded half away from zero.
func BuyerPremium(saleAmount int64, percent float64) int64 {
	if percent == 0 {
		return 0
	}
	return int64(math.Round(float64(saleAmount) * percent / 100))
}

// Recompute returns the reconciled total for the invoice's current line
// items. Idempotent: unchanged inputs yield the same total.
func Recompute(inv domain.Invoice) int64 {
	return inv.SaleAmount +
		inv.BuyerPremiumAmount +
		inv.PackagingAmount +
		inv.ShippingAmount +
		inv.TaxAmount
}

// Apply recomputes and stores the total on the invoice. Called after every
// mutation to any addend.
func Apply(inv *domain.Invoice) {
	inv.TotalAmount = Recompute(*inv)
}
