package pricing

import (
	"math/rand"
	"testing"

	"github.com/ironlot/settlement/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
)

func TestBuyerPremium(t *testing.T) {
	// $10,000.00 sale at 10% premium
	assert.Equal(t, int64(100000), BuyerPremium(1000000, 10))
	assert.Equal(t, int64(0), BuyerPremium(1000000, 0))
	// rounding: $0.01 at 10% = $0.001 rounds to zero
	assert.Equal(t, int64(0), BuyerPremium(1, 10))
	// $0.05 at 10% = $0.005 rounds half away from zero
	assert.Equal(t, int64(1), BuyerPremium(5, 10))
	// fractional percent: $123.45 at 12.5%
	assert.Equal(t, int64(1543), BuyerPremium(12345, 12.5))
}

func TestRecompute_SumsAllLineItems(t *testing.T) {
	inv := domain.Invoice{
		SaleAmount:         1000000,
		BuyerPremiumAmount: 100000,
		PackagingAmount:    7500,
		ShippingAmount:     45000,
		TaxAmount:          80000,
	}
	assert.Equal(t, int64(1232500), Recompute(inv))

	Apply(&inv)
	assert.Equal(t, int64(1232500), inv.TotalAmount)

	// Idempotent: re-applying without input changes does not drift.
	Apply(&inv)
	assert.Equal(t, int64(1232500), inv.TotalAmount)
}

func TestApply_TotalAlwaysEqualsSum(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		inv := domain.Invoice{
			SaleAmount:      rng.Int63n(10_000_000),
			PackagingAmount: rng.Int63n(100_000),
			ShippingAmount:  rng.Int63n(500_000),
			TaxAmount:       rng.Int63n(1_000_000),
		}
		inv.BuyerPremiumAmount = BuyerPremium(inv.SaleAmount, float64(rng.Intn(25)))

		Apply(&inv)

		want := inv.SaleAmount + inv.BuyerPremiumAmount + inv.PackagingAmount + inv.ShippingAmount + inv.TaxAmount
		assert.Equal(t, want, inv.TotalAmount)
	}
}
