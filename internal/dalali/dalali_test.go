package dalali

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yash9657/grainhub/internal/models"
)

func TestCommissionPercent(t *testing.T) {
	line := Line{
		Price:      100,
		Weight:     1,
		Quantity:   3,
		DalaliType: "%",
		BuyerRate:  2,
		SellerRate: 1,
	}

	require.InDelta(t, 300, line.Amount(), 1e-6)

	buyer, err := Commission(line, Buyer)
	require.NoError(t, err)
	require.InDelta(t, 6.00, buyer, 1e-6)

	seller, err := Commission(line, Seller)
	require.NoError(t, err)
	require.InDelta(t, 3.00, seller, 1e-6)
}

func TestCommissionPerQuintal(t *testing.T) {
	line := Line{
		Price:      50,
		Weight:     2,
		Quantity:   10,
		DalaliType: "Q",
		BuyerRate:  5,
		SellerRate: 4,
	}

	buyer, err := Commission(line, Buyer)
	require.NoError(t, err)
	require.InDelta(t, 1.00, buyer, 1e-6)

	seller, err := Commission(line, Seller)
	require.NoError(t, err)
	require.InDelta(t, 0.80, seller, 1e-6)
}

func TestCommissionAcceptsBothPerQuintalSpellings(t *testing.T) {
	long := Line{Price: 50, Weight: 2, Quantity: 10, DalaliType: "Per Quintal", BuyerRate: 5, SellerRate: 4}
	short := long
	short.DalaliType = "Q"

	fromLong, err := Commission(long, Buyer)
	require.NoError(t, err)
	fromShort, err := Commission(short, Buyer)
	require.NoError(t, err)
	require.Equal(t, fromLong, fromShort)
}

func TestCommissionZeroQuantity(t *testing.T) {
	line := Line{Price: 100, Weight: 1, Quantity: 0, DalaliType: "%", BuyerRate: 2, SellerRate: 1}

	got, err := Commission(line, Buyer)
	require.NoError(t, err)
	require.Zero(t, got)
}

func TestCommissionUnknownTypeFailsLoudly(t *testing.T) {
	line := Line{Price: 100, Weight: 1, Quantity: 1, DalaliType: "flat", BuyerRate: 2, SellerRate: 1}

	_, err := Commission(line, Buyer)
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestNormalize(t *testing.T) {
	got, err := Normalize("Per Quintal")
	require.NoError(t, err)
	require.Equal(t, "Q", got)

	got, err = Normalize("Q")
	require.NoError(t, err)
	require.Equal(t, "Q", got)

	got, err = Normalize("%")
	require.NoError(t, err)
	require.Equal(t, "%", got)

	_, err = Normalize("per quintal")
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestValidateRejectsNegatives(t *testing.T) {
	base := Line{Price: 10, Weight: 1, Quantity: 1, DalaliType: "%", BuyerRate: 1, SellerRate: 1}

	neg := base
	neg.Price = -1
	require.ErrorIs(t, neg.Validate(), ErrValidation)

	neg = base
	neg.Weight = -0.5
	require.ErrorIs(t, neg.Validate(), ErrValidation)

	neg = base
	neg.SellerRate = -2
	require.ErrorIs(t, neg.Validate(), ErrValidation)

	require.NoError(t, base.Validate())
}

func TestAggregateEmptyCart(t *testing.T) {
	totals, err := Aggregate(nil)
	require.NoError(t, err)
	require.Zero(t, totals.Total)
	require.Zero(t, totals.BuyerDalali)
	require.Zero(t, totals.SellerDalali)
}

func TestAggregate(t *testing.T) {
	lines := []Line{
		{Price: 100, Weight: 1, Quantity: 3, DalaliType: "%", BuyerRate: 2, SellerRate: 1},
		{Price: 50, Weight: 2, Quantity: 10, DalaliType: "Per Quintal", BuyerRate: 5, SellerRate: 4},
	}

	totals, err := Aggregate(lines)
	require.NoError(t, err)
	require.InDelta(t, 300+1000, totals.Total, 1e-6)
	require.InDelta(t, 6.00+1.00, totals.BuyerDalali, 1e-6)
	require.InDelta(t, 3.00+0.80, totals.SellerDalali, 1e-6)
}

func TestFromCartItemPriceOverride(t *testing.T) {
	item := models.Item{Price: 100, Weight: 1, DalaliType: "%", BuyerDalaliRate: 2, SellerDalaliRate: 1}

	line := FromCartItem(models.CartItem{Item: item, Quantity: 3})
	require.InDelta(t, 100, line.Price, 1e-6)

	override := 90.0
	line = FromCartItem(models.CartItem{Item: item, Quantity: 3, Price: &override})
	require.InDelta(t, 90, line.Price, 1e-6)

	// The override feeds the commission too, not just the displayed total.
	buyer, err := Commission(line, Buyer)
	require.NoError(t, err)
	require.InDelta(t, (2.0/100)*90*1*3, buyer, 1e-6)
}

// Recomputing from a snapshot must not depend on the live item row.
func TestFromOrderItemIdempotent(t *testing.T) {
	oi := models.OrderItem{Price: 50, Weight: 2, Quantity: 10, DalaliType: "Q", BuyerDalaliRate: 5, SellerDalaliRate: 4}

	first, err := Commission(FromOrderItem(oi), Buyer)
	require.NoError(t, err)
	second, err := Commission(FromOrderItem(oi), Buyer)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.InDelta(t, 1.00, first, 1e-6)
}
