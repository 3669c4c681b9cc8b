// Package dalali holds the commission arithmetic shared by the cart view,
// checkout, invoices and order details. It has no dependencies on the
// storage layer so snapshots and live rows compute through the same code.
package dalali

import (
	"errors"
	"fmt"

	"github.com/yash9657/grainhub/internal/models"
)

var (
	ErrUnknownType = errors.New("unknown dalali type")
	ErrValidation  = errors.New("validation")
)

type Party string

const (
	Buyer  Party = "buyer"
	Seller Party = "seller"
)

// Normalized dalali type codes as persisted on order_items.
const (
	Percent    = "%"
	PerQuintal = "Q"
)

// Normalize maps both the item-table spelling ("Per Quintal") and the
// order_items code ("Q") onto the single-character code. Anything else is a
// data-integrity error and is never silently defaulted.
func Normalize(dalaliType string) (string, error) {
	switch dalaliType {
	case Percent:
		return Percent, nil
	case PerQuintal, "Per Quintal":
		return PerQuintal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, dalaliType)
	}
}

// Line carries the pricing fields of one cart line or order-item snapshot.
type Line struct {
	Price      float64
	Weight     float64
	Quantity   uint
	DalaliType string
	BuyerRate  float64
	SellerRate float64
}

// Amount is the monetary value of the line: price * weight * quantity.
func (l Line) Amount() float64 {
	return l.Price * l.Weight * float64(l.Quantity)
}

// Validate rejects the inputs the calculator itself does not guard against.
// Callers must run it before any write.
func (l Line) Validate() error {
	if l.Price < 0 {
		return fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if l.Weight < 0 {
		return fmt.Errorf("%w: weight must be >= 0", ErrValidation)
	}
	if l.BuyerRate < 0 || l.SellerRate < 0 {
		return fmt.Errorf("%w: dalali rate must be >= 0", ErrValidation)
	}
	if _, err := Normalize(l.DalaliType); err != nil {
		return err
	}
	return nil
}

// Commission computes the dalali one party owes for the line.
func Commission(l Line, p Party) (float64, error) {
	rate := l.BuyerRate
	if p == Seller {
		rate = l.SellerRate
	}

	typ, err := Normalize(l.DalaliType)
	if err != nil {
		return 0, err
	}

	switch typ {
	case Percent:
		return (rate / 100) * l.Amount(), nil
	default: // PerQuintal
		return (rate * l.Weight * float64(l.Quantity)) / 100, nil
	}
}

// FromCartItem builds a Line from a cart row, applying the per-line price
// override when one is set. The canonical item price is left untouched.
func FromCartItem(ci models.CartItem) Line {
	price := ci.Item.Price
	if ci.Price != nil {
		price = *ci.Price
	}
	return Line{
		Price:      price,
		Weight:     ci.Item.Weight,
		Quantity:   ci.Quantity,
		DalaliType: ci.Item.DalaliType,
		BuyerRate:  ci.Item.BuyerDalaliRate,
		SellerRate: ci.Item.SellerDalaliRate,
	}
}

// FromOrderItem builds a Line from a frozen order snapshot.
func FromOrderItem(oi models.OrderItem) Line {
	return Line{
		Price:      oi.Price,
		Weight:     oi.Weight,
		Quantity:   oi.Quantity,
		DalaliType: oi.DalaliType,
		BuyerRate:  oi.BuyerDalaliRate,
		SellerRate: oi.SellerDalaliRate,
	}
}

type Totals struct {
	Total        float64 `json:"total"`
	BuyerDalali  float64 `json:"buyer_dalali"`
	SellerDalali float64 `json:"seller_dalali"`
}

// Aggregate sums the bill amount and both dalali sides over the given lines.
// An empty slice yields zero totals.
func Aggregate(lines []Line) (Totals, error) {
	var t Totals
	for _, l := range lines {
		buyer, err := Commission(l, Buyer)
		if err != nil {
			return Totals{}, err
		}
		seller, err := Commission(l, Seller)
		if err != nil {
			return Totals{}, err
		}
		t.Total += l.Amount()
		t.BuyerDalali += buyer
		t.SellerDalali += seller
	}
	return t, nil
}
