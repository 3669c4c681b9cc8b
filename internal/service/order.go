package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yash9657/grainhub/internal/dalali"
	"github.com/yash9657/grainhub/internal/models"
)

var (
	ErrValidation = errors.New("validation") // 400
	ErrNotFound   = errors.New("not found")  // 404
	ErrEmptyCart  = errors.New("cart is empty")
)

type OrderService struct {
	DB *gorm.DB
}

type CheckoutInput struct {
	BuyerID   uint      `json:"buyer_id"`
	SellerID  uint      `json:"seller_id"`
	OrderDate time.Time `json:"order_date"`
	Note      string    `json:"note"`
}

// Checkout converts the user's cart into an Order with frozen OrderItems and
// clears the cart, all inside one transaction. Totals are recomputed here
// from the live cart rows; client-supplied totals are never trusted. Any
// failing step rolls the whole sequence back.
func (s *OrderService) Checkout(ctx context.Context, userID uint, in CheckoutInput) (*models.Order, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: no user identity", ErrValidation)
	}
	if in.BuyerID == 0 || in.SellerID == 0 {
		return nil, fmt.Errorf("%w: buyer_id and seller_id required", ErrValidation)
	}
	if in.OrderDate.IsZero() {
		in.OrderDate = time.Now()
	}
	if len(in.Note) > 200 {
		return nil, fmt.Errorf("%w: note must be at most 200 characters", ErrValidation)
	}

	var order models.Order

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireStakeholder(tx, userID, in.BuyerID, models.StakeholderBuyer); err != nil {
			return err
		}
		if err := s.requireStakeholder(tx, userID, in.SellerID, models.StakeholderSeller); err != nil {
			return err
		}

		var cart []models.CartItem
		if err := tx.Preload("Item").Where("user_id = ?", userID).Order("id ASC").Find(&cart).Error; err != nil {
			return fmt.Errorf("loading cart: %w", err)
		}
		if len(cart) == 0 {
			return ErrEmptyCart
		}

		lines := make([]dalali.Line, len(cart))
		for i, ci := range cart {
			lines[i] = dalali.FromCartItem(ci)
			if err := lines[i].Validate(); err != nil {
				return fmt.Errorf("cart line %d: %w", ci.ID, err)
			}
		}

		totals, err := dalali.Aggregate(lines)
		if err != nil {
			return err
		}

		order = models.Order{
			UserID:          userID,
			BuyerID:         in.BuyerID,
			SellerID:        in.SellerID,
			OrderDate:       in.OrderDate,
			Note:            in.Note,
			BuyerDalali:     totals.BuyerDalali,
			SellerDalali:    totals.SellerDalali,
			DalaliAmount:    totals.BuyerDalali + totals.SellerDalali,
			TotalBillAmount: totals.Total,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("creating order: %w", err)
		}

		orderItems := make([]models.OrderItem, len(cart))
		for i, ci := range cart {
			code, err := dalali.Normalize(ci.Item.DalaliType)
			if err != nil {
				return err
			}
			orderItems[i] = models.OrderItem{
				OrderID:          order.ID,
				ItemID:           ci.ItemID,
				Price:            lines[i].Price,
				Weight:           ci.Item.Weight,
				Quantity:         ci.Quantity,
				DalaliType:       code,
				BuyerDalaliRate:  ci.Item.BuyerDalaliRate,
				SellerDalaliRate: ci.Item.SellerDalaliRate,
			}
		}
		if err := tx.Create(&orderItems).Error; err != nil {
			return fmt.Errorf("creating order items: %w", err)
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("clearing cart: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return &order, nil
}

func (s *OrderService) requireStakeholder(tx *gorm.DB, userID, id uint, typ string) error {
	var sh models.Stakeholder
	if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&sh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s %d", ErrNotFound, typ, id)
		}
		return fmt.Errorf("loading %s: %w", typ, err)
	}
	if sh.Type != typ {
		return fmt.Errorf("%w: stakeholder %d is not a %s", ErrValidation, id, typ)
	}
	return nil
}

// Delete removes an order and its items in one transaction. The order is
// looked up first so callers get the buyer/seller ids for event emission.
func (s *OrderService) Delete(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	var order models.Order

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
			}
			return fmt.Errorf("loading order: %w", err)
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
			return fmt.Errorf("deleting order items: %w", err)
		}
		if err := tx.Delete(&models.Order{}, orderID).Error; err != nil {
			return fmt.Errorf("deleting order: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return &order, nil
}

// SetBillPaid toggles the buyer-side paid flag, the one mutable order field.
func (s *OrderService) SetBillPaid(ctx context.Context, userID, orderID uint, paid bool) error {
	res := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND user_id = ?", orderID, userID).
		Update("bill_paid", paid)
	if res.Error != nil {
		return fmt.Errorf("updating bill_paid: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	return nil
}

// ListByStakeholder returns the user's orders where the stakeholder appears
// on its own side, newest first, optionally bounded by order_date.
func (s *OrderService) ListByStakeholder(ctx context.Context, userID uint, sh models.Stakeholder, from, to *time.Time) ([]models.Order, error) {
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	switch sh.Type {
	case models.StakeholderBuyer:
		q = q.Where("buyer_id = ?", sh.ID)
	case models.StakeholderSeller:
		q = q.Where("seller_id = ?", sh.ID)
	default:
		return nil, fmt.Errorf("%w: unknown stakeholder type %q", ErrValidation, sh.Type)
	}
	if from != nil {
		q = q.Where("order_date >= ?", *from)
	}
	if to != nil {
		q = q.Where("order_date <= ?", *to)
	}

	var orders []models.Order
	if err := q.Order("order_date DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Items returns the frozen snapshot rows of one order.
func (s *OrderService) Items(ctx context.Context, userID, orderID uint) ([]models.OrderItem, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}

	var items []models.OrderItem
	if err := s.DB.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
