package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yash9657/grainhub/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.RefreshToken{}, &models.Profile{},
		&models.Category{}, &models.Item{}, &models.CartItem{},
		&models.Stakeholder{}, &models.Order{}, &models.OrderItem{},
	))
	return db
}

func seedStakeholders(t *testing.T, db *gorm.DB, userID uint) (buyer, seller models.Stakeholder) {
	t.Helper()
	buyer = models.Stakeholder{UserID: userID, Type: models.StakeholderBuyer, Name: "Ramesh Traders"}
	seller = models.Stakeholder{UserID: userID, Type: models.StakeholderSeller, Name: "Patel Agro"}
	require.NoError(t, db.Create(&buyer).Error)
	require.NoError(t, db.Create(&seller).Error)
	return buyer, seller
}

func seedCart(t *testing.T, db *gorm.DB, userID uint) (models.Item, models.Item) {
	t.Helper()

	category := models.Category{UserID: userID, Name: "Wheat"}
	require.NoError(t, db.Create(&category).Error)

	percentItem := models.Item{
		UserID: userID, CategoryID: category.ID, Name: "Sharbati Wheat",
		Price: 100, Weight: 1, DalaliType: "%", BuyerDalaliRate: 2, SellerDalaliRate: 1,
	}
	quintalItem := models.Item{
		UserID: userID, CategoryID: category.ID, Name: "Desi Chana",
		Price: 50, Weight: 2, DalaliType: "Per Quintal", BuyerDalaliRate: 5, SellerDalaliRate: 4,
	}
	require.NoError(t, db.Create(&percentItem).Error)
	require.NoError(t, db.Create(&quintalItem).Error)

	require.NoError(t, db.Create(&models.CartItem{UserID: userID, ItemID: percentItem.ID, Quantity: 3}).Error)
	require.NoError(t, db.Create(&models.CartItem{UserID: userID, ItemID: quintalItem.ID, Quantity: 10}).Error)
	return percentItem, quintalItem
}

func TestCheckout(t *testing.T) {
	db := newTestDB(t)
	svc := &OrderService{DB: db}
	userID := uint(1)
	buyer, seller := seedStakeholders(t, db, userID)
	seedCart(t, db, userID)

	order, err := svc.Checkout(context.Background(), userID, CheckoutInput{
		BuyerID:   buyer.ID,
		SellerID:  seller.ID,
		OrderDate: time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC),
		Note:      "season opening lot",
	})
	require.NoError(t, err)

	// 100*1*3 + 50*2*10; buyer 6.00 + 1.00; seller 3.00 + 0.80
	require.InDelta(t, 1300, order.TotalBillAmount, 1e-6)
	require.InDelta(t, 7.00, order.BuyerDalali, 1e-6)
	require.InDelta(t, 3.80, order.SellerDalali, 1e-6)
	require.InDelta(t, order.BuyerDalali+order.SellerDalali, order.DalaliAmount, 1e-6)

	var orderCount, cartCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&cartCount).Error)
	require.EqualValues(t, 1, orderCount)
	require.EqualValues(t, 0, cartCount)

	var items []models.OrderItem
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&items).Error)
	require.Len(t, items, 2)
	for _, oi := range items {
		require.Contains(t, []string{"%", "Q"}, oi.DalaliType)
	}
}

func TestCheckoutSnapshotsOverriddenPrice(t *testing.T) {
	db := newTestDB(t)
	svc := &OrderService{DB: db}
	userID := uint(1)
	buyer, seller := seedStakeholders(t, db, userID)

	category := models.Category{UserID: userID, Name: "Wheat"}
	require.NoError(t, db.Create(&category).Error)
	item := models.Item{
		UserID: userID, CategoryID: category.ID, Name: "Sharbati Wheat",
		Price: 100, Weight: 1, DalaliType: "%", BuyerDalaliRate: 2, SellerDalaliRate: 1,
	}
	require.NoError(t, db.Create(&item).Error)

	negotiated := 90.0
	require.NoError(t, db.Create(&models.CartItem{UserID: userID, ItemID: item.ID, Quantity: 3, Price: &negotiated}).Error)

	order, err := svc.Checkout(context.Background(), userID, CheckoutInput{BuyerID: buyer.ID, SellerID: seller.ID})
	require.NoError(t, err)
	require.InDelta(t, 270, order.TotalBillAmount, 1e-6)
	require.InDelta(t, (2.0/100)*270, order.BuyerDalali, 1e-6)

	var oi models.OrderItem
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&oi).Error)
	require.InDelta(t, 90, oi.Price, 1e-6)

	// Canonical item price is untouched by the override.
	var fresh models.Item
	require.NoError(t, db.First(&fresh, item.ID).Error)
	require.InDelta(t, 100, fresh.Price, 1e-6)
}

func TestCheckoutEmptyCart(t *testing.T) {
	db := newTestDB(t)
	svc := &OrderService{DB: db}
	buyer, seller := seedStakeholders(t, db, 1)

	_, err := svc.Checkout(context.Background(), 1, CheckoutInput{BuyerID: buyer.ID, SellerID: seller.ID})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutRejectsWrongStakeholderSide(t *testing.T) {
	db := newTestDB(t)
	svc := &OrderService{DB: db}
	buyer, seller := seedStakeholders(t, db, 1)
	seedCart(t, db, 1)

	_, err := svc.Checkout(context.Background(), 1, CheckoutInput{BuyerID: seller.ID, SellerID: buyer.ID})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCheckoutRejectsForeignStakeholder(t *testing.T) {
	db := newTestDB(t)
	svc := &OrderService{DB: db}
	otherBuyer, _ := seedStakeholders(t, db, 2)
	_, seller := seedStakeholders(t, db, 1)
	seedCart(t, db, 1)

	_, err := svc.Checkout(context.Background(), 1, CheckoutInput{BuyerID: otherBuyer.ID, SellerID: seller.ID})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCheckoutRejectsUnknownDalaliType(t *testing.T) {
	db := newTestDB(t)
	svc := &OrderService{DB: db}
	userID := uint(1)
	buyer, seller := seedStakeholders(t, db, userID)

	category := models.Category{UserID: userID, Name: "Wheat"}
	require.NoError(t, db.Create(&category).Error)
	item := models.Item{
		UserID: userID, CategoryID: category.ID, Name: "Broken Row",
		Price: 10, Weight: 1, DalaliType: "flat", BuyerDalaliRate: 1, SellerDalaliRate: 1,
	}
	require.NoError(t, db.Create(&item).Error)
	require.NoError(t, db.Create(&models.CartItem{UserID: userID, ItemID: item.ID, Quantity: 1}).Error)

	_, err := svc.Checkout(context.Background(), userID, CheckoutInput{BuyerID: buyer.ID, SellerID: seller.ID})
	require.Error(t, err)

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.Zero(t, orderCount)
}

// Failure between order insert and order-item insert must leave nothing
// behind: drop the order_items table so step 3 fails after step 2 succeeded,
// then verify the order was rolled back and the cart is untouched.
func TestCheckoutRollsBackOnOrderItemFailure(t *testing.T) {
	db := newTestDB(t)
	svc := &OrderService{DB: db}
	userID := uint(1)
	buyer, seller := seedStakeholders(t, db, userID)
	seedCart(t, db, userID)

	require.NoError(t, db.Migrator().DropTable(&models.OrderItem{}))

	_, err := svc.Checkout(context.Background(), userID, CheckoutInput{BuyerID: buyer.ID, SellerID: seller.ID})
	require.Error(t, err)
	require.Contains(t, err.Error(), "order items")

	var orderCount, cartCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&cartCount).Error)
	require.Zero(t, orderCount)
	require.EqualValues(t, 2, cartCount)
}

func TestOrderTotalsMatchSnapshotRecomputation(t *testing.T) {
	db := newTestDB(t)
	svc := &OrderService{DB: db}
	userID := uint(1)
	buyer, seller := seedStakeholders(t, db, userID)
	percentItem, _ := seedCart(t, db, userID)

	order, err := svc.Checkout(context.Background(), userID, CheckoutInput{BuyerID: buyer.ID, SellerID: seller.ID})
	require.NoError(t, err)

	// Edit the live item afterwards; the snapshot sums must not move.
	require.NoError(t, db.Model(&models.Item{}).Where("id = ?", percentItem.ID).
		Updates(map[string]any{"price": 999, "buyer_dalali_rate": 9}).Error)

	items, err := svc.Items(context.Background(), userID, order.ID)
	require.NoError(t, err)

	var buyerSum, sellerSum float64
	for _, oi := range items {
		buyerSum += (pick(oi.DalaliType == "%", (oi.BuyerDalaliRate/100)*oi.Price*oi.Weight*float64(oi.Quantity),
			(oi.BuyerDalaliRate*oi.Weight*float64(oi.Quantity))/100))
		sellerSum += (pick(oi.DalaliType == "%", (oi.SellerDalaliRate/100)*oi.Price*oi.Weight*float64(oi.Quantity),
			(oi.SellerDalaliRate*oi.Weight*float64(oi.Quantity))/100))
	}
	require.InDelta(t, order.BuyerDalali, buyerSum, 1e-6)
	require.InDelta(t, order.SellerDalali, sellerSum, 1e-6)
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}

func TestDeleteOrder(t *testing.T) {
	db := newTestDB(t)
	svc := &OrderService{DB: db}
	userID := uint(1)
	buyer, seller := seedStakeholders(t, db, userID)
	seedCart(t, db, userID)

	order, err := svc.Checkout(context.Background(), userID, CheckoutInput{BuyerID: buyer.ID, SellerID: seller.ID})
	require.NoError(t, err)

	deleted, err := svc.Delete(context.Background(), userID, order.ID)
	require.NoError(t, err)
	require.Equal(t, buyer.ID, deleted.BuyerID)
	require.Equal(t, seller.ID, deleted.SellerID)

	var orderCount, itemCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&itemCount).Error)
	require.Zero(t, orderCount)
	require.Zero(t, itemCount)
}

func TestDeleteOrderNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := &OrderService{DB: db}

	_, err := svc.Delete(context.Background(), 1, 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetBillPaid(t *testing.T) {
	db := newTestDB(t)
	svc := &OrderService{DB: db}
	userID := uint(1)
	buyer, seller := seedStakeholders(t, db, userID)
	seedCart(t, db, userID)

	order, err := svc.Checkout(context.Background(), userID, CheckoutInput{BuyerID: buyer.ID, SellerID: seller.ID})
	require.NoError(t, err)

	require.NoError(t, svc.SetBillPaid(context.Background(), userID, order.ID, true))

	var fresh models.Order
	require.NoError(t, db.First(&fresh, order.ID).Error)
	require.True(t, fresh.BillPaid)

	require.ErrorIs(t, svc.SetBillPaid(context.Background(), 99, order.ID, false), ErrNotFound)
}

func TestListByStakeholderDateRange(t *testing.T) {
	db := newTestDB(t)
	svc := &OrderService{DB: db}
	userID := uint(1)
	buyer, seller := seedStakeholders(t, db, userID)

	mk := func(day int) {
		require.NoError(t, db.Create(&models.Order{
			UserID: userID, BuyerID: buyer.ID, SellerID: seller.ID,
			OrderDate: time.Date(2025, 11, day, 0, 0, 0, 0, time.UTC),
		}).Error)
	}
	mk(1)
	mk(10)
	mk(20)

	from := time.Date(2025, 11, 5, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)
	orders, err := svc.ListByStakeholder(context.Background(), userID, buyer, &from, &to)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, 10, orders[0].OrderDate.Day())

	all, err := svc.ListByStakeholder(context.Background(), userID, buyer, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.True(t, all[0].OrderDate.After(all[2].OrderDate))

	// Seller side sees the same orders through its own column.
	bySeller, err := svc.ListByStakeholder(context.Background(), userID, seller, nil, nil)
	require.NoError(t, err)
	require.Len(t, bySeller, 3)
}
