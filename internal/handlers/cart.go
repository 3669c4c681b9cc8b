package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/yash9657/grainhub/internal/dalali"
	"github.com/yash9657/grainhub/internal/debounce"
	"github.com/yash9657/grainhub/internal/events"
	"github.com/yash9657/grainhub/internal/logging"
	"github.com/yash9657/grainhub/internal/models"
	"github.com/yash9657/grainhub/internal/service"
	"github.com/yash9657/grainhub/internal/token"
)

type CartHandler struct {
	DB       *gorm.DB
	Orders   *service.OrderService
	Producer *events.Producer

	// edits coalesces rapid price/quantity updates per cart line so only
	// the final value in the window hits the store.
	edits *debounce.Writer
}

func NewCartHandler(db *gorm.DB, orders *service.OrderService, producer *events.Producer) *CartHandler {
	h := &CartHandler{DB: db, Orders: orders, Producer: producer}
	h.edits = debounce.NewWriter(debounce.DefaultWait, h.flushEdit)
	return h
}

func (h *CartHandler) Close() {
	h.edits.Close()
}

func (h *CartHandler) flushEdit(lineID uint, field string, value float64) {
	var err error
	switch field {
	case "price":
		err = h.DB.Model(&models.CartItem{}).Where("id = ?", lineID).Update("price", value).Error
	case "quantity":
		err = h.DB.Model(&models.CartItem{}).Where("id = ?", lineID).Update("quantity", uint(value)).Error
	default:
		err = fmt.Errorf("unknown field %q", field)
	}
	if err != nil {
		logging.FromContext(context.Background()).Error("cart edit flush failed", "line_id", lineID, "field", field, "error", err)
	}
}

// GetCart returns the cart lines with their items plus the display totals.
func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var items []models.CartItem
	if err := h.DB.Preload("Item").Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	lines := make([]dalali.Line, len(items))
	for i, ci := range items {
		lines[i] = dalali.FromCartItem(ci)
	}
	totals, err := dalali.Aggregate(lines)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items":  items,
		"totals": totals,
	})
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		ItemID   uint `json:"item_id"`
		Quantity uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var item models.Item
	if err := h.DB.Where("id = ? AND user_id = ?", req.ItemID, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var line models.CartItem
	tx := h.DB.Where("user_id = ? AND item_id = ?", userID, req.ItemID).First(&line)
	if tx.Error == nil {
		line.Quantity += req.Quantity
		if err := h.DB.Save(&line).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	} else if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		line = models.CartItem{UserID: userID, ItemID: req.ItemID, Quantity: req.Quantity}
		if err := h.DB.Create(&line).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	} else {
		return echo.NewHTTPError(http.StatusInternalServerError, tx.Error.Error())
	}

	publish(c, h.Producer, events.TopicCartEvents, map[string]any{
		"type":     "cart_line_added",
		"userID":   userID,
		"itemID":   req.ItemID,
		"quantity": line.Quantity,
	})

	return c.JSON(http.StatusOK, line)
}

// PatchCartItem accepts a price and/or quantity edit for one line. The write
// is debounced: rapid edits coalesce and only the newest value is persisted.
func (h *CartHandler) PatchCartItem(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req struct {
		Price    *float64 `json:"price"`
		Quantity *uint    `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Price == nil && req.Quantity == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "price or quantity required")
	}
	if req.Price != nil && *req.Price <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "price must be > 0")
	}
	if req.Quantity != nil && *req.Quantity < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be >= 1")
	}

	var line models.CartItem
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&line).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if req.Price != nil {
		h.edits.Set(line.ID, "price", *req.Price)
	}
	if req.Quantity != nil {
		h.edits.Set(line.ID, "quantity", float64(*req.Quantity))
	}

	return c.NoContent(http.StatusAccepted)
}

func (h *CartHandler) DeleteFromCart(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	res := h.DB.Where("id = ? AND user_id = ?", id, userID).Delete(&models.CartItem{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
	}

	publish(c, h.Producer, events.TopicCartEvents, map[string]any{
		"type":   "cart_line_removed",
		"userID": userID,
		"lineID": id,
	})

	return c.NoContent(http.StatusNoContent)
}

// Checkout flushes pending edits so totals reflect the final values, then
// runs the atomic cart-to-order transaction.
func (h *CartHandler) Checkout(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var in service.CheckoutInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.edits.Flush()

	order, err := h.Orders.Checkout(c.Request().Context(), userID, in)
	if err != nil {
		return serviceError(c, err)
	}

	publish(c, h.Producer, events.TopicOrderEvents, map[string]any{
		"type":     "order_created",
		"userID":   userID,
		"orderID":  order.ID,
		"buyerID":  order.BuyerID,
		"sellerID": order.SellerID,
		"total":    order.TotalBillAmount,
	})

	return c.JSON(http.StatusCreated, order)
}
