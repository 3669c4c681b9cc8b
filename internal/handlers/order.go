package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/yash9657/grainhub/internal/dalali"
	"github.com/yash9657/grainhub/internal/events"
	"github.com/yash9657/grainhub/internal/models"
	"github.com/yash9657/grainhub/internal/service"
	"github.com/yash9657/grainhub/internal/token"
)

type OrderHandler struct {
	DB       *gorm.DB
	Orders   *service.OrderService
	Producer *events.Producer
}

// GetOrderItems returns the frozen snapshot rows plus per-line commissions
// recomputed from the snapshot, never from the live items.
func (h *OrderHandler) GetOrderItems(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	items, err := h.Orders.Items(c.Request().Context(), userID, id)
	if err != nil {
		return serviceError(c, err)
	}

	type lineView struct {
		models.OrderItem
		BuyerDalali  float64 `json:"buyer_dalali"`
		SellerDalali float64 `json:"seller_dalali"`
	}

	views := make([]lineView, len(items))
	for i, oi := range items {
		line := dalali.FromOrderItem(oi)
		buyer, err := dalali.Commission(line, dalali.Buyer)
		if err != nil {
			return serviceError(c, err)
		}
		seller, err := dalali.Commission(line, dalali.Seller)
		if err != nil {
			return serviceError(c, err)
		}
		views[i] = lineView{OrderItem: oi, BuyerDalali: buyer, SellerDalali: seller}
	}

	return c.JSON(http.StatusOK, views)
}

func (h *OrderHandler) DeleteOrder(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	order, err := h.Orders.Delete(c.Request().Context(), userID, id)
	if err != nil {
		return serviceError(c, err)
	}

	publish(c, h.Producer, events.TopicOrderEvents, map[string]any{
		"type":     "order_deleted",
		"userID":   userID,
		"orderID":  order.ID,
		"buyerID":  order.BuyerID,
		"sellerID": order.SellerID,
	})

	return c.NoContent(http.StatusNoContent)
}

func (h *OrderHandler) PatchBillPaid(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req struct {
		BillPaid *bool `json:"bill_paid"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.BillPaid == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bill_paid is required")
	}

	if err := h.Orders.SetBillPaid(c.Request().Context(), userID, id, *req.BillPaid); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "bill_paid": *req.BillPaid})
}

// Dashboard sums the user's orders in a created-at range.
func (h *OrderHandler) Dashboard(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	from, err := parseDateParam(c, "from")
	if err != nil {
		return err
	}
	to, err := parseDateParam(c, "to")
	if err != nil {
		return err
	}

	q := h.DB.Model(&models.Order{}).Where("user_id = ?", userID)
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at <= ?", *to)
	}

	var agg struct {
		Count        int64   `json:"count"`
		TotalBill    float64 `json:"total_bill"`
		BuyerDalali  float64 `json:"buyer_dalali"`
		SellerDalali float64 `json:"seller_dalali"`
		DalaliAmount float64 `json:"dalali_amount"`
	}
	row := q.Select(
		"COUNT(*) AS count, " +
			"COALESCE(SUM(total_bill_amount), 0) AS total_bill, " +
			"COALESCE(SUM(buyer_dalali), 0) AS buyer_dalali, " +
			"COALESCE(SUM(seller_dalali), 0) AS seller_dalali, " +
			"COALESCE(SUM(dalali_amount), 0) AS dalali_amount",
	).Scan(&agg)
	if row.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, row.Error.Error())
	}

	return c.JSON(http.StatusOK, agg)
}
