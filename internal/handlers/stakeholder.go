package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/yash9657/grainhub/internal/events"
	"github.com/yash9657/grainhub/internal/invoice"
	"github.com/yash9657/grainhub/internal/models"
	"github.com/yash9657/grainhub/internal/service"
	"github.com/yash9657/grainhub/internal/token"
)

type StakeholderHandler struct {
	DB       *gorm.DB
	Orders   *service.OrderService
	Producer *events.Producer
}

func parseDateParam(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, name+" must be YYYY-MM-DD")
	}
	if name == "to" {
		end := t.Add(24*time.Hour - time.Nanosecond)
		return &end, nil
	}
	return &t, nil
}

func (h *StakeholderHandler) lookup(c echo.Context, userID uint) (*models.Stakeholder, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, err
	}

	var sh models.Stakeholder
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&sh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "stakeholder not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return &sh, nil
}

// GetStakeholders lists the user's buyers or sellers, filtered by ?type=.
func (h *StakeholderHandler) GetStakeholders(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	q := h.DB.Where("user_id = ?", userID)
	if typ := c.QueryParam("type"); typ != "" {
		if typ != models.StakeholderBuyer && typ != models.StakeholderSeller {
			return echo.NewHTTPError(http.StatusBadRequest, "type must be buyer or seller")
		}
		q = q.Where("type = ?", typ)
	}

	var stakeholders []models.Stakeholder
	if err := q.Order("name ASC").Find(&stakeholders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stakeholders)
}

func (h *StakeholderHandler) CreateStakeholder(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		Type    string `json:"type"`
		Name    string `json:"name"`
		Address string `json:"address"`
		Phone   string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if req.Type != models.StakeholderBuyer && req.Type != models.StakeholderSeller {
		return echo.NewHTTPError(http.StatusBadRequest, "type must be buyer or seller")
	}

	sh := models.Stakeholder{
		UserID:  userID,
		Type:    req.Type,
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
	}
	if err := h.DB.Create(&sh).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, sh)
}

func (h *StakeholderHandler) PatchStakeholder(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	sh, err := h.lookup(c, userID)
	if err != nil {
		return err
	}

	var req struct {
		Name    string `json:"name"`
		Address string `json:"address"`
		Phone   string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	sh.Name = req.Name
	sh.Address = req.Address
	sh.Phone = req.Phone
	if err := h.DB.Save(sh).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sh)
}

func (h *StakeholderHandler) DeleteStakeholder(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	sh, err := h.lookup(c, userID)
	if err != nil {
		return err
	}

	var refs int64
	if err := h.DB.Model(&models.Order{}).
		Where("user_id = ? AND (buyer_id = ? OR seller_id = ?)", userID, sh.ID, sh.ID).
		Count(&refs).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if refs > 0 {
		return echo.NewHTTPError(http.StatusConflict, "stakeholder has orders and cannot be deleted")
	}

	if err := h.DB.Delete(sh).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// GetStakeholderOrders returns the stakeholder plus their orders, optionally
// bounded by ?from= and ?to= order dates.
func (h *StakeholderHandler) GetStakeholderOrders(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	sh, err := h.lookup(c, userID)
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

	orders, err := h.Orders.ListByStakeholder(c.Request().Context(), userID, *sh, from, to)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"stakeholder": sh,
		"orders":      orders,
	})
}

// GetInvoice renders the stakeholder's commission invoice over the selected
// date range as a PDF.
func (h *StakeholderHandler) GetInvoice(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	sh, err := h.lookup(c, userID)
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

	orders, err := h.Orders.ListByStakeholder(c.Request().Context(), userID, *sh, from, to)
	if err != nil {
		return serviceError(c, err)
	}

	var entries []invoice.Entry
	for _, order := range orders {
		items, err := h.Orders.Items(c.Request().Context(), userID, order.ID)
		if err != nil {
			return serviceError(c, err)
		}
		for _, oi := range items {
			var item models.Item
			name := "(deleted item)"
			if err := h.DB.Select("name").First(&item, oi.ItemID).Error; err == nil {
				name = item.Name
			}
			entries = append(entries, invoice.Entry{
				OrderItem: oi,
				ItemName:  name,
				OrderDate: order.OrderDate,
			})
		}
	}

	inv, err := invoice.Build(*sh, entries)
	if err != nil {
		return serviceError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="invoice.pdf"`)
	c.Response().Header().Set(echo.HeaderContentType, "application/pdf")
	c.Response().WriteHeader(http.StatusOK)
	return inv.RenderPDF(c.Response())
}
