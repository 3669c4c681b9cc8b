package handlers

import (
	"errors"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/yash9657/grainhub/internal/dalali"
	"github.com/yash9657/grainhub/internal/events"
	"github.com/yash9657/grainhub/internal/logging"
	"github.com/yash9657/grainhub/internal/models"
	"github.com/yash9657/grainhub/internal/search"
	"github.com/yash9657/grainhub/internal/token"
	"github.com/yash9657/grainhub/internal/util"
)

type ItemHandler struct {
	DB       *gorm.DB
	ES       *elasticsearch.Client
	Index    string
	Producer *events.Producer
}

type itemRequest struct {
	Name             string  `json:"name"`
	CategoryID       uint    `json:"category_id"`
	Price            float64 `json:"price"`
	Weight           float64 `json:"weight"`
	DalaliType       string  `json:"dalali_type"`
	BuyerDalaliRate  float64 `json:"buyer_dalali_rate"`
	SellerDalaliRate float64 `json:"seller_dalali_rate"`
	ImageURL         *string `json:"image_url"`
}

func (r itemRequest) validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.CategoryID == 0 {
		return errors.New("category_id is required")
	}
	line := dalali.Line{
		Price:      r.Price,
		Weight:     r.Weight,
		Quantity:   1,
		DalaliType: r.DalaliType,
		BuyerRate:  r.BuyerDalaliRate,
		SellerRate: r.SellerDalaliRate,
	}
	return line.Validate()
}

func (h *ItemHandler) syncIndex(c echo.Context, item models.Item, deleted bool) {
	if h.ES == nil {
		return
	}
	ctx := c.Request().Context()
	var err error
	if deleted {
		err = search.DeleteItem(ctx, h.ES, h.Index, item.ID)
	} else {
		err = search.IndexItem(ctx, h.ES, h.Index, item)
	}
	if err != nil {
		logging.FromContext(ctx).Error("search index sync failed", "item_id", item.ID, "error", err)
	}
}

func (h *ItemHandler) GetItems(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Item{}).Where("user_id = ?", userID)
	if category := parseIntDefault(c.QueryParam("category_id"), 0); category > 0 {
		q = q.Where("category_id = ?", category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []models.Item
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ItemHandler) GetItem(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var item models.Item
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) CreateItem(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var req itemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	item := models.Item{
		UserID:           userID,
		CategoryID:       req.CategoryID,
		Name:             req.Name,
		Price:            req.Price,
		Weight:           req.Weight,
		DalaliType:       req.DalaliType,
		BuyerDalaliRate:  req.BuyerDalaliRate,
		SellerDalaliRate: req.SellerDalaliRate,
		ImageURL:         req.ImageURL,
	}
	if err := h.DB.Create(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.syncIndex(c, item, false)
	publish(c, h.Producer, events.TopicItemEvents, map[string]any{
		"type":   "item_created",
		"userID": userID,
		"itemID": item.ID,
		"name":   item.Name,
	})

	return c.JSON(http.StatusCreated, item)
}

func (h *ItemHandler) PatchItem(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req itemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var item models.Item
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	item.Name = req.Name
	item.CategoryID = req.CategoryID
	item.Price = req.Price
	item.Weight = req.Weight
	item.DalaliType = req.DalaliType
	item.BuyerDalaliRate = req.BuyerDalaliRate
	item.SellerDalaliRate = req.SellerDalaliRate
	item.ImageURL = req.ImageURL

	if err := h.DB.Save(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.syncIndex(c, item, false)
	publish(c, h.Producer, events.TopicItemEvents, map[string]any{
		"type":   "item_updated",
		"userID": userID,
		"itemID": item.ID,
		"name":   item.Name,
	})

	return c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) DeleteItem(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	res := h.DB.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Item{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "item not found")
	}

	h.syncIndex(c, models.Item{ID: id}, true)
	publish(c, h.Producer, events.TopicItemEvents, map[string]any{
		"type":   "item_deleted",
		"userID": userID,
		"itemID": id,
	})

	return c.NoContent(http.StatusNoContent)
}

func (h *ItemHandler) GetCategories(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var categories []models.Category
	if err := h.DB.Where("user_id = ?", userID).Order("name ASC").Find(&categories).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, categories)
}

func (h *ItemHandler) CreateCategory(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	category := models.Category{UserID: userID, Name: req.Name}
	if err := h.DB.Create(&category).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, category)
}
