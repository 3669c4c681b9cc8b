package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yash9657/grainhub/internal/models"
	"github.com/yash9657/grainhub/internal/service"
	"github.com/yash9657/grainhub/internal/token"
)

type testEnv struct {
	T            *testing.T
	E            *echo.Echo
	DB           *gorm.DB
	Tokens       *token.TokenService
	Auth         *AuthHandler
	Cart         *CartHandler
	Items        *ItemHandler
	Orders       *OrderHandler
	Stakeholders *StakeholderHandler
	Profile      *ProfileHandler
}

func newTestEnv(t *testing.T) *testEnv {
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

	tokens := &token.TokenService{
		DB:            db,
		JWTSecret:     []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
	orders := &service.OrderService{DB: db}

	env := &testEnv{
		T:            t,
		E:            echo.New(),
		DB:           db,
		Tokens:       tokens,
		Auth:         &AuthHandler{DB: db, Tokens: tokens},
		Cart:         NewCartHandler(db, orders, nil),
		Items:        &ItemHandler{DB: db},
		Orders:       &OrderHandler{DB: db, Orders: orders},
		Stakeholders: &StakeholderHandler{DB: db, Orders: orders},
		Profile:      &ProfileHandler{DB: db},
	}

	t.Cleanup(func() {
		env.Cart.Close()
	})
	return env
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

// asUser stores the identity the auto-refresh middleware would have set.
func asUser(c echo.Context, userID uint) {
	c.Set("userID", userID)
	c.Set("role", "user")
}

func (env *testEnv) seedUserData(userID uint) (buyer, seller models.Stakeholder, percentItem, quintalItem models.Item) {
	t := env.T
	t.Helper()

	buyer = models.Stakeholder{UserID: userID, Type: models.StakeholderBuyer, Name: "Ramesh Traders"}
	seller = models.Stakeholder{UserID: userID, Type: models.StakeholderSeller, Name: "Patel Agro"}
	require.NoError(t, env.DB.Create(&buyer).Error)
	require.NoError(t, env.DB.Create(&seller).Error)

	category := models.Category{UserID: userID, Name: "Wheat"}
	require.NoError(t, env.DB.Create(&category).Error)

	percentItem = models.Item{
		UserID: userID, CategoryID: category.ID, Name: "Sharbati Wheat",
		Price: 100, Weight: 1, DalaliType: "%", BuyerDalaliRate: 2, SellerDalaliRate: 1,
	}
	quintalItem = models.Item{
		UserID: userID, CategoryID: category.ID, Name: "Desi Chana",
		Price: 50, Weight: 2, DalaliType: "Per Quintal", BuyerDalaliRate: 5, SellerDalaliRate: 4,
	}
	require.NoError(t, env.DB.Create(&percentItem).Error)
	require.NoError(t, env.DB.Create(&quintalItem).Error)
	return buyer, seller, percentItem, quintalItem
}
