package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/yash9657/grainhub/internal/handlers"
	"github.com/yash9657/grainhub/internal/token"
)

type Deps struct {
	AuthHandler        *handlers.AuthHandler
	ItemHandler        *handlers.ItemHandler
	CartHandler        *handlers.CartHandler
	OrderHandler       *handlers.OrderHandler
	StakeholderHandler *handlers.StakeholderHandler
	ProfileHandler     *handlers.ProfileHandler
	SearchHandler      *handlers.SearchHandler
	Tokens             *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)

	auth := v1.Group("", d.Tokens.AutoRefreshMiddleware)

	auth.GET("/search", d.SearchHandler.Search)

	auth.GET("/categories", d.ItemHandler.GetCategories)
	auth.POST("/categories", d.ItemHandler.CreateCategory)

	items := auth.Group("/items")
	items.GET("", d.ItemHandler.GetItems)
	items.GET("/:id", d.ItemHandler.GetItem)
	items.POST("", d.ItemHandler.CreateItem)
	items.PATCH("/:id", d.ItemHandler.PatchItem)
	items.DELETE("/:id", d.ItemHandler.DeleteItem)

	cart := auth.Group("/cart")
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.PATCH("/:id", d.CartHandler.PatchCartItem)
	cart.DELETE("/:id", d.CartHandler.DeleteFromCart)
	cart.POST("/checkout", d.CartHandler.Checkout)

	orders := auth.Group("/orders")
	orders.GET("/:id/items", d.OrderHandler.GetOrderItems)
	orders.PATCH("/:id/bill-paid", d.OrderHandler.PatchBillPaid)
	orders.DELETE("/:id", d.OrderHandler.DeleteOrder)

	auth.GET("/dashboard", d.OrderHandler.Dashboard)

	stakeholders := auth.Group("/stakeholders")
	stakeholders.GET("", d.StakeholderHandler.GetStakeholders)
	stakeholders.POST("", d.StakeholderHandler.CreateStakeholder)
	stakeholders.PATCH("/:id", d.StakeholderHandler.PatchStakeholder)
	stakeholders.DELETE("/:id", d.StakeholderHandler.DeleteStakeholder)
	stakeholders.GET("/:id/orders", d.StakeholderHandler.GetStakeholderOrders)
	stakeholders.GET("/:id/invoice", d.StakeholderHandler.GetInvoice)

	auth.GET("/profile", d.ProfileHandler.GetProfile)
	auth.PUT("/profile", d.ProfileHandler.PutProfile)
}
