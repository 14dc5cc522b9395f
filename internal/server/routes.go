package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"ecshop/internal/config"
	"ecshop/internal/handler"
	"ecshop/internal/repository"
)

type Handlers struct {
	Products      *handler.ProductHandler
	Cart          *handler.CartHandler
	Discounts     *handler.DiscountHandler
	Orders        *handler.OrderHandler
	AdminOrders   *handler.AdminOrderHandler
	Notifications *handler.NotificationHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, handler.Envelope{Success: true, Data: handler.MessageResponse{Message: "ok"}})
	})

	h.Products.RegisterRoutes(e)
	h.Cart.RegisterRoutes(e, cfg, userRepo)
	h.Discounts.RegisterRoutes(e, cfg, userRepo)
	h.Orders.RegisterRoutes(e, cfg, userRepo)
	h.Notifications.RegisterRoutes(e, cfg, userRepo)
	h.AdminOrders.RegisterRoutes(e, cfg, userRepo)
}
