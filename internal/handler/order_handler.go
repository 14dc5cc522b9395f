package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"ecshop/internal/config"
	"ecshop/internal/domain/model"
	"ecshop/internal/middleware"
	"ecshop/internal/repository"
	"ecshop/internal/usecase"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type OrderItemRequest struct {
	ProductID int64           `json:"product_id"`
	Partition string          `json:"partition"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest    `json:"items"`
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                `json:"payment_method"`
	PaymentIntentID string                `json:"payment_intent_id"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	ShippingCost    decimal.Decimal       `json:"shipping_cost"`
	TaxAmount       decimal.Decimal       `json:"tax_amount"`
	TotalAmount     decimal.Decimal       `json:"total_amount"`
	DiscountCode    string                `json:"discount_code"`
	DiscountAmount  decimal.Decimal       `json:"discount_amount"`
	Notes           string                `json:"notes"`
	ClearCart       bool                  `json:"clear_cart"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg.JWTSecret))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.POST("/:id/cancel", h.cancel)
}

func (h *OrderHandler) create(c echo.Context) error {
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}

	items := make([]usecase.PlaceOrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.PlaceOrderItem{
			Product:  model.ProductRef{ID: it.ProductID, Partition: model.Partition(it.Partition)},
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
			Size:     it.Size,
			Color:    it.Color,
		})
	}

	out, err := h.uc.Place(c.Request().Context(), auth, usecase.PlaceOrderInput{
		Items:           items,
		Shipping:        req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentIntentID: req.PaymentIntentID,
		Subtotal:        req.Subtotal,
		ShippingCost:    req.ShippingCost,
		TaxAmount:       req.TaxAmount,
		TotalAmount:     req.TotalAmount,
		DiscountCode:    req.DiscountCode,
		DiscountAmount:  req.DiscountAmount,
		Notes:           req.Notes,
		ClearCart:       req.ClearCart,
	})
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	page, err := queryInt(c, "page", 1)
	if err != nil {
		return badRequest(c, "invalid_page", "invalid page")
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return badRequest(c, "invalid_limit", "invalid limit")
	}

	out, err := h.uc.List(c.Request().Context(), auth, page, limit)
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid_id", "invalid id")
	}

	out, err := h.uc.Get(c.Request().Context(), auth, orderID)
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid_id", "invalid id")
	}

	out, err := h.uc.Cancel(c.Request().Context(), auth, orderID)
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, out)
}
