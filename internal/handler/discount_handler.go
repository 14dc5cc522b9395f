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

type DiscountHandler struct {
	uc *usecase.DiscountUsecase
}

func NewDiscountHandler(uc *usecase.DiscountUsecase) *DiscountHandler {
	return &DiscountHandler{uc: uc}
}

type DiscountRequest struct {
	Code     string             `json:"code"`
	Subtotal decimal.Decimal    `json:"subtotal"`
	Products []model.ProductRef `json:"products"`
}

func (h *DiscountHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/discounts")
	g.Use(middleware.AuthJWT(cfg.JWTSecret))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.POST("/validate", h.validate)
	g.POST("/apply", h.apply)
}

func (h *DiscountHandler) validate(c echo.Context) error {
	var req DiscountRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}

	out, err := h.uc.Validate(c.Request().Context(), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, out)
}

func (h *DiscountHandler) apply(c echo.Context) error {
	var req DiscountRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}

	out, err := h.uc.Apply(c.Request().Context(), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, out)
}

func (r DiscountRequest) input() usecase.DiscountInput {
	return usecase.DiscountInput{
		Code:     r.Code,
		Subtotal: r.Subtotal,
		Products: r.Products,
	}
}
