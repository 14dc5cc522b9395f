package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"ecshop/internal/config"
	"ecshop/internal/domain/model"
	"ecshop/internal/middleware"
	"ecshop/internal/repository"
	"ecshop/internal/usecase"
)

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type AddCartRequest struct {
	ProductID int64  `json:"product_id"`
	Partition string `json:"partition"`
	Quantity  int64  `json:"quantity"`
	Color     string `json:"color"`
	Size      string `json:"size"`
}

type UpdateCartItemRequest struct {
	Quantity int64 `json:"quantity"`
}

type ClearCartResponse struct {
	Removed int64 `json:"removed"`
}

// /cart, /cart/{id} を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/cart")
	g.Use(middleware.AuthJWT(cfg.JWTSecret))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.GET("", h.getCart)
	g.POST("", h.addToCart)
	g.DELETE("", h.clear)
	g.GET("/count", h.count)
	g.PATCH("/:id", h.patchItem)
	g.DELETE("/:id", h.deleteItem)
}

func (h *CartHandler) getCart(c echo.Context) error {
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.List(c.Request().Context(), auth)
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, out)
}

func (h *CartHandler) addToCart(c echo.Context) error {
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}

	out, err := h.uc.Add(c.Request().Context(), auth, usecase.AddCartInput{
		Product:  model.ProductRef{ID: req.ProductID, Partition: model.Partition(req.Partition)},
		Quantity: req.Quantity,
		Color:    req.Color,
		Size:     req.Size,
	})
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, out)
}

func (h *CartHandler) patchItem(c echo.Context) error {
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	itemID, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid_id", "invalid id")
	}

	var req UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}

	out, err := h.uc.UpdateQuantity(c.Request().Context(), auth, itemID, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	itemID, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid_id", "invalid id")
	}

	if err := h.uc.Remove(c.Request().Context(), auth, itemID); err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, MessageResponse{Message: "removed"})
}

func (h *CartHandler) clear(c echo.Context) error {
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	n, err := h.uc.Clear(c.Request().Context(), auth)
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, ClearCartResponse{Removed: n})
}

func (h *CartHandler) count(c echo.Context) error {
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.Count(c.Request().Context(), auth)
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, out)
}
