package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"ecshop/internal/domain/model"
	"ecshop/internal/usecase"
)

// /products の公開API
type ProductHandler struct {
	uc *usecase.CatalogUsecase
}

// DI
func NewProductHandler(uc *usecase.CatalogUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/products", h.list)
	e.GET("/products/:partition/:id", h.detail)
}

func (h *ProductHandler) list(c echo.Context) error {
	// page（default 1）
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return badRequest(c, "invalid_page", "invalid page")
	}

	// limit（default 20）
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return badRequest(c, "invalid_limit", "invalid limit")
	}

	out, err := h.uc.List(c.Request().Context(), usecase.ListProductsInput{
		Partition: c.QueryParam("partition"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid_id", "invalid id")
	}

	ref := model.ProductRef{ID: id, Partition: model.Partition(strings.ToLower(c.Param("partition")))}
	p, err := h.uc.Get(c.Request().Context(), ref)
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, p)
}
