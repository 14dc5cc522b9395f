package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"ecshop/internal/config"
	"ecshop/internal/middleware"
	"ecshop/internal/repository"
	"ecshop/internal/usecase"
)

type AdminOrderHandler struct {
	orders *usecase.OrderUsecase
	admin  *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(orders *usecase.OrderUsecase, admin *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{orders: orders, admin: admin}
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

type OrderStatusOverrideRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type PurgeOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg.JWTSecret))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("/orders", h.list)
	admin.PUT("/orders/:id/status", h.updateStatus)
	admin.PUT("/orders/:id/override", h.overrideStatus)
	admin.DELETE("/orders/:id", h.purge)
	admin.GET("/orders/:id/audit-logs", h.auditLogs)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	page, err := queryInt(c, "page", 1)
	if err != nil {
		return badRequest(c, "invalid_page", "invalid page")
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return badRequest(c, "invalid_limit", "invalid limit")
	}

	var userID *int64
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid_user_id", "invalid user_id")
		}
		userID = &id
	}

	var fromPtr *time.Time
	if v := c.QueryParam("from"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid_from", "invalid from")
		}
		fromPtr = &tm
	}

	var toPtr *time.Time
	if v := c.QueryParam("to"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid_to", "invalid to")
		}
		toPtr = &tm
	}

	out, err := h.admin.List(c.Request().Context(), auth, usecase.AdminListOrdersInput{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
		UserID: userID,
		From:   fromPtr,
		To:     toPtr,
	})
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, out)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	// ★操作した管理者（監査ログ用）
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid_id", "invalid id")
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}

	out, err := h.orders.UpdateStatus(c.Request().Context(), auth, orderID, req.Status)
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, out)
}

func (h *AdminOrderHandler) overrideStatus(c echo.Context) error {
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid_id", "invalid id")
	}

	var req OrderStatusOverrideRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}

	out, err := h.admin.OverrideStatus(c.Request().Context(), auth, orderID, usecase.OverrideStatusInput{
		Status: req.Status,
		Reason: req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, out)
}

func (h *AdminOrderHandler) purge(c echo.Context) error {
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid_id", "invalid id")
	}

	var req PurgeOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}

	if err := h.admin.Purge(c.Request().Context(), auth, orderID, req.Reason); err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, MessageResponse{Message: "purged"})
}

func (h *AdminOrderHandler) auditLogs(c echo.Context) error {
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid_id", "invalid id")
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return badRequest(c, "invalid_limit", "invalid limit")
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return badRequest(c, "invalid_offset", "invalid offset")
	}

	out, err := h.admin.AuditTrail(c.Request().Context(), auth, orderID, usecase.AuditTrailInput{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, http.StatusOK, out)
}
