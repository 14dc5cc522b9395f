package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"ecshop/internal/config"
	"ecshop/internal/middleware"
	"ecshop/internal/repository"
	"ecshop/internal/usecase"
)

type NotificationHandler struct {
	uc *usecase.NotificationUsecase
}

func NewNotificationHandler(uc *usecase.NotificationUsecase) *NotificationHandler {
	return &NotificationHandler{uc: uc}
}

func (h *NotificationHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/notifications")
	g.Use(middleware.AuthJWT(cfg.JWTSecret))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.GET("", h.list)
	g.PATCH("/:id/read", h.markRead)
}

func (h *NotificationHandler) list(c echo.Context) error {
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return badRequest(c, "invalid_limit", "invalid limit")
	}

	out, err := h.uc.List(c.Request().Context(), auth, limit)
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, out)
}

func (h *NotificationHandler) markRead(c echo.Context) error {
	auth, ok := getAuth(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid_id", "invalid id")
	}

	if err := h.uc.MarkRead(c.Request().Context(), auth, id); err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, MessageResponse{Message: "read"})
}
