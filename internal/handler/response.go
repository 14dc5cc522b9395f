package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"ecshop/internal/middleware"
	"ecshop/internal/usecase"
)

// 成功も失敗も同じ封筒で返す
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Kind    string         `json:"kind"`
	Reason  string         `json:"reason"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

var kindStatus = map[usecase.ErrorKind]int{
	usecase.KindNotFound:              http.StatusNotFound,
	usecase.KindUnauthorized:          http.StatusUnauthorized,
	usecase.KindForbidden:             http.StatusForbidden,
	usecase.KindValidation:            http.StatusBadRequest,
	usecase.KindStockExceeded:         http.StatusConflict,
	usecase.KindBelowMinimum:          http.StatusUnprocessableEntity,
	usecase.KindCodeExpiredOrInactive: http.StatusUnprocessableEntity,
	usecase.KindNotApplicableToCart:   http.StatusUnprocessableEntity,
	usecase.KindNoEffectiveDiscount:   http.StatusUnprocessableEntity,
	usecase.KindInvalidTransition:     http.StatusConflict,
	usecase.KindConflict:              http.StatusConflict,
	usecase.KindInternal:              http.StatusInternalServerError,
}

func StatusForKind(kind usecase.ErrorKind) int {
	if s, ok := kindStatus[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func writeOK(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if ae, ok := usecase.AsAppError(err); ok {
		body := &ErrorBody{Kind: string(ae.Kind), Reason: ae.Reason, Message: ae.Message, Details: ae.Details}
		if ae.Kind == usecase.KindInternal {
			// 中身は出さない
			body = &ErrorBody{Kind: string(usecase.KindInternal), Reason: "internal", Message: "internal error"}
		}
		return c.JSON(StatusForKind(ae.Kind), Envelope{Error: body})
	}

	//500。原因はアクセスログ側で出す
	middleware.SetErrorCause(c, err)
	return c.JSON(http.StatusInternalServerError, Envelope{Error: &ErrorBody{
		Kind: string(usecase.KindInternal), Reason: "internal", Message: "internal error",
	}})
}

func badRequest(c echo.Context, reason, message string) error {
	return writeError(c, usecase.NewAppError(usecase.KindValidation, reason, message))
}

func getAuth(c echo.Context) (usecase.AuthContext, bool) {
	return middleware.AuthFrom(c)
}

func unauthorized(c echo.Context) error {
	return writeError(c, usecase.NewAppError(usecase.KindUnauthorized, "unauthorized", "unauthorized"))
}

func parseID(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// 空ならdef
func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
