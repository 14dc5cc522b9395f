package usecase

import (
	"fmt"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// エラーの種類。HTTPステータスへの変換はhandlerが持つ。
type ErrorKind string

const (
	KindNotFound              ErrorKind = "NotFound"
	KindUnauthorized          ErrorKind = "Unauthorized"
	KindForbidden             ErrorKind = "Forbidden"
	KindValidation            ErrorKind = "Validation"
	KindStockExceeded         ErrorKind = "StockExceeded"
	KindBelowMinimum          ErrorKind = "BelowMinimum"
	KindCodeExpiredOrInactive ErrorKind = "CodeExpiredOrInactive"
	KindNotApplicableToCart   ErrorKind = "NotApplicableToCart"
	KindNoEffectiveDiscount   ErrorKind = "NoEffectiveDiscount"
	KindInvalidTransition     ErrorKind = "InvalidTransition"
	KindConflict              ErrorKind = "Conflict"
	KindInternal              ErrorKind = "Internal"
)

// 業務エラー。Reasonは機械向けの細かい理由、Detailsは呼び出し側が判断に使う値。
type AppError struct {
	Kind    ErrorKind
	Reason  string
	Message string
	Details map[string]any

	cause error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s(%s): %s: %v", e.Kind, e.Reason, e.Message, e.cause)
	}
	return fmt.Sprintf("%s(%s): %s", e.Kind, e.Reason, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// detailを1つ足して返す
func (e *AppError) With(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

func NewAppError(kind ErrorKind, reason, message string) *AppError {
	return &AppError{Kind: kind, Reason: reason, Message: message}
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

func errUnauthorized() *AppError {
	return NewAppError(KindUnauthorized, "unauthorized", "unauthorized")
}

func errForbidden() *AppError {
	return NewAppError(KindForbidden, "forbidden", "forbidden")
}

func errValidation(reason, message string) *AppError {
	return NewAppError(KindValidation, reason, message)
}

func errNotFound(reason, message string) *AppError {
	return NewAppError(KindNotFound, reason, message)
}

// 想定外の失敗はここでログに残し、呼び出し側には中身を出さない
func internalError(log *zap.Logger, op string, err error, fields ...zap.Field) error {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	log.Error("internal error", fields...)
	return &AppError{
		Kind:    KindInternal,
		Reason:  "internal",
		Message: "internal error",
		cause:   err,
	}
}

// WithinTxの戻り値用。AppErrorはそのまま、それ以外（commit失敗など）はInternal。
func txError(log *zap.Logger, op string, err error, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	if _, ok := AsAppError(err); ok {
		return err
	}
	return internalError(log, op, err, fields...)
}
