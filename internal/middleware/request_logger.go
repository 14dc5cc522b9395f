package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ハンドラが封筒にしたエラーの元。アクセスログに載せる。
const CtxErrorKey = "error_cause"

func SetErrorCause(c echo.Context, err error) {
	c.Set(CtxErrorKey, err)
}

// 1リクエスト1行のアクセスログ
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				//echoのエラーハンドラでレスポンスを確定させてからステータスを読む
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", c.Path()),
				zap.String("uri", req.RequestURI),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
			}
			if auth, ok := AuthFrom(c); ok {
				fields = append(fields, zap.Int64("user_id", auth.UserID))
			}
			if cause, ok := c.Get(CtxErrorKey).(error); ok {
				fields = append(fields, zap.Error(cause))
			}

			switch {
			case res.Status >= 500:
				log.Error("request", fields...)
			case res.Status >= 400:
				log.Warn("request", fields...)
			default:
				log.Info("request", fields...)
			}
			return nil
		}
	}
}
