package middleware

import (
	"github.com/labstack/echo/v4"

	"ecshop/internal/repository"
	"ecshop/internal/usecase"
)

// JWTのtvとDBのtoken_versionが一致するか確認。無効ユーザーも弾く。
// roleはDBの値で上書きする（発行後の権限変更を反映するため）。
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth, ok := AuthFrom(c)
			if !ok {
				return unauthorized(c)
			}

			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return unauthorized(c)
			}

			//DBから最新のuserを取得する
			user, err := userRepo.FindByID(c.Request().Context(), auth.UserID)
			if err != nil || user == nil || !user.IsActive {
				return unauthorized(c)
			}

			//token_version が一致しなければ強制ログアウト扱い（401）
			if user.TokenVersion != tv {
				return unauthorized(c)
			}

			c.Set(CtxAuthKey, usecase.AuthContext{UserID: user.ID, Role: user.Role})
			return next(c)
		}
	}
}
