package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"ecshop/internal/domain/model"
	"ecshop/internal/usecase"
)

const (
	CtxAuthKey         = "auth"          // usecase.AuthContext
	CtxTokenVersionKey = "token_version" // int
)

// bearerAuth用のJWT検証ミドルウェア。発行は外部の認証サービス。
func AuthJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return unauthorized(c)
			}

			//Bearer形式か確認してtokenを抜く
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return unauthorized(c)
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return unauthorized(c)
			}

			//JWTをパースして検証する
			token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || token == nil || !token.Valid {
				return unauthorized(c)
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return unauthorized(c)
			}

			userID, err := parseUserID(claims["sub"])
			if err != nil || userID <= 0 {
				return unauthorized(c)
			}

			//roleを取り出す（USER/ADMIN）
			role, err := parseString(claims["role"])
			if err != nil || (role != string(model.RoleUser) && role != string(model.RoleAdmin)) {
				return unauthorized(c)
			}

			tv, err := parseInt(claims["tv"])
			if err != nil || tv < 0 {
				return unauthorized(c)
			}

			//contextへ保存（以降はAuthContextだけを見る）
			c.Set(CtxAuthKey, usecase.AuthContext{UserID: userID, Role: model.Role(role)})
			c.Set(CtxTokenVersionKey, tv)

			return next(c)
		}
	}
}

// AuthJWTが入れた呼び出し元
func AuthFrom(c echo.Context) (usecase.AuthContext, bool) {
	auth, ok := c.Get(CtxAuthKey).(usecase.AuthContext)
	if !ok || auth.UserID <= 0 {
		return usecase.AuthContext{}, false
	}
	return auth, true
}

// handlerと同じ形のエラーJSON
type errorBody struct {
	Kind    string `json:"kind"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorEnvelope{Error: errorBody{
		Kind: string(usecase.KindUnauthorized), Reason: "unauthorized", Message: "unauthorized",
	}})
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, errorEnvelope{Error: errorBody{
		Kind: string(usecase.KindForbidden), Reason: "admin_only", Message: "admin only",
	}})
}

// user_idをint64に変換する
func parseUserID(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("invalid sub")
	}
}

func parseString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New("invalid string")
	}
	return s, nil
}

func parseInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case string:
		i64, err := strconv.ParseInt(t, 10, 32)
		if err != nil {
			return 0, err
		}
		return int(i64), nil
	default:
		return 0, errors.New("invalid int")
	}
}
