package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"toolbox-portal/app/server/jwt"
	"toolbox-portal/app/server/sessions"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	contextKeyIdentity   = "identity"
	contextKeyTokenError = "token_error"
)

var errRevoked = errors.New("session revoked")

// TokenAuth 校验 Authorization: Bearer <token> ，失败时在进入 handler 前返回 401
func TokenAuth(j *jwt.JWT, rv *sessions.Revoker, l *zap.Logger) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  contextKeyIdentity,
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			identity, err := j.Verify(auth)
			if err != nil {
				c.Set(contextKeyTokenError, err)
				return nil, err
			}

			// 修改密码或删除账户之前签发的令牌
			if rv.Revoked(c.Request().Context(), identity.Username, identity.IssuedAt) {
				err = fmt.Errorf("%w: %w", jwt.ErrInvalidToken, errRevoked)
				c.Set(contextKeyTokenError, err)
				return nil, err
			}

			return identity, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			tokenErr, _ := c.Get(contextKeyTokenError).(error)
			if tokenErr == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"msg": "Missing Authorization Header"})
			}

			l.Debug("rejected token", zap.String("URI", c.Request().RequestURI), zap.Error(tokenErr))
			if errors.Is(tokenErr, jwt.ErrTokenExpired) {
				return c.JSON(http.StatusUnauthorized, map[string]string{"msg": "Token has expired"})
			}
			return c.JSON(http.StatusUnauthorized, map[string]string{"msg": "Invalid token"})
		},
	})
}

// Identity 返回 TokenAuth 写入的身份，未经过 TokenAuth 时为 nil
func Identity(c echo.Context) *jwt.Identity {
	identity, _ := c.Get(contextKeyIdentity).(*jwt.Identity)
	return identity
}
