package handlers

import (
	"errors"
	"net/http"
	"toolbox-portal/app/server/accounts"
	"toolbox-portal/app/server/permissions"
	"toolbox-portal/app/server/store"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Message 是所有非数据响应的格式，与前端约定使用 msg 字段
type Message struct {
	Msg string `json:"msg"`
}

// er 返回错误信息，未指定时使用状态码的默认描述
func (a *App) er(c echo.Context, statusCode int, msg ...string) error {
	text := http.StatusText(statusCode)
	if len(msg) > 0 {
		text = msg[0]
	}
	return c.JSON(statusCode, &Message{Msg: text})
}

func (a *App) ok(c echo.Context, statusCode int, msg string) error {
	return c.JSON(statusCode, &Message{Msg: msg})
}

// fail 把各层的错误映射为状态码与信息
func (a *App) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, accounts.ErrBadCredentials):
		return a.er(c, http.StatusUnauthorized, "Bad username or password")
	case errors.Is(err, permissions.ErrUnauthorized):
		return a.er(c, http.StatusForbidden, "Unauthorized")
	case errors.Is(err, store.ErrNotFound), errors.Is(err, permissions.ErrUserNotFound):
		return a.er(c, http.StatusNotFound, "User not found")
	case errors.Is(err, store.ErrConflict):
		return a.er(c, http.StatusBadRequest, "Username already exists")
	case errors.Is(err, accounts.ErrAdminExists):
		return a.er(c, http.StatusBadRequest, "Admin already exists")
	case errors.Is(err, store.ErrReservedAccount):
		return a.er(c, http.StatusBadRequest, "Cannot delete admin user")
	case errors.Is(err, accounts.ErrMissingField), errors.Is(err, permissions.ErrInvalidModule):
		return a.er(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, accounts.ErrBootstrapPasswordMissing):
		return a.er(c, http.StatusInternalServerError, "Admin password not configured")
	default:
		a.l.Error("request failed", zap.String("URI", c.Request().RequestURI), zap.Error(err))
		return a.er(c, http.StatusInternalServerError, err.Error())
	}
}
