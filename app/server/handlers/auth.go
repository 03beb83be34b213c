package handlers

import (
	"fmt"
	"net/http"
	"toolbox-portal/app/server/middlewares"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// identity 返回 TokenAuth 写入的用户名
func (a *App) identity(c echo.Context) (string, error, int) {
	identity := middlewares.Identity(c)
	if identity == nil {
		return "", fmt.Errorf("missing identity"), http.StatusUnauthorized
	}
	return identity.Username, nil, http.StatusOK
}

// authUser 读取身份并查询管理员状态
func (a *App) authUser(c echo.Context, requireAdminRole bool) (username string, isAdmin bool, err error, statusCode int) {
	if username, err, statusCode = a.identity(c); err != nil {
		return "", false, err, statusCode
	}

	isAdmin, err = a.perms.IsAdmin(c.Request().Context(), username)
	if err != nil {
		return username, false, fmt.Errorf("resolve admin status: %w", err), http.StatusInternalServerError
	}

	// 验证权限
	if requireAdminRole && !isAdmin {
		return username, false, fmt.Errorf("requires admin role"), http.StatusForbidden
	}

	return username, isAdmin, nil, http.StatusOK
}

func (a *App) authFailed(c echo.Context, err error, statusCode int) error {
	switch statusCode {
	case http.StatusForbidden:
		return a.er(c, statusCode, "Unauthorized")
	case http.StatusInternalServerError:
		a.l.Error("failed to auth", zap.Error(err))
		return a.er(c, statusCode, err.Error())
	default:
		return a.er(c, statusCode)
	}
}
