package handlers

import (
	"net/http"
	"toolbox-portal/app/server/constants"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (a *App) CreateAdmin(c echo.Context) error {
	if a.lockBootstrap {
		return a.er(c, http.StatusNotFound)
	}

	if err := a.accounts.CreateAdmin(c.Request().Context()); err != nil {
		return a.fail(c, err)
	}

	a.l.Info("admin user created", zap.String("IP", c.RealIP()))
	return a.ok(c, http.StatusCreated, "Admin user created successfully")
}

// UpdateAdminPassword 只有管理员本人可以把密码重置为配置的初始密码
func (a *App) UpdateAdminPassword(c echo.Context) error {
	username, err, statusCode := a.identity(c)
	if err != nil {
		return a.er(c, statusCode)
	}
	if username != constants.AdminUsername {
		return a.er(c, http.StatusForbidden, "Unauthorized")
	}

	if err = a.accounts.ResetAdminPassword(c.Request().Context()); err != nil {
		return a.fail(c, err)
	}

	return a.ok(c, http.StatusOK, "Admin password updated successfully")
}

// DeleteAdmin 不需要认证，部署时可通过 LOCK_BOOTSTRAP 关闭
func (a *App) DeleteAdmin(c echo.Context) error {
	if a.lockBootstrap {
		return a.er(c, http.StatusNotFound)
	}

	if err := a.accounts.DeleteAdmin(c.Request().Context()); err != nil {
		return a.fail(c, err)
	}

	a.l.Warn("admin user deleted", zap.String("IP", c.RealIP()))
	return a.ok(c, http.StatusOK, "Admin user deleted successfully")
}
