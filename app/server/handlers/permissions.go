package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (a *App) UserPermissionsGet(c echo.Context) error {
	// 抓取 user 信息（认证）
	_, _, err, statusCode := a.authUser(c, true)
	if err != nil {
		return a.authFailed(c, err, statusCode)
	}

	// 没有权限记录时返回默认权限
	perms, err := a.perms.PermissionsFor(c.Request().Context(), c.Param("username"))
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(http.StatusOK, perms)
}

func (a *App) UserPermissionsUpdate(c echo.Context) error {
	// 抓取 user 信息（认证）
	identity, _, err, statusCode := a.authUser(c, true)
	if err != nil {
		return a.authFailed(c, err, statusCode)
	}

	// 只绑定请求体，避免路径参数混入
	updates := map[string]any{}
	if err = (&echo.DefaultBinder{}).BindBody(c, &updates); err != nil {
		a.l.Debug("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}

	username := c.Param("username")
	applied, err := a.perms.SetPermissionsFor(c.Request().Context(), identity, username, updates)
	if err != nil {
		return a.fail(c, err)
	}

	a.l.Info("permissions updated",
		zap.String("operator", identity),
		zap.String("username", username),
		zap.Any("permissions", applied),
	)

	return a.ok(c, http.StatusOK, "Permissions updated successfully")
}
