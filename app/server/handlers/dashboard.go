package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type DashboardData struct {
	Status        string `json:"status"`
	User          string `json:"user"`
	Authenticated bool   `json:"authenticated"`
	IsAdmin       bool   `json:"is_admin"`
}

type AuthCheck struct {
	Status        string          `json:"status"`
	Msg           string          `json:"msg"`
	User          string          `json:"user"`
	IsAdmin       bool            `json:"is_admin"`
	Permissions   map[string]bool `json:"permissions"`
	Authenticated bool            `json:"authenticated"`
}

func (a *App) DashboardData(c echo.Context) error {
	username, isAdmin, err, statusCode := a.authUser(c, false)
	if err != nil {
		return a.authFailed(c, err, statusCode)
	}

	return c.JSON(http.StatusOK, &DashboardData{
		Status:        "success",
		User:          username,
		Authenticated: true,
		IsAdmin:       isAdmin,
	})
}

// CheckAuth 返回当前用户与权限；管理员拥有全部权限，不查询权限记录
func (a *App) CheckAuth(c echo.Context) error {
	username, isAdmin, err, statusCode := a.authUser(c, false)
	if err != nil {
		if statusCode != http.StatusInternalServerError {
			return a.authFailed(c, err, statusCode)
		}
		a.l.Error("auth check error", zap.String("username", username), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, &AuthCheck{
			Status: "error",
			Msg:    "Error checking authorization",
			User:   username,
		})
	}

	perms := map[string]bool{}
	if !isAdmin {
		if perms, err = a.perms.PermissionsFor(c.Request().Context(), username); err != nil {
			a.l.Error("auth check error", zap.String("username", username), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, &AuthCheck{
				Status: "error",
				Msg:    "Error checking authorization",
				User:   username,
			})
		}
	}

	return c.JSON(http.StatusOK, &AuthCheck{
		Status:        "success",
		Msg:           "Authorized",
		User:          username,
		IsAdmin:       isAdmin,
		Permissions:   perms,
		Authenticated: true,
	})
}
