package handlers

import (
	"net/http"
	"toolbox-portal/app/server/permissions"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type UserInfo struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IsAdmin  any    `json:"is_admin"` // 兼容字符串与数字
}

type UserPasswordUpdateRequest struct {
	Password string `json:"password"`
}

func (a *App) UserList(c echo.Context) error {
	// 抓取 user 信息（认证）
	_, _, err, statusCode := a.authUser(c, true)
	if err != nil {
		return a.authFailed(c, err, statusCode)
	}

	rows, err := a.accounts.ListUsers(c.Request().Context())
	if err != nil {
		return a.fail(c, err)
	}

	// 默认返回全部用户
	rows, err = paginate(a, c, rows)
	if err != nil {
		a.l.Debug("failed to bind pagination", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}

	resUsers := make([]UserInfo, 0, len(rows))
	for _, row := range rows {
		resUsers = append(resUsers, UserInfo{
			Username: row.Username,
			IsAdmin:  permissions.NormalizeFlag(row.IsAdmin),
		})
	}

	return c.JSON(http.StatusOK, resUsers)
}

func (a *App) UserCreate(c echo.Context) error {
	// 抓取 user 信息（认证）
	_, _, err, statusCode := a.authUser(c, true)
	if err != nil {
		return a.authFailed(c, err, statusCode)
	}

	// 绑定请求体
	var req UserCreateRequest
	if err = c.Bind(&req); err != nil {
		a.l.Debug("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if req.Username == "" || req.Password == "" {
		return a.er(c, http.StatusBadRequest, "Missing username or password")
	}

	if err = a.accounts.CreateUser(c.Request().Context(), req.Username, req.Password, permissions.NormalizeFlag(req.IsAdmin)); err != nil {
		return a.fail(c, err)
	}

	return a.ok(c, http.StatusCreated, "User created successfully")
}

func (a *App) UserDelete(c echo.Context) error {
	// 抓取 user 信息（认证）
	_, _, err, statusCode := a.authUser(c, true)
	if err != nil {
		return a.authFailed(c, err, statusCode)
	}

	if err = a.accounts.DeleteUser(c.Request().Context(), c.Param("username")); err != nil {
		return a.fail(c, err)
	}

	return a.ok(c, http.StatusOK, "User deleted successfully")
}

func (a *App) UserPasswordUpdate(c echo.Context) error {
	// 抓取 user 信息（认证）
	_, _, err, statusCode := a.authUser(c, true)
	if err != nil {
		return a.authFailed(c, err, statusCode)
	}

	// 绑定请求体
	var req UserPasswordUpdateRequest
	if err = c.Bind(&req); err != nil {
		a.l.Debug("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if req.Password == "" {
		return a.er(c, http.StatusBadRequest, "Missing new password")
	}

	if err = a.accounts.SetPassword(c.Request().Context(), c.Param("username"), req.Password); err != nil {
		return a.fail(c, err)
	}

	return a.ok(c, http.StatusOK, "Password updated successfully")
}
