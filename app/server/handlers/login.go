package handlers

import (
	"net/http"
	"toolbox-portal/app/server/constants"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginToken struct {
	AccessToken string `json:"access_token"`
	Redirect    string `json:"redirect"`
}

func (a *App) Login(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		a.l.Debug("failed to bind json body", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}

	if err := a.accounts.Authenticate(rctx, req.Username, req.Password); err != nil {
		return a.fail(c, err)
	}

	// 签出 JWT
	token, err := a.jwt.Issue(req.Username)
	if err != nil {
		a.l.Error("failed to sign token", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 管理员与普通用户都进入仪表板
	return c.JSON(http.StatusOK, &LoginToken{
		AccessToken: token,
		Redirect:    constants.DashboardPath,
	})
}
