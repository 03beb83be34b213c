package handlers

import (
	"net/http"
	"toolbox-portal/app/server/pages"

	"github.com/labstack/echo/v4"
)

func (a *App) LoginPage(c echo.Context) error {
	return c.Render(http.StatusOK, pages.Login, nil)
}

func (a *App) DashboardPage(c echo.Context) error {
	return c.Render(http.StatusOK, pages.Dashboard, nil)
}

func (a *App) UsersPage(c echo.Context) error {
	return c.Render(http.StatusOK, pages.Users, nil)
}

// SnakeGamePage 需要令牌，由 RegisterHandlers 挂载认证中间件
func (a *App) SnakeGamePage(c echo.Context) error {
	return c.Render(http.StatusOK, pages.SnakeGame, nil)
}
