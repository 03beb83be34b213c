package handlers

import (
	"github.com/labstack/echo/v4"
)

// RegisterHandlers 绑定所有路由，auth 为令牌校验中间件
func (a *App) RegisterHandlers(e *echo.Echo, auth echo.MiddlewareFunc) {
	// 页面
	e.GET("/", a.LoginPage)
	e.GET("/dashboard", a.DashboardPage)
	e.GET("/users", a.UsersPage)
	e.GET("/healthz", a.HealthCheck)

	// 无认证
	e.POST("/login", a.Login)
	e.POST("/create-admin", a.CreateAdmin)
	e.POST("/delete-admin", a.DeleteAdmin)

	// 需要令牌
	e.POST("/update-admin-password", a.UpdateAdminPassword, auth)
	e.GET("/snake-game", a.SnakeGamePage, auth)

	api := e.Group("/api", auth)
	api.GET("/dashboard-data", a.DashboardData)
	api.GET("/check-auth", a.CheckAuth)

	api.GET("/users", a.UserList)
	api.POST("/users", a.UserCreate)
	api.DELETE("/users/:username", a.UserDelete)
	api.PUT("/users/:username/password", a.UserPasswordUpdate)
	api.GET("/users/:username/permissions", a.UserPermissionsGet)
	api.PUT("/users/:username/permissions", a.UserPermissionsUpdate)
}
