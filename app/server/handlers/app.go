package handlers

import (
	"toolbox-portal/app/server/accounts"
	"toolbox-portal/app/server/jwt"
	"toolbox-portal/app/server/permissions"

	"go.uber.org/zap"
)

type App struct {
	l             *zap.Logger           // 日志
	accounts      *accounts.Service     // 账户操作
	perms         *permissions.Resolver // 管理员与功能权限判断
	jwt           *jwt.JWT              // JWT ，用于无状态验证
	lockBootstrap bool                  // 是否关闭无认证的管理员初始化接口
}

func NewApp(l *zap.Logger, acc *accounts.Service, perms *permissions.Resolver, j *jwt.JWT, lockBootstrap bool) *App {
	return &App{
		l:             l,
		accounts:      acc,
		perms:         perms,
		jwt:           j,
		lockBootstrap: lockBootstrap,
	}
}
