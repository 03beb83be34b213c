package constants

import "time"

const (
	AuthTokenDuration = 1 * time.Hour // 会话令牌有效期
	AdminUsername     = "admin"       // 保留的管理员账户
	DashboardPath     = "/dashboard"  // 登录后跳转地址
)
