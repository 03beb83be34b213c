package models

import "time"

type User struct {
	ID uint `gorm:"column:id;primaryKey"`

	// 基础信息
	Username string `gorm:"column:username;uniqueIndex;not null"`   // 用户名，全局唯一
	IsAdmin  bool   `gorm:"column:is_admin;not null;default:false"` // 是否为管理员：管理员跳过功能权限检查，可以管理用户

	// 登录认证相关
	Password string `gorm:"column:password;not null"` // 密码，使用 argon2id 储存（兼容旧的 pbkdf2:sha256 格式）

	CreatedAt time.Time `gorm:"column:created_at"`
}

func (User) TableName() string {
	return "users"
}
