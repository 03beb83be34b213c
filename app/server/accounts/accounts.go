// Package accounts 实现账户相关操作（登录校验、用户管理、管理员初始化），HTTP 接口与命令行共用。
package accounts

import (
	"context"
	"errors"
	"fmt"
	"toolbox-portal/app/server/constants"
	"toolbox-portal/app/server/models"
	"toolbox-portal/app/server/passwords"
	"toolbox-portal/app/server/store"

	"go.uber.org/zap"
)

var (
	ErrBadCredentials           = errors.New("bad username or password")
	ErrMissingField             = errors.New("missing required field")
	ErrAdminExists              = errors.New("admin already exists")
	ErrBootstrapPasswordMissing = errors.New("admin password not configured")
)

type Store interface {
	Ping(ctx context.Context) error
	FindUser(ctx context.Context, username string) (*models.User, error)
	UserExists(ctx context.Context, username string) (bool, error)
	ListUsers(ctx context.Context) ([]store.UserRow, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, username string, hash string) error
	DeleteUser(ctx context.Context, username string) error
	DeleteReservedAdmin(ctx context.Context) error
}

type Revoker interface {
	Revoke(ctx context.Context, username string) error
}

type Service struct {
	l         *zap.Logger
	store     Store
	revoker   Revoker
	bootstrap string // 初始管理员密码 (ADMIN_DEFAULT_PASSWORD)
}

func NewService(l *zap.Logger, s Store, r Revoker, bootstrapPassword string) *Service {
	return &Service{
		l:         l,
		store:     s,
		revoker:   r,
		bootstrap: bootstrapPassword,
	}
}

// Authenticate 校验用户名与密码；旧格式的哈希在校验成功后升级为 argon2id
func (s *Service) Authenticate(ctx context.Context, username string, password string) error {
	if username == "" || password == "" {
		return ErrBadCredentials
	}

	user, err := s.store.FindUser(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrBadCredentials
		}
		return err
	}

	// 提取密码 hash 并进行校验
	match, err := passwords.Verify(password, user.Password)
	if err != nil {
		if errors.Is(err, passwords.ErrUnknownHashFormat) {
			s.l.Warn("stored password hash has unknown format", zap.String("username", username))
			return ErrBadCredentials
		}
		return err
	}
	if !match {
		return ErrBadCredentials
	}

	if passwords.NeedsRehash(user.Password) {
		s.rehash(ctx, username, password)
	}
	return nil
}

func (s *Service) rehash(ctx context.Context, username string, password string) {
	hash, err := passwords.Hash(password)
	if err != nil {
		s.l.Error("failed to rehash password", zap.String("username", username), zap.Error(err))
		return
	}
	if err = s.store.UpdatePassword(ctx, username, hash); err != nil {
		s.l.Error("failed to store rehashed password", zap.String("username", username), zap.Error(err))
		return
	}
	s.l.Info("upgraded legacy password hash", zap.String("username", username))
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) ListUsers(ctx context.Context) ([]store.UserRow, error) {
	return s.store.ListUsers(ctx)
}

func (s *Service) CreateUser(ctx context.Context, username string, password string, isAdmin bool) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: username or password", ErrMissingField)
	}

	hash, err := passwords.Hash(password)
	if err != nil {
		return err
	}

	return s.store.CreateUser(ctx, &models.User{
		Username: username,
		Password: hash,
		IsAdmin:  isAdmin,
	})
}

func (s *Service) SetPassword(ctx context.Context, username string, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password", ErrMissingField)
	}

	hash, err := passwords.Hash(password)
	if err != nil {
		return err
	}

	if err = s.store.UpdatePassword(ctx, username, hash); err != nil {
		return err
	}
	s.revoke(ctx, username)
	return nil
}

func (s *Service) DeleteUser(ctx context.Context, username string) error {
	if err := s.store.DeleteUser(ctx, username); err != nil {
		return err
	}
	s.revoke(ctx, username)
	return nil
}

// CreateAdmin 使用配置的初始密码创建保留管理员账户，已存在时返回 ErrAdminExists
func (s *Service) CreateAdmin(ctx context.Context) error {
	exists, err := s.store.UserExists(ctx, constants.AdminUsername)
	if err != nil {
		return err
	}
	if exists {
		return ErrAdminExists
	}

	if s.bootstrap == "" {
		return ErrBootstrapPasswordMissing
	}

	err = s.CreateUser(ctx, constants.AdminUsername, s.bootstrap, true)
	if errors.Is(err, store.ErrConflict) {
		// 并发创建
		return ErrAdminExists
	}
	return err
}

// ResetAdminPassword 把管理员密码重置为配置的初始密码
func (s *Service) ResetAdminPassword(ctx context.Context) error {
	if s.bootstrap == "" {
		return ErrBootstrapPasswordMissing
	}
	return s.SetPassword(ctx, constants.AdminUsername, s.bootstrap)
}

func (s *Service) DeleteAdmin(ctx context.Context) error {
	if err := s.store.DeleteReservedAdmin(ctx); err != nil {
		return err
	}
	s.revoke(ctx, constants.AdminUsername)
	return nil
}

// 吊销失败不影响主操作，只记录日志
func (s *Service) revoke(ctx context.Context, username string) {
	if s.revoker == nil {
		return
	}
	if err := s.revoker.Revoke(ctx, username); err != nil {
		s.l.Warn("sessions not revoked", zap.String("username", username), zap.Error(err))
	}
}
