// Package permissions 判断用户是否为管理员，以及非管理员可以使用哪些功能模块。
package permissions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"toolbox-portal/app/server/store"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidModule = errors.New("invalid module id")
)

type Store interface {
	AdminFlag(ctx context.Context, username string) (any, error)
	UserExists(ctx context.Context, username string) (bool, error)
	PermissionRecord(ctx context.Context, username string) (map[string]any, bool, error)
	UpsertPermissions(ctx context.Context, username string, flags map[string]bool) error
}

type Resolver struct {
	store Store
}

func NewResolver(s Store) *Resolver {
	return &Resolver{store: s}
}

// IsAdmin 用户不存在时返回 false
func (r *Resolver) IsAdmin(ctx context.Context, username string) (bool, error) {
	raw, err := r.store.AdminFlag(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get admin flag: %w", err)
	}
	return NormalizeFlag(raw), nil
}

// PermissionsFor 返回展示格式的权限；管理员不需要调用（默认拥有全部权限）
func (r *Resolver) PermissionsFor(ctx context.Context, username string) (map[string]bool, error) {
	record, found, err := r.store.PermissionRecord(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get permission record: %w", err)
	}
	if !found {
		return Defaults(), nil
	}

	perms := make(map[string]bool, len(record))
	for column, value := range record {
		if _, meta := recordMetaColumns[column]; meta {
			continue
		}
		if value == nil {
			// 未设置的列沿用默认允许
			perms[ToPresentationKey(column)] = true
			continue
		}
		perms[ToPresentationKey(column)] = NormalizeFlag(value)
	}
	return perms, nil
}

// SetPermissionsFor 由管理员 caller 更新 username 的权限；只保存布尔值，其他值忽略。
// 返回实际保存的内容（展示格式）。
func (r *Resolver) SetPermissionsFor(ctx context.Context, caller string, username string, updates map[string]any) (map[string]bool, error) {
	isAdmin, err := r.IsAdmin(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, ErrUnauthorized
	}

	exists, err := r.store.UserExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	flags, applied, err := filterUpdates(updates)
	if err != nil {
		return nil, err
	}

	if err = r.store.UpsertPermissions(ctx, username, flags); err != nil {
		return nil, fmt.Errorf("upsert permissions: %w", err)
	}
	return applied, nil
}

func filterUpdates(updates map[string]any) (flags map[string]bool, applied map[string]bool, err error) {
	keys := make([]string, 0, len(updates))
	for key := range updates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	flags = make(map[string]bool, len(updates))
	applied = make(map[string]bool, len(updates))
	for _, key := range keys {
		value, ok := updates[key].(bool)
		if !ok || key == "username" {
			continue
		}
		if !ValidModuleID(key) {
			return nil, nil, fmt.Errorf("%w: %q", ErrInvalidModule, key)
		}
		flags[ToStorageKey(key)] = value
		applied[key] = value
	}
	return flags, applied, nil
}
