// Package store 封装托管 Postgres 上的 users 与 user_permissions 两张表。
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"toolbox-portal/app/server/constants"
	"toolbox-portal/app/server/models"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrConflict        = errors.New("username already exists")
	ErrReservedAccount = errors.New("cannot delete admin user")
)

const (
	tableUsers       = "users"
	tablePermissions = "user_permissions"
)

// UserRow 是列表查询的一行，is_admin 保留数据库中的原始值
type UserRow struct {
	Username string
	IsAdmin  any
}

type DB struct {
	db *gorm.DB
	l  *zap.Logger
}

func New(db *gorm.DB, l *zap.Logger) *DB {
	if l == nil {
		l = zap.NewNop()
	}
	return &DB{db: db, l: l}
}

func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("resolve sql db handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	return d.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.PermissionRecord{},
	)
}

// AdminFlag 返回 is_admin 列的原始值，可能是布尔、字符串或数字
func (d *DB) AdminFlag(ctx context.Context, username string) (any, error) {
	var rows []map[string]any
	if err := d.db.WithContext(ctx).
		Table(tableUsers).
		Select("is_admin").
		Where("username = ?", username).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, d.logError("failed to get admin flag", err, username)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0]["is_admin"], nil
}

func (d *DB) UserExists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Count(&count).Error; err != nil {
		return false, d.logError("failed to count user", err, username)
	}
	return count > 0, nil
}

func (d *DB) FindUser(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, d.logError("failed to find user", err, username)
	}
	return &user, nil
}

func (d *DB) ListUsers(ctx context.Context) ([]UserRow, error) {
	var rows []map[string]any
	if err := d.db.WithContext(ctx).
		Table(tableUsers).
		Select("username", "is_admin").
		Order("username ASC").
		Find(&rows).Error; err != nil {
		return nil, d.logError("failed to list users", err, "")
	}

	users := make([]UserRow, 0, len(rows))
	for _, row := range rows {
		username, _ := row["username"].(string)
		users = append(users, UserRow{Username: username, IsAdmin: row["is_admin"]})
	}
	return users, nil
}

func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	if err := d.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return d.logError("failed to create user", err, user.Username)
	}
	return nil
}

func (d *DB) UpdatePassword(ctx context.Context, username string, hash string) error {
	res := d.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Update("password", hash)
	if res.Error != nil {
		return d.logError("failed to update password", res.Error, username)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser 拒绝删除保留的管理员账户，管理员只能通过 DeleteReservedAdmin 删除
func (d *DB) DeleteUser(ctx context.Context, username string) error {
	if username == constants.AdminUsername {
		return ErrReservedAccount
	}

	deleted, err := d.deleteUser(ctx, username)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (d *DB) DeleteReservedAdmin(ctx context.Context) error {
	_, err := d.deleteUser(ctx, constants.AdminUsername)
	return err
}

func (d *DB) deleteUser(ctx context.Context, username string) (deleted bool, err error) {
	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先清理权限记录
		if err := tx.Where("username = ?", username).Delete(&models.PermissionRecord{}).Error; err != nil {
			return err
		}

		res := tx.Where("username = ?", username).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, d.logError("failed to delete user", err, username)
	}
	return deleted, nil
}

// PermissionRecord 返回权限记录的全部列（存储格式的列名），没有记录时 found 为 false
func (d *DB) PermissionRecord(ctx context.Context, username string) (record map[string]any, found bool, err error) {
	var rows []map[string]any
	if err = d.db.WithContext(ctx).
		Table(tablePermissions).
		Where("username = ?", username).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, false, d.logError("failed to get permissions", err, username)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// UpsertPermissions 按 username 插入或更新权限记录，只覆盖 flags 中出现的列
func (d *DB) UpsertPermissions(ctx context.Context, username string, flags map[string]bool) error {
	row := map[string]any{"username": username}
	columns := make([]string, 0, len(flags))
	for column, value := range flags {
		row[column] = value
		columns = append(columns, column)
	}
	sort.Strings(columns)

	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "username"}},
	}
	if len(columns) == 0 {
		onConflict.DoNothing = true
	} else {
		onConflict.DoUpdates = clause.AssignmentColumns(columns)
	}

	if err := d.db.WithContext(ctx).
		Table(tablePermissions).
		Clauses(onConflict).
		Create(row).Error; err != nil {
		return d.logError("failed to upsert permissions", err, username)
	}
	return nil
}

func (d *DB) logError(msg string, err error, username string) error {
	d.l.Error(msg, zap.String("username", username), zap.Error(err))
	return fmt.Errorf("%s: %w", msg, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
