package inits

import (
	"context"
	"fmt"
	"time"
	"toolbox-portal/app/server/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 打开托管 Postgres 的连接；key 不为空时作为连接密码，覆盖连接字符串中的密码
func DB(conn string, key string, autoMigrate bool, l *zap.Logger) (*store.DB, error) {
	pgxCfg, err := pgx.ParseConfig(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if key != "" {
		pgxCfg.Password = key
	}

	// 打开连接
	sqlDB := stdlib.OpenDB(*pgxCfg)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := store.New(db, l)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 迁移（表结构通常由托管平台维护，默认不执行）
	if autoMigrate {
		if err = s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return s, nil
}
