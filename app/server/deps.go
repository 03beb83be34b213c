package main

import (
	"fmt"
	"toolbox-portal/app/server/accounts"
	"toolbox-portal/app/server/config"
	"toolbox-portal/app/server/inits"
	"toolbox-portal/app/server/sessions"
	"toolbox-portal/app/server/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// deps 是各命令共用的进程级依赖，启动时初始化一次
type deps struct {
	cfg      *config.Config
	l        *zap.Logger
	db       *store.DB
	rdb      *redis.Client
	revoker  *sessions.Revoker
	accounts *accounts.Service
}

func loadDeps(autoMigrate bool) (*deps, error) {
	// 初始化配置
	cfg, err := inits.Config(envFile)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	// 初始化日志
	l, err := inits.Logger(!cfg.System.IsProd)
	if err != nil {
		return nil, fmt.Errorf("error initializing logger: %w", err)
	}
	l.Debug("logger initialized")

	// 初始化数据库连接
	db, err := inits.DB(cfg.System.StoreURL, cfg.System.StoreKey, autoMigrate || cfg.System.AutoMigrate, l)
	if err != nil {
		return nil, fmt.Errorf("error initializing DB connection: %w", err)
	}

	// 初始化 redis 连接（可选）
	rdb, err := inits.Redis(cfg.System.RedisURL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error initializing Redis connection: %w", err)
	}
	if rdb == nil {
		l.Info("REDIS_URL not set, session revocation disabled")
	}

	revoker := sessions.NewRevoker(rdb, l)

	return &deps{
		cfg:      cfg,
		l:        l,
		db:       db,
		rdb:      rdb,
		revoker:  revoker,
		accounts: accounts.NewService(l, db, revoker, cfg.Security.AdminDefaultPassword),
	}, nil
}

func (d *deps) Close() {
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
	_ = d.db.Close()
	_ = d.l.Sync()
}
