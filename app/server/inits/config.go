package inits

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"toolbox-portal/app/server/config"

	"github.com/spf13/viper"
)

// Config 从环境变量和可选的 .env 文件加载配置，环境变量优先
func Config(envFile string) (*config.Config, error) {
	v := viper.New()

	v.SetDefault("PORT", "5001")
	v.SetDefault("CORS_ORIGINS", "*")

	// .env 文件不存在时忽略
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var pathErr *fs.PathError
			if !errors.As(err, &pathErr) || !errors.Is(pathErr.Err, os.ErrNotExist) {
				return nil, fmt.Errorf("read env file %s: %w", envFile, err)
			}
		}
	}
	v.AutomaticEnv()

	var cfg config.Config

	cfg.System.IsProd = strings.HasPrefix(strings.ToLower(v.GetString("MODE")), "p")

	if listen := v.GetString("LISTEN"); listen != "" {
		cfg.System.Listen = listen
	} else {
		cfg.System.Listen = ":" + v.GetString("PORT")
	}

	if cfg.System.StoreURL = v.GetString("STORE_URL"); cfg.System.StoreURL == "" {
		return nil, fmt.Errorf("STORE_URL environment variable not set")
	}
	cfg.System.StoreKey = v.GetString("STORE_KEY")
	cfg.System.RedisURL = v.GetString("REDIS_URL")
	cfg.System.AutoMigrate = v.GetBool("AUTO_MIGRATE")
	cfg.System.LockBootstrap = v.GetBool("LOCK_BOOTSTRAP")

	for _, origin := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.System.CORSOrigins = append(cfg.System.CORSOrigins, origin)
		}
	}

	if cfg.Security.SignatureSecretKey = v.GetString("JWT_SECRET_KEY"); cfg.Security.SignatureSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable not set")
	}

	// 缺失时不阻止启动，由管理员初始化接口返回错误
	cfg.Security.AdminDefaultPassword = v.GetString("ADMIN_DEFAULT_PASSWORD")

	return &cfg, nil
}
