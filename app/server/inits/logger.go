package inits

import (
	"fmt"

	"go.uber.org/zap"
)

func Logger(debugMode bool) (l *zap.Logger, err error) {
	if debugMode {
		l, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.DisableStacktrace = true // 生产环境中错误日志已带有上下文字段
		l, err = cfg.Build()
	}
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	return l.Named("portal"), nil
}
