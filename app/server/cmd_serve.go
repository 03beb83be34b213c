package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"toolbox-portal/app/server/apidocs"
	"toolbox-portal/app/server/handlers"
	"toolbox-portal/app/server/jwt"
	"toolbox-portal/app/server/middlewares"
	"toolbox-portal/app/server/pages"
	"toolbox-portal/app/server/permissions"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps(false)
		if err != nil {
			return err
		}
		defer d.Close()

		e, err := newServer(d)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// 启动 echo 服务
		go func() {
			if err := e.Start(d.cfg.System.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.l.Error("shutting down the server", zap.Error(err))
				stop()
			}
		}()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	},
}

func newServer(d *deps) (*echo.Echo, error) {
	l := d.l

	// 初始化 JWT
	j, err := jwt.New(d.cfg.Security.SignatureSecretKey)
	if err != nil {
		return nil, fmt.Errorf("error initializing JWT: %w", err)
	}

	renderer, err := pages.NewRenderer()
	if err != nil {
		return nil, err
	}

	// 准备 handler app
	handlerApp := handlers.NewApp(l, d.accounts, permissions.NewResolver(d.db), j, d.cfg.System.LockBootstrap)

	// 准备 echo 服务
	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			l.Info("request",
				zap.String("method", v.Method),
				zap.String("URI", v.URI),
				zap.Int("status", v.Status),
				zap.String("requestID", v.RequestID),
			)

			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: d.cfg.System.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// 绑定 echo 服务
	handlerApp.RegisterHandlers(e, middlewares.TokenAuth(j, d.revoker, l))

	// 添加 API 文档
	if !d.cfg.System.IsProd {
		if spec, err := apidocs.Spec(context.Background()); err != nil {
			l.Error("error initializing api docs", zap.Error(err))
		} else {
			e.Pre(apidocs.Doc("/api", spec))
		}
	}

	return e, nil
}
