/**
 * internal/server/server.go
 * 预览服务器组装
 *
 * 功能：
 * - 组装 Gin 引擎：限流 + 静态文件 + 热重载
 * - 提供健康检查端点
 */

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"size-build/internal/config"
	"size-build/internal/utils"
)

// Server 预览服务器
type Server struct {
	engine     *gin.Engine
	livereload *LiveReload
	distDir    string
	port       string
}

// New 组装预览服务器
func New(cfg *config.Config) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	limiter, err := NewIPRateLimiter(0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	lr := NewLiveReload()

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RateLimit(limiter))

	engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	engine.GET("/livereload", lr.Handler)
	engine.GET("/", lr.ServeIndex(cfg.DistDir))
	engine.Use(Static(cfg.DistDir))
	engine.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "not found")
	})

	return &Server{
		engine:     engine,
		livereload: lr,
		distDir:    cfg.DistDir,
		port:       cfg.PreviewPort,
	}, nil
}

// Run 启动预览服务器并开始监听产物目录
// 阻塞直到服务器退出
func (s *Server) Run(ctx context.Context) error {
	go s.livereload.Watch(ctx, s.distDir)

	addr := ":" + s.port
	utils.LogPrintf("[SERVER] Preview server listening on http://localhost%s", addr)

	if err := s.engine.Run(addr); err != nil {
		return fmt.Errorf("preview server failed: %w", err)
	}
	return nil
}
