/**
 * cmd/preview/main.go
 * 产物预览服务器
 *
 * 功能：
 * - 本地服务 dist 目录（.br 优先）
 * - 监听产物变化并热重载浏览器
 *
 * 用法：
 *   go run ./cmd/preview
 */

package main

import (
	"context"
	"os/signal"
	"syscall"

	"size-build/internal/config"
	"size-build/internal/server"
	"size-build/internal/utils"
)

func main() {
	defer utils.SyncLogger()

	cfg := config.MustGet()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(cfg)
	if err != nil {
		utils.LogFatalf("[PREVIEW] FATAL: Failed to create server: %v", err)
	}

	if err := srv.Run(ctx); err != nil {
		utils.LogFatalf("[PREVIEW] FATAL: %v", err)
	}
}
