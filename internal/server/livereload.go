/**
 * internal/server/livereload.go
 * 预览服务器热重载模块
 *
 * 功能：
 * - WebSocket 端点向所有连接广播重载信号
 * - 轮询产物目录的最新修改时间，变化即广播
 * - 服务 index.html 时注入重载客户端脚本
 *
 * 依赖：
 * - github.com/gorilla/websocket: WebSocket 实现
 */

package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"size-build/internal/utils"
)

// ====================  常量定义 ====================

const (
	// pollInterval 产物目录轮询间隔
	pollInterval = 300 * time.Millisecond

	// reloadMessage 广播给客户端的重载信号
	reloadMessage = "reload"

	// reloadScript 注入到 index.html 的客户端脚本
	reloadScript = `<script>new WebSocket("ws://"+location.host+"/livereload").onmessage=()=>location.reload()</script>`
)

// upgrader WebSocket 升级器（预览环境不校验 Origin）
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ====================  重载中心 ====================

// LiveReload 热重载广播中心
type LiveReload struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewLiveReload 创建热重载中心
func NewLiveReload() *LiveReload {
	return &LiveReload{conns: make(map[*websocket.Conn]struct{})}
}

// Handler WebSocket 升级处理函数
func (lr *LiveReload) Handler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.LogPrintf("[SERVER] WARN: WebSocket upgrade failed: %v", err)
		return
	}

	lr.mu.Lock()
	lr.conns[conn] = struct{}{}
	lr.mu.Unlock()

	// 读循环只用于感知断开
	go func() {
		defer lr.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast 向所有连接广播重载信号
func (lr *LiveReload) Broadcast() {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	for conn := range lr.conns {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(reloadMessage)); err != nil {
			_ = conn.Close()
			delete(lr.conns, conn)
		}
	}
}

// Watch 轮询目录修改时间，变化时广播
// 阻塞直到 ctx 取消，调用方在独立 goroutine 中运行
func (lr *LiveReload) Watch(ctx context.Context, dir string) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	last := latestModTime(dir)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := latestModTime(dir)
			if current.After(last) {
				last = current
				utils.LogPrintf("[SERVER] Change detected in %s, reloading clients", dir)
				lr.Broadcast()
			}
		}
	}
}

// ServeIndex 服务注入了重载脚本的 index.html
func (lr *LiveReload) ServeIndex(basePath string) gin.HandlerFunc {
	indexPath := filepath.Join(basePath, "index.html")

	return func(c *gin.Context) {
		data, err := os.ReadFile(indexPath)
		if err != nil {
			c.String(http.StatusNotFound, "index.html not built yet, run the build first")
			return
		}

		c.Header("Cache-Control", cacheControlNoCache)
		c.Data(http.StatusOK, contentTypeMap[".html"], append(data, []byte(reloadScript)...))
	}
}

// ====================  私有函数 ====================

// drop 移除并关闭连接
func (lr *LiveReload) drop(conn *websocket.Conn) {
	lr.mu.Lock()
	delete(lr.conns, conn)
	lr.mu.Unlock()
	_ = conn.Close()
}

// latestModTime 目录下所有文件的最新修改时间
func latestModTime(dir string) time.Time {
	var latest time.Time
	for _, path := range utils.ListFiles(dir, nil) {
		if info, err := os.Stat(path); err == nil && info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest
}
