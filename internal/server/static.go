/**
 * internal/server/static.go
 * 预览服务器静态文件中间件
 *
 * 功能：
 * - 优先服务 .br 预压缩产物（零运行时压缩开销）
 * - 客户端不支持 brotli 时回退到原文件
 * - 自动设置 Content-Type 与缓存头
 */

package server

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"size-build/internal/utils"
)

// ====================  常量定义 ====================

const (
	// contentEncodingBrotli Brotli 编码标识
	contentEncodingBrotli = "br"

	// brotliExtension Brotli 文件扩展名
	brotliExtension = ".br"

	// cacheControlNoCache 预览环境统一不缓存
	cacheControlNoCache = "no-cache"
)

// contentTypeMap 文件扩展名到 Content-Type 的映射
var contentTypeMap = map[string]string{
	".js":   "application/javascript; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".html": "text/html; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".webp": "image/webp",
	".zip":  "application/zip",
}

// ====================  公开函数 ====================

// Static 预览静态文件中间件
// 产物目录是扁平布局，请求路径直接映射到目录内文件；
// 存在 .br 且客户端接受 brotli 时优先服务压缩版本
func Static(basePath string) gin.HandlerFunc {
	if basePath == "" {
		utils.LogPrintf("[SERVER] WARN: Empty base path, using default './dist'")
		basePath = "./dist"
	}

	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		utils.LogPrintf("[SERVER] WARN: Base path does not exist: %s", basePath)
	}

	return func(c *gin.Context) {
		reqPath := c.Request.URL.Path
		if reqPath == "/" {
			reqPath = "/index.html"
		}

		// 防止路径遍历
		if strings.Contains(reqPath, "..") {
			utils.LogPrintf("[SERVER] WARN: Path traversal attempt detected: %s", reqPath)
			c.Next()
			return
		}

		ext := filepath.Ext(reqPath)
		contentType, ok := contentTypeMap[ext]
		if !ok {
			c.Next()
			return
		}

		filePath := filepath.Join(basePath, filepath.FromSlash(reqPath))

		// 优先 .br 版本
		brPath := filePath + brotliExtension
		if acceptsBrotli(c) {
			if _, err := os.Stat(brPath); err == nil {
				c.Header("Content-Encoding", contentEncodingBrotli)
				c.Header("Content-Type", contentType)
				c.Header("Cache-Control", cacheControlNoCache)
				c.Header("Vary", "Accept-Encoding")
				c.File(brPath)
				c.Abort()
				return
			}
		}

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			c.Next()
			return
		}

		c.Header("Content-Type", contentType)
		c.Header("Cache-Control", cacheControlNoCache)
		c.File(filePath)
		c.Abort()
	}
}

// ====================  私有函数 ====================

// acceptsBrotli 检查客户端是否接受 brotli 编码
func acceptsBrotli(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept-Encoding"), contentEncodingBrotli)
}
