/**
 * internal/server/ratelimit.go
 * 预览服务器限流中间件
 *
 * 功能：
 * - 基于 IP 的令牌桶限流
 * - LRU 淘汰策略（防止内存无限增长）
 *
 * 依赖：
 * - github.com/hashicorp/golang-lru/v2: LRU 缓存实现
 * - golang.org/x/time/rate: 令牌桶限流器
 */

package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"size-build/internal/utils"
)

// ====================  常量定义 ====================

const (
	// maxLimiterEntries 限流器最大条目数
	maxLimiterEntries = 1000

	// defaultRequestRate 默认每秒请求数
	defaultRequestRate = 50

	// defaultBurst 默认突发值
	defaultBurst = 100
)

// ====================  数据结构 ====================

// IPRateLimiter 基于 IP 的限流器
// LRU 自动淘汰最久未使用的条目，无需手动清理
type IPRateLimiter struct {
	cache *lru.Cache[string, *rate.Limiter]
	mu    sync.Mutex
	rate  rate.Limit
	burst int
}

// NewIPRateLimiter 创建 IP 限流器
func NewIPRateLimiter(r rate.Limit, burst int) (*IPRateLimiter, error) {
	if r <= 0 {
		r = defaultRequestRate
	}
	if burst <= 0 {
		burst = defaultBurst
	}

	cache, err := lru.New[string, *rate.Limiter](maxLimiterEntries)
	if err != nil {
		return nil, err
	}

	return &IPRateLimiter{
		cache: cache,
		rate:  r,
		burst: burst,
	}, nil
}

// Allow 检查指定 IP 是否允许请求
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	limiter, ok := l.cache.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.cache.Add(ip, limiter)
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// ====================  中间件 ====================

// RateLimit 限流中间件
func RateLimit(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			utils.LogPrintf("[SERVER] WARN: Rate limit exceeded for %s", c.ClientIP())
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
