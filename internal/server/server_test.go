/**
 * internal/server/server_test.go
 * 预览服务器单元测试
 */

package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"size-build/internal/utils"
)

func testEngine(middleware gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(middleware)
	engine.NoRoute(func(c *gin.Context) { c.String(http.StatusNotFound, "not found") })
	return engine
}

// ====================  静态文件 ====================

func TestStaticServesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), utils.FilePerm))

	engine := testEngine(Static(dir))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html></html>", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
}

func TestStaticPrefersBrotli(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("plain"), utils.FilePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js.br"), []byte("compressed"), utils.FilePerm))

	engine := testEngine(Static(dir))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/app.js", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "br", w.Header().Get("Content-Encoding"))
	assert.Equal(t, "compressed", w.Body.String())
}

func TestStaticFallsBackWithoutBrotliSupport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("plain"), utils.FilePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js.br"), []byte("compressed"), utils.FilePerm))

	engine := testEngine(Static(dir))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/app.js", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "plain", w.Body.String())
}

func TestStaticRejectsTraversal(t *testing.T) {
	engine := testEngine(Static(t.TempDir()))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/static/something", nil)
	req.URL.Path = "/../secret.html"
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ====================  限流 ====================

func TestIPRateLimiterAllow(t *testing.T) {
	limiter, err := NewIPRateLimiter(1, 2)
	require.NoError(t, err)

	assert.True(t, limiter.Allow("1.2.3.4"))
	assert.True(t, limiter.Allow("1.2.3.4"))
	// 突发额度耗尽
	assert.False(t, limiter.Allow("1.2.3.4"))
	// 其他 IP 不受影响
	assert.True(t, limiter.Allow("5.6.7.8"))
}

// ====================  热重载 ====================

func TestServeIndexInjectsReloadScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), utils.FilePerm))

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/", NewLiveReload().ServeIndex(dir))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<html></html>")
	assert.Contains(t, w.Body.String(), "/livereload")
}

func TestServeIndexMissingBuild(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/", NewLiveReload().ServeIndex(t.TempDir()))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "run the build first")
}
