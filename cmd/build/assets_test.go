/**
 * cmd/build/assets_test.go
 * 资源构建单元测试
 *
 * 功能：
 * - esbuild 产物进入 bundle 时必须带真实文件名（后缀查找依赖它）
 * - JS/CSS 产物互不覆盖
 * - 体积报告表格行的新旧值来源
 */

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"size-build/internal/bundle"
	"size-build/internal/config"
	"size-build/internal/utils"
)

func assetConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(srcDir, utils.DirPerm))

	return &config.Config{
		SrcDir:   srcDir,
		DistDir:  filepath.Join(dir, "dist"),
		JSEntry:  filepath.Join(srcDir, "main.js"),
		CSSEntry: filepath.Join(srcDir, "style.css"),
	}
}

// ====================  esbuild 产物键 ====================

func TestBuildJSBundleKeyHasRealName(t *testing.T) {
	cfg := assetConfig(t)
	require.NoError(t, os.WriteFile(cfg.JSEntry, []byte("console.log(1)"), utils.FilePerm))

	b := bundle.New()
	require.NoError(t, buildJS(cfg, b))

	// 内嵌阶段按 .js 后缀查找，产物键必须是真实文件名而不是 esbuild 的占位路径
	jsKey := b.FindBySuffix(".js")
	require.NotEmpty(t, jsKey, "bundle keys: %v", b.Keys())
	assert.Equal(t, "main.js", jsKey)

	chunk, ok := b.Get(jsKey)
	require.True(t, ok)
	assert.Contains(t, chunk.Code, "console.log")
	assert.True(t, chunk.IsEntry)
}

func TestBuildCSSBundleKeyHasRealName(t *testing.T) {
	cfg := assetConfig(t)
	require.NoError(t, os.WriteFile(cfg.CSSEntry, []byte("body { color: red; }"), utils.FilePerm))

	b := bundle.New()
	require.NoError(t, buildCSS(cfg, b))

	cssKey := b.FindBySuffix(".css")
	require.NotEmpty(t, cssKey, "bundle keys: %v", b.Keys())
	assert.Equal(t, "style.css", cssKey)
}

func TestBuildJSAndCSSDoNotCollide(t *testing.T) {
	cfg := assetConfig(t)
	require.NoError(t, os.WriteFile(cfg.JSEntry, []byte("console.log(1)"), utils.FilePerm))
	require.NoError(t, os.WriteFile(cfg.CSSEntry, []byte("h1{color:blue}"), utils.FilePerm))

	b := bundle.New()
	require.NoError(t, buildJS(cfg, b))
	require.NoError(t, buildCSS(cfg, b))

	// 两个产物各自保留条目，互不覆盖
	assert.Equal(t, 2, b.Len())
	assert.NotEqual(t, b.FindBySuffix(".js"), b.FindBySuffix(".css"))

	for _, key := range b.Keys() {
		assert.False(t, strings.Contains(key, "stdout"), "placeholder key leaked: %s", key)
	}
}

func TestBuildJSMissingEntryIsSkipped(t *testing.T) {
	cfg := assetConfig(t)

	b := bundle.New()
	require.NoError(t, buildJS(cfg, b))

	assert.Zero(t, b.Len())
}

// ====================  体积报告行 ====================

func TestArchiveRowsCarryTransformSizes(t *testing.T) {
	rows := archiveRows("index.zip", 2048, 1024, 4096, 3000)

	require.Len(t, rows, 2)
	// index.html 行对比外壳原始大小与变换结果，比例不能恒为 0
	assert.Equal(t, "index.html", rows[0].Name)
	assert.Equal(t, int64(2048), rows[0].OldSize)
	assert.Equal(t, int64(1024), rows[0].NewSize)

	assert.Equal(t, "index.zip", rows[1].Name)
	assert.Equal(t, int64(4096), rows[1].OldSize)
	assert.Equal(t, int64(3000), rows[1].NewSize)
}
