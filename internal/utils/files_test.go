/**
 * internal/utils/files_test.go
 * 文件系统辅助模块单元测试
 *
 * 功能：
 * - 目录枚举（含缺失目录的容错行为）
 * - 扩展名过滤器
 * - 文件复制
 * - 哈希与字节格式化
 */

package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ====================  文件枚举 ====================

func TestListFilesMissingDir(t *testing.T) {
	// 目录不存在不是错误：首次构建时中间目录尚未生成
	files := ListFiles(filepath.Join(t.TempDir(), "does-not-exist"), nil)

	assert.Empty(t, files)
}

func TestListFilesRecursive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), DirPerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.js"), []byte("x"), FilePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.css"), []byte("y"), FilePerm))

	files := ListFiles(dir, nil)

	assert.Len(t, files, 2)
	assert.Contains(t, files, filepath.Join(dir, "a.js"))
	assert.Contains(t, files, filepath.Join(dir, "sub", "b.css"))
}

func TestListFilesFilter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.js"), []byte("x"), FilePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.css"), []byte("y"), FilePerm))

	files := ListFiles(dir, SuffixFilter(".css"))

	assert.Equal(t, []string{filepath.Join(dir, "b.css")}, files)
}

func TestSuffixFilter(t *testing.T) {
	filter := SuffixFilter(".png", ".jpg")

	assert.True(t, filter("img/logo.png"))
	assert.True(t, filter("photo.jpg"))
	assert.False(t, filter("style.css"))
	assert.False(t, filter("png"))
}

// ====================  文件复制 ====================

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "nested", "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), FilePerm))

	written, err := CopyFile(src, dst)

	require.NoError(t, err)
	assert.Equal(t, int64(5), written)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()

	_, err := CopyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "out"))

	assert.Error(t, err)
}

// ====================  哈希与格式化 ====================

func TestContentHash(t *testing.T) {
	h1 := ContentHash([]byte("hello"))
	h2 := ContentHash([]byte("hello"))
	h3 := ContentHash([]byte("world"))

	assert.Len(t, h1, 8)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.00 KB", FormatBytes(1024))
	assert.Equal(t, "13.00 KB", FormatBytes(13312))
	assert.Equal(t, "2.50 MB", FormatBytes(2621440))
}
