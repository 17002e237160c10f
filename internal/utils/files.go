/**
 * internal/utils/files.go
 * 文件系统辅助模块
 *
 * 功能：
 * - 递归枚举目录文件（支持过滤器，容错遍历）
 * - 文件复制
 * - 字节格式化
 * - 内容哈希（BLAKE2b）
 */

package utils

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
)

// ====================  常量定义 ====================

const (
	// DirPerm 目录权限
	DirPerm = 0755
	// FilePerm 文件权限
	FilePerm = 0644
)

// ====================  文件枚举 ====================

// FileFilter 文件过滤器，返回 true 表示保留该文件
type FileFilter func(path string) bool

// ListFiles 递归枚举目录下满足过滤器的普通文件
// 目录不存在时返回空列表（不报错）；
// 单个条目的 I/O 错误只记录日志并跳过，不中断遍历
func ListFiles(root string, filter FileFilter) []string {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// 遍历降级为部分结果，不让单个坏条目中断构建
			LogPrintf("[FILES] WARN: Walk error for %s: %v", path, err)
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if filter == nil || filter(path) {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		LogPrintf("[FILES] WARN: Walk aborted for %s: %v", root, err)
	}

	return files
}

// SuffixFilter 构建按扩展名过滤的过滤器
func SuffixFilter(suffixes ...string) FileFilter {
	return func(path string) bool {
		for _, s := range suffixes {
			if filepath.Ext(path) == s {
				return true
			}
		}
		return false
	}
}

// ====================  文件复制 ====================

// CopyFile 复制文件，自动创建目标目录
// 返回写入的字节数
func CopyFile(src, dst string) (int64, error) {
	// 打开源文件
	srcFile, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer func() { _ = srcFile.Close() }()

	// 确保目标目录存在
	if err := os.MkdirAll(filepath.Dir(dst), DirPerm); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	// 创建目标文件
	dstFile, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination: %w", err)
	}
	defer func() { _ = dstFile.Close() }()

	// 复制内容
	written, err := io.Copy(dstFile, srcFile)
	if err != nil {
		return 0, fmt.Errorf("failed to copy: %w", err)
	}

	return written, nil
}

// ====================  哈希与格式化 ====================

// ContentHash 计算数据的 BLAKE2b-256 哈希前 8 位十六进制
// 用于缓存键和资源指纹
func ContentHash(data []byte) string {
	hash := blake2b.Sum256(data)
	return fmt.Sprintf("%x", hash)[:8]
}

// FormatBytes 格式化字节数为人类可读格式
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
