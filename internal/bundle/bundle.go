/**
 * internal/bundle/bundle.go
 * 内存构建产物集合模块
 *
 * 功能：
 * - 按插入顺序维护 输出文件名 -> 产物 的映射
 * - 按扩展名查找单个产物（单 chunk 约定）
 * - 内联完成后移除条目，落盘时不再写出
 * - 统一落盘到输出目录
 */

package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"size-build/internal/utils"
)

// ====================  产物类型 ====================

// Kind 产物类型
type Kind int

const (
	// KindChunk 渲染后的 JS 代码块
	KindChunk Kind = iota
	// KindAsset 其他输出文件（CSS、HTML 等）
	KindAsset
)

// Asset 单个构建产物
type Asset struct {
	FileName string // 输出文件名（相对路径，唯一）
	Kind     Kind   // 产物类型
	Code     string // 渲染后的代码（Kind == KindChunk）
	Source   []byte // 原始字节（Kind == KindAsset）
	IsEntry  bool   // 是否为入口 chunk
}

// Bytes 返回产物的字节内容
func (a *Asset) Bytes() []byte {
	if a.Kind == KindChunk {
		return []byte(a.Code)
	}
	return a.Source
}

// ====================  产物集合 ====================

// Bundle 按插入顺序维护的产物集合
// 每次构建创建一个实例，落盘后丢弃；
// 只有内联阶段会原地删除条目，阶段之间串行执行，无并发访问
type Bundle struct {
	order   []string
	entries map[string]*Asset
}

// New 创建空的产物集合
func New() *Bundle {
	return &Bundle{
		entries: make(map[string]*Asset),
	}
}

// AddChunk 添加渲染后的 JS 代码块
// 同名条目会被覆盖（顺序保留首次插入位置）
func (b *Bundle) AddChunk(fileName, code string, isEntry bool) {
	b.add(&Asset{
		FileName: fileName,
		Kind:     KindChunk,
		Code:     code,
		IsEntry:  isEntry,
	})
}

// AddAsset 添加原始字节产物
func (b *Bundle) AddAsset(fileName string, source []byte) {
	b.add(&Asset{
		FileName: fileName,
		Kind:     KindAsset,
		Source:   source,
	})
}

func (b *Bundle) add(a *Asset) {
	if _, exists := b.entries[a.FileName]; !exists {
		b.order = append(b.order, a.FileName)
	}
	b.entries[a.FileName] = a
}

// Get 获取指定文件名的产物
func (b *Bundle) Get(fileName string) (*Asset, bool) {
	a, ok := b.entries[fileName]
	return a, ok
}

// Keys 返回插入顺序的文件名副本
func (b *Bundle) Keys() []string {
	keys := make([]string, len(b.order))
	copy(keys, b.order)
	return keys
}

// Len 返回产物数量
func (b *Bundle) Len() int {
	return len(b.order)
}

// FindBySuffix 按插入顺序返回第一个以 suffix 结尾的文件名
// 未找到返回空字符串
//
// 单 chunk 约定：即使存在多个匹配也只返回第一个，
// 多 CSS/JS 输出的构建不在内联阶段的契约范围内
func (b *Bundle) FindBySuffix(suffix string) string {
	for _, key := range b.order {
		if strings.HasSuffix(key, suffix) {
			return key
		}
	}
	return ""
}

// Remove 移除指定条目
// 返回条目是否存在
func (b *Bundle) Remove(fileName string) bool {
	if _, exists := b.entries[fileName]; !exists {
		return false
	}

	delete(b.entries, fileName)
	for i, key := range b.order {
		if key == fileName {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// ====================  落盘 ====================

// WriteTo 按插入顺序将全部产物写入目录
// 返回写入的总字节数
func (b *Bundle) WriteTo(dir string) (int64, error) {
	var written int64

	for _, key := range b.order {
		asset := b.entries[key]
		data := asset.Bytes()
		dst := filepath.Join(dir, key)

		// 确保目标目录存在
		if err := os.MkdirAll(filepath.Dir(dst), utils.DirPerm); err != nil {
			return written, fmt.Errorf("failed to create output dir for %s: %w", key, err)
		}

		if err := os.WriteFile(dst, data, utils.FilePerm); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", key, err)
		}

		written += int64(len(data))
	}

	return written, nil
}
