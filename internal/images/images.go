/**
 * internal/images/images.go
 * 图片再压缩模块
 *
 * 功能：
 * - PNG/JPEG 无损转码为 WebP（体积更小）
 * - 并行转码（限制并发数）
 * - 按内容哈希缓存编码结果，监听模式下重复构建不重复编码
 * - 单个文件失败只告警跳过，不中断构建
 */

package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/HugoSmits86/nativewebp"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"size-build/internal/utils"
)

// ====================  常量定义 ====================

const (
	// maxConcurrent 最多并发编码数
	maxConcurrent = 4
	// defaultCacheSize 编码结果缓存条目数
	defaultCacheSize = 128
)

// ====================  再压缩器 ====================

// Recompressor 图片再压缩器
// 编码结果按内容哈希缓存，同一张图只编码一次
type Recompressor struct {
	cache *lru.Cache[string, []byte]
}

// New 创建图片再压缩器
func New(cacheSize int) (*Recompressor, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}

	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}

	return &Recompressor{cache: cache}, nil
}

// RecompressDir 再压缩目录下的 PNG/JPEG 图片
// 转码成功且体积更小时用 .webp 替换原文件；
// 单个文件失败只告警，返回成功处理的文件数
func (r *Recompressor) RecompressDir(ctx context.Context, dir string) (int, error) {
	files := utils.ListFiles(dir, utils.SuffixFilter(".png", ".jpg", ".jpeg"))
	if len(files) == 0 {
		return 0, nil
	}

	utils.LogPrintf("[IMAGES] Recompressing %d images in %s", len(files), dir)

	var (
		converted  int
		savedBytes int64
		mu         sync.Mutex
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for _, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			original, compressed, err := r.recompressFile(path)
			if err != nil {
				// 单个文件失败不中断构建
				utils.LogPrintf("[IMAGES] WARN: Failed to recompress %s: %v", path, err)
				return nil
			}
			if compressed == 0 {
				return nil // WebP 没有更小，保留原文件
			}

			mu.Lock()
			converted++
			savedBytes += original - compressed
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return converted, fmt.Errorf("image recompression cancelled: %w", err)
	}

	utils.LogPrintf("[IMAGES] Converted %d images to WebP, saved %s",
		converted, utils.FormatBytes(savedBytes))

	return converted, nil
}

// ====================  私有函数 ====================

// recompressFile 转码单个图片
// 返回原始大小和 WebP 大小；WebP 没有更小返回 (original, 0, nil)
func (r *Recompressor) recompressFile(path string) (int64, int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read: %w", err)
	}

	originalSize := int64(len(data))
	if originalSize == 0 {
		return 0, 0, fmt.Errorf("empty file")
	}

	webpData, err := r.encode(data, filepath.Ext(path))
	if err != nil {
		return 0, 0, err
	}

	if int64(len(webpData)) >= originalSize {
		return originalSize, 0, nil
	}

	webpPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".webp"
	if err := os.WriteFile(webpPath, webpData, utils.FilePerm); err != nil {
		return 0, 0, fmt.Errorf("failed to write webp: %w", err)
	}

	// 替换原文件，引用方按 .webp 名引用
	if err := os.Remove(path); err != nil {
		utils.LogPrintf("[IMAGES] WARN: Failed to remove original %s: %v", path, err)
	}

	return originalSize, int64(len(webpData)), nil
}

// encode 编码为无损 WebP，结果按内容哈希缓存
func (r *Recompressor) encode(data []byte, ext string) ([]byte, error) {
	key := utils.ContentHash(data)
	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}

	img, err := decode(data, ext)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("failed to encode webp: %w", err)
	}

	encoded := buf.Bytes()
	r.cache.Add(key, encoded)
	return encoded, nil
}

// decode 按扩展名解码 PNG/JPEG
func decode(data []byte, ext string) (image.Image, error) {
	switch strings.ToLower(ext) {
	case ".png":
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode png: %w", err)
		}
		return img, nil
	case ".jpg", ".jpeg":
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode jpeg: %w", err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported image type: %s", ext)
	}
}
