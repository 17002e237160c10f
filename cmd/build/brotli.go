/**
 * cmd/build/brotli.go
 * Brotli 预压缩模块
 *
 * 功能：
 * - 为预览服务器生成 .br 预压缩产物
 * - 并行压缩提高效率
 * - 保留原文件（zip 归档与预览回退都依赖原文件）
 */

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"

	"size-build/internal/utils"
)

// Brotli 压缩级别
const brotliLevel = brotli.BestCompression

// ====================  Brotli 压缩 ====================

// brotliCompressDir 使用 Brotli 预压缩目录中的文件
func brotliCompressDir(dir string) error {
	log.Println("[BUILD] Compressing with Brotli...")

	var (
		compressedCount int64
		totalOriginal   int64
		totalCompressed int64
		mu              sync.Mutex
		wg              sync.WaitGroup
		errChan         = make(chan error, 100)
	)

	// 收集需要压缩的文件（js, css, html, json）
	filesToCompress := utils.ListFiles(dir, func(path string) bool {
		if strings.HasSuffix(path, ".br") {
			return false
		}
		ext := strings.ToLower(filepath.Ext(path))
		return ext == ".js" || ext == ".css" || ext == ".html" || ext == ".json"
	})

	if len(filesToCompress) == 0 {
		log.Println("[BUILD] WARN: No files to compress")
		return nil
	}

	// 并行压缩（限制并发数）
	semaphore := make(chan struct{}, 4) // 最多 4 个并发

	for _, path := range filesToCompress {
		wg.Add(1)
		go func(filePath string) {
			defer wg.Done()

			semaphore <- struct{}{}        // 获取信号量
			defer func() { <-semaphore }() // 释放信号量

			original, compressed, err := brotliFile(filePath)
			if err != nil {
				errChan <- fmt.Errorf("%s: %w", filePath, err)
				return
			}

			mu.Lock()
			compressedCount++
			totalOriginal += original
			totalCompressed += compressed
			mu.Unlock()
		}(path)
	}

	wg.Wait()
	close(errChan)

	// 收集错误
	var errs []error
	for err := range errChan {
		errs = append(errs, err)
		log.Printf("[BUILD] WARN: Brotli compression failed: %v", err)
	}

	// 计算压缩率
	var ratio float64
	if totalOriginal > 0 {
		ratio = float64(totalCompressed) / float64(totalOriginal) * 100
	}

	log.Printf("[BUILD] Brotli: compressed %d files, %s -> %s (%.1f%%)",
		compressedCount,
		utils.FormatBytes(totalOriginal),
		utils.FormatBytes(totalCompressed),
		ratio)

	if len(errs) > 0 {
		return fmt.Errorf("%d files failed to compress", len(errs))
	}

	return nil
}

// brotliFile 使用 Brotli 压缩单个文件，生成 .br 副本
// 返回原始大小和压缩后大小
func brotliFile(src string) (int64, int64, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read: %w", err)
	}

	originalSize := int64(len(data))

	// 跳过空文件
	if originalSize == 0 {
		log.Printf("[BUILD] WARN: Skipping empty file: %s", src)
		return 0, 0, nil
	}

	brPath := src + ".br"
	brFile, err := os.Create(brPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create .br file: %w", err)
	}

	brWriter := brotli.NewWriterLevel(brFile, brotliLevel)
	_, err = brWriter.Write(data)
	if err != nil {
		_ = brFile.Close()
		_ = os.Remove(brPath) // 清理失败的文件
		return 0, 0, fmt.Errorf("failed to write compressed data: %w", err)
	}

	if err := brWriter.Close(); err != nil {
		_ = brFile.Close()
		_ = os.Remove(brPath)
		return 0, 0, fmt.Errorf("failed to close brotli writer: %w", err)
	}

	if err := brFile.Close(); err != nil {
		_ = os.Remove(brPath)
		return 0, 0, fmt.Errorf("failed to close file: %w", err)
	}

	brInfo, err := os.Stat(brPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to stat .br file: %w", err)
	}

	return originalSize, brInfo.Size(), nil
}
