/**
 * cmd/build/assets.go
 * JS/CSS/HTML 资源构建
 *
 * 功能：
 * - esbuild 打包压缩 JS（IIFE，内存输出）
 * - esbuild 压缩 CSS（内存输出）
 * - HTML 外壳三阶段变换（内联 CSS、压缩 HTML、内嵌打包 JS）
 */

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/evanw/esbuild/pkg/api"

	"size-build/internal/bundle"
	"size-build/internal/config"
	"size-build/internal/embed"
	"size-build/internal/utils"
)

// ====================  JavaScript 构建 ====================

// buildJS 打包 JS 入口到内存 bundle
// 入口缺失只告警（纯 HTML 产物也是合法的）
func buildJS(cfg *config.Config, b *bundle.Bundle) error {
	if _, err := os.Stat(cfg.JSEntry); os.IsNotExist(err) {
		log.Printf("[BUILD] WARN: JS entry not found, skipping: %s", cfg.JSEntry)
		return nil
	}

	log.Println("[BUILD] Building JavaScript...")

	// Write:false 时也必须给 Outdir，否则 esbuild 报告的输出路径是 <stdout>，
	// 产物键会失去 .js 后缀，内嵌阶段按后缀查找就会落空
	opts := api.BuildOptions{
		EntryPoints: []string{cfg.JSEntry},
		Bundle:      true,
		Outdir:      cfg.DistDir,
		Target:      api.ES2020,
		Format:      api.FormatIIFE,
		TreeShaking: api.TreeShakingTrue,
		Write:       false,
		LogLevel:    api.LogLevelWarning,
	}

	if !*isDev {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	}

	result := api.Build(opts)

	if len(result.Errors) > 0 {
		for _, err := range result.Errors {
			log.Printf("[BUILD] ERROR: JS: %s", err.Text)
			if err.Location != nil {
				log.Printf("[BUILD]   at %s:%d:%d", err.Location.File, err.Location.Line, err.Location.Column)
			}
		}
		atomic.AddInt64(&buildStats.Errors, int64(len(result.Errors)))
		return fmt.Errorf("JS build failed with %d errors", len(result.Errors))
	}

	for _, warn := range result.Warnings {
		log.Printf("[BUILD] WARN: JS: %s", warn.Text)
	}

	for _, out := range result.OutputFiles {
		name := filepath.Base(out.Path)
		b.AddChunk(name, string(out.Contents), true)
		atomic.AddInt64(&buildStats.BytesRead, int64(len(out.Contents)))
	}

	atomic.AddInt64(&buildStats.FilesProcessed, 1)
	log.Printf("[BUILD] Built JS entry %s", cfg.JSEntry)
	return nil
}

// ====================  CSS 构建 ====================

// buildCSS 压缩 CSS 入口到内存 bundle
func buildCSS(cfg *config.Config, b *bundle.Bundle) error {
	if _, err := os.Stat(cfg.CSSEntry); os.IsNotExist(err) {
		log.Printf("[BUILD] WARN: CSS entry not found, skipping: %s", cfg.CSSEntry)
		return nil
	}

	log.Println("[BUILD] Building CSS...")

	// 同 buildJS：Outdir 保证输出路径带真实文件名
	opts := api.BuildOptions{
		EntryPoints: []string{cfg.CSSEntry},
		Outdir:      cfg.DistDir,
		Write:       false,
		LogLevel:    api.LogLevelWarning,
	}

	if !*isDev {
		opts.MinifyWhitespace = true
		opts.MinifySyntax = true
	}

	result := api.Build(opts)

	if len(result.Errors) > 0 {
		for _, err := range result.Errors {
			log.Printf("[BUILD] ERROR: CSS: %s", err.Text)
		}
		atomic.AddInt64(&buildStats.Errors, int64(len(result.Errors)))
		return fmt.Errorf("CSS build failed")
	}

	for _, out := range result.OutputFiles {
		name := filepath.Base(out.Path)
		b.AddAsset(name, out.Contents)
		atomic.AddInt64(&buildStats.BytesRead, int64(len(out.Contents)))
	}

	atomic.AddInt64(&buildStats.FilesProcessed, 1)
	log.Printf("[BUILD] Built CSS entry %s", cfg.CSSEntry)
	return nil
}

// ====================  HTML 构建 ====================

// buildHTML 读取 HTML 外壳并执行三阶段变换
// 返回变换结果和外壳原始字节数（体积报告用）
// 开发模式或 HTML 阶段被禁用时返回原始外壳；
// 打包禁用时 JS 保持为外部文件，script 标签不动
func buildHTML(ctx context.Context, cfg *config.Config, overrides *config.Overrides, b *bundle.Bundle) (string, int64, error) {
	data, err := os.ReadFile(cfg.HTMLShell)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read HTML shell %s: %w", cfg.HTMLShell, err)
	}
	shell := string(data)
	shellSize := int64(len(data))
	atomic.AddInt64(&buildStats.BytesRead, shellSize)

	if *isDev {
		return shell, shellSize, nil
	}

	htmlOpts := overrides.HTML.Resolve(embed.DefaultHTMLOptions())
	if htmlOpts == nil {
		log.Println("[BUILD] WARN: HTML stage disabled by config")
		return shell, shellSize, nil
	}

	factory, passes := packerFactory(cfg, overrides)

	// 打包禁用：把 JS chunk 从内嵌流程中摘出，变换后放回
	var detached *bundle.Asset
	if factory == nil {
		log.Println("[BUILD] WARN: Pack stage disabled by config, JS stays external")
		if jsKey := b.FindBySuffix(".js"); jsKey != "" {
			detached, _ = b.Get(jsKey)
			b.Remove(jsKey)
		}
	}

	log.Println("[BUILD] Transforming HTML...")

	embedder := embed.New(b, htmlOpts, factory, passes)
	html, err := embedder.Transform(ctx, shell)
	if err != nil {
		return "", 0, err
	}

	if detached != nil {
		b.AddChunk(detached.FileName, detached.Code, detached.IsEntry)
	}

	atomic.AddInt64(&buildStats.FilesProcessed, 1)
	return html, shellSize, nil
}

// ====================  落盘 ====================

// writeDist 写出 index.html 与 bundle 剩余文件
func writeDist(cfg *config.Config, b *bundle.Bundle, html string) error {
	indexPath := filepath.Join(cfg.DistDir, "index.html")
	if err := os.WriteFile(indexPath, []byte(html), utils.FilePerm); err != nil {
		return fmt.Errorf("failed to write index.html: %w", err)
	}
	atomic.AddInt64(&buildStats.BytesWritten, int64(len(html)))

	written, err := b.WriteTo(cfg.DistDir)
	if err != nil {
		return err
	}
	atomic.AddInt64(&buildStats.BytesWritten, written)
	atomic.AddInt64(&buildStats.FilesProcessed, int64(b.Len()))

	log.Printf("[BUILD] Wrote index.html (%s) and %d bundle files",
		utils.FormatBytes(int64(len(html))), b.Len())
	return nil
}
