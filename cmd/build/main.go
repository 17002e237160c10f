/**
 * cmd/build/main.go
 * 体积受限 Web 产物构建工具
 *
 * 功能：
 * - JS/CSS 压缩优化（使用 esbuild）
 * - CSS 内联 + HTML 压缩 + 打包 JS 内嵌（单文件产物）
 * - zip 归档构建（ect）与再压缩（advzip）
 * - 体积预算报告（13KB 竞赛上限）
 * - Brotli 预压缩预览产物
 * - 可选部署到 R2
 *
 * 用法：
 *   go run ./cmd/build           # 生产构建（压缩 + 打包 + 归档）
 *   go run ./cmd/build -dev      # 开发模式（不压缩，不归档）
 *   go run ./cmd/build -deploy   # 构建后上传 R2
 *
 * 依赖：
 * - github.com/evanw/esbuild/pkg/api
 * - github.com/tdewolff/minify/v2
 * - github.com/andybalholm/brotli
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"size-build/internal/archive"
	"size-build/internal/bundle"
	"size-build/internal/config"
	"size-build/internal/deploy"
	"size-build/internal/images"
	"size-build/internal/packer"
	"size-build/internal/stats"
	"size-build/internal/utils"
)

// ====================  配置 ====================

var (
	// 命令行参数
	isDev    = flag.Bool("dev", false, "Development mode (no minification, no archive)")
	doDeploy = flag.Bool("deploy", false, "Upload the final archive to R2 after build")
	keepTmp  = flag.Bool("keep", false, "Keep packer intermediate files for debugging")
)

// ====================  构建统计 ====================

// BuildStats 构建统计信息
type BuildStats struct {
	FilesProcessed int64
	BytesRead      int64
	BytesWritten   int64
	Errors         int64
}

var buildStats BuildStats

// ====================  主函数 ====================

func main() {
	flag.Parse()

	startTime := time.Now()
	mode := "production"
	if *isDev {
		mode = "development"
	}

	log.Printf("[BUILD] Starting build in %s mode...", mode)

	if err := run(context.Background()); err != nil {
		log.Fatalf("[BUILD] FATAL: Build failed: %v", err)
	}

	elapsed := time.Since(startTime)
	log.Printf("[BUILD] Completed successfully in %dms", elapsed.Milliseconds())
	log.Printf("[BUILD] Stats: files=%d, read=%s, written=%s",
		buildStats.FilesProcessed,
		utils.FormatBytes(buildStats.BytesRead),
		utils.FormatBytes(buildStats.BytesWritten))
}

// run 执行构建流程
func run(ctx context.Context) error {
	// 1. 加载配置与工具覆盖项
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	overrides, err := config.LoadOverrides(cfg.ConfigFile)
	if err != nil {
		return fmt.Errorf("overrides load failed: %w", err)
	}

	// 2. 归档阶段提前构造：级别错误要在任何工具运行之前暴露
	var archiveStage *archive.Stage
	if !*isDev {
		archiveStage, err = archive.NewStage(cfg, overrides.Zip)
		if err != nil {
			return fmt.Errorf("archive config invalid: %w", err)
		}
	}

	// 3. 清理并创建 dist 目录
	if err := setupDistDir(cfg.DistDir); err != nil {
		return fmt.Errorf("setup dist dir failed: %w", err)
	}

	// 4. 构建 JS/CSS 到内存 bundle
	b := bundle.New()
	if err := buildJS(cfg, b); err != nil {
		return fmt.Errorf("JS build failed: %w", err)
	}
	if err := buildCSS(cfg, b); err != nil {
		return fmt.Errorf("CSS build failed: %w", err)
	}

	// 5. HTML 外壳 + 三阶段变换（内联 CSS、压缩 HTML、内嵌打包 JS）
	html, shellSize, err := buildHTML(ctx, cfg, overrides, b)
	if err != nil {
		return fmt.Errorf("HTML build failed: %w", err)
	}

	// 6. 落盘：index.html + bundle 剩余文件
	if err := writeDist(cfg, b, html); err != nil {
		return fmt.Errorf("dist write failed: %w", err)
	}

	// 7. 静态资源复制 + 图片再压缩
	if err := copyStatic(ctx, cfg); err != nil {
		return fmt.Errorf("static copy failed: %w", err)
	}

	// 开发模式到此为止
	if *isDev {
		return nil
	}

	// 8. 归档构建 + 再压缩 + 预算报告
	if archiveStage != nil {
		if err := buildArchive(ctx, cfg, archiveStage, shellSize, int64(len(html))); err != nil {
			return fmt.Errorf("archive build failed: %w", err)
		}
	} else {
		log.Println("[BUILD] WARN: Archive stage disabled by config")
	}

	// 9. Brotli 预压缩预览产物（失败不中断）
	if err := brotliCompressDir(cfg.DistDir); err != nil {
		log.Printf("[BUILD] WARN: Brotli compression had errors: %v", err)
	}

	// 10. 可选部署
	if *doDeploy && archiveStage != nil {
		uploader, err := deploy.NewUploader(ctx, cfg)
		if err != nil {
			return fmt.Errorf("deploy init failed: %w", err)
		}
		if uploader.IsConfigured() {
			if _, err := uploader.UploadFile(ctx, archiveStage.ZipPath()); err != nil {
				return fmt.Errorf("deploy failed: %w", err)
			}
		}
	}

	return nil
}

// ====================  目录设置 ====================

// setupDistDir 清理并创建 dist 目录
func setupDistDir(distDir string) error {
	log.Println("[BUILD] Setting up dist directory...")

	if err := os.RemoveAll(distDir); err != nil {
		log.Printf("[BUILD] WARN: Failed to remove old dist dir: %v", err)
	}

	if err := os.MkdirAll(distDir, utils.DirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", distDir, err)
	}

	return nil
}

// ====================  静态资源 ====================

// copyStatic 复制 public 目录到 dist 并再压缩图片
func copyStatic(ctx context.Context, cfg *config.Config) error {
	files := utils.ListFiles(cfg.PublicDir, nil)
	if len(files) == 0 {
		return nil
	}

	log.Printf("[BUILD] Copying %d static files...", len(files))

	for _, src := range files {
		rel, err := filepath.Rel(cfg.PublicDir, src)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", src, err)
		}

		written, err := utils.CopyFile(src, filepath.Join(cfg.DistDir, rel))
		if err != nil {
			return fmt.Errorf("failed to copy %s: %w", src, err)
		}

		buildStats.FilesProcessed++
		buildStats.BytesWritten += written
	}

	// PNG/JPEG 转 WebP
	recompressor, err := images.New(0)
	if err != nil {
		return err
	}
	if _, err := recompressor.RecompressDir(ctx, cfg.DistDir); err != nil {
		return err
	}

	return nil
}

// ====================  归档与报告 ====================

// buildArchive 构建 zip、再压缩并输出体积报告
func buildArchive(ctx context.Context, cfg *config.Config, stage *archive.Stage, shellSize, htmlSize int64) error {
	// 收集 dist 下的归档输入（相对路径，排除 .br 预览产物与 zip 自身）
	var files []string
	var totalSize int64
	for _, path := range utils.ListFiles(cfg.DistDir, archiveFilter) {
		rel, err := filepath.Rel(cfg.DistDir, path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		files = append(files, rel)

		if info, err := os.Stat(path); err == nil {
			totalSize += info.Size()
		}
	}

	if err := stage.Build(ctx, files); err != nil {
		return err
	}

	if err := stage.Recompress(ctx); err != nil {
		return err
	}

	info, err := os.Stat(stage.ZipPath())
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}
	zipSize := info.Size()

	reporter := stats.New(cfg.SizeBudget)
	reporter.LogTable(archiveRows(cfg.ZipName, shellSize, htmlSize, totalSize, zipSize))
	reporter.LogSize(cfg.ZipName, zipSize)

	if zipSize > int64(reporter.Budget()) {
		log.Printf("[BUILD] WARN: Archive exceeds size budget: %d > %d bytes", zipSize, reporter.Budget())
	}

	return nil
}

// archiveRows 组装体积报告的表格行
// index.html 行对比变换前的外壳与最终产物，zip 行对比归档输入总量与归档结果
func archiveRows(zipName string, shellSize, htmlSize, totalSize, zipSize int64) []stats.Row {
	return []stats.Row{
		{Name: "index.html", OldSize: shellSize, NewSize: htmlSize},
		{Name: zipName, OldSize: totalSize, NewSize: zipSize},
	}
}

// archiveFilter 归档输入过滤器
func archiveFilter(path string) bool {
	ext := filepath.Ext(path)
	return ext != ".br" && ext != ".zip"
}

// ====================  打包工厂 ====================

// packerFactory 构造打包器工厂与迭代轮数
// 打包被配置禁用时返回 nil 工厂
func packerFactory(cfg *config.Config, overrides *config.Overrides) (packer.Factory, int) {
	packOpts := overrides.Pack.Resolve(map[string]any{
		"passes": cfg.PackPasses,
	})
	if packOpts == nil {
		return nil, 0
	}

	passes := cfg.PackPasses
	switch v := packOpts["passes"].(type) {
	case int:
		passes = v
	case float64:
		passes = int(v)
	}

	keep := *keepTmp || cfg.KeepArtifacts
	return packer.NewRoadrollerFactory(cfg.RoadrollerPath, cfg.DistDir, keep), passes
}
