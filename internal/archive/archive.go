/**
 * internal/archive/archive.go
 * 归档阶段模块（zip 构建 + 再压缩）
 *
 * 功能：
 * - 文件排序：HTML 优先，其余保持稳定顺序（影响 zip 成员顺序与可复现性）
 * - 调用 ect 构建 zip（外部二进制）
 * - 前置检查：zip 必须已存在才允许再压缩
 * - 调用 advzip 再压缩（外部二进制，只重排字节不改内容）
 * - 压缩级别/收缩级别在调用任何工具之前校验
 *
 * 两个外部调用严格串行，任何非零退出码都携带工具 stderr 中止构建
 */

package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"size-build/internal/config"
	"size-build/internal/utils"
)

// ====================  错误定义 ====================

var (
	// ErrZipNotBuilt 再压缩前 zip 不存在（zip 构建阶段必须先运行）
	ErrZipNotBuilt = errors.New("zip archive not found: the zip build stage must run first")
	// ErrInvalidZipLevel ect 压缩级别非法
	ErrInvalidZipLevel = errors.New("invalid zip compression level")
	// ErrInvalidShrinkLevel advzip 收缩级别非法
	ErrInvalidShrinkLevel = errors.New("invalid shrink level")
)

// ====================  级别解析 ====================

// shrinkNames advzip 命名收缩级别映射
var shrinkNames = map[string]int{
	"store":  0,
	"fast":   1,
	"normal": 2,
	"extra":  3,
	"insane": 4,
}

// shrinkFlags 收缩级别对应的 advzip 长标志
var shrinkFlags = [...]string{
	"--shrink-store",
	"--shrink-fast",
	"--shrink-normal",
	"--shrink-extra",
	"--shrink-insane",
}

// ParseShrinkLevel 解析收缩级别
// 接受命名级别（store/fast/normal/extra/insane）或数字 0-4；
// 越界值是配置错误，在调用外部工具之前直接拒绝，不猜测工具自身的回退行为
func ParseShrinkLevel(v any) (int, error) {
	switch value := v.(type) {
	case int:
		if value < 0 || value > 4 {
			return 0, fmt.Errorf("%w: %d (want 0-4)", ErrInvalidShrinkLevel, value)
		}
		return value, nil
	case float64:
		// JSON 数字统一解码为 float64
		if value != float64(int(value)) {
			return 0, fmt.Errorf("%w: %v (want integer 0-4)", ErrInvalidShrinkLevel, value)
		}
		return ParseShrinkLevel(int(value))
	case string:
		if level, ok := shrinkNames[strings.ToLower(value)]; ok {
			return level, nil
		}
		if n, err := strconv.Atoi(value); err == nil {
			return ParseShrinkLevel(n)
		}
		return 0, fmt.Errorf("%w: %q (want 0-4 or store/fast/normal/extra/insane)", ErrInvalidShrinkLevel, value)
	default:
		return 0, fmt.Errorf("%w: %v", ErrInvalidShrinkLevel, v)
	}
}

// ValidateZipLevel 校验 ect 压缩级别
// 1-9 为普通档位；超过 9 时按 passes*10000 + sublevel 编码
// （sublevel 1-9，passes >= 1），如默认 10009 表示 1 轮额外迭代 + 档位 9
func ValidateZipLevel(level int) error {
	if level >= 1 && level <= 9 {
		return nil
	}

	if level >= 10000 {
		sublevel := level % 10000
		if sublevel >= 1 && sublevel <= 9 {
			return nil
		}
	}

	return fmt.Errorf("%w: %d (want 1-9 or passes*10000+sublevel with sublevel 1-9)", ErrInvalidZipLevel, level)
}

// ====================  文件排序 ====================

// SortHTMLFirst 归档输入排序：HTML 文件排在最前，其余保持相对顺序
// zip 成员顺序影响归档的可复现性与压缩率，是下游工具的硬性要求
func SortHTMLFirst(paths []string) []string {
	sorted := make([]string, len(paths))
	copy(sorted, paths)

	sort.SliceStable(sorted, func(i, j int) bool {
		return isHTML(sorted[i]) && !isHTML(sorted[j])
	})

	return sorted
}

func isHTML(path string) bool {
	return strings.HasSuffix(path, ".html")
}

// ====================  归档阶段 ====================

// Stage 归档阶段
// 级别校验在构造时完成，构造成功后才允许调用外部工具
type Stage struct {
	ectPath    string
	advzipPath string
	dir        string // 工作目录（输出目录，文件列表为相对路径）
	zipName    string
	level      int
	quiet      bool
	strip      bool
	preserveTs bool
	strict     bool
	shrink     int
	pedantic   bool
}

// defaultZipOptions zip 工具选项默认值（可被 build.config.json 的 zip.options 覆盖）
func defaultZipOptions(cfg *config.Config) map[string]any {
	return map[string]any{
		"quiet":       true,
		"level":       cfg.ZipLevel,
		"shrinkLevel": cfg.ShrinkLevel,
		"pedantic":    cfg.Pedantic,
	}
}

// NewStage 创建归档阶段
// 返回 nil Stage 表示该阶段被配置禁用
//
// 所有级别在此处校验，越界值直接报配置错误，不会进入工具调用
func NewStage(cfg *config.Config, overrides config.ToolOption) (*Stage, error) {
	opts := overrides.Resolve(defaultZipOptions(cfg))
	if opts == nil {
		return nil, nil
	}

	level, err := intOpt(opts["level"], cfg.ZipLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: level %v", ErrInvalidZipLevel, opts["level"])
	}
	if err := ValidateZipLevel(level); err != nil {
		return nil, err
	}

	shrink, err := ParseShrinkLevel(opts["shrinkLevel"])
	if err != nil {
		return nil, err
	}

	pedantic, _ := opts["pedantic"].(bool)
	quiet, _ := opts["quiet"].(bool)

	return &Stage{
		ectPath:    cfg.EctPath,
		advzipPath: cfg.AdvzipPath,
		dir:        cfg.DistDir,
		zipName:    cfg.ZipName,
		level:      level,
		quiet:      quiet,
		strip:      cfg.StripMetadata,
		preserveTs: cfg.PreserveTimestamp,
		strict:     cfg.StrictLossless,
		shrink:     shrink,
		pedantic:   pedantic,
	}, nil
}

// ZipPath 返回归档文件的完整路径
func (s *Stage) ZipPath() string {
	return filepath.Join(s.dir, s.zipName)
}

// Build 构建 zip 归档
// files 为相对输出目录的路径列表；排序后交给 ect
func (s *Stage) Build(ctx context.Context, files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("no files to archive in %s", s.dir)
	}

	ordered := SortHTMLFirst(files)
	args := s.buildArgs(ordered)

	utils.LogPrintf("[ARCHIVE] Building %s with ect (level=%d, %d files)", s.zipName, s.level, len(ordered))
	if err := s.runTool(ctx, s.ectPath, args); err != nil {
		return fmt.Errorf("ect failed: %w", err)
	}

	return nil
}

// Recompress 再压缩 zip
// 硬前置条件：zip 必须已存在。仅靠阶段顺序不够——
// 构建与再压缩可能注册在可被配置重排的不同阶段，这里显式检查
func (s *Stage) Recompress(ctx context.Context) error {
	zipPath := s.ZipPath()
	if _, err := os.Stat(zipPath); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrZipNotBuilt, zipPath)
	}

	args := s.recompressArgs()

	utils.LogPrintf("[ARCHIVE] Recompressing %s with advzip (%s)", s.zipName, shrinkFlags[s.shrink])
	if err := s.runTool(ctx, s.advzipPath, args); err != nil {
		return fmt.Errorf("advzip failed: %w", err)
	}

	return nil
}

// ====================  私有函数 ====================

// buildArgs 构造 ect 命令行参数
func (s *Stage) buildArgs(files []string) []string {
	var args []string
	if s.quiet {
		args = append(args, "-quiet")
	}
	if s.strip {
		args = append(args, "-strip")
	}
	if s.strict {
		args = append(args, "-strict")
	}
	if s.preserveTs {
		args = append(args, "-keep")
	}
	args = append(args, "-zip", fmt.Sprintf("-%d", s.level))
	return append(args, files...)
}

// recompressArgs 构造 advzip 命令行参数
func (s *Stage) recompressArgs() []string {
	args := []string{"--recompress", shrinkFlags[s.shrink]}
	if s.pedantic {
		args = append(args, "--pedantic")
	}
	return append(args, s.zipName)
}

// runTool 在输出目录下运行外部工具
// 非零退出码携带 stderr 诊断信息返回
func (s *Stage) runTool(ctx context.Context, bin string, args []string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = s.dir
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// intOpt 解析数值选项（env 给 int，JSON 覆盖给 float64）
func intOpt(v any, fallback int) (int, error) {
	switch value := v.(type) {
	case nil:
		return fallback, nil
	case int:
		return value, nil
	case float64:
		if value != float64(int(value)) {
			return 0, fmt.Errorf("not an integer: %v", value)
		}
		return int(value), nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
