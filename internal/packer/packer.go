/**
 * internal/packer/packer.go
 * JS 打包器（熵编码）协作方模块
 *
 * 功能：
 * - 定义打包器契约：输入记录 -> 尺寸优化 -> 两行解码器
 * - roadroller CLI 适配实现（外部二进制）
 * - 临时文件按时间戳命名，用完即删（可配置保留）
 *
 * 打包算法本身由外部工具提供，本模块只负责进程边界的数据传递
 */

package packer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"size-build/internal/utils"
)

// ====================  错误定义 ====================

var (
	// ErrNotOptimized Decoder 在 Optimize 之前被调用
	ErrNotOptimized = errors.New("packer output not available: Optimize must run first")
	// ErrNoInputs 没有输入记录
	ErrNoInputs = errors.New("packer requires at least one input")
	// ErrBadDecoderOutput 工具输出无法拆分为两行解码器
	ErrBadDecoderOutput = errors.New("packer output is not a two-line decoder")
)

// ====================  契约定义 ====================

// Input 打包器的单个输入记录
type Input struct {
	Data   string // 源代码文本
	Type   string // 输入类型，通常 "js"
	Action string // 运行时动作，通常 "eval"（立即求值）
}

// Decoder 打包器产出的解码器
// FirstLine 是引导语句，SecondLine 是主编码载荷；
// 两行都必须逐字节嵌入 <script> 中，不得再经过任何压缩器
type Decoder struct {
	FirstLine  string
	SecondLine string
}

// Packer 打包器契约
// Optimize 是挂起点：调用方等待外部工具结束后才能继续
type Packer interface {
	// Optimize 运行打包器的尺寸优化（passes 为优化轮数）
	Optimize(ctx context.Context, passes int) error

	// MakeDecoder 返回优化结果的两行解码器
	MakeDecoder() (Decoder, error)
}

// Factory 打包器构造函数
// 由配置阶段绑定具体实现，嵌入阶段只见到契约
type Factory func(inputs []Input) (Packer, error)

// ====================  roadroller 实现 ====================

// Roadroller roadroller CLI 适配器
type Roadroller struct {
	binPath string  // roadroller 可执行文件路径
	workDir string  // 临时文件目录（输出目录，跨进程传码）
	keep    bool    // 保留临时文件（调试用）
	inputs  []Input // 输入记录
	output  string  // 优化后的完整输出
}

// NewRoadrollerFactory 创建 roadroller 工厂
//
// 参数：
//   - binPath: roadroller 可执行文件路径
//   - workDir: 临时文件目录
//   - keep: 是否保留临时文件
func NewRoadrollerFactory(binPath, workDir string, keep bool) Factory {
	return func(inputs []Input) (Packer, error) {
		if len(inputs) == 0 {
			return nil, ErrNoInputs
		}
		return &Roadroller{
			binPath: binPath,
			workDir: workDir,
			keep:    keep,
			inputs:  inputs,
		}, nil
	}
}

// Optimize 调用 roadroller 进行尺寸优化
// 任何非零退出码都携带工具的 stderr 诊断信息向上传播
func (r *Roadroller) Optimize(ctx context.Context, passes int) error {
	if passes < 1 {
		passes = 1
	}

	// 时间戳后缀避免 watch 模式下重复构建的文件冲突
	stamp := time.Now().UnixNano()
	outFile := filepath.Join(r.workDir, fmt.Sprintf("packed-%d.js", stamp))

	// 每个输入记录写入独立临时文件
	var inFiles []string
	for i, in := range r.inputs {
		inFile := filepath.Join(r.workDir, fmt.Sprintf("pack-input-%d-%d.js", stamp, i))
		if err := os.WriteFile(inFile, []byte(in.Data), utils.FilePerm); err != nil {
			return fmt.Errorf("failed to write packer input: %w", err)
		}
		inFiles = append(inFiles, inFile)
	}

	if !r.keep {
		defer func() {
			for _, f := range append(inFiles, outFile) {
				if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
					utils.LogPrintf("[PACK] WARN: Failed to remove temp file %s: %v", f, err)
				}
			}
		}()
	}

	args := commandArgs(r.inputs, inFiles, outFile, passes)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binPath, args...)
	cmd.Stderr = &stderr

	utils.LogPrintf("[PACK] Running %s (passes=%d)", r.binPath, passes)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("roadroller failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		return fmt.Errorf("failed to read packer output: %w", err)
	}

	r.output = string(data)
	return nil
}

// MakeDecoder 拆分优化输出为两行解码器
func (r *Roadroller) MakeDecoder() (Decoder, error) {
	if r.output == "" {
		return Decoder{}, ErrNotOptimized
	}
	return splitDecoder(r.output)
}

// ====================  私有函数 ====================

// commandArgs 构造 roadroller 命令行参数
// 每个输入记录展开为 -t <type> -a <action> <file>，优化轮数映射为 -O<passes>
func commandArgs(inputs []Input, inFiles []string, outFile string, passes int) []string {
	args := []string{fmt.Sprintf("-O%d", passes), "-o", outFile}
	for i, in := range inputs {
		args = append(args, "-t", in.Type, "-a", in.Action, inFiles[i])
	}
	return args
}

// splitDecoder 在第一个换行处拆分输出
// 第一行是引导语句，剩余部分是编码载荷
func splitDecoder(output string) (Decoder, error) {
	trimmed := strings.TrimRight(output, "\n")
	idx := strings.IndexByte(trimmed, '\n')
	if idx < 0 {
		return Decoder{}, fmt.Errorf("%w: single line output", ErrBadDecoderOutput)
	}

	first := trimmed[:idx]
	second := trimmed[idx+1:]
	if first == "" || second == "" {
		return Decoder{}, fmt.Errorf("%w: empty decoder line", ErrBadDecoderOutput)
	}

	return Decoder{FirstLine: first, SecondLine: second}, nil
}
