/**
 * internal/config/options.go
 * 工具选项解析模块
 *
 * 功能：
 * - 每个外部工具的启用/禁用/覆盖三态配置
 * - 从 build.config.json 加载用户覆盖
 * - 覆盖与内置默认通过 Merge 统一解析
 */

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"size-build/internal/utils"
)

// ====================  选项结构 ====================

// ToolOption 单个工具的选项配置
// 三态：禁用 / 启用（用默认值）/ 启用（带覆盖）
// 在配置构建阶段一次性解析，之后工具调用只见到最终选项表
type ToolOption struct {
	// Disabled 为 true 时整个工具跳过
	Disabled bool `json:"disabled,omitempty"`

	// Overrides 用户覆盖的选项键值（可为空）
	Overrides map[string]any `json:"options,omitempty"`
}

// Resolve 解析最终选项表
// 禁用时返回 nil；否则返回覆盖与默认合并后的选项表
func (o ToolOption) Resolve(defaults map[string]any) map[string]any {
	if o.Disabled {
		return nil
	}
	return Merge(o.Overrides, defaults)
}

// ====================  覆盖文件 ====================

// Overrides 用户工具选项覆盖集合
// 对应 build.config.json 的顶层结构
type Overrides struct {
	HTML ToolOption `json:"html"` // HTML 压缩器选项
	Pack ToolOption `json:"pack"` // JS 打包器选项
	Zip  ToolOption `json:"zip"`  // 归档工具选项
}

// LoadOverrides 从配置文件加载工具选项覆盖
// 文件不存在不是错误（返回零值集合）；格式错误是致命配置错误
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Overrides{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var ov Overrides
	if err := json.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON in %s: %v", ErrInvalidValue, path, err)
	}

	utils.LogPrintf("[CONFIG] Loaded tool option overrides from %s", path)
	return &ov, nil
}
