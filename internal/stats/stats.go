/**
 * internal/stats/stats.go
 * 构建尺寸统计模块
 *
 * 功能：
 * - 按尺寸预算（默认 13 KB）报告产物大小
 * - 压缩前后比例表格输出（纯展示，不影响构建结果）
 */

package stats

import (
	"fmt"
	"strings"

	"size-build/internal/utils"
)

// DefaultBudget 默认尺寸预算（13 KB）
const DefaultBudget = 13312

// ====================  报告器 ====================

// Reporter 尺寸统计报告器
type Reporter struct {
	budget int
}

// New 创建报告器
// budget <= 0 时使用默认预算
func New(budget int) *Reporter {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Reporter{budget: budget}
}

// Budget 返回当前尺寸预算
func (r *Reporter) Budget() int {
	return r.budget
}

// LogSize 输出产物大小与预算占比
// 格式：{prefix} size: {bytes} bytes ({pct}% of 13 KB)
func (r *Reporter) LogSize(prefix string, bytes int64) {
	utils.LogPrintf("[STATS] %s size: %d bytes (%s of %s)",
		prefix, bytes, r.BudgetPct(bytes), r.budgetLabel())
}

// BudgetPct 计算预算占比标签
func (r *Reporter) BudgetPct(bytes int64) string {
	pct := float64(bytes) / float64(r.budget) * 100
	return fmt.Sprintf("%.1f%%", pct)
}

// budgetLabel 预算的人类可读标签
// 整 KB 预算不带小数（默认预算显示为 "13 KB"）
func (r *Reporter) budgetLabel() string {
	if r.budget%1024 == 0 {
		return fmt.Sprintf("%d KB", r.budget/1024)
	}
	return utils.FormatBytes(int64(r.budget))
}

// ====================  比例计算 ====================

// Ratio 计算压缩比例
// ratio = newSize/oldSize - 1，负值表示缩小
// oldSize 为 0 时返回 0（无意义输入，避免除零）
func Ratio(oldSize, newSize int64) float64 {
	if oldSize == 0 {
		return 0
	}
	return float64(newSize)/float64(oldSize) - 1
}

// RatioLabel 格式化比例标签
// 正值带 + 号（变大），非正值直接输出（负号自带）
func RatioLabel(ratio float64) string {
	pct := ratio * 100
	if pct > 0 {
		return fmt.Sprintf("+%.0f%%", pct)
	}
	return fmt.Sprintf("%.0f%%", pct)
}

// ====================  表格输出 ====================

// Row 单个产物的尺寸记录
// 每次构建重新生成，输出后丢弃
type Row struct {
	Name    string // 产物名
	OldSize int64  // 处理前字节数
	NewSize int64  // 处理后字节数
}

// LogTable 输出对齐的压缩比例表格
// 纯展示逻辑，只保证算术正确
func (r *Reporter) LogTable(rows []Row) {
	if len(rows) == 0 {
		return
	}

	// 计算各列宽度
	nameWidth, oldWidth, newWidth := 0, 0, 0
	for _, row := range rows {
		nameWidth = max(nameWidth, len(row.Name))
		oldWidth = max(oldWidth, len(utils.FormatBytes(row.OldSize)))
		newWidth = max(newWidth, len(utils.FormatBytes(row.NewSize)))
	}

	for _, row := range rows {
		label := RatioLabel(Ratio(row.OldSize, row.NewSize))
		utils.LogPrintf("[STATS] %s  %s -> %s  (%s)",
			pad(row.Name, nameWidth),
			padLeft(utils.FormatBytes(row.OldSize), oldWidth),
			padLeft(utils.FormatBytes(row.NewSize), newWidth),
			label)
	}
}

// pad 右侧补空格到指定宽度
func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// padLeft 左侧补空格到指定宽度
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}
