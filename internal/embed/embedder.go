/**
 * internal/embed/embedder.go
 * 单文件 HTML 内联模块（核心变换）
 *
 * 功能：
 * - 阶段 1：CSS 内联（<link> -> <style>，esbuild 压缩）
 * - 阶段 2：整页 HTML 压缩（tdewolff/minify）
 * - 阶段 3：JS 打包嵌入（<script src> -> 两行解码器 <script>）
 *
 * 阶段顺序是硬性约束：
 * - CSS 内联必须先于 HTML 压缩，让压缩器顺带压缩注入的 style 块
 * - HTML 压缩必须先于 JS 嵌入，打包载荷含引号和换行，
 *   经过通用 HTML 压缩器会被破坏，必须逐字节保留
 */

package embed

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"size-build/internal/bundle"
	"size-build/internal/packer"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"
)

// ====================  默认选项 ====================

// DefaultHTMLOptions HTML 压缩器推荐默认选项（最激进的安全档位）
// 全部可通过 build.config.json 的 html.options 覆盖
func DefaultHTMLOptions() map[string]any {
	return map[string]any{
		"keepComments":            false,
		"keepConditionalComments": false,
		"keepDefaultAttrVals":     false,
		"keepDocumentTags":        false,
		"keepEndTags":             false,
		"keepQuotes":              false,
		"keepWhitespace":          false,
	}
}

// ====================  内联器 ====================

// Embedder 单文件内联器
// 每次构建创建一个实例，对一份 HTML 文档执行三阶段变换；
// 内联完成的 CSS/JS 条目会从产物集合中移除，避免落盘
type Embedder struct {
	bundle      *bundle.Bundle
	htmlOptions map[string]any
	factory     packer.Factory
	packPasses  int
}

// New 创建内联器
//
// 参数：
//   - b: 产物集合（会被原地修改）
//   - htmlOptions: HTML 压缩选项（nil 使用默认选项）
//   - factory: 打包器工厂
//   - packPasses: 打包器优化轮数
func New(b *bundle.Bundle, htmlOptions map[string]any, factory packer.Factory, packPasses int) *Embedder {
	if htmlOptions == nil {
		htmlOptions = DefaultHTMLOptions()
	}
	return &Embedder{
		bundle:      b,
		htmlOptions: htmlOptions,
		factory:     factory,
		packPasses:  packPasses,
	}
}

// Transform 对 HTML 文档执行三阶段变换
// 任何阶段的工具错误都直接向上传播，构建立即失败，
// 不会产出未压缩/未打包的降级结果
func (e *Embedder) Transform(ctx context.Context, doc string) (string, error) {
	// 阶段 1：CSS 内联
	doc, err := e.inlineCSS(doc)
	if err != nil {
		return "", fmt.Errorf("css inline failed: %w", err)
	}

	// 阶段 2：HTML 压缩（无条件执行）
	doc, err = e.minifyHTML(doc)
	if err != nil {
		return "", fmt.Errorf("html minify failed: %w", err)
	}

	// 阶段 3：JS 打包嵌入
	doc, err = e.embedJS(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("js embed failed: %w", err)
	}

	return doc, nil
}

// ====================  阶段 1：CSS 内联 ====================

// inlineCSS 将产物中的 CSS 压缩后内联为 <style> 块
// 没有 CSS 产物时原样返回（不是错误）
func (e *Embedder) inlineCSS(doc string) (string, error) {
	cssKey := e.bundle.FindBySuffix(".css")
	if cssKey == "" {
		return doc, nil
	}

	asset, ok := e.bundle.Get(cssKey)
	if !ok {
		return doc, nil
	}

	// esbuild 最高安全档位压缩 CSS
	result := api.Transform(string(asset.Bytes()), api.TransformOptions{
		Loader:           api.LoaderCSS,
		MinifyWhitespace: true,
		MinifySyntax:     true,
	})
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("esbuild css: %s", result.Errors[0].Text)
	}

	minified := strings.TrimSpace(string(result.Code))

	// 匹配 href 指向该 CSS 的 <link> 标签（容忍 ./ 与 ../ 前缀）
	linkRe := regexp.MustCompile(`<link[^>]*href="[./]*` + regexp.QuoteMeta(cssKey) + `"[^>]*>`)
	doc = linkRe.ReplaceAllString(doc, "<style>"+minified+"</style>")

	// 移除产物条目，落盘时不再写出独立 CSS 文件
	e.bundle.Remove(cssKey)

	return doc, nil
}

// ====================  阶段 2：HTML 压缩 ====================

// minifyHTML 整页压缩
func (e *Embedder) minifyHTML(doc string) (string, error) {
	minifier, err := minifierFromOptions(e.htmlOptions)
	if err != nil {
		return "", err
	}

	m := minify.New()
	m.Add("text/html", minifier)

	out, err := m.String("text/html", doc)
	if err != nil {
		return "", fmt.Errorf("tdewolff html: %w", err)
	}

	return out, nil
}

// minifierFromOptions 从合并后的选项表构造 HTML 压缩器
// 类型不符的覆盖值（如 JSON 字符串 "true"）是配置错误，不静默按 false 处理
func minifierFromOptions(opts map[string]any) (*minhtml.Minifier, error) {
	m := &minhtml.Minifier{}

	for key, field := range map[string]*bool{
		"keepComments":            &m.KeepComments,
		"keepConditionalComments": &m.KeepConditionalComments,
		"keepDefaultAttrVals":     &m.KeepDefaultAttrVals,
		"keepDocumentTags":        &m.KeepDocumentTags,
		"keepEndTags":             &m.KeepEndTags,
		"keepQuotes":              &m.KeepQuotes,
		"keepWhitespace":          &m.KeepWhitespace,
	} {
		value, exists := opts[key]
		if !exists || value == nil {
			continue
		}

		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("html option %s: want bool, got %v", key, value)
		}
		*field = b
	}

	return m, nil
}

// ====================  阶段 3：JS 打包嵌入 ====================

// embedJS 移除 <script src> 标签，将载荷交给打包器，
// 解码器两行包进末尾的 <script> 块
// 没有 JS chunk 时返回阶段 2 的文档（不是错误）
func (e *Embedder) embedJS(ctx context.Context, doc string) (string, error) {
	jsKey := e.bundle.FindBySuffix(".js")
	if jsKey == "" {
		return doc, nil
	}

	chunk, ok := e.bundle.Get(jsKey)
	if !ok {
		return doc, nil
	}

	// 删除指向该 chunk 的 <script> 标签
	// 阶段 2 可能已去掉属性引号，引号按可选匹配
	scriptRe := regexp.MustCompile(`<script[^>]*src="?[./]*` + regexp.QuoteMeta(jsKey) + `"?[^>]*>\s*</script>`)
	doc = scriptRe.ReplaceAllString(doc, "")

	// 载荷：运行时用 document.write 重新注入页面，再在同一求值上下文执行应用代码
	payload := "document.write('" + escapeJSString(doc) + "');" + strings.TrimSpace(chunk.Code)

	p, err := e.factory([]packer.Input{{
		Data:   payload,
		Type:   "js",
		Action: "eval",
	}})
	if err != nil {
		return "", err
	}

	// 两轮尺寸优化（可配置）
	if err := p.Optimize(ctx, e.packPasses); err != nil {
		return "", err
	}

	dec, err := p.MakeDecoder()
	if err != nil {
		return "", err
	}

	e.bundle.Remove(jsKey)

	// 解码器输出含原始打包载荷，必须逐字节保留，
	// 所以追加在压缩完成之后，不再经过任何压缩器
	return doc + "<script>" + dec.FirstLine + "\n" + dec.SecondLine + "</script>", nil
}

// escapeJSString 转义嵌入单引号 JS 字符串字面量的文本
func escapeJSString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
