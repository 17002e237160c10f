/**
 * internal/utils/logger.go
 * 高性能异步日志模块（基于 zap）
 *
 * 功能：
 * - 异步日志写入，不阻塞构建流程
 * - 自动脱敏凭证信息（Access Key、Token 等）
 * - 统一日志格式
 * - 支持优雅关闭
 *
 * 用法（其他包）：
 *   utils.LogPrintf("[BUILD] Built %d files", count)
 *
 * 用法（utils 包内）：
 *   LogPrintf("[FILES] Walk error: %v", err)
 */

package utils

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ====================  全局变量 ====================

var (
	// logger zap 日志实例
	logger *zap.Logger

	// sugar zap SugaredLogger（更方便的 API）
	sugar *zap.SugaredLogger

	// loggerOnce 确保只初始化一次
	loggerOnce sync.Once

	// 凭证正则（用于检测日志中的 Access Key / Secret / Token）
	// 通过 key=value 模式匹配，避免误伤普通文本
	logSecretRegex = regexp.MustCompile(`(?i)(secret|token|access[_-]?key)[=:\s]+([a-zA-Z0-9_\-\./+]{16,})`)
)

// ====================  初始化 ====================

// initLogger 初始化 zap 日志
func initLogger() {
	loggerOnce.Do(func() {
		// 统一配置：控制台格式，Info 级别
		config := zap.Config{
			Level:            zap.NewAtomicLevelAt(zapcore.InfoLevel),
			Development:      false,
			Encoding:         "console",
			OutputPaths:      []string{"stderr"},
			ErrorOutputPaths: []string{"stderr"},
			EncoderConfig: zapcore.EncoderConfig{
				TimeKey:        "time",
				LevelKey:       "level",
				MessageKey:     "msg",
				EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
				EncodeLevel:    zapcore.CapitalLevelEncoder,
				EncodeDuration: zapcore.StringDurationEncoder,
			},
		}

		var err error
		logger, err = config.Build(
			zap.AddCallerSkip(1), // 跳过 LogPrintf 调用层
		)
		if err != nil {
			// 降级到标准输出
			fmt.Fprintf(os.Stderr, "[LOGGER] Failed to init zap: %v, falling back to basic logger\n", err)
			logger = zap.NewNop()
		}

		sugar = logger.Sugar()
	})
}

// getLogger 获取 logger 实例（懒加载）
func getLogger() *zap.SugaredLogger {
	if sugar == nil {
		initLogger()
	}
	return sugar
}

// ====================  公开函数 ====================

// LogPrintf 安全日志输出（格式化），自动脱敏凭证信息
// 替代 log.Printf，使用 zap 异步写入
func LogPrintf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	masked := maskSecrets(message)
	getLogger().Info(masked)
}

// LogFatalf 安全日志输出后退出，自动脱敏凭证信息
// 替代 log.Fatalf
func LogFatalf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	masked := maskSecrets(message)
	getLogger().Fatal(masked)
}

// SyncLogger 同步日志缓冲区（构建结束前调用）
// 确保所有日志都被写入
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}

// ====================  私有函数 ====================

// maskSecrets 脱敏凭证数据
// 先做字符串包含预检查，避免不必要的正则扫描
func maskSecrets(message string) string {
	// 截断首字母实现忽略大小写匹配，避免 ToLower 内存分配
	if strings.Contains(message, "ecret") || strings.Contains(message, "ECRET") ||
		strings.Contains(message, "oken") || strings.Contains(message, "OKEN") ||
		strings.Contains(message, "ccess") || strings.Contains(message, "CCESS") {
		message = logSecretRegex.ReplaceAllStringFunc(message, maskSecret)
	}

	return message
}

// maskSecret 对单个凭证进行脱敏处理
// 将 access_key=AKIAEXAMPLEKEY123456 转换为 access_key=AKIA***[MASKED]
// 保留前 4 个字符用于识别凭证类型，隐藏其余部分
func maskSecret(match string) string {
	if match == "" {
		return ""
	}

	// 找到分隔符位置（= 或 : 或空格）
	separatorIdx := -1
	for i, c := range match {
		if c == '=' || c == ':' || c == ' ' {
			separatorIdx = i
			break
		}
	}

	if separatorIdx == -1 {
		return match
	}

	// 提取 key 和 value
	key := match[:separatorIdx+1]
	value := strings.TrimSpace(match[separatorIdx+1:])

	if len(value) <= 8 {
		return key + "***[MASKED]"
	}

	// 保留前 4 个字符
	return key + value[:4] + "***[MASKED]"
}
