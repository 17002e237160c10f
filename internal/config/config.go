/**
 * internal/config/config.go
 * 构建配置加载模块
 *
 * 功能：
 * - 从环境变量加载所有配置
 * - 提供默认值和类型转换
 * - 配置验证（压缩级别检查）
 * - 安全的配置访问（防止 nil panic）
 *
 * 依赖：
 * - github.com/joho/godotenv (.env 文件加载)
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"size-build/internal/utils"

	"github.com/joho/godotenv"
)

// ====================  错误定义 ====================

var (
	// ErrInvalidValue 配置值无效
	ErrInvalidValue = errors.New("INVALID_CONFIG_VALUE")
)

// ====================  配置结构 ====================

// Config 构建配置
// 包含流水线运行所需的全部配置项
type Config struct {
	// 目录配置
	SrcDir    string // 源码目录，默认 src
	PublicDir string // 静态资源目录，默认 public
	DistDir   string // 输出目录，默认 dist

	// 入口文件配置
	HTMLShell string // 页面外壳，默认 src/index.html
	JSEntry   string // JS 入口，默认 src/main.js
	CSSEntry  string // CSS 入口，默认 src/style.css

	// 归档配置
	ZipName           string // 归档文件名，默认 index.zip
	ZipLevel          int    // ect 压缩级别，默认 10009（极限压缩）
	StripMetadata     bool   // 去除 zip 元数据，默认 true
	PreserveTimestamp bool   // 保留文件时间戳，默认 false
	StrictLossless    bool   // 严格无损模式，默认 true
	ShrinkLevel       string // advzip 收缩级别（0-4 或命名级别），默认 insane
	Pedantic          bool   // advzip pedantic 模式，默认 false

	// 外部工具路径
	EctPath        string // ect 可执行文件，默认 ect
	AdvzipPath     string // advzip 可执行文件，默认 advzip
	RoadrollerPath string // roadroller 可执行文件，默认 roadroller

	// 打包器配置
	PackPasses int // 打包器尺寸优化轮数，默认 2

	// 尺寸预算（字节）
	SizeBudget int // 默认 13312（13 KB）

	// 调试配置
	KeepArtifacts bool // 保留传给外部工具的临时文件，默认 false

	// 工具选项覆盖文件
	ConfigFile string // 默认 build.config.json

	// R2 部署配置（可选）
	R2URL       string // R2 公开访问 URL
	R2AccessKey string // R2 Access Key
	R2SecretKey string // R2 Secret Key
	R2Endpoint  string // R2 Endpoint
	R2Bucket    string // R2 Bucket 名称

	// 预览服务器配置
	PreviewPort string // 预览端口，默认 3000
}

// ====================  全局配置实例 ====================

var (
	cfg     *Config      // 全局配置实例
	cfgOnce sync.Once    // 确保只加载一次
	cfgMu   sync.RWMutex // 配置读写锁
)

// ====================  配置加载 ====================

// Load 加载配置
// 从环境变量加载所有配置项，支持 .env 文件
//
// 返回：
//   - *Config: 配置实例
//   - error: 错误信息
//     - ErrInvalidValue: 配置值无效
//
// 注意：
//   - .env 文件不存在时会记录警告但不会返回错误
func Load() (*Config, error) {
	var loadErr error

	cfgOnce.Do(func() {
		loadErr = loadConfig()
	})

	if loadErr != nil {
		return nil, loadErr
	}

	cfgMu.RLock()
	defer cfgMu.RUnlock()

	return cfg, nil
}

// loadConfig 内部配置加载函数
func loadConfig() error {
	// 加载 .env 文件（仅当前目录）
	if err := godotenv.Load(".env"); err == nil {
		utils.LogPrintf("[CONFIG] Loaded .env from current directory")
	} else {
		utils.LogPrintf("[CONFIG] WARN: .env file not found (this is OK if using system env vars)")
	}

	// 创建配置实例
	newCfg := &Config{}

	// 加载目录配置
	newCfg.SrcDir = getEnv("SRC_DIR", "src")
	newCfg.PublicDir = getEnv("PUBLIC_DIR", "public")
	newCfg.DistDir = getEnv("DIST_DIR", "dist")

	// 加载入口文件配置
	newCfg.HTMLShell = getEnv("HTML_SHELL", "src/index.html")
	newCfg.JSEntry = getEnv("JS_ENTRY", "src/main.js")
	newCfg.CSSEntry = getEnv("CSS_ENTRY", "src/style.css")

	// 加载归档配置
	newCfg.ZipName = getEnv("ZIP_NAME", "index.zip")
	zipLevel, err := getEnvInt("ZIP_LEVEL", 10009)
	if err != nil {
		utils.LogPrintf("[CONFIG] WARN: Invalid ZIP_LEVEL, using default (10009): %v", err)
	}
	newCfg.ZipLevel = zipLevel
	newCfg.StripMetadata = getEnvBool("STRIP_METADATA", true)
	newCfg.PreserveTimestamp = getEnvBool("PRESERVE_TIMESTAMP", false)
	newCfg.StrictLossless = getEnvBool("STRICT_LOSSLESS", true)
	newCfg.ShrinkLevel = getEnv("SHRINK_LEVEL", "insane")
	newCfg.Pedantic = getEnvBool("PEDANTIC", false)

	// 加载外部工具路径
	newCfg.EctPath = getEnv("ECT_PATH", "ect")
	newCfg.AdvzipPath = getEnv("ADVZIP_PATH", "advzip")
	newCfg.RoadrollerPath = getEnv("ROADROLLER_PATH", "roadroller")

	// 加载打包器配置
	packPasses, err := getEnvInt("PACK_PASSES", 2)
	if err != nil {
		utils.LogPrintf("[CONFIG] WARN: Invalid PACK_PASSES, using default (2): %v", err)
	}
	newCfg.PackPasses = packPasses

	// 加载尺寸预算
	sizeBudget, err := getEnvInt("SIZE_BUDGET", 13312)
	if err != nil {
		utils.LogPrintf("[CONFIG] WARN: Invalid SIZE_BUDGET, using default (13312): %v", err)
	}
	newCfg.SizeBudget = sizeBudget

	// 加载调试配置
	newCfg.KeepArtifacts = getEnvBool("KEEP_ARTIFACTS", false)
	newCfg.ConfigFile = getEnv("CONFIG_FILE", "build.config.json")

	// 加载 R2 配置
	newCfg.R2URL = getEnv("R2_URL", "")
	newCfg.R2AccessKey = getEnv("R2_ACCESS_KEY", "")
	newCfg.R2SecretKey = getEnv("R2_SECRET_KEY", "")
	newCfg.R2Endpoint = getEnv("R2_ENDPOINT", "")
	newCfg.R2Bucket = getEnv("R2_BUCKET", "")

	// 加载预览服务器配置
	newCfg.PreviewPort = getEnv("PREVIEW_PORT", "3000")

	// 验证配置
	if err := validateConfig(newCfg); err != nil {
		return err
	}

	// 保存配置
	cfgMu.Lock()
	cfg = newCfg
	cfgMu.Unlock()

	// 记录配置加载成功
	utils.LogPrintf("[CONFIG] Configuration loaded: dist=%s, zip_level=%d, shrink_level=%s, budget=%d bytes",
		newCfg.DistDir, newCfg.ZipLevel, newCfg.ShrinkLevel, newCfg.SizeBudget)

	return nil
}

// validateConfig 验证配置
// 检查数值配置项是否在合法范围内
func validateConfig(c *Config) error {
	if c.PackPasses < 1 {
		return fmt.Errorf("%w: PACK_PASSES must be >= 1, got %d", ErrInvalidValue, c.PackPasses)
	}

	if c.SizeBudget <= 0 {
		return fmt.Errorf("%w: SIZE_BUDGET must be positive, got %d", ErrInvalidValue, c.SizeBudget)
	}

	return nil
}

// ====================  配置访问 ====================

// Get 获取全局配置实例
// 如果配置未加载，会自动加载
//
// 返回：
//   - *Config: 配置实例（永不为 nil）
func Get() *Config {
	cfgMu.RLock()
	if cfg != nil {
		defer cfgMu.RUnlock()
		return cfg
	}
	cfgMu.RUnlock()

	// 配置未加载，尝试加载
	loadedCfg, err := Load()
	if err != nil {
		utils.LogPrintf("[CONFIG] ERROR: Failed to load config: %v, using defaults", err)
		// 返回默认配置，避免 nil panic
		return getDefaultConfig()
	}

	return loadedCfg
}

// MustGet 获取全局配置实例（必须成功）
// 如果配置未加载或加载失败，会退出进程
//
// 注意：
//   - 仅在程序启动时使用，确保配置正确加载
func MustGet() *Config {
	cfgMu.RLock()
	if cfg != nil {
		defer cfgMu.RUnlock()
		return cfg
	}
	cfgMu.RUnlock()

	loadedCfg, err := Load()
	if err != nil {
		utils.LogFatalf("[CONFIG] FATAL: Failed to load config: %v", err)
	}

	return loadedCfg
}

// getDefaultConfig 获取默认配置
// 用于配置加载失败时的降级处理
func getDefaultConfig() *Config {
	return &Config{
		SrcDir:         "src",
		PublicDir:      "public",
		DistDir:        "dist",
		HTMLShell:      "src/index.html",
		JSEntry:        "src/main.js",
		CSSEntry:       "src/style.css",
		ZipName:        "index.zip",
		ZipLevel:       10009,
		StripMetadata:  true,
		StrictLossless: true,
		ShrinkLevel:    "insane",
		EctPath:        "ect",
		AdvzipPath:     "advzip",
		RoadrollerPath: "roadroller",
		PackPasses:     2,
		SizeBudget:     13312,
		ConfigFile:     "build.config.json",
		PreviewPort:    "3000",
	}
}

// ====================  配置检查方法 ====================

// IsDeployConfigured 检查 R2 部署配置是否完整
// 返回部署阶段是否可用
func (c *Config) IsDeployConfigured() bool {
	return c.R2Endpoint != "" && c.R2AccessKey != "" && c.R2SecretKey != "" && c.R2Bucket != ""
}

// ====================  辅助函数 ====================

// getEnv 获取环境变量，支持默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 获取整数环境变量，支持默认值
// 解析失败时返回默认值和错误
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
	}

	return parsed, nil
}

// getEnvBool 获取布尔环境变量，支持默认值
// 接受 strconv.ParseBool 的全部写法（1/0、true/false 等）
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		utils.LogPrintf("[CONFIG] WARN: Invalid bool for %s=%q, using default", key, value)
		return defaultValue
	}

	return parsed
}
