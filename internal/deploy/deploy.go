/**
 * internal/deploy/deploy.go
 * 构建产物部署模块（Cloudflare R2）
 *
 * 功能：
 * - 上传最终 zip 与预览 HTML 到 R2
 * - 按内容哈希生成版本化对象键
 * - R2 未配置时部署阶段整体禁用
 */

package deploy

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"size-build/internal/config"
	"size-build/internal/utils"
)

// contentTypes 按扩展名的内容类型映射
var contentTypes = map[string]string{
	".zip":  "application/zip",
	".html": "text/html; charset=utf-8",
	".br":   "application/octet-stream",
}

// Uploader R2 上传器
type Uploader struct {
	client *s3.Client
	bucket string
	url    string
}

// NewUploader 创建 R2 上传器
// R2 未配置时返回 nil（部署阶段禁用，不视为错误）
func NewUploader(ctx context.Context, cfg *config.Config) (*Uploader, error) {
	if !cfg.IsDeployConfigured() {
		utils.LogPrintf("[DEPLOY] WARN: R2 not configured, deploy stage disabled")
		return nil, nil
	}

	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: cfg.R2Endpoint,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithEndpointResolverWithOptions(r2Resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.R2AccessKey,
			cfg.R2SecretKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	utils.LogPrintf("[DEPLOY] R2 uploader initialized: bucket=%s", cfg.R2Bucket)

	return &Uploader{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.R2Bucket,
		url:    cfg.R2URL,
	}, nil
}

// IsConfigured 检查上传器是否可用
func (u *Uploader) IsConfigured() bool {
	return u != nil && u.client != nil
}

// UploadFile 上传单个文件到 R2
// 对象键带内容哈希版本号（builds/<hash>/<name>），返回访问 URL
func (u *Uploader) UploadFile(ctx context.Context, path string) (string, error) {
	if !u.IsConfigured() {
		return "", fmt.Errorf("R2 uploader not initialized")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	key := ObjectKey(filepath.Base(path), data)
	contentType := contentTypes[filepath.Ext(path)]
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	fileURL := fmt.Sprintf("%s/%s", u.url, key)
	utils.LogPrintf("[DEPLOY] Uploaded %s (%s) -> %s", path, utils.FormatBytes(int64(len(data))), fileURL)

	return fileURL, nil
}

// ObjectKey 生成版本化对象键
func ObjectKey(name string, data []byte) string {
	return fmt.Sprintf("builds/%s/%s", utils.ContentHash(data), name)
}
