/**
 * internal/deploy/deploy_test.go
 * 部署模块单元测试
 */

package deploy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"size-build/internal/config"
)

func TestNewUploaderUnconfigured(t *testing.T) {
	// 缺少凭证时部署阶段禁用而不是报错
	uploader, err := NewUploader(context.Background(), &config.Config{})

	require.NoError(t, err)
	assert.Nil(t, uploader)
	assert.False(t, uploader.IsConfigured())
}

func TestUploadFileUnconfigured(t *testing.T) {
	var uploader *Uploader

	_, err := uploader.UploadFile(context.Background(), "dist/index.zip")

	assert.ErrorContains(t, err, "not initialized")
}

func TestObjectKey(t *testing.T) {
	key1 := ObjectKey("index.zip", []byte("v1"))
	key2 := ObjectKey("index.zip", []byte("v2"))

	assert.Contains(t, key1, "builds/")
	assert.Contains(t, key1, "/index.zip")
	// 内容变化对象键必须变化
	assert.NotEqual(t, key1, key2)
}
