/**
 * internal/images/images_test.go
 * 图片再压缩模块单元测试
 */

package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"size-build/internal/utils"
)

// testPNG 生成一张纯色 PNG（重复像素，WebP 无损编码应显著更小）
func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: 40, G: 120, B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRecompressDirConvertsPNG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sprite.png")
	require.NoError(t, os.WriteFile(src, testPNG(t, 64, 64), utils.FilePerm))

	r, err := New(0)
	require.NoError(t, err)

	converted, err := r.RecompressDir(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, 1, converted)
	assert.FileExists(t, filepath.Join(dir, "sprite.webp"))
	assert.NoFileExists(t, src)
}

func TestRecompressDirEmptyDir(t *testing.T) {
	r, err := New(0)
	require.NoError(t, err)

	converted, err := r.RecompressDir(context.Background(), t.TempDir())

	require.NoError(t, err)
	assert.Zero(t, converted)
}

func TestRecompressDirSkipsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), utils.FilePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.png"), testPNG(t, 32, 32), utils.FilePerm))

	r, err := New(0)
	require.NoError(t, err)

	converted, err := r.RecompressDir(context.Background(), dir)

	// 坏文件只跳过，好文件照常转码
	require.NoError(t, err)
	assert.Equal(t, 1, converted)
	assert.FileExists(t, filepath.Join(dir, "broken.png"))
}

func TestEncodeCaching(t *testing.T) {
	r, err := New(8)
	require.NoError(t, err)

	data := testPNG(t, 16, 16)

	first, err := r.encode(data, ".png")
	require.NoError(t, err)

	second, err := r.encode(data, ".png")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, r.cache.Len())
}

func TestDecodeUnsupportedType(t *testing.T) {
	_, err := decode([]byte("data"), ".gif")

	assert.ErrorContains(t, err, "unsupported image type")
}
