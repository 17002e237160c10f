package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindBySuffixReturnsFirstMatchInInsertionOrder(t *testing.T) {
	b := New()
	b.AddAsset("a.css", []byte("a"))
	b.AddChunk("b.js", "b", true)
	b.AddAsset("c.css", []byte("c"))

	// 插入顺序决定命中，后续匹配忽略
	assert.Equal(t, "a.css", b.FindBySuffix(".css"))
	assert.Equal(t, "b.js", b.FindBySuffix(".js"))
}

func TestFindBySuffixNoMatch(t *testing.T) {
	b := New()
	b.AddAsset("index.html", []byte("<html></html>"))

	assert.Equal(t, "", b.FindBySuffix(".css"))
}

func TestRemoveDeletesEntryAndOrder(t *testing.T) {
	b := New()
	b.AddAsset("style.css", []byte("x"))
	b.AddChunk("main.js", "y", true)

	assert.True(t, b.Remove("style.css"))
	assert.False(t, b.Remove("style.css"))

	_, ok := b.Get("style.css")
	assert.False(t, ok)
	assert.Equal(t, []string{"main.js"}, b.Keys())
	assert.Equal(t, "", b.FindBySuffix(".css"))
}

func TestAddOverwritesKeepsOrder(t *testing.T) {
	b := New()
	b.AddAsset("index.html", []byte("old"))
	b.AddAsset("style.css", []byte("css"))
	b.AddAsset("index.html", []byte("new"))

	assert.Equal(t, []string{"index.html", "style.css"}, b.Keys())

	a, ok := b.Get("index.html")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), a.Bytes())
}

func TestWriteToFlushesAllEntries(t *testing.T) {
	dir := t.TempDir()

	b := New()
	b.AddAsset("index.html", []byte("<html></html>"))
	b.AddChunk(filepath.Join("js", "main.js"), "console.log(1)", true)

	written, err := b.WriteTo(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(len("<html></html>")+len("console.log(1)")), written)

	html, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, []byte("<html></html>"), html)

	js, err := os.ReadFile(filepath.Join(dir, "js", "main.js"))
	require.NoError(t, err)
	assert.Equal(t, []byte("console.log(1)"), js)
}

func TestChunkBytes(t *testing.T) {
	a := &Asset{Kind: KindChunk, Code: "let x=1"}
	assert.Equal(t, []byte("let x=1"), a.Bytes())
}
