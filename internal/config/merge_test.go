package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 默认选项构造器（每次返回新实例，避免测试间互相污染）
func testDefaults() map[string]any {
	return map[string]any{
		"level":   9,
		"quiet":   true,
		"names":   []any{"a", "b"},
		"nested":  map[string]any{"inner": "default", "keep": 1},
		"literal": "default",
	}
}

func TestMergeNilUserReturnsDefaults(t *testing.T) {
	defaults := testDefaults()
	result := Merge(nil, defaults)

	// 返回的就是 defaults 本身，不做拷贝
	assert.Equal(t, map[string]any(defaults), result)
}

func TestMergeFillsMissingKeys(t *testing.T) {
	user := map[string]any{"level": 4}
	result := Merge(user, testDefaults())

	assert.Equal(t, 4, result["level"])
	assert.Equal(t, true, result["quiet"])
	assert.Equal(t, []any{"a", "b"}, result["names"])
	assert.Equal(t, "default", result["literal"])
}

func TestMergePreservesUserValuesAtAnyDepth(t *testing.T) {
	user := map[string]any{
		"quiet":  false,
		"nested": map[string]any{"inner": "user"},
	}
	result := Merge(user, testDefaults())

	assert.Equal(t, false, result["quiet"])

	nested, ok := result["nested"].(map[string]any)
	require.True(t, ok)
	// 用户值保留，默认键补齐
	assert.Equal(t, "user", nested["inner"])
	assert.Equal(t, 1, nested["keep"])
}

func TestMergeDoesNotMergeArraysElementWise(t *testing.T) {
	user := map[string]any{"names": []any{"x"}}
	result := Merge(user, testDefaults())

	// 数组整体保留用户值，不逐元素合并
	assert.Equal(t, []any{"x"}, result["names"])
}

func TestMergeMutatesUserInPlace(t *testing.T) {
	user := map[string]any{"level": 4}
	result := Merge(user, testDefaults())

	// 返回的就是传入的 user 实例
	assert.Equal(t, map[string]any(user), result)
	assert.Equal(t, true, user["quiet"])
}

func TestMergeIdempotence(t *testing.T) {
	user := map[string]any{
		"level":  4,
		"nested": map[string]any{"inner": "user"},
	}
	defaults := testDefaults()

	once := Merge(user, defaults)
	twice := Merge(once, defaults)

	assert.Equal(t, once, twice)
}

func TestMergeNilValueTreatedAsMissing(t *testing.T) {
	user := map[string]any{"quiet": nil}
	result := Merge(user, testDefaults())

	assert.Equal(t, true, result["quiet"])
}
