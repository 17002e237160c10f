package packer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandArgsExpandsInputRecords(t *testing.T) {
	inputs := []Input{{Data: "x", Type: "js", Action: "eval"}}
	args := commandArgs(inputs, []string{"in.js"}, "out.js", 2)

	assert.Equal(t, []string{"-O2", "-o", "out.js", "-t", "js", "-a", "eval", "in.js"}, args)
}

func TestCommandArgsMultipleInputs(t *testing.T) {
	inputs := []Input{
		{Type: "js", Action: "eval"},
		{Type: "js", Action: "eval"},
	}
	args := commandArgs(inputs, []string{"a.js", "b.js"}, "out.js", 1)

	assert.Equal(t, []string{
		"-O1", "-o", "out.js",
		"-t", "js", "-a", "eval", "a.js",
		"-t", "js", "-a", "eval", "b.js",
	}, args)
}

func TestSplitDecoderTwoLines(t *testing.T) {
	dec, err := splitDecoder("eval(bootstrap)\npayload-bytes\n")
	require.NoError(t, err)

	assert.Equal(t, "eval(bootstrap)", dec.FirstLine)
	assert.Equal(t, "payload-bytes", dec.SecondLine)
}

func TestSplitDecoderPayloadMayContainNewlines(t *testing.T) {
	dec, err := splitDecoder("first\nsecond\nmore")
	require.NoError(t, err)

	assert.Equal(t, "first", dec.FirstLine)
	assert.Equal(t, "second\nmore", dec.SecondLine)
}

func TestSplitDecoderSingleLineIsError(t *testing.T) {
	_, err := splitDecoder("only-one-line\n")
	assert.ErrorIs(t, err, ErrBadDecoderOutput)
}

func TestSplitDecoderEmptyLineIsError(t *testing.T) {
	_, err := splitDecoder("\npayload")
	assert.ErrorIs(t, err, ErrBadDecoderOutput)
}

func TestFactoryRejectsEmptyInputs(t *testing.T) {
	factory := NewRoadrollerFactory("roadroller", t.TempDir(), false)

	_, err := factory(nil)
	assert.ErrorIs(t, err, ErrNoInputs)
}

func TestMakeDecoderBeforeOptimize(t *testing.T) {
	factory := NewRoadrollerFactory("roadroller", t.TempDir(), false)

	p, err := factory([]Input{{Data: "x", Type: "js", Action: "eval"}})
	require.NoError(t, err)

	_, err = p.MakeDecoder()
	assert.ErrorIs(t, err, ErrNotOptimized)
}
