package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	tests := map[string]bool{
		"y\n":     true,
		"YES\n":   true,
		" yes \n": true,
		"n\n":     false,
		"\n":      false,
		"sure\n":  false,
		"y":       true,
	}
	for input, expected := range tests {
		p := NewTerminalPrompter(strings.NewReader(input), &bytes.Buffer{})
		answer, err := p.Confirm("Proceed?")
		require.NoError(t, err, input)
		assert.Equal(t, expected, answer, input)
	}
}

func TestConfirmTreatsClosedInputAsNo(t *testing.T) {
	p := NewTerminalPrompter(strings.NewReader(""), &bytes.Buffer{})
	answer, err := p.Confirm("Proceed?")
	require.NoError(t, err)
	assert.False(t, answer)
}

func TestSelectFailsOnClosedInput(t *testing.T) {
	p := NewTerminalPrompter(strings.NewReader("9\n"), &bytes.Buffer{})
	_, err := p.Select("Which version?", []string{"patch", "minor"})
	require.Error(t, err)
}

func TestSelectRepromptsUntilValid(t *testing.T) {
	out := &bytes.Buffer{}
	p := NewTerminalPrompter(strings.NewReader("0\nfoo\n4\n2\n"), out)

	index, err := p.Select("Which version?", []string{"patch", "minor", "major"})
	require.NoError(t, err)
	assert.Equal(t, 1, index)
	assert.Contains(t, out.String(), "minor")
	assert.Equal(t, 3, strings.Count(out.String(), "invalid choice"))
}

func TestInputSharesBufferedReader(t *testing.T) {
	p := NewTerminalPrompter(strings.NewReader("4\n7.0.0\ny\n"), &bytes.Buffer{})

	index, err := p.Select("Which version?", []string{"patch", "minor", "major", "custom"})
	require.NoError(t, err)
	assert.Equal(t, 3, index)
	custom, err := p.Input("Version")
	require.NoError(t, err)
	assert.Equal(t, "7.0.0", custom)
	ok, err := p.Confirm("Proceed?")
	require.NoError(t, err)
	assert.True(t, ok)
}
