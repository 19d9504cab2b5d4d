package testutils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// recordingT captures failures instead of failing the enclosing test.
type recordingT struct {
	errors []string
}

func (r *recordingT) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestTextAsserter_DefaultOptions(t *testing.T) {
	opts := NewTextAsserter(t).Options()

	assert.True(t, opts.IgnoreTrailingWhitespace)
	assert.True(t, opts.TrimSpace)
	assert.False(t, opts.IgnoreEmptyLines)
	assert.False(t, opts.EnableColors)
}

func TestTextAsserter_Match(t *testing.T) {
	rt := &recordingT{}
	ta := NewTextAsserter(rt)

	assert.True(t, ta.Assert("\nADDRESS  NAME  \nAA:BB  MX10\n", "ADDRESS  NAME\nAA:BB  MX10"))
	assert.Empty(t, rt.errors)
}

func TestTextAsserter_Mismatch(t *testing.T) {
	rt := &recordingT{}
	ta := NewTextAsserter(rt)

	assert.False(t, ta.Assert("line one\nline 2\n", "line one\nline two\n"))
	assert.Len(t, rt.errors, 1)
	assert.Contains(t, rt.errors[0], "-line two")
	assert.Contains(t, rt.errors[0], "+line 2")
}

func TestTextAsserter_Options(t *testing.T) {
	t.Run("empty lines", func(t *testing.T) {
		ta := NewTextAsserter(t, WithIgnoreEmptyLines(true))
		assert.Empty(t, ta.Diff("a\n\n\nb", "a\nb"))
	})

	t.Run("strict whitespace", func(t *testing.T) {
		ta := NewTextAsserter(t, WithTrimSpace(false), WithIgnoreTrailingWhitespace(false))
		assert.NotEmpty(t, ta.Diff("a \n", "a"))
	})

	t.Run("colors mark whitespace", func(t *testing.T) {
		ta := NewTextAsserter(t, WithEnableColors(true))
		diff := ta.Diff("a b", "a  b")
		assert.Contains(t, diff, "a·b")
		assert.Contains(t, diff, "\x1b[")
	})
}
