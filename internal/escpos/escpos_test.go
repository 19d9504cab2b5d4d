package escpos

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands(t *testing.T) {
	tests := []struct {
		name     string
		actual   []byte
		expected []byte
	}{
		{name: "align left", actual: AlignLeft(), expected: []byte{0x1B, 0x61, 0x00}},
		{name: "align center", actual: AlignCenter(), expected: []byte{0x1B, 0x61, 0x01}},
		{name: "align right", actual: AlignRight(), expected: []byte{0x1B, 0x61, 0x02}},
		{name: "line feed", actual: LineFeed(), expected: []byte{0x0A}},
		{name: "line spacing embeds parameter", actual: SetLineSpacing(0x40), expected: []byte{0x1B, 0x33, 0x40}},
		{name: "initialize", actual: Initialize(), expected: []byte{0x1B, 0x40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.actual)
		})
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, []byte("hi"), Text("hi", false))
	assert.Equal(t, []byte("hi\n"), Text("hi", true))
	assert.Equal(t, []byte{'c', 'a', 'f', '?', '?'}, Text("café☃", false), "non-ASCII runes MUST be replaced")
	assert.Equal(t, []byte{}, Text("", false))
}

func TestStyledText(t *testing.T) {
	center := Center
	spacing := byte(48)

	tests := []struct {
		name     string
		style    TextStyle
		expected []byte
	}{
		{name: "plain", expected: []byte("hi\n")},
		{name: "aligned", style: TextStyle{Align: &center}, expected: []byte{ESC, 0x61, 0x01, 'h', 'i', LF}},
		{
			name:     "aligned and spaced",
			style:    TextStyle{Align: &center, LineSpacing: &spacing},
			expected: []byte{ESC, 0x61, 0x01, ESC, 0x33, 48, 'h', 'i', LF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StyledText("hi", tt.style))
		})
	}
}

func TestCombine(t *testing.T) {
	a := []byte{1, 2}
	b := []byte{3}

	assert.Equal(t, []byte{1, 2, 3}, Combine(a, b))
	assert.Equal(t, b, Combine(nil, b), "nil first operand MUST be the identity")
	assert.Equal(t, a, Combine(a, nil), "nil second operand MUST be the identity")
	assert.Nil(t, Combine(nil, nil))

	combined := Combine(a, b)
	combined[0] = 9
	assert.Equal(t, byte(1), a[0], "Combine MUST NOT alias its operands")
}

func TestConcat(t *testing.T) {
	out := Concat(AlignCenter(), nil, Text("x", true))
	assert.Equal(t, []byte{0x1B, 0x61, 0x01, 'x', 0x0A}, out)
}

func TestParseAlignment(t *testing.T) {
	a, ok := ParseAlignment("center")
	assert.True(t, ok)
	assert.Equal(t, Center, a)
	assert.Equal(t, "center", a.String())

	_, ok = ParseAlignment("diagonal")
	assert.False(t, ok)
}

func stripes(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 0xFF})
			} else {
				img.SetGray(x, y, color.Gray{Y: 0x00})
			}
		}
	}
	return img
}

func TestPackImage(t *testing.T) {
	t.Run("light pixels set by default", func(t *testing.T) {
		// white, black, white, black, ...
		assert.Equal(t, []byte{0b10101010}, PackImage(stripes(8, 1), PackOptions{}))
	})

	t.Run("inverted ink sets dark pixels", func(t *testing.T) {
		assert.Equal(t, []byte{0b01010101}, PackImage(stripes(8, 1), PackOptions{InvertInk: true}))
	})

	t.Run("size is width times height over eight", func(t *testing.T) {
		assert.Len(t, PackImage(stripes(16, 3), PackOptions{}), 16*3/8)
	})

	t.Run("rows pad to a byte boundary", func(t *testing.T) {
		packed := PackImage(stripes(10, 2), PackOptions{})
		require.Len(t, packed, 4)
		// 10 pixels: 1010101010 -> 10101010 10000000
		assert.Equal(t, []byte{0b10101010, 0b10000000, 0b10101010, 0b10000000}, packed)
	})

	t.Run("threshold is exclusive", func(t *testing.T) {
		img := image.NewGray16(image.Rect(0, 0, 1, 1))
		img.SetGray16(0, 0, color.Gray16{Y: 0x8000})
		assert.Equal(t, []byte{0x80}, PackImage(img, PackOptions{}))

		img.SetGray16(0, 0, color.Gray16{Y: 0x7FFF})
		assert.Equal(t, []byte{0x00}, PackImage(img, PackOptions{}), "exactly 0.5 or below MUST NOT be set")
	})

	t.Run("non-zero bounds origin", func(t *testing.T) {
		img := stripes(16, 1).SubImage(image.Rect(8, 0, 16, 1))
		assert.Equal(t, []byte{0b10101010}, PackImage(img, PackOptions{}))
	})
}

func TestPackImage_AlternatingWhiteBlackRow(t *testing.T) {
	// GOAL: Pin both polarities of the 8×1 [white, black, ...] row at threshold 0.5
	//
	// TEST SCENARIO: InvertInk → 0b01010101 (bit 7 = first pixel, white so clear); default → 0b10101010

	row := stripes(8, 1)
	opts := PackOptions{Threshold: 0.5}

	opts.InvertInk = true
	assert.Equal(t, []byte{0b01010101}, PackImage(row, opts),
		"ink polarity MUST clear bit 7 for the leading white pixel")

	opts.InvertInk = false
	assert.Equal(t, []byte{0b10101010}, PackImage(row, opts),
		"default polarity MUST set bits for light pixels")
}

func TestRasterImage(t *testing.T) {
	cmd, err := Image(stripes(8, 2), PackOptions{InvertInk: true})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1D, 0x76, 0x30, 0x00, 0x01, 0x00, 0x02, 0x00, 0x55, 0x55}, cmd)

	_, err = RasterImage(1, 2, []byte{0x00})
	assert.Error(t, err, "data length mismatch MUST fail")

	_, err = RasterImage(0, 1, nil)
	assert.Error(t, err)
}
