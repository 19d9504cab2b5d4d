package escpos

import (
	"fmt"
	"image"
	"image/color"
)

// DefaultThreshold is the luminance (0..1) above which a pixel is considered light.
const DefaultThreshold = 0.5

// PackOptions controls monochrome conversion.
type PackOptions struct {
	// Threshold on a 0..1 luminance scale. Zero means DefaultThreshold.
	Threshold float64
	// InvertInk sets bits for dark pixels instead of light ones. Thermal
	// heads burn set bits, so real prints usually want this.
	InvertInk bool
}

// RowBytes is the number of packed bytes per row of the given pixel width.
func RowBytes(width int) int {
	return (width + 7) / 8
}

// PackImage converts img to one bit per pixel, MSB first, row-major.
//
// A pixel is set when its luminance exceeds the threshold (or, with
// InvertInk, when it does not). Each row starts on a byte boundary; when the
// width is not a multiple of 8 the unused low bits of the row's last byte are
// zero. The result is RowBytes(width)*height bytes long.
func PackImage(img image.Image, opts PackOptions) []byte {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	stride := RowBytes(width)
	data := make([]byte, stride*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			lit := luminance(img.At(b.Min.X+x, b.Min.Y+y)) > threshold
			if lit != opts.InvertInk {
				data[y*stride+x/8] |= 1 << (7 - uint(x%8))
			}
		}
	}
	return data
}

// RasterImage wraps packed bitmap data in a GS v 0 (normal density) command.
func RasterImage(widthBytes, height int, data []byte) ([]byte, error) {
	if widthBytes <= 0 || widthBytes > 0xFFFF || height <= 0 || height > 0xFFFF {
		return nil, fmt.Errorf("raster size %dx%d out of range", widthBytes, height)
	}
	if len(data) != widthBytes*height {
		return nil, fmt.Errorf("raster data is %d bytes, want %d", len(data), widthBytes*height)
	}
	cmd := []byte{
		GS, 0x76, 0x30, 0x00,
		byte(widthBytes), byte(widthBytes >> 8),
		byte(height), byte(height >> 8),
	}
	return append(cmd, data...), nil
}

// Image packs img and wraps it in a raster command.
func Image(img image.Image, opts PackOptions) ([]byte, error) {
	b := img.Bounds()
	return RasterImage(RowBytes(b.Dx()), b.Dy(), PackImage(img, opts))
}

// luminance returns the grayscale intensity of c on a 0..1 scale.
func luminance(c color.Color) float64 {
	g := color.Gray16Model.Convert(c).(color.Gray16)
	return float64(g.Y) / 0xFFFF
}
