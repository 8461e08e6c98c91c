package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
)

// ThumbnailSide is the longest side of a page thumbnail, in pixels.
const ThumbnailSide = 256

var encoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// EncodePNG compresses img as PNG. Same pixels always give the same bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	if b := img.Bounds(); b.Empty() {
		return nil, fmt.Errorf("empty image %v", b)
	}
	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("can't encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// FitSize scales a width x height box so its longest side is side pixels,
// keeping the aspect ratio. The short side is at least one pixel.
func FitSize(width, height float64, side int) (w, h int, err error) {
	if side <= 0 {
		return 0, 0, fmt.Errorf("invalid side %d", side)
	}
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return 0, 0, fmt.Errorf("invalid page size %vx%v", width, height)
	}
	scaled := func(short, long float64) int {
		return max(1, int(math.Round(short*float64(side)/long)))
	}
	if width >= height {
		return side, scaled(height, width), nil
	}
	return scaled(width, height), side, nil
}
