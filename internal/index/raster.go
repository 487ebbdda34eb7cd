package index

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// maxRasterDim bounds the longest edge of a canonicalized image; embedding
// providers reject oversized payloads and PDFs routinely embed print-resolution
// scans.
const maxRasterDim = 1024

// canonicalPNG converts a decoded image into the canonical raster form stored
// in the asset map: RGBA, capped to maxRasterDim on the longest edge, PNG
// encoded.
func canonicalPNG(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("image has zero size")
	}

	if w > maxRasterDim || h > maxRasterDim {
		scale := float64(maxRasterDim) / float64(w)
		if h > w {
			scale = float64(maxRasterDim) / float64(h)
		}
		dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	} else if _, ok := img.(*image.RGBA); !ok {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
		img = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png failed: %w", err)
	}
	return buf.Bytes(), nil
}
