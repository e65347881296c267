// Package avatar decodes IPM avatar images and crops them to a circle.
package avatar

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
)

// Decode reads an encoded image (PNG, JPEG or GIF) and returns it cropped to a
// circle inscribed in its shorter side. Pixels outside the circle are transparent.
func Decode(data []byte) (image.Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode avatar: %w", err)
	}
	return Circle(src), nil
}

// Circle returns a square copy of img masked to a circle.
func Circle(img image.Image) *image.NRGBA {
	b := img.Bounds()
	size := min(b.Dx(), b.Dy())
	offX := b.Min.X + (b.Dx()-size)/2
	offY := b.Min.Y + (b.Dy()-size)/2

	out := image.NewNRGBA(image.Rect(0, 0, size, size))
	r := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) + 0.5 - r
			dy := float64(y) + 0.5 - r
			if dx*dx+dy*dy > r*r {
				out.SetNRGBA(x, y, color.NRGBA{})
				continue
			}
			out.Set(x, y, img.At(offX+x, offY+y))
		}
	}
	return out
}

// EncodePNG serialises img for transport to a view.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
