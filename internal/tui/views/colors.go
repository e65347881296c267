package views

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// colorTag returns c as a tview color tag value.
func colorTag(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}

// payloadColor parses an IPM color attribute: #RRGGBB, or #AARRGGBB with the
// alpha channel ignored. It returns a tview color tag value.
func payloadColor(s string) (string, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(s) {
	case 8:
		s = s[2:]
	case 6:
	default:
		return "", false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("#%06x", v), true
}

// pickColor returns the payload color s, or fallback when s does not parse.
func pickColor(s, fallback string) string {
	if c, ok := payloadColor(s); ok {
		return c
	}
	return fallback
}

// renderImage draws img width cells wide using upper half blocks, one pixel
// row in the foreground and the next in the background of each cell.
// Transparent pixels take bg.
func renderImage(img image.Image, width int, bg string) string {
	b := img.Bounds()
	if width <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		return ""
	}
	height := width * b.Dy() / b.Dx()
	if height%2 == 1 {
		height++
	}
	height = max(height, 2)

	sample := func(x, y int) string {
		sx := b.Min.X + x*b.Dx()/width
		sy := b.Min.Y + y*b.Dy()/height
		c := color.NRGBAModel.Convert(img.At(sx, sy)).(color.NRGBA)
		if c.A < 128 {
			return bg
		}
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}

	var sb strings.Builder
	for y := 0; y < height; y += 2 {
		for x := 0; x < width; x++ {
			fmt.Fprintf(&sb, "[%s:%s]▀", sample(x, y), sample(x, y+1))
		}
		sb.WriteString("[-:-]\n")
	}
	return sb.String()
}

// tcellColor converts a tag value produced by this file back to a tcell color.
func tcellColor(tag string) tcell.Color {
	return tcell.GetColor(tag)
}
