package avatar

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Placeholder renders an initials avatar locally and returns PNG bytes.
// It is the terminal fallback of the resolution chain: unlike
// FallbackURL it needs no network, so it cannot fail at serve time
// even when the avatar service is unreachable.
func Placeholder(name string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}

	bg, err := parseHexColor(BackgroundColor(name))
	if err != nil {
		bg = color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	}

	// Draw at glyph scale, then upscale with nearest neighbor so the
	// initials stay crisp at any requested size.
	face := basicfont.Face7x13
	initials := Initials(name)
	textWidth := font.MeasureString(face, initials).Ceil()

	const canvasSize = 28
	canvas := image.NewNRGBA(image.Rect(0, 0, canvasSize, canvasSize))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot: fixed.P(
			(canvasSize-textWidth)/2,
			(canvasSize+face.Metrics().Ascent.Ceil()-face.Metrics().Descent.Ceil())/2,
		),
	}
	d.DrawString(initials)

	scaled := imaging.Resize(canvas, size, size, imaging.NearestNeighbor)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("failed to encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

// PlaceholderDataURL returns the locally rendered avatar as a PNG data
// URL, directly embeddable by callers that expect a URL.
func PlaceholderDataURL(name string, size int) (string, error) {
	data, err := Placeholder(name, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

func parseHexColor(hex string) (color.NRGBA, error) {
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xff,
	}, nil
}
