package enhance

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/webp" // webp decode support
)

// Pipeline thresholds and defaults.
const (
	// LowResThreshold marks images needing the full enhancement pass.
	LowResThreshold = 400

	// DefaultMaxDimension bounds output size when the caller gives none.
	DefaultMaxDimension = 800

	// DefaultQuality is the JPEG quality for the optimize path.
	DefaultQuality = 85

	// enhanceQuality is the fixed JPEG quality of the enhancement path.
	enhanceQuality = 95

	// minScale floors the upscale factor for low-resolution sources.
	minScale = 2.0

	// denoiseBlend is the weight of the original image when blending
	// with its box-blurred copy.
	denoiseBlend = 0.7
)

// Options control the output size and, for the optimize path, the
// re-encode quality.
type Options struct {
	MaxDimension int
	Quality      int
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	return o
}

// NeedsEnhancement reports whether img is small enough to warrant the
// full upscale pipeline.
func NeedsEnhancement(img image.Image) bool {
	b := img.Bounds()
	return b.Dx() < LowResThreshold || b.Dy() < LowResThreshold
}

// enhanceImage runs the full pipeline: two-pass upscale, sharpen,
// mild denoise. The context is checked between passes so a superseded
// request stops paying for convolution work.
func enhanceImage(ctx context.Context, img image.Image, opts Options) ([]byte, error) {
	b := img.Bounds()
	maxSide := b.Dx()
	if b.Dy() > maxSide {
		maxSide = b.Dy()
	}
	if maxSide == 0 {
		return nil, fmt.Errorf("empty image")
	}

	scale := float64(opts.MaxDimension) / float64(maxSide)
	if scale < minScale {
		scale = minScale
	}

	// Two-pass resize: an intermediate step at sqrt(scale) keeps the
	// resampler from inventing detail in one large jump.
	half := math.Sqrt(scale)
	intermediate := imaging.Resize(img,
		int(math.Round(float64(b.Dx())*half)),
		int(math.Round(float64(b.Dy())*half)),
		imaging.Lanczos)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full := imaging.Resize(intermediate,
		int(math.Round(float64(b.Dx())*scale)),
		int(math.Round(float64(b.Dy())*scale)),
		imaging.Lanczos)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sharpened := sharpen(full)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	denoised := denoise(sharpened)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, denoised, imaging.JPEG, imaging.JPEGQuality(enhanceQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode enhanced image: %w", err)
	}
	return buf.Bytes(), nil
}

// optimizeImage is the simple path for sources that are already large
// enough: fit within the bound and re-encode.
func optimizeImage(img image.Image, opts Options) ([]byte, error) {
	fitted := imaging.Fit(img, opts.MaxDimension, opts.MaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode optimized image: %w", err)
	}
	return buf.Bytes(), nil
}

// sharpenKernel is a standard 3x3 sharpening convolution.
var sharpenKernel = [9]float64{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}

// sharpen applies the sharpening kernel to the RGB channels. Alpha and
// the one-pixel border are copied unmodified.
func sharpen(img image.Image) *image.NRGBA {
	src := imaging.Clone(img)
	dst := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var r, g, b float64
			k := 0
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					off := (y+ky)*src.Stride + (x+kx)*4
					weight := sharpenKernel[k]
					r += float64(src.Pix[off]) * weight
					g += float64(src.Pix[off+1]) * weight
					b += float64(src.Pix[off+2]) * weight
					k++
				}
			}
			off := y*dst.Stride + x*4
			dst.Pix[off] = clampByte(r)
			dst.Pix[off+1] = clampByte(g)
			dst.Pix[off+2] = clampByte(b)
		}
	}
	return dst
}

// denoise blends the image 70/30 with a 3x3 box-blurred copy of
// itself, softening sharpening artifacts without losing edges. The
// border is copied unmodified, matching sharpen.
func denoise(src *image.NRGBA) *image.NRGBA {
	dst := imaging.Clone(src)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var r, g, b float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					off := (y+ky)*src.Stride + (x+kx)*4
					r += float64(src.Pix[off])
					g += float64(src.Pix[off+1])
					b += float64(src.Pix[off+2])
				}
			}
			off := y*dst.Stride + x*4
			dst.Pix[off] = blendByte(src.Pix[off], r/9)
			dst.Pix[off+1] = blendByte(src.Pix[off+1], g/9)
			dst.Pix[off+2] = blendByte(src.Pix[off+2], b/9)
		}
	}
	return dst
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func blendByte(original uint8, blurred float64) uint8 {
	return clampByte(float64(original)*denoiseBlend + blurred*(1-denoiseBlend))
}
