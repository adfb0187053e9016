package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Defaults used by the capture form.
const (
	DefaultMaxWidth = 1200
	DefaultQuality  = 0.7
)

// Options bound the size of normalized photos.
type Options struct {
	MaxWidth int
	Quality  float64
}

// Defaults returns the capture defaults.
func Defaults() Options {
	return Options{MaxWidth: DefaultMaxWidth, Quality: DefaultQuality}
}

// TargetSize computes the downscale-only size for a w×h image.
func TargetSize(w, h, maxWidth int) (int, int) {
	if w <= 0 || h <= 0 || maxWidth <= 0 || w <= maxWidth {
		return w, h
	}
	nh := int(math.Round(float64(h) * float64(maxWidth) / float64(w)))
	if nh < 1 {
		nh = 1
	}
	return maxWidth, nh
}

// Normalize re-encodes raw as a JPEG no wider than maxWidth, keeping the
// aspect ratio and the original filename. Artifacts that are not images are
// returned unchanged.
func Normalize(raw Image, maxWidth int, quality float64) (Image, error) {
	if !raw.IsImage() {
		return raw, nil
	}
	src, _, err := image.Decode(bytes.NewReader(raw.Data))
	if err != nil {
		return Image{}, &EncodingError{Name: raw.Name, Err: err}
	}

	b := src.Bounds()
	w, h := TargetSize(b.Dx(), b.Dy(), maxWidth)

	// JPEG has no alpha; paint on white so transparent areas don't turn black.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
		return Image{}, &EncodingError{Name: raw.Name, Err: err}
	}
	return Image{Name: raw.Name, MIME: "image/jpeg", Data: out.Bytes()}, nil
}

func jpegQuality(q float64) int {
	if q <= 0 {
		q = DefaultQuality
	}
	if q > 1 {
		q = 1
	}
	n := int(math.Round(q * 100))
	if n < 1 {
		n = 1
	}
	return n
}

// Dimensions decodes only the header of img.
func Dimensions(img Image) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return 0, 0, &EncodingError{Name: img.Name, Err: err}
	}
	return cfg.Width, cfg.Height, nil
}
