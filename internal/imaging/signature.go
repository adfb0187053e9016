package imaging

import (
	"bytes"
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

// FlattenSignature paints a pad capture (usually a transparent PNG) onto an
// opaque white canvas so it prints the same on every PDF viewer.
func FlattenSignature(raw Image) (Image, error) {
	src, _, err := image.Decode(bytes.NewReader(raw.Data))
	if err != nil {
		return Image{}, &EncodingError{Name: raw.Name, Err: err}
	}
	b := src.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.SetColor(color.White)
	dc.Clear()
	dc.DrawImage(src, -b.Min.X, -b.Min.Y)

	var out bytes.Buffer
	if err := dc.EncodePNG(&out); err != nil {
		return Image{}, &EncodingError{Name: raw.Name, Err: err}
	}
	name := raw.Name
	if name == "" {
		name = "assinatura.png"
	}
	return Image{Name: name, MIME: "image/png", Data: out.Bytes()}, nil
}
