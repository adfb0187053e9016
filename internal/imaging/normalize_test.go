package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func jpegFixture(t *testing.T, w, h int) Image {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.SetGray(x, h/2, color.Gray{Y: 200})
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return Image{Name: "foto.jpg", MIME: "image/jpeg", Data: buf.Bytes()}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		maxWidth     int
		wantW, wantH int
	}{
		{name: "Downscale", w: 4000, h: 3000, maxWidth: 1200, wantW: 1200, wantH: 900},
		{name: "Never upscale", w: 800, h: 600, maxWidth: 1200, wantW: 800, wantH: 600},
		{name: "Exact width", w: 1200, h: 1600, maxWidth: 1200, wantW: 1200, wantH: 1600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := jpegFixture(t, tt.w, tt.h)
			got, err := Normalize(raw, tt.maxWidth, DefaultQuality)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got.Name != raw.Name {
				t.Errorf("Normalize() name = %q, want %q", got.Name, raw.Name)
			}
			if got.MIME != "image/jpeg" {
				t.Errorf("Normalize() MIME = %q", got.MIME)
			}
			w, h, err := Dimensions(got)
			if err != nil {
				t.Fatal(err)
			}
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Normalize() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestNormalizeNotAnImage(t *testing.T) {
	raw := Image{Name: "laudo.pdf", MIME: "application/pdf", Data: []byte("%PDF-1.4")}
	got, err := Normalize(raw, 1200, 0.7)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !bytes.Equal(got.Data, raw.Data) || got.MIME != raw.MIME {
		t.Errorf("Normalize() changed a non-image artifact")
	}
}

func TestNormalizeCorrupt(t *testing.T) {
	_, err := Normalize(Image{Name: "broken.jpg", MIME: "image/jpeg", Data: []byte("nope")}, 1200, 0.7)
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("Normalize() error = %v, want *EncodingError", err)
	}
	if encErr.Name != "broken.jpg" {
		t.Errorf("EncodingError.Name = %q", encErr.Name)
	}
}

func TestTargetSize(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{4000, 3000, 1200, 1200, 900},
		{3000, 4000, 1200, 1200, 1600},
		{100, 50, 0, 100, 50},
		{5000, 1, 1200, 1200, 1},
	}
	for _, tt := range tests {
		w, h := TargetSize(tt.w, tt.h, tt.max)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("TargetSize(%d, %d, %d) = %d, %d, want %d, %d", tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestDataURI(t *testing.T) {
	img := Image{MIME: "image/png", Data: []byte{0x89, 'P', 'N', 'G', 0, 1, 2}}
	uri := img.DataURI()
	if want := "data:image/png;base64,"; uri[:len(want)] != want {
		t.Fatalf("DataURI() = %q", uri)
	}
	got, err := ParseDataURI(uri)
	if err != nil {
		t.Fatalf("ParseDataURI() error = %v", err)
	}
	if got.MIME != img.MIME || !bytes.Equal(got.Data, img.Data) {
		t.Errorf("ParseDataURI() = %+v, want %+v", got, img)
	}

	for _, bad := range []string{"", "image/png;base64,AAAA", "data:image/png,AAAA", "data:image/png;base64,***"} {
		if _, err := ParseDataURI(bad); err == nil {
			t.Errorf("ParseDataURI(%q) error = nil", bad)
		}
	}
}

func TestFlattenSignature(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	src.Set(5, 5, color.NRGBA{A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	got, err := FlattenSignature(Image{MIME: "image/png", Data: buf.Bytes()})
	if err != nil {
		t.Fatalf("FlattenSignature() error = %v", err)
	}
	out, err := png.Decode(bytes.NewReader(got.Data))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, a := out.At(30, 10).RGBA(); a != 0xffff {
		t.Errorf("background alpha = %#x, want opaque", a)
	}
	if r, _, _, _ := out.At(30, 10).RGBA(); r != 0xffff {
		t.Errorf("background is not white")
	}
	if r, _, _, _ := out.At(5, 5).RGBA(); r != 0 {
		t.Errorf("stroke lost while flattening")
	}
}
