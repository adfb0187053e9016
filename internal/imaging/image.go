// Package imaging normalizes captured photos and signatures before they are
// attached to an inspection report.
package imaging

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Image is an encoded raster artifact with its logical filename.
type Image struct {
	Name string
	MIME string
	Data []byte
}

// IsImage reports whether the artifact declares an image MIME type.
func (i Image) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(i.MIME), "image/")
}

// Empty reports whether there are no bytes to draw.
func (i Image) Empty() bool {
	return len(i.Data) == 0
}

// DataURI returns the self-describing base64 text form of the image.
func (i Image) DataURI() string {
	mime := i.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

var errNotDataURI = errors.New("not a base64 data URI")

// ParseDataURI reverses DataURI. The filename is left for the caller to
// synthesize.
func ParseDataURI(s string) (Image, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return Image{}, errNotDataURI
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return Image{}, errNotDataURI
	}
	meta := s[len("data:"):comma]
	if !strings.HasSuffix(meta, ";base64") {
		return Image{}, errNotDataURI
	}
	data, err := base64.StdEncoding.DecodeString(s[comma+1:])
	if err != nil {
		return Image{}, fmt.Errorf("decode data URI: %w", err)
	}
	return Image{MIME: strings.TrimSuffix(meta, ";base64"), Data: data}, nil
}

// EncodingError reports an image that could not be decoded or re-encoded.
type EncodingError struct {
	Name string
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("image %q: %v", e.Name, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }
