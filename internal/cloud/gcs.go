package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/unee-t/firecheck/internal/imaging"
)

// GCS stores blobs in a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS connects to bucket with the ambient credentials.
func NewGCS(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("gcs: missing bucket name")
	}
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) url(key string) string {
	return "https://storage.googleapis.com/" + g.bucket + "/" + key
}

func (g *GCS) Put(ctx context.Context, key string, img imaging.Image) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = img.MIME
	if img.Name != "" {
		w.Metadata = map[string]string{"filename": img.Name}
	}
	if _, err := io.Copy(w, bytes.NewReader(img.Data)); err != nil {
		_ = w.Close()
		return "", ioError("put", key, err)
	}
	if err := w.Close(); err != nil {
		return "", ioError("put", key, err)
	}
	return g.url(key), nil
}

func (g *GCS) Fetch(ctx context.Context, url string) (imaging.Image, error) {
	key := strings.TrimPrefix(url, g.url(""))
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return imaging.Image{}, ioError("fetch", key, ErrNotFound)
	}
	if err != nil {
		return imaging.Image{}, ioError("fetch", key, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return imaging.Image{}, ioError("fetch", key, err)
	}
	return imaging.Image{MIME: r.Attrs.ContentType, Data: data}, nil
}

// Close releases the client.
func (g *GCS) Close() error { return g.client.Close() }
