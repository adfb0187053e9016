package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/unee-t/firecheck/internal/imaging"
)

// S3 stores blobs in an Amazon S3 bucket.
type S3 struct {
	client *s3.Client
	bucket string
	region string
}

// NewS3 connects to bucket with the default AWS credential chain.
func NewS3(ctx context.Context, bucket string) (*S3, error) {
	if bucket == "" {
		return nil, errors.New("s3: missing bucket name")
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3{client: s3.NewFromConfig(cfg), bucket: bucket, region: cfg.Region}, nil
}

func (s *S3) url(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func (s *S3) Put(ctx context.Context, key string, img imaging.Image) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(img.MIME),
	}
	if img.Name != "" {
		in.Metadata = map[string]string{"filename": img.Name}
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", ioError("put", key, err)
	}
	return s.url(key), nil
}

func (s *S3) Fetch(ctx context.Context, url string) (imaging.Image, error) {
	key := strings.TrimPrefix(url, s.url(""))
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	var missing *types.NoSuchKey
	if errors.As(err, &missing) {
		return imaging.Image{}, ioError("fetch", key, ErrNotFound)
	}
	if err != nil {
		return imaging.Image{}, ioError("fetch", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return imaging.Image{}, ioError("fetch", key, err)
	}
	return imaging.Image{MIME: aws.ToString(out.ContentType), Data: data}, nil
}
