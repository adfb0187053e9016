package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/unee-t/firecheck/internal/imaging"
)

// Config is read from the environment once at start-up.
type Config struct {
	Port  string
	Stage string

	CSRFKey      []byte
	CSRFInsecure bool

	BlobBackend string // memory, gcs or s3
	BlobBucket  string
	DatabaseURL string
	SQLitePath  string
	RedisAddr   string
	UploadRate  float64 // blob uploads per second, 0 for unpaced

	Images imaging.Options
}

const devCSRFKey = "firecheck-development-csrf-key!!"

func (c Config) production() bool { return c.Stage == "production" }

func configFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:         getenv("PORT"),
		Stage:        getenv("UP_STAGE"),
		CSRFKey:      []byte(getenv("CSRF_KEY")),
		CSRFInsecure: getenv("CSRF_INSECURE") == "true",
		BlobBackend:  strings.ToLower(getenv("BLOB_BACKEND")),
		BlobBucket:   getenv("BLOB_BUCKET"),
		DatabaseURL:  getenv("DATABASE_URL"),
		SQLitePath:   getenv("SQLITE_PATH"),
		RedisAddr:    getenv("REDIS_ADDR"),
		Images:       imaging.Defaults(),
	}
	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	if cfg.BlobBackend == "" {
		cfg.BlobBackend = "memory"
	}
	if cfg.DatabaseURL == "" && cfg.SQLitePath == "" {
		cfg.SQLitePath = "firecheck.db"
	}

	switch cfg.BlobBackend {
	case "memory":
	case "gcs", "s3":
		if cfg.BlobBucket == "" {
			return cfg, fmt.Errorf("BLOB_BUCKET is required for the %s backend", cfg.BlobBackend)
		}
	default:
		return cfg, fmt.Errorf("unknown BLOB_BACKEND %q", cfg.BlobBackend)
	}

	if len(cfg.CSRFKey) == 0 {
		if cfg.production() {
			return cfg, fmt.Errorf("CSRF_KEY is required in production")
		}
		cfg.CSRFKey = []byte(devCSRFKey)
	}
	if len(cfg.CSRFKey) != 32 {
		return cfg, fmt.Errorf("CSRF_KEY must be 32 bytes, got %d", len(cfg.CSRFKey))
	}

	if v := getenv("UPLOAD_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return cfg, fmt.Errorf("invalid UPLOAD_RATE %q", v)
		}
		cfg.UploadRate = f
	}
	if v := getenv("IMAGE_MAX_WIDTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid IMAGE_MAX_WIDTH %q", v)
		}
		cfg.Images.MaxWidth = n
	}
	if v := getenv("IMAGE_QUALITY"); v != "" {
		q, err := strconv.ParseFloat(v, 64)
		if err != nil || q <= 0 || q > 1 {
			return cfg, fmt.Errorf("invalid IMAGE_QUALITY %q", v)
		}
		cfg.Images.Quality = q
	}
	return cfg, nil
}
