package main

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"time"

	"github.com/apex/log"
	jsonhandler "github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
	"github.com/gorilla/csrf"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/unee-t/firecheck/internal/cloud"
	"github.com/unee-t/firecheck/internal/session"
)

func main() {
	cfg, err := configFromEnv(os.Getenv)
	if err != nil {
		log.WithError(err).Fatal("bad configuration")
	}
	setupLogging(cfg.Stage)

	ctx := context.Background()
	app, err := newApp(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("error starting")
	}

	options := []csrf.Option{csrf.RequestHeader("X-CSRF-Token")}
	if cfg.CSRFInsecure {
		// Local development over plain HTTP
		options = append(options, csrf.Secure(false))
	}
	handler := csrf.Protect(cfg.CSRFKey, options...)(app.routes())
	if cfg.CSRFInsecure {
		handler = plaintext(handler)
	}

	addr := ":" + cfg.Port
	log.WithFields(log.Fields{"addr": addr, "stage": cfg.Stage, "blobs": cfg.BlobBackend}).Info("listening")
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.WithError(err).Fatal("error listening")
	}
}

func setupLogging(stage string) {
	if stage == "production" {
		log.SetHandler(jsonhandler.New(os.Stderr))
		log.SetLevel(log.InfoLevel)
		return
	}
	log.SetHandler(text.New(os.Stderr))
	log.SetLevel(log.DebugLevel)
}

func plaintext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

// newApp wires the stores selected by cfg.
func newApp(ctx context.Context, cfg Config) (*app, error) {
	var blobs cloud.BlobStore
	switch cfg.BlobBackend {
	case "gcs":
		gcs, err := cloud.NewGCS(ctx, cfg.BlobBucket)
		if err != nil {
			return nil, err
		}
		blobs = gcs
	case "s3":
		s3, err := cloud.NewS3(ctx, cfg.BlobBucket)
		if err != nil {
			return nil, err
		}
		blobs = s3
	default:
		blobs = cloud.NewMemory()
	}

	db, err := cloud.OpenDatabase(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	docs, err := cloud.NewGormStore(db)
	if err != nil {
		return nil, err
	}

	var sessions session.Store = session.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		sessions = session.NewRedisStore(rdb, session.DefaultTTL)
	}

	var limiter *rate.Limiter
	if cfg.UploadRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.UploadRate), 1)
	}

	a := &app{
		sessions: sessions,
		guard:    session.NewGuard(),
		publisher: &cloud.Publisher{
			Blobs:   blobs,
			Docs:    docs,
			Limiter: limiter,
		},
		images: cfg.Images,
		stage:  cfg.Stage,
		now:    time.Now,
	}
	a.templates, err = template.New("").ParseGlob("templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return a, nil
}
