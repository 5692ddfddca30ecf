// Package app wires configuration into the delivery pipeline shared by the
// server and the one-shot CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"hookrelay/internal/config"
	"hookrelay/internal/domain/notification"
	"hookrelay/internal/infra/ratelimit"
	"hookrelay/internal/infra/template"
	"hookrelay/internal/infra/upload"
	"hookrelay/internal/infra/webhook"
)

// NewDispatcher builds the Dispatcher described by cfg. The returned cleanup
// releases the Redis connection when delivery limiting is enabled.
func NewDispatcher(ctx context.Context, cfg *config.Config) (*notification.Dispatcher, func(), error) {
	cleanup := func() {}
	client := &http.Client{Timeout: cfg.HTTPTimeout()}

	formatter := webhook.NewFormatter(cfg.Webhook, template.NewEngine())
	opts := []notification.DispatcherOption{notification.WithHTTPClient(client)}

	uploader, err := newUploader(ctx, cfg, client)
	if err != nil {
		return nil, cleanup, err
	}
	if uploader != nil {
		opts = append(opts, notification.WithUploader(uploader))
	}

	if maxPerHour := cfg.DeliveryRateLimit.MaxPerHour; maxPerHour > 0 {
		limiter := ratelimit.NewRedisDeliveryLimiter(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, maxPerHour)
		opts = append(opts, notification.WithLimiter(limiter))
		cleanup = func() {
			if err := limiter.Close(); err != nil {
				slog.Warn("closing delivery limiter", "error", err)
			}
		}
		slog.Info("delivery rate limiter initialized", "redis", cfg.Redis.Address, "max_per_hour", maxPerHour)
	}

	d := notification.NewDispatcher(formatter, cfg.Webhook, opts...)
	slog.Info("dispatcher initialized",
		"provider", d.Provider(),
		"destination", cfg.Webhook.DisplayName(),
		"timeout", cfg.HTTPTimeout(),
	)
	return d, cleanup, nil
}

func newUploader(ctx context.Context, cfg *config.Config, client *http.Client) (notification.Uploader, error) {
	switch cfg.Upload.Provider {
	case config.UploadImgur:
		slog.Info("image uploader initialized", "provider", "imgur")
		return upload.NewImgurUploader(upload.ImgurConfig{
			ClientID: cfg.Upload.Imgur.ClientID,
			APIURL:   cfg.Upload.Imgur.APIURL,
		}, client), nil
	case config.UploadS3:
		s3cfg := cfg.Upload.S3
		u, err := upload.NewS3Uploader(ctx, upload.S3Config{
			Bucket:    s3cfg.Bucket,
			Prefix:    s3cfg.Prefix,
			Region:    s3cfg.Region,
			Endpoint:  s3cfg.Endpoint,
			AccessKey: s3cfg.AccessKey,
			SecretKey: s3cfg.SecretKey,
			PublicURL: s3cfg.PublicURL,
			URLExpiry: time.Duration(s3cfg.URLExpirySec) * time.Second,
		}, client)
		if err != nil {
			return nil, fmt.Errorf("initializing s3 uploader: %w", err)
		}
		slog.Info("image uploader initialized", "provider", "s3", "bucket", s3cfg.Bucket)
		return u, nil
	default:
		return nil, nil
	}
}
