package upload

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"hookrelay/internal/domain/notification"
	"hookrelay/internal/infra/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var _ notification.Uploader = (*S3Uploader)(nil)

// S3Config holds configuration for the S3 uploader.
type S3Config struct {
	Bucket    string        // S3 bucket name
	Prefix    string        // Key prefix for uploaded images
	Region    string        // AWS region (default: us-east-1)
	Endpoint  string        // Custom endpoint for S3-compatible storage (MinIO, R2)
	AccessKey string        // Uses the default credential chain when empty
	SecretKey string        // Uses the default credential chain when empty
	PublicURL string        // Base URL objects are publicly served from; presigned GETs when empty
	URLExpiry time.Duration // Lifetime of presigned URLs (default: 24h)
}

// S3Uploader stores images in a bucket and returns a URL chat services can fetch.
type S3Uploader struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	httpClient    *http.Client
	config        S3Config
}

// NewS3Uploader creates a new S3 uploader.
func NewS3Uploader(ctx context.Context, cfg S3Config, httpClient *http.Client) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 24 * time.Hour
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	// httpClient only downloads sources; the SDK keeps its buildable client so
	// AWS_CA_BUNDLE and other transport options still apply
	if httpClient.Timeout > 0 {
		opts = append(opts, config.WithHTTPClient(
			awshttp.NewBuildableClient().WithTimeout(httpClient.Timeout),
		))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	slog.Info("s3 uploader initialized",
		"bucket", cfg.Bucket,
		"prefix", cfg.Prefix,
		"region", cfg.Region,
		"endpoint", cfg.Endpoint,
	)

	return &S3Uploader{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		httpClient:    httpClient,
		config:        cfg,
	}, nil
}

// Upload fetches source, stores it under a fresh key and returns its URL.
func (u *S3Uploader) Upload(ctx context.Context, source string) (string, error) {
	url, err := u.upload(ctx, source)
	if err != nil {
		metrics.ImageUploads.WithLabelValues("s3", "error").Inc()
		return "", err
	}
	metrics.ImageUploads.WithLabelValues("s3", "ok").Inc()
	return url, nil
}

func (u *S3Uploader) upload(ctx context.Context, source string) (string, error) {
	img, err := fetch(ctx, u.httpClient, source)
	if err != nil {
		return "", err
	}

	key := u.fullKey(uuid.New().String() + img.mime.Extension())

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.config.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(img.data),
		ContentLength: aws.Int64(int64(len(img.data))),
		ContentType:   aws.String(img.mime.String()),
	})
	if err != nil {
		return "", fmt.Errorf("putting object %s: %w", key, err)
	}

	if u.config.PublicURL != "" {
		return strings.TrimSuffix(u.config.PublicURL, "/") + "/" + key, nil
	}

	req, err := u.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.config.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(u.config.URLExpiry))
	if err != nil {
		return "", fmt.Errorf("presigning GET for %s: %w", key, err)
	}

	slog.Info("image uploaded", "uploader", "s3", "bucket", u.config.Bucket, "key", key)
	return req.URL, nil
}

// fullKey returns the full S3 key including prefix.
func (u *S3Uploader) fullKey(key string) string {
	if u.config.Prefix == "" {
		return key
	}
	return strings.TrimSuffix(u.config.Prefix, "/") + "/" + strings.TrimPrefix(key, "/")
}
