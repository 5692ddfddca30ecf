package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"hookrelay/internal/domain/notification"
	"hookrelay/internal/infra/metrics"
)

// DefaultImgurAPIURL is the public Imgur image endpoint.
const DefaultImgurAPIURL = "https://api.imgur.com/3/image"

var _ notification.Uploader = (*ImgurUploader)(nil)

// ImgurConfig holds the Imgur client credentials.
type ImgurConfig struct {
	ClientID string
	APIURL   string
}

// ImgurUploader rehosts images on Imgur using anonymous Client-ID uploads.
type ImgurUploader struct {
	config     ImgurConfig
	httpClient *http.Client
}

// NewImgurUploader creates a new Imgur uploader.
func NewImgurUploader(cfg ImgurConfig, client *http.Client) *ImgurUploader {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultImgurAPIURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &ImgurUploader{config: cfg, httpClient: client}
}

type imgurResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		Link  string          `json:"link"`
		Error json.RawMessage `json:"error"`
	} `json:"data"`
}

// Upload fetches source and posts it to Imgur as base64, returning the hosted link.
func (u *ImgurUploader) Upload(ctx context.Context, source string) (string, error) {
	link, err := u.upload(ctx, source)
	if err != nil {
		metrics.ImageUploads.WithLabelValues("imgur", "error").Inc()
		return "", err
	}
	metrics.ImageUploads.WithLabelValues("imgur", "ok").Inc()
	slog.Info("image uploaded", "uploader", "imgur", "link", link)
	return link, nil
}

func (u *ImgurUploader) upload(ctx context.Context, source string) (string, error) {
	img, err := fetch(ctx, u.httpClient, source)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(map[string]string{
		"image": base64.StdEncoding.EncodeToString(img.data),
		"type":  "base64",
		"name":  "notification-image",
	})
	if err != nil {
		return "", fmt.Errorf("marshaling imgur payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.config.APIURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if u.config.ClientID != "" {
		req.Header.Set("Authorization", "Client-ID "+u.config.ClientID)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("imgur upload failed: status %d", resp.StatusCode)
	}

	var result imgurResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parsing imgur response: %w", err)
	}
	if !result.Success || result.Data.Link == "" {
		return "", fmt.Errorf("imgur upload failed: %s", string(result.Data.Error))
	}
	return result.Data.Link, nil
}
