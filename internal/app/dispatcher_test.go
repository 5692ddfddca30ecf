package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"hookrelay/internal/common"
	"hookrelay/internal/config"
	"hookrelay/internal/domain/notification"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReceiver(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &bodies
}

func TestNewDispatcher_Plain(t *testing.T) {
	srv, bodies := newReceiver(t)
	cfg := &config.Config{Webhook: notification.WebhookConfig{URL: srv.URL, Type: notification.ProviderSlack}}

	d, cleanup, err := NewDispatcher(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, notification.ProviderSlack, d.Provider())
	outcome := d.Send(context.Background(), &notification.Message{Body: "hello"})
	require.True(t, outcome.Delivered, outcome.Text())
	require.Len(t, *bodies, 1)
	assert.Contains(t, (*bodies)[0], "hello")
}

func TestNewDispatcher_DeliveryLimit(t *testing.T) {
	srv, bodies := newReceiver(t)
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Webhook:           notification.WebhookConfig{URL: srv.URL},
		Redis:             config.RedisConfig{Address: mr.Addr()},
		DeliveryRateLimit: config.DeliveryRateLimitConfig{MaxPerHour: 1},
	}

	d, cleanup, err := NewDispatcher(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	first := d.Send(context.Background(), &notification.Message{Body: "one"})
	require.True(t, first.Delivered, first.Text())

	second := d.Send(context.Background(), &notification.Message{Body: "two"})
	assert.False(t, second.Delivered)
	var limited *common.RateLimitedError
	assert.True(t, errors.As(second.Err, &limited))
	assert.Len(t, *bodies, 1)
}

func TestNewDispatcher_ImgurUploader(t *testing.T) {
	srv, bodies := newReceiver(t)
	imgur := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Client-ID cid", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"data":{"link":"https://i.imgur.test/abc.png"}}`)
	}))
	defer imgur.Close()
	image := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	}))
	defer image.Close()

	cfg := &config.Config{
		Webhook: notification.WebhookConfig{URL: srv.URL},
		Upload: config.UploadConfig{
			Provider: config.UploadImgur,
			Imgur:    config.ImgurConfig{ClientID: "cid", APIURL: imgur.URL},
		},
	}

	d, cleanup, err := NewDispatcher(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	outcome := d.Send(context.Background(), &notification.Message{Body: "pic", ImageURL: image.URL + "/a.png"})
	require.True(t, outcome.Delivered, outcome.Text())
	require.Len(t, *bodies, 1)
	assert.Contains(t, (*bodies)[0], "https://i.imgur.test/abc.png")
}

func TestNewDispatcher_S3RequiresBucket(t *testing.T) {
	cfg := &config.Config{
		Webhook: notification.WebhookConfig{URL: "https://x.test"},
		Upload:  config.UploadConfig{Provider: config.UploadS3},
	}

	_, cleanup, err := NewDispatcher(context.Background(), cfg)
	defer cleanup()
	assert.Error(t, err)
}
