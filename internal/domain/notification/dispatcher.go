package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"hookrelay/internal/common"
	"hookrelay/internal/infra/metrics"
)

// maxResponseBody caps how much of a webhook response is read and echoed.
const maxResponseBody = 1 << 20

// Outcome is the result of one dispatch.
type Outcome struct {
	Delivered  bool
	StatusCode int
	Response   string
	Err        error
}

// Text renders the outcome as the short message returned to tool callers.
func (o *Outcome) Text() string {
	if o.Delivered {
		if o.Response == "" {
			return "Notification sent successfully"
		}
		return "Notification sent successfully: " + o.Response
	}
	return "Failed to send notification: " + o.Err.Error()
}

// Dispatcher turns a Message into one delivered webhook call.
// Nothing it does is retried.
type Dispatcher struct {
	formatter      Formatter
	config         WebhookConfig
	uploader       Uploader
	limiter        DeliveryLimiter
	client         *http.Client
	defaultActions []Action
}

// DispatcherOption configures optional collaborators of a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithUploader rehosts images before formatters see them.
func WithUploader(u Uploader) DispatcherOption {
	return func(d *Dispatcher) { d.uploader = u }
}

// WithLimiter caps outbound deliveries per destination.
func WithLimiter(l DeliveryLimiter) DispatcherOption {
	return func(d *Dispatcher) { d.limiter = l }
}

// WithHTTPClient replaces the client used for webhook calls.
func WithHTTPClient(c *http.Client) DispatcherOption {
	return func(d *Dispatcher) { d.client = c }
}

// NewDispatcher creates a Dispatcher for one destination. The default client
// has no timeout; callers opt in through WithHTTPClient.
func NewDispatcher(formatter Formatter, cfg WebhookConfig, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		formatter:      formatter,
		config:         cfg,
		client:         &http.Client{},
		defaultActions: cfg.DefaultActions,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Provider returns the provider the dispatcher delivers to.
func (d *Dispatcher) Provider() ProviderType {
	return d.formatter.Provider()
}

// Send delivers msg and classifies the result. Failures are reported in the
// Outcome, never as a panic or a partially sent message.
func (d *Dispatcher) Send(ctx context.Context, msg *Message) *Outcome {
	start := time.Now()
	provider := string(d.formatter.Provider())
	destination := d.config.DisplayName()

	if strings.TrimSpace(msg.Body) == "" {
		metrics.NotificationsSent.WithLabelValues(provider, metrics.OutcomeInvalid).Inc()
		return &Outcome{Err: common.NewValidationError("message body is required")}
	}

	m := *msg
	if len(m.Actions) == 0 && len(d.defaultActions) > 0 {
		m.Actions = d.defaultActions
	}
	d.resolveImage(ctx, &m)

	if d.limiter != nil {
		allowed, err := d.limiter.Allow(ctx, d.config.URL)
		if err != nil {
			slog.Error("delivery rate limit check failed, proceeding without limit",
				"destination", destination,
				"error", err,
			)
		} else if !allowed {
			metrics.NotificationsSent.WithLabelValues(provider, metrics.OutcomeRateLimited).Inc()
			return &Outcome{Err: &common.RateLimitedError{Destination: destination}}
		}
	}

	req, err := d.formatter.PrepareRequest(&m)
	if err != nil {
		metrics.NotificationsSent.WithLabelValues(provider, metrics.OutcomeInvalid).Inc()
		slog.Error("preparing webhook request failed", "destination", destination, "error", err)
		return &Outcome{Err: fmt.Errorf("preparing %s request: %w", provider, err)}
	}

	outcome := d.do(ctx, provider, req)
	metrics.DeliveryDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	if outcome.Delivered {
		metrics.NotificationsSent.WithLabelValues(provider, metrics.OutcomeDelivered).Inc()
		slog.Info("notification sent",
			"provider", provider,
			"destination", destination,
			"status_code", outcome.StatusCode,
			"template", m.Template,
			"duration", time.Since(start),
		)
		return outcome
	}

	var network *common.NetworkError
	label := metrics.OutcomeDeliveryFail
	if errors.As(outcome.Err, &network) {
		label = metrics.OutcomeNetworkFail
	}
	metrics.NotificationsSent.WithLabelValues(provider, label).Inc()
	slog.Error("notification delivery failed",
		"provider", provider,
		"destination", destination,
		"status_code", outcome.StatusCode,
		"error", outcome.Err,
		"duration", time.Since(start),
	)
	return outcome
}

// do performs the HTTP call for a prepared request.
func (d *Dispatcher) do(ctx context.Context, provider string, r *Request) *Outcome {
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, bytes.NewReader(r.Body))
	if err != nil {
		return &Outcome{Err: &common.NetworkError{Provider: provider, Err: err}}
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return &Outcome{Err: &common.NetworkError{Provider: provider, Err: err}}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &Outcome{
			StatusCode: resp.StatusCode,
			Err:        &common.NetworkError{Provider: provider, Err: fmt.Errorf("reading response: %w", err)},
		}
	}
	text := strings.TrimSpace(string(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Outcome{
			StatusCode: resp.StatusCode,
			Response:   text,
			Err:        &common.DeliveryError{Provider: provider, StatusCode: resp.StatusCode, Body: text},
		}
	}
	return &Outcome{Delivered: true, StatusCode: resp.StatusCode, Response: text}
}

// resolveImage turns ImagePath/ImageURL into something the formatter can
// render. The local path is tried before the remote URL. An image that
// cannot be uploaded is dropped.
func (d *Dispatcher) resolveImage(ctx context.Context, m *Message) {
	if m.ImagePath == "" && m.ImageURL == "" {
		return
	}
	if a, ok := d.formatter.(LocalFileAttacher); ok && a.AcceptsLocalFiles() {
		return
	}

	if d.uploader == nil {
		if m.ImagePath != "" {
			slog.Warn("no image uploader configured, dropping local image", "path", m.ImagePath)
			m.ImagePath = ""
		}
		if m.ImageURL != "" && !isRemoteURL(m.ImageURL) {
			slog.Warn("no image uploader configured, dropping local image", "path", m.ImageURL)
			m.ImageURL = ""
		}
		return
	}

	sources := make([]string, 0, 2)
	if m.ImagePath != "" {
		sources = append(sources, m.ImagePath)
	}
	if m.ImageURL != "" {
		sources = append(sources, m.ImageURL)
	}
	m.ImagePath, m.ImageURL = "", ""

	for _, source := range sources {
		url, err := d.uploader.Upload(ctx, source)
		if err != nil {
			slog.Warn("image upload failed, trying next source",
				"error", &common.UploadError{Source: source, Err: err},
			)
			continue
		}
		m.ImageURL = url
		return
	}
	slog.Warn("no image could be uploaded, sending without image")
}

func isRemoteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
