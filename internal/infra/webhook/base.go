package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"

	"hookrelay/internal/domain/notification"
	"hookrelay/internal/infra/template"
)

// base carries what every formatter shares: the destination config, the
// template engine and the JSON request defaults.
type base struct {
	config notification.WebhookConfig
	engine *template.Engine
}

func newBase(cfg notification.WebhookConfig, engine *template.Engine) base {
	if engine == nil {
		engine = template.NewEngine()
	}
	return base{config: cfg, engine: engine}
}

// FormatHeaders returns the JSON content negotiation headers.
func (b *base) FormatHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
}

// payloadFormatter is the part of notification.Formatter jsonRequest needs.
type payloadFormatter interface {
	FormatMessage(msg *notification.Message) (any, error)
	FormatHeaders() map[string]string
}

// jsonRequest POSTs the JSON-encoded payload of f to the configured URL.
func (b *base) jsonRequest(f payloadFormatter, msg *notification.Message) (*notification.Request, error) {
	payload, err := f.FormatMessage(msg)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling webhook payload: %w", err)
	}
	return &notification.Request{
		URL:     b.config.URL,
		Method:  http.MethodPost,
		Headers: f.FormatHeaders(),
		Body:    body,
	}, nil
}

// GenericFormatter sends a flat JSON document to any receiver.
type GenericFormatter struct {
	base
}

var _ notification.Formatter = (*GenericFormatter)(nil)

// NewGenericFormatter creates a GenericFormatter.
func NewGenericFormatter(cfg notification.WebhookConfig, engine *template.Engine) *GenericFormatter {
	return &GenericFormatter{base: newBase(cfg, engine)}
}

// GenericPayload is the body the generic receiver gets.
type GenericPayload struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	URL      string `json:"url,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Provider returns the generic provider type.
func (f *GenericFormatter) Provider() notification.ProviderType {
	return notification.ProviderGeneric
}

// FormatMessage maps the message fields one to one.
func (f *GenericFormatter) FormatMessage(msg *notification.Message) (any, error) {
	return &GenericPayload{
		Title:    orDefault(msg.Title, defaultTitle),
		Text:     msg.Body,
		URL:      msg.Link,
		ImageURL: msg.ImageURL,
	}, nil
}

// PrepareRequest POSTs the JSON payload.
func (f *GenericFormatter) PrepareRequest(msg *notification.Message) (*notification.Request, error) {
	return f.jsonRequest(f, msg)
}
