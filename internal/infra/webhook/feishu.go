package webhook

import (
	"hookrelay/internal/domain/notification"
	"hookrelay/internal/infra/template"
)

// FeishuFormatter builds Feishu (Lark) bot messages.
//
// Feishu only renders images uploaded beforehand and referenced by image_key.
// The image URL is placed in image_key as a best-effort placeholder; bots will
// usually ignore it.
type FeishuFormatter struct {
	base
}

var _ notification.Formatter = (*FeishuFormatter)(nil)

// NewFeishuFormatter creates a FeishuFormatter.
func NewFeishuFormatter(cfg notification.WebhookConfig, engine *template.Engine) *FeishuFormatter {
	return &FeishuFormatter{base: newBase(cfg, engine)}
}

// Provider returns the feishu provider type.
func (f *FeishuFormatter) Provider() notification.ProviderType {
	return notification.ProviderFeishu
}

// FormatMessage returns a text message for plain bodies and a post otherwise.
func (f *FeishuFormatter) FormatMessage(msg *notification.Message) (any, error) {
	if msg.Title == "" && msg.ImageURL == "" && msg.Link == "" {
		return map[string]any{
			"msg_type": "text",
			"content":  map[string]any{"text": msg.Body},
		}, nil
	}

	line := []map[string]any{{"tag": "text", "text": msg.Body}}
	if msg.Link != "" {
		line = append(line, map[string]any{"tag": "a", "text": "Open Link", "href": msg.Link})
	}

	content := map[string]any{
		"post": map[string]any{
			"zh_cn": map[string]any{
				"title":   orDefault(msg.Title, defaultTitle),
				"content": [][]map[string]any{line},
			},
		},
	}
	if msg.ImageURL != "" {
		content["image_key"] = msg.ImageURL
	}

	return map[string]any{
		"msg_type": "post",
		"content":  content,
	}, nil
}

// PrepareRequest POSTs the JSON payload.
func (f *FeishuFormatter) PrepareRequest(msg *notification.Message) (*notification.Request, error) {
	return f.jsonRequest(f, msg)
}
