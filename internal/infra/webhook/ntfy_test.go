package webhook

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"hookrelay/internal/domain/notification"
	"hookrelay/internal/infra/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ntfyTopic = "https://ntfy.sh/relay-test"

func newNtfy(cfg notification.WebhookConfig) *NtfyFormatter {
	if cfg.URL == "" {
		cfg.URL = ntfyTopic
	}
	cfg.Type = notification.ProviderNtfy
	return NewNtfyFormatter(cfg, template.NewEngine())
}

func TestNtfy_PlainPost(t *testing.T) {
	f := newNtfy(notification.WebhookConfig{Token: "tk_abc"})
	req, err := f.PrepareRequest(&notification.Message{
		Title: "Build",
		Body:  "finished",
		Link:  "https://ci.test/7",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, ntfyTopic, req.URL)
	assert.Equal(t, "finished", string(req.Body))
	assert.Equal(t, "text/plain", req.Headers["Content-Type"])
	assert.Equal(t, "3", req.Headers["Priority"])
	assert.Equal(t, "Bearer tk_abc", req.Headers["Authorization"])
	assert.Equal(t, "https://ci.test/7", req.Headers["Click"])
	assert.Equal(t, "Build", req.Headers["Title"])
	assert.NotContains(t, req.Headers, "Attach")
}

func TestNtfy_AttachmentsJoined(t *testing.T) {
	req, err := newNtfy(notification.WebhookConfig{}).PrepareRequest(&notification.Message{
		Body:        "files",
		Attachments: []string{"a", "b"},
		ImageURL:    "https://img.test/ignored.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "a, b", req.Headers["Attach"])

	req, err = newNtfy(notification.WebhookConfig{}).PrepareRequest(&notification.Message{
		Body:     "image",
		ImageURL: "https://img.test/a.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://img.test/a.png", req.Headers["Attach"])
}

func TestNtfy_PriorityClamp(t *testing.T) {
	tests := []struct {
		name            string
		msgPriority     int
		defaultPriority int
		expected        string
	}{
		{"unset uses fallback", 0, 0, "3"},
		{"unset uses config default", 0, 4, "4"},
		{"message wins", 2, 5, "2"},
		{"clamped high", 9, 0, "5"},
		{"clamped low", -3, 0, "1"},
		{"config default clamped", 0, 12, "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newNtfy(notification.WebhookConfig{DefaultPriority: tt.defaultPriority})
			req, err := f.PrepareRequest(&notification.Message{Body: "x", Priority: tt.msgPriority})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req.Headers["Priority"])
		})
	}
}

func TestNtfy_TitleIsASCIIOnly(t *testing.T) {
	req, err := newNtfy(notification.WebhookConfig{}).PrepareRequest(&notification.Message{
		Title: "🚀 Déploy done",
		Body:  "x",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dploy done", req.Headers["Title"])

	req, err = newNtfy(notification.WebhookConfig{}).PrepareRequest(&notification.Message{Title: "🚀", Body: "x"})
	require.NoError(t, err)
	assert.NotContains(t, req.Headers, "Title")
}

func TestNtfy_Markdown(t *testing.T) {
	req, err := newNtfy(notification.WebhookConfig{}).PrepareRequest(&notification.Message{
		Body:         "**bold**",
		TemplateData: map[string]any{"markdown": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "text/markdown", req.Headers["Content-Type"])
	assert.Equal(t, "yes", req.Headers["Markdown"])
}

func TestNtfy_ConfiguredTemplates(t *testing.T) {
	f := newNtfy(notification.WebhookConfig{
		Templates: notification.TemplateOverrides{
			Title:   "[{{.env}}] {{.title}}",
			Message: "{{.body}}{{if .host}} on {{.host}}{{end}}",
		},
	})
	req, err := f.PrepareRequest(&notification.Message{
		Title:        "Alert",
		Body:         "disk full",
		TemplateData: map[string]any{"env": "prod", "host": "db1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "disk full on db1", string(req.Body))
	assert.Equal(t, "[prod] Alert", req.Headers["Title"])
}

func TestNtfy_BuiltInTemplateDelegatesRendering(t *testing.T) {
	data := map[string]any{"status": "ok", "details": "all green"}
	req, err := newNtfy(notification.WebhookConfig{}).PrepareRequest(&notification.Message{
		Body:         "ignored",
		Template:     template.Status,
		TemplateData: data,
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "application/json", req.Headers["Content-Type"])
	assert.Equal(t, "yes", req.Headers["X-Template"])
	assert.Equal(t, "Status Update: {{.status}}", req.Headers["X-Title"])
	assert.NotContains(t, req.Headers["X-Message"], "\n")
	assert.Contains(t, req.Headers["X-Message"], `Status: {{.status}}\n`)

	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, data, body)
}

func TestNtfy_UnknownTemplateFallsBackToPlain(t *testing.T) {
	req, err := newNtfy(notification.WebhookConfig{}).PrepareRequest(&notification.Message{
		Body:     "hello",
		Template: "nope",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(req.Body))
	assert.NotContains(t, req.Headers, "X-Template")
}

func TestNtfy_LocalFileUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(path, []byte("PNGDATA"), 0o600))

	f := newNtfy(notification.WebhookConfig{Token: "tk"})
	req, err := f.PrepareRequest(&notification.Message{
		Title:     "Screen",
		Body:      "see attached",
		ImagePath: path,
		Priority:  4,
		Link:      "https://l.test",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, []byte("PNGDATA"), req.Body)
	assert.Equal(t, "application/octet-stream", req.Headers["Content-Type"])
	assert.Equal(t, "shot.png", req.Headers["Filename"])
	assert.Equal(t, "Bearer tk", req.Headers["Authorization"])

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "see attached", q.Get("message"))
	assert.Equal(t, "Screen", q.Get("title"))
	assert.Equal(t, "4", q.Get("priority"))
	assert.Equal(t, "https://l.test", q.Get("click"))
	assert.Equal(t, "shot.png", q.Get("filename"))
}

func TestNtfy_LocalImageURLIsUploaded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	req, err := newNtfy(notification.WebhookConfig{}).PrepareRequest(&notification.Message{Body: "x", ImageURL: path})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, req.Method)
}

func TestNtfy_OversizedFileIsSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.bin")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, file.Truncate(MaxLocalAttachmentSize+1))
	require.NoError(t, file.Close())

	req, err := newNtfy(notification.WebhookConfig{}).PrepareRequest(&notification.Message{Body: "x", ImagePath: path})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "x", string(req.Body))
}

func TestNtfy_MissingFileIsSkipped(t *testing.T) {
	req, err := newNtfy(notification.WebhookConfig{}).PrepareRequest(&notification.Message{
		Body:      "x",
		ImagePath: filepath.Join(t.TempDir(), "missing.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
}

func TestEncodeAction(t *testing.T) {
	tests := []struct {
		name     string
		action   notification.Action
		expected string
	}{
		{
			name:     "view",
			action:   notification.Action{Action: notification.ActionView, Label: "Open", URL: "https://x.test"},
			expected: "view, Open, https://x.test",
		},
		{
			name:     "view with clear",
			action:   notification.Action{Action: notification.ActionView, Label: "Open", URL: "https://x.test", Clear: true},
			expected: "view, Open, https://x.test, clear=true",
		},
		{
			name: "http with extras",
			action: notification.Action{
				Action:  notification.ActionHTTP,
				Label:   "Restart",
				URL:     "https://api.test/restart",
				Method:  "POST",
				Headers: map[string]string{"X-B": "2", "X-A": "1"},
				Body:    `{"force":true}`,
			},
			expected: `http, Restart, https://api.test/restart, method=POST, headers.X-A=1, headers.X-B=2, body={"force":true}`,
		},
		{
			name:     "label with comma is quoted",
			action:   notification.Action{Action: notification.ActionView, Label: "Yes, ship", URL: "https://x.test"},
			expected: `view, "Yes, ship", https://x.test`,
		},
		{
			name:     "label with quote and separator uses single quotes",
			action:   notification.Action{Action: notification.ActionView, Label: `say "hi"; bye`, URL: "https://x.test"},
			expected: `view, 'say "hi"; bye', https://x.test`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, encodeAction(tt.action))
		})
	}
}

func TestNtfy_ActionsHeader(t *testing.T) {
	req, err := newNtfy(notification.WebhookConfig{}).PrepareRequest(&notification.Message{
		Body: "x",
		Actions: []notification.Action{
			{Action: notification.ActionView, Label: "A", URL: "https://a.test"},
			{Action: notification.ActionView, Label: "B", URL: "https://b.test"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "view, A, https://a.test; view, B, https://b.test", req.Headers["Actions"])
}
