package webhook

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"hookrelay/internal/domain/notification"
	"hookrelay/internal/infra/template"
)

const (
	ntfyDefaultPriority = 3
	// MaxLocalAttachmentSize is the largest local file ntfy will upload.
	MaxLocalAttachmentSize = 15 << 20
)

// NtfyFormatter publishes to an ntfy topic. The body is the plain message and
// all metadata travels in headers.
type NtfyFormatter struct {
	base
}

var (
	_ notification.Formatter         = (*NtfyFormatter)(nil)
	_ notification.LocalFileAttacher = (*NtfyFormatter)(nil)
)

// NewNtfyFormatter creates an NtfyFormatter.
func NewNtfyFormatter(cfg notification.WebhookConfig, engine *template.Engine) *NtfyFormatter {
	return &NtfyFormatter{base: newBase(cfg, engine)}
}

// Provider returns the ntfy provider type.
func (f *NtfyFormatter) Provider() notification.ProviderType {
	return notification.ProviderNtfy
}

// AcceptsLocalFiles reports that ntfy uploads local images itself.
func (f *NtfyFormatter) AcceptsLocalFiles() bool {
	return true
}

// FormatHeaders returns the plain-text content type.
func (f *NtfyFormatter) FormatHeaders() map[string]string {
	return map[string]string{"Content-Type": "text/plain"}
}

// FormatMessage returns the message body, rendered through the configured
// message template when there is one.
func (f *NtfyFormatter) FormatMessage(msg *notification.Message) (any, error) {
	if f.config.Templates.Message == "" {
		return msg.Body, nil
	}
	return strings.TrimSpace(template.Render(f.config.Templates.Message, f.templateData(msg))), nil
}

// PrepareRequest picks one of three shapes: server-side templating for
// built-in templates, a binary PUT for local image files, or a plain POST.
func (f *NtfyFormatter) PrepareRequest(msg *notification.Message) (*notification.Request, error) {
	if msg.Template != "" {
		if tmpl, ok := f.engine.Lookup(msg.Template); ok {
			return f.templateRequest(msg, tmpl)
		}
		slog.Warn("template not found, using default formatting",
			"template", msg.Template,
			"provider", f.config.DisplayName(),
		)
	}

	if path, ok := localAttachment(msg); ok {
		info, err := os.Stat(path)
		switch {
		case err != nil:
			slog.Warn("local attachment not readable, sending without it", "path", path, "error", err)
		case info.Size() > MaxLocalAttachmentSize:
			slog.Warn("local attachment too large, sending without it",
				"path", path,
				"size", info.Size(),
				"max_size", MaxLocalAttachmentSize,
			)
		default:
			return f.uploadRequest(msg, path)
		}
	}

	body, err := f.FormatMessage(msg)
	if err != nil {
		return nil, err
	}

	headers := f.FormatHeaders()
	f.setMetadataHeaders(headers, msg)
	if title := f.title(msg); title != "" {
		headers["Title"] = title
	}
	if attach := attachHeader(msg); attach != "" {
		headers["Attach"] = attach
	}
	if template.Truthy(msg.TemplateData["markdown"]) {
		headers["Content-Type"] = "text/markdown"
		headers["Markdown"] = "yes"
	}

	return &notification.Request{
		URL:     f.config.URL,
		Method:  http.MethodPost,
		Headers: headers,
		Body:    []byte(body.(string)),
	}, nil
}

// templateRequest hands rendering to the ntfy server: the raw template goes
// in headers and templateData is the JSON body.
func (f *NtfyFormatter) templateRequest(msg *notification.Message, tmpl template.Template) (*notification.Request, error) {
	data := msg.TemplateData
	if data == nil {
		data = map[string]any{}
	}
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshaling ntfy template data: %w", err)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"X-Template":   "yes",
		"X-Title":      headerEscape(tmpl.Title),
		"X-Message":    headerEscape(strings.TrimSpace(tmpl.Message)),
	}
	f.setMetadataHeaders(headers, msg)
	if attach := attachHeader(msg); attach != "" {
		headers["Attach"] = attach
	}

	return &notification.Request{
		URL:     f.config.URL,
		Method:  http.MethodPost,
		Headers: headers,
		Body:    body,
	}, nil
}

// uploadRequest PUTs a local file to the topic with metadata in the query.
func (f *NtfyFormatter) uploadRequest(msg *notification.Message, path string) (*notification.Request, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading attachment %s: %w", path, err)
	}

	target, err := url.Parse(f.config.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing ntfy url: %w", err)
	}

	body, err := f.FormatMessage(msg)
	if err != nil {
		return nil, err
	}

	query := target.Query()
	if text := body.(string); text != "" {
		query.Set("message", text)
	}
	if title := f.renderedTitle(msg); title != "" {
		query.Set("title", title)
	}
	query.Set("priority", strconv.Itoa(f.priority(msg)))
	if msg.Link != "" {
		query.Set("click", msg.Link)
	}
	if actions := actionsHeader(msg.Actions); actions != "" {
		query.Set("actions", actions)
	}
	query.Set("filename", filepath.Base(path))
	target.RawQuery = query.Encode()

	headers := map[string]string{
		"Content-Type": "application/octet-stream",
		"Filename":     filepath.Base(path),
	}
	if f.config.Token != "" {
		headers["Authorization"] = "Bearer " + f.config.Token
	}

	return &notification.Request{
		URL:     target.String(),
		Method:  http.MethodPut,
		Headers: headers,
		Body:    content,
	}, nil
}

// setMetadataHeaders adds priority, auth, click and actions.
func (f *NtfyFormatter) setMetadataHeaders(headers map[string]string, msg *notification.Message) {
	headers["Priority"] = strconv.Itoa(f.priority(msg))
	if f.config.Token != "" {
		headers["Authorization"] = "Bearer " + f.config.Token
	}
	if msg.Link != "" {
		headers["Click"] = msg.Link
	}
	if actions := actionsHeader(msg.Actions); actions != "" {
		headers["Actions"] = actions
	}
}

// priority resolves message, then config default, then 3, clamped into [1,5].
func (f *NtfyFormatter) priority(msg *notification.Message) int {
	p := msg.Priority
	if p == 0 {
		p = f.config.DefaultPriority
	}
	if p == 0 {
		p = ntfyDefaultPriority
	}
	return min(max(p, 1), 5)
}

func (f *NtfyFormatter) renderedTitle(msg *notification.Message) string {
	if f.config.Templates.Title == "" {
		return msg.Title
	}
	return strings.TrimSpace(template.Render(f.config.Templates.Title, f.templateData(msg)))
}

// title is the ASCII-only header form of the title.
func (f *NtfyFormatter) title(msg *notification.Message) string {
	return asciiOnly(f.renderedTitle(msg))
}

// templateData merges the message fields under the caller's template data.
func (f *NtfyFormatter) templateData(msg *notification.Message) map[string]any {
	data := map[string]any{
		"title":    msg.Title,
		"body":     msg.Body,
		"message":  msg.Body,
		"link":     msg.Link,
		"priority": msg.Priority,
	}
	for k, v := range msg.TemplateData {
		data[k] = v
	}
	return data
}

// localAttachment returns the local image path when the message carries one.
func localAttachment(msg *notification.Message) (string, bool) {
	if msg.ImagePath != "" {
		return msg.ImagePath, true
	}
	if msg.ImageURL != "" && !isRemote(msg.ImageURL) {
		if _, err := os.Stat(msg.ImageURL); err == nil {
			return msg.ImageURL, true
		}
	}
	return "", false
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// attachHeader joins attachment URLs, falling back to a remote image URL.
func attachHeader(msg *notification.Message) string {
	if len(msg.Attachments) > 0 {
		return strings.Join(msg.Attachments, ", ")
	}
	if isRemote(msg.ImageURL) {
		return msg.ImageURL
	}
	return ""
}

// actionsHeader encodes actions in ntfy's short format, separated by "; ".
func actionsHeader(actions []notification.Action) string {
	encoded := make([]string, 0, len(actions))
	for _, a := range actions {
		encoded = append(encoded, encodeAction(a))
	}
	return strings.Join(encoded, "; ")
}

// encodeAction renders one action in ntfy's short X-Actions header format:
// action, label, url[, method=M][, clear=true][, headers.K=V...][, body=B].
// ntfy reads http request headers from headers.<name>=<value> pairs.
func encodeAction(a notification.Action) string {
	parts := []string{string(a.Action), quoteField(a.Label), quoteField(a.URL)}

	if a.Action == notification.ActionHTTP && a.Method != "" {
		parts = append(parts, "method="+a.Method)
	}
	if a.Clear {
		parts = append(parts, "clear=true")
	}
	if a.Action == notification.ActionHTTP {
		keys := make([]string, 0, len(a.Headers))
		for k := range a.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, "headers."+k+"="+quoteField(a.Headers[k]))
		}
		if a.Body != "" {
			parts = append(parts, "body="+quoteField(a.Body))
		}
	}
	return strings.Join(parts, ", ")
}

// quoteField wraps values containing separators in quotes.
func quoteField(s string) string {
	if !strings.ContainsAny(s, ",;") {
		return s
	}
	if strings.Contains(s, `"`) {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}

// asciiOnly strips non-ASCII and control characters so the value is a safe header.
func asciiOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// headerEscape keeps multi-line templates on one header line; ntfy expands \n.
func headerEscape(s string) string {
	return strings.ReplaceAll(s, "\n", `\n`)
}
