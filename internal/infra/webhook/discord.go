package webhook

import (
	"fmt"
	"strings"

	"hookrelay/internal/domain/notification"
	"hookrelay/internal/infra/template"
)

// Discord payload limits.
const (
	discordTitleLimit      = 256
	discordBodyLimit       = 4096
	discordFieldNameLimit  = 256
	discordFieldValueLimit = 1024
	discordMaxFields       = 25
	discordErrorLimit      = 1000
	discordContentLimit    = 2000
)

var discordColors = map[level]int{
	levelDefault: 0x0099FF,
	levelSuccess: 0x57F287,
	levelWarning: 0xFEE75C,
	levelError:   0xED4245,
	levelInfo:    0x9B59B6,
}

// DiscordPayload is the body of a Discord webhook execution.
type DiscordPayload struct {
	Username  string         `json:"username,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Content   string         `json:"content,omitempty"`
	Embeds    []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed is a single rich embed.
type DiscordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url,omitempty"`
	Color       int            `json:"color"`
	Image       *DiscordImage  `json:"image,omitempty"`
	Fields      []DiscordField `json:"fields,omitempty"`
}

// DiscordImage references an image by URL.
type DiscordImage struct {
	URL string `json:"url"`
}

// DiscordField is one name/value row of an embed.
type DiscordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// DiscordFormatter builds a single-embed Discord message.
type DiscordFormatter struct {
	base
}

var _ notification.Formatter = (*DiscordFormatter)(nil)

// NewDiscordFormatter creates a DiscordFormatter.
func NewDiscordFormatter(cfg notification.WebhookConfig, engine *template.Engine) *DiscordFormatter {
	return &DiscordFormatter{base: newBase(cfg, engine)}
}

// Provider returns the discord provider type.
func (f *DiscordFormatter) Provider() notification.ProviderType {
	return notification.ProviderDiscord
}

// FormatMessage builds the embed, its template fields, attachments and actions.
func (f *DiscordFormatter) FormatMessage(msg *notification.Message) (any, error) {
	c := f.applyCardTemplate(msg)
	title := orDefault(c.title, defaultTitle)

	var fields []DiscordField
	if c.templated {
		switch msg.Template {
		case template.Status:
			if status := template.Stringify(msg.TemplateData["status"]); status != "" {
				fields = append([]DiscordField{{
					Name:   "Status",
					Value:  statusIcon(status) + " " + status,
					Inline: true,
				}}, fields...)
			}
		case template.Progress:
			if pct, ok := progressPercent(msg.TemplateData); ok {
				fields = append(fields, DiscordField{Name: "Progress", Value: progressBar(pct)})
			}
			if eta := template.Stringify(msg.TemplateData["eta"]); eta != "" {
				fields = append(fields, DiscordField{Name: "ETA", Value: eta, Inline: true})
			}
		case template.Problem:
			title = "⚠️ " + title
			detail := msg.Body
			if template.Truthy(msg.TemplateData["error"]) {
				detail = template.Stringify(msg.TemplateData["error"])
			}
			if detail != "" {
				fields = append(fields, DiscordField{
					Name:  "Error Details",
					Value: "```\n" + truncate(detail, discordErrorLimit) + "\n```",
				})
			}
			if severity := template.Stringify(msg.TemplateData["severity"]); severity != "" {
				fields = append(fields, DiscordField{Name: "Severity", Value: severity, Inline: true})
			}
		case template.Question:
			title = "❓ " + title
			for i, opt := range options(msg.TemplateData) {
				fields = append(fields, DiscordField{
					Name:   fmt.Sprintf("Option %d", i+1),
					Value:  opt,
					Inline: true,
				})
			}
		}
	}

	for i, url := range msg.Attachments {
		fields = append(fields, DiscordField{
			Name:  fmt.Sprintf("Attachment %d", i+1),
			Value: fmt.Sprintf("[Open Attachment](%s)", url),
		})
	}

	for _, action := range msg.Actions {
		text := "Open Link"
		if action.Action == notification.ActionHTTP {
			text = "Trigger Action"
		}
		fields = append(fields, DiscordField{
			Name:   orDefault(action.Label, text),
			Value:  fmt.Sprintf("[%s](%s)", text, action.URL),
			Inline: true,
		})
	}

	embed := DiscordEmbed{
		Title:       truncate(title, discordTitleLimit),
		Description: truncate(c.body, discordBodyLimit),
		URL:         msg.Link,
		Color:       discordColors[resolveLevel(msg)],
	}
	if msg.ImageURL != "" {
		embed.Image = &DiscordImage{URL: msg.ImageURL}
	}
	if len(fields) > discordMaxFields {
		fields = fields[:discordMaxFields]
	}
	for i := range fields {
		fields[i].Name = truncate(fields[i].Name, discordFieldNameLimit)
		fields[i].Value = truncate(fields[i].Value, discordFieldValueLimit)
	}
	if len(fields) > 0 {
		embed.Fields = fields
	}

	payload := &DiscordPayload{
		Username:  f.config.Username,
		AvatarURL: f.config.AvatarURL,
		Embeds:    []DiscordEmbed{embed},
	}
	// Untitled plain messages also carry the body as content
	var content []string
	if role := template.Stringify(msg.TemplateData["pingRoleId"]); role != "" {
		content = append(content, fmt.Sprintf("<@&%s>", role))
	}
	if msg.Title == "" && !c.templated && msg.Body != "" {
		content = append(content, msg.Body)
	}
	payload.Content = truncate(strings.Join(content, " "), discordContentLimit)
	return payload, nil
}

// PrepareRequest POSTs the JSON payload.
func (f *DiscordFormatter) PrepareRequest(msg *notification.Message) (*notification.Request, error) {
	return f.jsonRequest(f, msg)
}
