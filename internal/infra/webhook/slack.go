package webhook

import (
	"fmt"
	"strings"

	"hookrelay/internal/domain/notification"
	"hookrelay/internal/infra/template"

	"github.com/google/uuid"
)

// Slack Block Kit limits.
const (
	slackHeaderLimit  = 150
	slackSectionLimit = 3000
	slackErrorLimit   = 2900
	slackLabelLimit   = 75
	slackMaxButtons   = 5
)

var slackColors = map[level]string{
	levelDefault: "#0099FF",
	levelSuccess: "#2EB67D",
	levelWarning: "#E1E44D",
	levelError:   "#E01E5A",
	levelInfo:    "#4A154B",
}

// SlackBlock is one Block Kit block.
type SlackBlock map[string]any

// SlackAttachment is a colored secondary attachment holding blocks.
type SlackAttachment struct {
	Color  string       `json:"color"`
	Blocks []SlackBlock `json:"blocks"`
}

// SlackPayload is the body of an incoming-webhook call.
type SlackPayload struct {
	Text        string            `json:"text"`
	Username    string            `json:"username,omitempty"`
	IconURL     string            `json:"icon_url,omitempty"`
	Blocks      []SlackBlock      `json:"blocks"`
	Attachments []SlackAttachment `json:"attachments"`
}

// SlackFormatter builds Block Kit messages.
//
// Incoming webhooks cannot run server-side requests, so http actions are
// rendered as plain URL buttons exactly like view actions.
type SlackFormatter struct {
	base
}

var _ notification.Formatter = (*SlackFormatter)(nil)

// NewSlackFormatter creates a SlackFormatter.
func NewSlackFormatter(cfg notification.WebhookConfig, engine *template.Engine) *SlackFormatter {
	return &SlackFormatter{base: newBase(cfg, engine)}
}

// Provider returns the slack provider type.
func (f *SlackFormatter) Provider() notification.ProviderType {
	return notification.ProviderSlack
}

// FormatMessage builds the header block, the colored attachment and the actions block.
func (f *SlackFormatter) FormatMessage(msg *notification.Message) (any, error) {
	c := f.applyCardTemplate(msg)

	var blocks []SlackBlock
	attachment := SlackAttachment{Color: slackColors[resolveLevel(msg)]}

	if c.title != "" {
		blocks = append(blocks, SlackBlock{
			"type": "header",
			"text": plainText(truncate(c.title, slackHeaderLimit)),
		})
	}

	body := orDefault(c.body, "...")
	if role := template.Stringify(msg.TemplateData["pingRoleId"]); role != "" {
		body = fmt.Sprintf("<!subteam^%s> %s", role, body)
	}
	attachment.Blocks = append(attachment.Blocks, markdownSection(truncate(body, slackSectionLimit)))

	if msg.Link != "" {
		blocks = append(blocks, markdownSection(fmt.Sprintf("<%s|Open Link>", msg.Link)))
	}
	if msg.ImageURL != "" {
		blocks = append(blocks, SlackBlock{
			"type":      "image",
			"image_url": msg.ImageURL,
			"alt_text":  "Notification image",
		})
	}
	if len(msg.Attachments) > 0 {
		lines := make([]string, len(msg.Attachments))
		for i, url := range msg.Attachments {
			lines[i] = fmt.Sprintf("*Attachment %d:* <%s>", i+1, url)
		}
		attachment.Blocks = append(attachment.Blocks, markdownSection(strings.Join(lines, "\n")))
	}

	if c.templated {
		attachment.Blocks = append(attachment.Blocks, slackTemplateBlocks(msg)...)
	}

	if actions := slackActionsBlock(msg.Actions); actions != nil {
		blocks = append(blocks, actions)
	}

	return &SlackPayload{
		Text:        orDefault(msg.Title, msg.Body),
		Username:    f.config.Username,
		IconURL:     f.config.AvatarURL,
		Blocks:      blocks,
		Attachments: []SlackAttachment{attachment},
	}, nil
}

// PrepareRequest POSTs the JSON payload.
func (f *SlackFormatter) PrepareRequest(msg *notification.Message) (*notification.Request, error) {
	return f.jsonRequest(f, msg)
}

// slackTemplateBlocks renders the template-specific context and sections.
func slackTemplateBlocks(msg *notification.Message) []SlackBlock {
	data := msg.TemplateData
	var blocks []SlackBlock

	switch msg.Template {
	case template.Status:
		if status := template.Stringify(data["status"]); status != "" {
			blocks = append(blocks, markdownContext(fmt.Sprintf("%s *Status:* %s", statusIcon(status), status)))
		}
	case template.Progress:
		if pct, ok := progressPercent(data); ok {
			blocks = append(blocks, markdownSection("*Progress:*\n"+progressBar(pct)))
		}
		if eta := template.Stringify(data["eta"]); eta != "" {
			blocks = append(blocks, markdownContext("*ETA:* "+eta))
		}
	case template.Problem:
		if template.Truthy(data["error"]) {
			detail := truncate(template.Stringify(data["error"]), slackErrorLimit)
			blocks = append(blocks, markdownSection("*Error Details:*\n```"+detail+"```"))
		}
		if severity := template.Stringify(data["severity"]); severity != "" {
			blocks = append(blocks, markdownContext("*Severity:* "+severity))
		}
	case template.Question:
		if opts := options(data); len(opts) > 0 {
			lines := make([]string, len(opts))
			for i, opt := range opts {
				lines[i] = fmt.Sprintf("%d. %s", i+1, opt)
			}
			blocks = append(blocks, markdownSection("*Options:*\n"+strings.Join(lines, "\n")))
		}
	}
	return blocks
}

// slackActionsBlock turns actions into up to five URL buttons.
func slackActionsBlock(actions []notification.Action) SlackBlock {
	var elements []SlackBlock
	for _, action := range actions {
		if action.URL == "" {
			continue
		}
		prefix := "view"
		if action.Action == notification.ActionHTTP {
			prefix = "http"
		}
		elements = append(elements, SlackBlock{
			"type":      "button",
			"text":      plainText(truncate(action.Label, slackLabelLimit)),
			"url":       action.URL,
			"action_id": prefix + "_" + uuid.NewString(),
		})
		if len(elements) == slackMaxButtons {
			break
		}
	}
	if len(elements) == 0 {
		return nil
	}
	return SlackBlock{"type": "actions", "elements": elements}
}

func plainText(text string) map[string]any {
	return map[string]any{"type": "plain_text", "text": text, "emoji": true}
}

func markdownSection(text string) SlackBlock {
	return SlackBlock{
		"type": "section",
		"text": map[string]any{"type": "mrkdwn", "text": text},
	}
}

func markdownContext(text string) SlackBlock {
	return SlackBlock{
		"type":     "context",
		"elements": []map[string]any{{"type": "mrkdwn", "text": text}},
	}
}
