package webhook

import (
	"hookrelay/internal/domain/notification"
	"hookrelay/internal/infra/template"
)

// NewFormatter returns the formatter for cfg.Type. Unknown, generic and custom
// types all resolve to the generic formatter.
func NewFormatter(cfg notification.WebhookConfig, engine *template.Engine) notification.Formatter {
	switch cfg.Type {
	case notification.ProviderFeishu:
		return NewFeishuFormatter(cfg, engine)
	case notification.ProviderDiscord:
		return NewDiscordFormatter(cfg, engine)
	case notification.ProviderSlack:
		return NewSlackFormatter(cfg, engine)
	case notification.ProviderTeams:
		return NewTeamsFormatter(cfg, engine)
	case notification.ProviderNtfy:
		return NewNtfyFormatter(cfg, engine)
	default:
		return NewGenericFormatter(cfg, engine)
	}
}
