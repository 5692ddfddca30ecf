package notification

// ProviderType identifies the webhook service a destination speaks.
type ProviderType string

const (
	ProviderFeishu  ProviderType = "feishu"
	ProviderDiscord ProviderType = "discord"
	ProviderSlack   ProviderType = "slack"
	ProviderTeams   ProviderType = "teams"
	ProviderNtfy    ProviderType = "ntfy"
	ProviderGeneric ProviderType = "generic"
	ProviderCustom  ProviderType = "custom"
)

// ActionType enumerates the supported interactive actions.
type ActionType string

const (
	ActionView ActionType = "view"
	ActionHTTP ActionType = "http"
)

// Action is an interactive button attached to a notification.
// Method, Headers, Body and Clear only apply to http actions.
type Action struct {
	Action  ActionType        `json:"action" mapstructure:"action" binding:"required,oneof=view http"`
	Label   string            `json:"label" mapstructure:"label" binding:"required"`
	URL     string            `json:"url" mapstructure:"url" binding:"required"`
	Method  string            `json:"method,omitempty" mapstructure:"method" binding:"omitempty,oneof=GET POST PUT DELETE"`
	Headers map[string]string `json:"headers,omitempty" mapstructure:"headers"`
	Body    string            `json:"body,omitempty" mapstructure:"body"`
	Clear   bool              `json:"clear,omitempty" mapstructure:"clear"`
}

// Message is the provider-agnostic notification. Only Body is required.
type Message struct {
	Title        string         `json:"title,omitempty"`
	Body         string         `json:"body" binding:"required"`
	Link         string         `json:"link,omitempty"`
	ImageURL     string         `json:"imageUrl,omitempty"`
	ImagePath    string         `json:"image,omitempty"`
	Priority     int            `json:"priority,omitempty"`
	Attachments  []string       `json:"attachments,omitempty"`
	Actions      []Action       `json:"actions,omitempty" binding:"omitempty,dive"`
	Template     string         `json:"template,omitempty"`
	TemplateData map[string]any `json:"templateData,omitempty"`
}

// TemplateOverrides replaces the built-in title/message patterns for a destination.
type TemplateOverrides struct {
	Title   string `json:"title,omitempty" mapstructure:"title"`
	Message string `json:"message,omitempty" mapstructure:"message"`
}

// WebhookConfig describes the destination a formatter targets.
type WebhookConfig struct {
	URL             string            `mapstructure:"url"`
	Type            ProviderType      `mapstructure:"type"`
	Name            string            `mapstructure:"name"`
	Token           string            `mapstructure:"token"`
	DefaultPriority int               `mapstructure:"default_priority"`
	Templates       TemplateOverrides `mapstructure:"templates"`
	DefaultActions  []Action          `mapstructure:"default_actions"`
	Username        string            `mapstructure:"username"`
	AvatarURL       string            `mapstructure:"avatar_url"`
}

// DisplayName returns the configured name, falling back to the provider type.
func (c WebhookConfig) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if c.Type == "" {
		return string(ProviderGeneric)
	}
	return string(c.Type)
}

// Request is a fully prepared outbound webhook call.
type Request struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
}
