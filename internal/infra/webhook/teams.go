package webhook

import (
	"hookrelay/internal/domain/notification"
	"hookrelay/internal/infra/template"
)

// TeamsPayload is a legacy Office 365 connector MessageCard.
type TeamsPayload struct {
	Type            string            `json:"@type"`
	Context         string            `json:"@context"`
	ThemeColor      string            `json:"themeColor"`
	Summary         string            `json:"summary"`
	Sections        []TeamsSection    `json:"sections"`
	PotentialAction []TeamsOpenURIAct `json:"potentialAction,omitempty"`
}

// TeamsSection is the single activity section of the card.
type TeamsSection struct {
	ActivityTitle    string `json:"activityTitle"`
	ActivitySubtitle string `json:"activitySubtitle"`
	ActivityImage    string `json:"activityImage,omitempty"`
	Text             string `json:"text"`
}

// TeamsOpenURIAct opens a link from the card.
type TeamsOpenURIAct struct {
	Type    string           `json:"@type"`
	Name    string           `json:"name"`
	Targets []TeamsURITarget `json:"targets"`
}

// TeamsURITarget is an OS-specific target of an OpenUri action.
type TeamsURITarget struct {
	OS  string `json:"os"`
	URI string `json:"uri"`
}

// TeamsFormatter builds MessageCards.
type TeamsFormatter struct {
	base
}

var _ notification.Formatter = (*TeamsFormatter)(nil)

// NewTeamsFormatter creates a TeamsFormatter.
func NewTeamsFormatter(cfg notification.WebhookConfig, engine *template.Engine) *TeamsFormatter {
	return &TeamsFormatter{base: newBase(cfg, engine)}
}

// Provider returns the teams provider type.
func (f *TeamsFormatter) Provider() notification.ProviderType {
	return notification.ProviderTeams
}

// FormatMessage builds a MessageCard with one section and an optional OpenUri action.
func (f *TeamsFormatter) FormatMessage(msg *notification.Message) (any, error) {
	title := orDefault(msg.Title, defaultTitle)
	card := &TeamsPayload{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: "0076D7",
		Summary:    title,
		Sections: []TeamsSection{{
			ActivityTitle: title,
			ActivityImage: msg.ImageURL,
			Text:          msg.Body,
		}},
	}
	if msg.Link != "" {
		card.PotentialAction = []TeamsOpenURIAct{{
			Type:    "OpenUri",
			Name:    "Open Link",
			Targets: []TeamsURITarget{{OS: "default", URI: msg.Link}},
		}}
	}
	return card, nil
}

// PrepareRequest POSTs the JSON payload.
func (f *TeamsFormatter) PrepareRequest(msg *notification.Message) (*notification.Request, error) {
	return f.jsonRequest(f, msg)
}
