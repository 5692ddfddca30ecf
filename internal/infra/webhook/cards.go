package webhook

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"hookrelay/internal/domain/notification"
	"hookrelay/internal/infra/template"
)

const defaultTitle = "Notification"

// level is the provider-neutral color of a chat card.
type level int

const (
	levelDefault level = iota
	levelSuccess
	levelWarning
	levelError
	levelInfo
)

var templateLevels = map[string]level{
	template.Status:   levelInfo,
	template.Progress: levelSuccess,
	template.Question: levelWarning,
	template.Problem:  levelError,
}

// resolveLevel picks the card color: template, then priority, then default.
func resolveLevel(msg *notification.Message) level {
	if lvl, ok := templateLevels[msg.Template]; ok {
		return lvl
	}
	switch msg.Priority {
	case 5:
		return levelError
	case 4:
		return levelWarning
	case 3:
		return levelInfo
	case 1:
		return levelSuccess
	default:
		return levelDefault
	}
}

// card is the title/body a chat formatter renders after templating.
type card struct {
	title     string
	body      string
	templated bool
}

// applyCardTemplate renders msg.Template when one is requested. The message
// body is kept in front of the templated text so nothing the caller wrote is
// lost. Unknown templates fall back to the untemplated message.
func (b *base) applyCardTemplate(msg *notification.Message) card {
	c := card{title: msg.Title, body: msg.Body}
	if msg.Template == "" {
		return c
	}

	applied, err := b.engine.ApplyTrimmed(msg.Template, msg.TemplateData)
	if err != nil {
		slog.Warn("template not found, using default formatting",
			"template", msg.Template,
			"provider", b.config.DisplayName(),
			"error", err,
		)
		return c
	}

	c.title = applied.Title
	c.body = applied.Message
	if body := strings.TrimSpace(msg.Body); body != "" && !strings.Contains(applied.Message, body) {
		c.body = body + "\n\n" + applied.Message
	}
	c.templated = true
	return c
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// statusIcon derives an emoji from keywords in a status string.
func statusIcon(status string) string {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "success"), strings.Contains(s, "complete"), strings.Contains(s, "ok"):
		return "✅"
	case strings.Contains(s, "warn"), strings.Contains(s, "pending"):
		return "⚠️"
	case strings.Contains(s, "error"), strings.Contains(s, "fail"):
		return "❌"
	case strings.Contains(s, "info"), strings.Contains(s, "running"):
		return "ℹ️"
	default:
		return "🔔"
	}
}

// progressPercent reads an explicit percentage, else current/total.
// ok is false when no percentage in [0,100] can be derived.
func progressPercent(data map[string]any) (int, bool) {
	pct := -1.0
	if v, ok := template.Number(data["percentage"]); ok {
		pct = v
	} else {
		current, okCurrent := template.Number(data["current"])
		total, okTotal := template.Number(data["total"])
		if okCurrent && okTotal && total > 0 {
			pct = math.Round(current / total * 100)
		}
	}
	if pct < 0 || pct > 100 {
		return 0, false
	}
	return int(pct), true
}

// progressBar renders a 10-slot bar filled in steps of ten percent.
func progressBar(percent int) string {
	filled := percent / 10
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled) + " " + strconv.Itoa(percent) + "%"
}

// options returns templateData.options as a list.
func options(data map[string]any) []string {
	switch v := data["options"].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, o := range v {
			out = append(out, template.Stringify(o))
		}
		return out
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	default:
		return nil
	}
}
