package template

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenIf
	tokenEnd
)

type token struct {
	kind tokenKind
	text string // resolved text for tokenText, condition key for tokenIf
}

// Render evaluates text against data.
//
// Grammar:
//
//	{{.key}}              replaced by Stringify(data[key]), empty when absent
//	{{if .key}}...{{end}} kept only when Truthy(data[key])
//
// Conditionals do not nest: an {{if}} pairs with the first {{end}} after it and
// any {{if}} in between is dropped. Stray {{end}} tags, unterminated {{if}}
// tags and unrecognised tags are removed. Substituted values are not rescanned.
func Render(text string, data map[string]any) string {
	return resolveBlocks(lex(text, data), data)
}

// lex is the variable pass: it splits text into tokens and substitutes variables.
func lex(text string, data map[string]any) []token {
	var tokens []token
	for len(text) > 0 {
		open := strings.Index(text, "{{")
		if open < 0 {
			tokens = append(tokens, token{kind: tokenText, text: text})
			break
		}
		closeIdx := strings.Index(text[open+2:], "}}")
		if closeIdx < 0 {
			tokens = append(tokens, token{kind: tokenText, text: text})
			break
		}
		if open > 0 {
			tokens = append(tokens, token{kind: tokenText, text: text[:open]})
		}

		tag := strings.TrimSpace(text[open+2 : open+2+closeIdx])
		text = text[open+2+closeIdx+2:]

		switch {
		case tag == "end":
			tokens = append(tokens, token{kind: tokenEnd})
		case strings.HasPrefix(tag, "if "):
			if key, ok := fieldKey(strings.TrimSpace(tag[3:])); ok {
				tokens = append(tokens, token{kind: tokenIf, text: key})
			}
		default:
			if key, ok := fieldKey(tag); ok {
				tokens = append(tokens, token{kind: tokenText, text: Stringify(data[key])})
			}
		}
	}
	return tokens
}

// resolveBlocks is the conditional pass over the token stream.
func resolveBlocks(tokens []token, data map[string]any) string {
	var b strings.Builder
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.kind {
		case tokenText:
			b.WriteString(tok.text)
		case tokenEnd:
			// stray end
		case tokenIf:
			keep := Truthy(data[tok.text])
			for i+1 < len(tokens) {
				i++
				inner := tokens[i]
				if inner.kind == tokenEnd {
					break
				}
				if inner.kind == tokenText && keep {
					b.WriteString(inner.text)
				}
			}
		}
	}
	return b.String()
}

// fieldKey parses ".key" into key.
func fieldKey(s string) (string, bool) {
	if !strings.HasPrefix(s, ".") || len(s) < 2 {
		return "", false
	}
	key := s[1:]
	for _, r := range key {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return "", false
		}
	}
	return key, true
}

// Truthy reports whether v counts as set: a non-empty string, a non-zero
// number, true, or any other non-nil value.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case float32:
		return t != 0 && !math.IsNaN(float64(t))
	case int:
		return t != 0
	case int64:
		return t != 0
	case int32:
		return t != 0
	case uint:
		return t != 0
	case uint64:
		return t != 0
	default:
		return true
	}
}

// Stringify converts a template value into its display form.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = Stringify(item)
		}
		return strings.Join(parts, ", ")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Number converts a template value to a float64 when it holds a number or a
// numeric string.
func Number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
