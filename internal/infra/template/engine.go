package template

import (
	"sort"
	"strings"

	"hookrelay/internal/common"
)

// Template is a named title/message pattern.
type Template struct {
	Title   string
	Message string
}

// Built-in template names.
const (
	Status   = "status"
	Question = "question"
	Progress = "progress"
	Problem  = "problem"
)

// registry holds the built-in templates. It is never written after init.
var registry = map[string]Template{
	Status: {
		Title: "Status Update: {{.status}}",
		Message: `
Status: {{.status}}
{{if .details}}Details: {{.details}}{{end}}
{{if .timestamp}}Time: {{.timestamp}}{{end}}
{{if .component}}Component: {{.component}}{{end}}
`,
	},
	Question: {
		Title: "Question: {{.question}}",
		Message: `
Question: {{.question}}
{{if .context}}Context: {{.context}}{{end}}
{{if .options}}Options: {{.options}}{{end}}
{{if .deadline}}Response needed by: {{.deadline}}{{end}}
`,
	},
	Progress: {
		Title: "Progress: {{.title}}",
		Message: `
Task: {{.title}}
Progress: {{.current}}/{{.total}}{{if .percentage}} ({{.percentage}}%){{end}}
{{if .eta}}ETA: {{.eta}}{{end}}
{{if .details}}Details: {{.details}}{{end}}
`,
	},
	Problem: {
		Title: "Problem: {{.title}}",
		Message: `
Error: {{.title}}
{{if .description}}Description: {{.description}}{{end}}
{{if .severity}}Severity: {{.severity}}{{end}}
{{if .source}}Source: {{.source}}{{end}}
{{if .timestamp}}Time: {{.timestamp}}{{end}}
{{if .solution}}Suggested Solution: {{.solution}}{{end}}
`,
	},
}

// Engine applies the built-in templates to template data.
type Engine struct {
	templates map[string]Template
}

// NewEngine creates an engine over the built-in registry.
func NewEngine() *Engine {
	return &Engine{templates: registry}
}

// Lookup returns the raw template registered under name.
func (e *Engine) Lookup(name string) (Template, bool) {
	t, ok := e.templates[name]
	return t, ok
}

// Has reports whether name is a built-in template.
func (e *Engine) Has(name string) bool {
	_, ok := e.templates[name]
	return ok
}

// Names lists the registered template names in sorted order.
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply renders the named template's title and message with data.
func (e *Engine) Apply(name string, data map[string]any) (Template, error) {
	t, ok := e.templates[name]
	if !ok {
		return Template{}, &common.TemplateNotFoundError{Name: name}
	}
	return Template{
		Title:   Render(t.Title, data),
		Message: Render(t.Message, data),
	}, nil
}

// ApplyTrimmed is Apply for chat cards: surrounding whitespace is removed.
func (e *Engine) ApplyTrimmed(name string, data map[string]any) (Template, error) {
	t, err := e.Apply(name, data)
	if err != nil {
		return Template{}, err
	}
	t.Title = strings.TrimSpace(t.Title)
	t.Message = strings.TrimSpace(t.Message)
	return t, nil
}
