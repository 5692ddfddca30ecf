package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"hookrelay/internal/common"
	"hookrelay/internal/domain/ask"
	"hookrelay/internal/domain/notification"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultAskTimeoutSeconds applies when ask_question is called without a timeout.
const DefaultAskTimeoutSeconds = 300

// NotifyInput represents input for the notify tool.
type NotifyInput struct {
	Body         string         `json:"body" jsonschema:"Notification text"`
	Title        string         `json:"title,omitempty" jsonschema:"Optional title"`
	Template     string         `json:"template,omitempty" jsonschema:"Built-in template: status, question, progress or problem"`
	TemplateData map[string]any `json:"templateData,omitempty" jsonschema:"Values substituted into the template"`
}

// FullNotifyInput represents input for the full_notify tool.
type FullNotifyInput struct {
	Body         string                `json:"body" jsonschema:"Notification text"`
	Title        string                `json:"title,omitempty" jsonschema:"Optional title"`
	Link         string                `json:"link,omitempty" jsonschema:"URL the notification points to"`
	ImageURL     string                `json:"imageUrl,omitempty" jsonschema:"Remote image URL"`
	Image        string                `json:"image,omitempty" jsonschema:"Local image path"`
	Priority     int                   `json:"priority,omitempty" jsonschema:"Priority from 1 (lowest) to 5 (highest)"`
	Attachments  []string              `json:"attachments,omitempty" jsonschema:"Attachment URLs"`
	Actions      []notification.Action `json:"actions,omitempty" jsonschema:"Interactive buttons (view or http)"`
	Template     string                `json:"template,omitempty" jsonschema:"Built-in template: status, question, progress or problem"`
	TemplateData map[string]any        `json:"templateData,omitempty" jsonschema:"Values substituted into the template"`
}

// LegacyNotifyInput represents input for the notify-feishu tool.
type LegacyNotifyInput struct {
	Message string `json:"message" jsonschema:"Notification text"`
}

// AskQuestionInput represents input for the ask_question tool.
type AskQuestionInput struct {
	Question       string `json:"question" jsonschema:"Question shown to the user"`
	Title          string `json:"title,omitempty" jsonschema:"Optional page title"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty" jsonschema:"Seconds to wait for an answer (10-3600, default 300)"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server,
		&mcp.Tool{
			Name:        "notify",
			Description: "Send a notification to the configured webhook.",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, args NotifyInput) (*mcp.CallToolResult, any, error) {
			return s.handleNotify(ctx, args)
		},
	)

	mcp.AddTool(s.server,
		&mcp.Tool{
			Name:        "full_notify",
			Description: "Send a notification with links, images, priority, attachments, actions and templates.",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, args FullNotifyInput) (*mcp.CallToolResult, any, error) {
			return s.handleFullNotify(ctx, args)
		},
	)

	// Kept for clients configured against the first release
	mcp.AddTool(s.server,
		&mcp.Tool{
			Name:        "notify-feishu",
			Description: "Send a plain text notification to the configured webhook.",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, args LegacyNotifyInput) (*mcp.CallToolResult, any, error) {
			return s.send(ctx, &notification.Message{Body: args.Message})
		},
	)

	if s.coordinator == nil {
		return
	}
	mcp.AddTool(s.server,
		&mcp.Tool{
			Name:        "ask_question",
			Description: "Ask the user a question through a web page and wait for the answer.",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, args AskQuestionInput) (*mcp.CallToolResult, any, error) {
			return s.handleAskQuestion(ctx, args)
		},
	)
}

func (s *Server) handleNotify(ctx context.Context, args NotifyInput) (*mcp.CallToolResult, any, error) {
	return s.send(ctx, &notification.Message{
		Title:        args.Title,
		Body:         args.Body,
		Template:     args.Template,
		TemplateData: args.TemplateData,
	})
}

func (s *Server) handleFullNotify(ctx context.Context, args FullNotifyInput) (*mcp.CallToolResult, any, error) {
	for i, a := range args.Actions {
		if err := validateAction(a); err != nil {
			return toolError(fmt.Sprintf("Invalid action %d: %s", i+1, err))
		}
	}
	return s.send(ctx, &notification.Message{
		Title:        args.Title,
		Body:         args.Body,
		Link:         args.Link,
		ImageURL:     args.ImageURL,
		ImagePath:    args.Image,
		Priority:     args.Priority,
		Attachments:  args.Attachments,
		Actions:      args.Actions,
		Template:     args.Template,
		TemplateData: args.TemplateData,
	})
}

func (s *Server) handleAskQuestion(ctx context.Context, args AskQuestionInput) (*mcp.CallToolResult, any, error) {
	timeout := args.TimeoutSeconds
	if timeout == 0 {
		timeout = DefaultAskTimeoutSeconds
	}

	ticket, err := s.coordinator.Ask(args.Question, args.Title, timeout)
	if err != nil {
		return toolError("Failed to ask question: " + err.Error())
	}

	// The question stays answerable from the logged URL when the announcement fails
	announce := s.sender.Send(ctx, announcement(args, ticket))
	if !announce.Delivered {
		slog.Warn("Question announcement failed",
			"question_id", ticket.ID,
			"url", ticket.URL,
			"error", announce.Err,
		)
	}

	answer, err := ticket.Wait(ctx)
	if err != nil {
		var timeoutErr *common.AnswerTimeoutError
		if errors.As(err, &timeoutErr) {
			return toolError("Failed to get answer: " + timeoutErr.Error())
		}
		return toolError("Stopped waiting for answer: " + err.Error())
	}
	return toolSuccess("User answered: " + answer)
}

// announcement builds the notification that points the user at the answer page.
func announcement(args AskQuestionInput, ticket *ask.Ticket) *notification.Message {
	title := args.Title
	if title == "" {
		title = "Question"
	}
	return &notification.Message{
		Title: title,
		Body:  args.Question + "\n\nAnswer here: " + ticket.URL,
		Link:  ticket.URL,
		Actions: []notification.Action{
			{Action: notification.ActionView, Label: "Answer", URL: ticket.URL},
		},
	}
}

func (s *Server) send(ctx context.Context, msg *notification.Message) (*mcp.CallToolResult, any, error) {
	outcome := s.sender.Send(ctx, msg)
	if !outcome.Delivered {
		return toolError(outcome.Text())
	}
	return toolSuccess(outcome.Text())
}

// validateAction mirrors the binding rules the HTTP API applies to actions.
func validateAction(a notification.Action) error {
	switch a.Action {
	case notification.ActionView, notification.ActionHTTP:
	default:
		return fmt.Errorf("action must be view or http, got %q", a.Action)
	}
	if strings.TrimSpace(a.Label) == "" {
		return errors.New("label is required")
	}
	if strings.TrimSpace(a.URL) == "" {
		return errors.New("url is required")
	}
	switch a.Method {
	case "", "GET", "POST", "PUT", "DELETE":
	default:
		return fmt.Errorf("method must be GET, POST, PUT or DELETE, got %q", a.Method)
	}
	return nil
}

func toolError(message string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}, nil, nil
}

func toolSuccess(message string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
	}, nil, nil
}
