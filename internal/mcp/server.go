// Package mcp exposes notification delivery and the ask/answer workflow as
// MCP tools over stdio.
package mcp

import (
	"context"
	"log/slog"

	"hookrelay/internal/domain/ask"
	"hookrelay/internal/domain/notification"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server and the collaborators its tools call.
type Server struct {
	server      *mcp.Server
	sender      notification.Sender
	coordinator *ask.Coordinator
}

// NewServer creates an MCP server with the notification tools registered.
// ask_question is only registered when coordinator is non-nil.
func NewServer(sender notification.Sender, coordinator *ask.Coordinator, version string) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "hookrelay",
			Version: version,
		}, nil),
		sender:      sender,
		coordinator: coordinator,
	}
	s.registerTools()
	return s
}

// Run serves tools on stdin/stdout until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("MCP server listening on stdio", "ask_enabled", s.coordinator != nil)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying server, for connecting other transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
