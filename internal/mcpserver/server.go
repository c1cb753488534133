// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Munin journal tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/munin/internal/eventservice"
	"github.com/starford/munin/internal/journal"
)

// Server wraps the MCP server with Munin tools.
type Server struct {
	mcp *server.MCPServer
	svc *eventservice.Service
}

// New creates a new MCP server with all Munin tools registered.
func New(svc *eventservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Munin",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("record_event",
		mcp.WithDescription("Append one event to the shared journal. "+
			"Events MUST follow the event format contract (lowercase snake_case "+
			"type, JSON object payload). Read the contract first via the "+
			"get_event_contract tool or the munin://event-format resource."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Event kind, e.g. health_snapshot, alert, intervention")),
		mcp.WithString("namespace", mcp.Description("Source namespace, e.g. monitoring")),
		mcp.WithString("origin", mcp.Description("Originating component name")),
		mcp.WithString("actor", mcp.Description("Optional actor identifier")),
		mcp.WithString("payload", mcp.Description("Event payload as a JSON object string")),
	), s.recordEvent)

	s.mcp.AddTool(mcp.NewTool("search_events",
		mcp.WithDescription("Full-text search through event kinds, origins, and payloads."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchEvents)

	s.mcp.AddTool(mcp.NewTool("recent_events",
		mcp.WithDescription("List the most recently recorded events, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of events to return (default 20)")),
	), s.recentEvents)

	s.mcp.AddTool(mcp.NewTool("journal_summary",
		mcp.WithDescription("Returns the journal's general metadata, total event count, and per-kind counts."),
	), s.journalSummary)

	s.mcp.AddTool(mcp.NewTool("get_event_contract",
		mcp.WithDescription("Returns the canonical Munin event format contract. "+
			"Call this before recording events to ensure correct structure."),
	), s.getEventContract)

	// Resource: event format contract.
	s.mcp.AddResource(
		mcp.NewResource("munin://event-format", "Event Format Contract",
			mcp.WithResourceDescription("Canonical event structure that all journal producers must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEventFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) recordEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := req.GetArguments()
	namespace, _ := args["namespace"].(string)
	origin, _ := args["origin"].(string)
	actor, _ := args["actor"].(string)
	if origin == "" {
		origin = "mcp"
	}

	var payload map[string]any
	if raw, ok := args["payload"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("payload is not a JSON object: %v", err)), nil
		}
	}

	rec, err := s.svc.Record(ctx, journal.Event{
		Type:      kind,
		Namespace: namespace,
		Origin:    origin,
		Actor:     actor,
		Payload:   payload,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("recorded: %s (seq %d)", rec.Event.Type, rec.Seq)), nil
}

func (s *Server) searchEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) recentEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 20
	if f, ok := req.GetArguments()["limit"].(float64); ok && f > 0 {
		limit = int(f)
	}
	rows, err := s.svc.Recent(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(rows, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) journalSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.svc.Summary(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(sum, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getEventContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EventFormatContract), nil
}

func (s *Server) readEventFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "munin://event-format",
			MIMEType: "text/markdown",
			Text:     EventFormatContract,
		},
	}, nil
}
