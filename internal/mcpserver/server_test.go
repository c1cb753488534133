package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/munin/internal/eventservice"
	"github.com/starford/munin/internal/index"
	"github.com/starford/munin/internal/journal"
	"github.com/starford/munin/internal/testutil"
)

func testServer(t *testing.T) (*Server, *eventservice.Service) {
	t.Helper()

	j := testutil.TestJournal(t)
	db := testutil.TestDB(t)

	svc := eventservice.NewService(j, db)
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "record_event":
		result, err = srv.recordEvent(ctx, req)
	case "search_events":
		result, err = srv.searchEvents(ctx, req)
	case "recent_events":
		result, err = srv.recentEvents(ctx, req)
	case "journal_summary":
		result, err = srv.journalSummary(ctx, req)
	case "get_event_contract":
		result, err = srv.getEventContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestRecordEventTool(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "record_event", map[string]interface{}{
		"type":    "health_snapshot",
		"origin":  "watchdog",
		"payload": `{"cpu_percent": 41.5}`,
	})
	text := resultText(r)
	if text != "recorded: health_snapshot (seq 1)" {
		t.Errorf("record result = %q", text)
	}
}

func TestRecordEventRequiresType(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "record_event", map[string]interface{}{
		"origin": "watchdog",
	})
	if !r.IsError {
		t.Error("expected error when type is missing")
	}
}

func TestRecordEventRejectsBadPayload(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "record_event", map[string]interface{}{
		"type":    "alert",
		"payload": "not json",
	})
	if !r.IsError {
		t.Error("expected error for malformed payload")
	}
}

func TestRecentEventsTool(t *testing.T) {
	srv, _ := testServer(t)

	for _, kind := range []string{"alert", "intervention", "alert"} {
		callTool(t, srv, "record_event", map[string]interface{}{"type": kind})
	}

	r := callTool(t, srv, "recent_events", map[string]interface{}{"limit": float64(2)})
	var rows []index.EventRow
	if err := json.Unmarshal([]byte(resultText(r)), &rows); err != nil {
		t.Fatalf("recent_events output is not JSON: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Seq != 3 {
		t.Errorf("first row seq = %d, want 3 (newest first)", rows[0].Seq)
	}
}

func TestJournalSummaryTool(t *testing.T) {
	srv, _ := testServer(t)

	callTool(t, srv, "record_event", map[string]interface{}{"type": "alert"})

	r := callTool(t, srv, "journal_summary", map[string]interface{}{})
	var sum eventservice.Summary
	if err := json.Unmarshal([]byte(resultText(r)), &sum); err != nil {
		t.Fatalf("journal_summary output is not JSON: %v", err)
	}
	if sum.Total != 1 {
		t.Errorf("total = %d, want 1", sum.Total)
	}
	if sum.General[journal.GeneralLastEventType] != "alert" {
		t.Errorf("last_event_type = %v", sum.General[journal.GeneralLastEventType])
	}
}

func TestSearchEventsTool(t *testing.T) {
	srv, _ := testServer(t)

	callTool(t, srv, "record_event", map[string]interface{}{
		"type":    "alert",
		"payload": `{"message": "disk pressure on node7"}`,
	})

	r := callTool(t, srv, "search_events", map[string]interface{}{"query": "node7"})
	if !strings.Contains(resultText(r), "node7") {
		t.Errorf("search result missing match: %q", resultText(r))
	}
}

func TestEventContract(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_event_contract", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "snake_case") {
		t.Errorf("contract missing expected content: %q", text)
	}

	contents, err := srv.readEventFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.Text != EventFormatContract {
		t.Error("resource does not serve the contract")
	}
}
