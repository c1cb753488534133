package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/munin/internal/eventservice"
	"github.com/starford/munin/internal/testutil"
)

// testEnv sets up a temp journal, SQLite DB, service, and router for testing.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string) (*eventservice.Service, http.Handler) {
	t.Helper()
	svc := eventservice.NewService(testutil.TestJournal(t), testutil.TestDB(t))
	router := NewRouter(svc, authToken != "", authToken, nil)
	return svc, router
}

func recordBody(kind string) []byte {
	body, _ := json.Marshal(map[string]any{
		"type":      kind,
		"namespace": "monitoring",
		"origin":    "api-test",
		"payload":   map[string]any{"n": 1},
	})
	return body
}

func TestRecordAndListEvents(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(recordBody("alert")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("record status = %d, body = %s", w.Code, w.Body.String())
	}
	var rec Recorded
	_ = json.Unmarshal(w.Body.Bytes(), &rec)
	if rec.Seq != 1 || rec.Event.Type != "alert" {
		t.Errorf("recorded = %+v", rec)
	}
	if rec.Event.Timestamp == "" {
		t.Error("timestamp missing from response")
	}

	req = httptest.NewRequest(http.MethodGet, "/events", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list EventListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 || len(list.Events) != 1 {
		t.Errorf("list = %+v", list)
	}
}

func TestRecordRejectsMissingType(t *testing.T) {
	_, router := testEnv(t, "")
	body, _ := json.Marshal(map[string]string{"origin": "api-test"})
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRecordRejectsInvalidJSON(t *testing.T) {
	_, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListFilters(t *testing.T) {
	_, router := testEnv(t, "")
	for _, kind := range []string{"alert", "alert", "reminder"} {
		req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(recordBody(kind)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("record %s = %d", kind, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/events?kind=alert", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var list EventListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 2 {
		t.Errorf("filtered total = %d, want 2", list.Total)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	_, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodGet, "/events/search", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSearchFindsPayloadText(t *testing.T) {
	_, router := testEnv(t, "")
	body, _ := json.Marshal(map[string]any{
		"type":    "alert",
		"origin":  "detector",
		"payload": map[string]any{"message": "disk pressure on node7"},
	})
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("record = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/events/search?q=node7", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var res SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Results) == 0 {
		t.Error("no search hits for payload text")
	}
}

func TestSummary(t *testing.T) {
	_, router := testEnv(t, "")
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(recordBody("alert")))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}

	req := httptest.NewRequest(http.MethodGet, "/summary", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("summary = %d", w.Code)
	}
	var sum Summary
	_ = json.Unmarshal(w.Body.Bytes(), &sum)
	if sum.Total != 3 {
		t.Errorf("total = %d", sum.Total)
	}
	if sum.General["last_event_type"] != "alert" {
		t.Errorf("general = %v", sum.General)
	}
}

func TestAuthTokenMode(t *testing.T) {
	_, router := testEnv(t, "secret")

	// No token.
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	// Wrong token.
	req = httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}

	// Correct token.
	req = httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", "secret"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", w.Code)
	}
}
