package db

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleRecentOutcomes(t *testing.T) {
	db := newTestDB(t)
	for _, key := range []string{"a", "b", "c"} {
		if _, err := db.InsertOutcome(t.Context(), key, key == "b"); err != nil {
			t.Fatalf("InsertOutcome failed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/debug/outcomes?limit=2", nil)
	w := httptest.NewRecorder()
	db.handleRecentOutcomes(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var got []Outcome
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 outcomes, got %d", len(got))
	}
}

func TestHandleRecentOutcomesEmpty(t *testing.T) {
	db := newTestDB(t)

	req := httptest.NewRequest(http.MethodGet, "/debug/outcomes", nil)
	w := httptest.NewRecorder()
	db.handleRecentOutcomes(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want empty JSON array", body)
	}
}

func TestHandleRecentOutcomesBadLimit(t *testing.T) {
	db := newTestDB(t)

	for _, limit := range []string{"x", "0", "-1", "10001"} {
		req := httptest.NewRequest(http.MethodGet, "/debug/outcomes?limit="+limit, nil)
		w := httptest.NewRecorder()
		db.handleRecentOutcomes(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, w.Code)
		}
	}
}

func TestHandleBackup(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.InsertOutcome(t.Context(), "k", true); err != nil {
		t.Fatalf("InsertOutcome failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
	w := httptest.NewRecorder()
	db.handleBackup(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/gzip" {
		t.Errorf("Content-Type = %q", ct)
	}
	gz, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("Failed to read gzip stream: %v", err)
	}
	data, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("Failed to decompress backup: %v", err)
	}
	if len(data) < 16 || string(data[:15]) != "SQLite format 3" {
		t.Error("Expected backup to be an SQLite database")
	}
}

func TestAttachAdminRoutes(t *testing.T) {
	db := newTestDB(t)
	mux := http.NewServeMux()
	if err := db.AttachAdminRoutes(mux); err != nil {
		t.Fatalf("AttachAdminRoutes failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/debug/outcomes", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
