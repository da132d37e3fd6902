package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestGreenhouseFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/acme/jobs" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("content") != "true" {
			t.Fatalf("expected content=true query")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jobs": [
			{"id": 42, "title": "Backend Engineer", "absolute_url": "https://boards.greenhouse.io/acme/jobs/42",
			 "content": "Build services", "updated_at": "2025-06-01T10:00:00Z", "location": {"name": "Berlin, Germany"}}
		]}`))
	}))
	defer server.Close()

	adapter, err := NewGreenhouse(Config{Board: "acme", Company: "Acme"}, NewClient(time.Second, zap.NewNop()), zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	adapter.APIURL = server.URL

	raw, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(raw) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(raw))
	}
	p := raw[0]
	if p.ExternalID != "42" {
		t.Fatalf("unexpected external id: %s", p.ExternalID)
	}
	if p.Title != "Backend Engineer" || p.Company != "Acme" {
		t.Fatalf("unexpected posting: %+v", p)
	}
	if p.Location != "Berlin, Germany" {
		t.Fatalf("unexpected location: %s", p.Location)
	}
	if p.PostedAt != "2025-06-01T10:00:00Z" {
		t.Fatalf("unexpected posted_at: %s", p.PostedAt)
	}
}

func TestGreenhouseFetchBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "board not found", http.StatusNotFound)
	}))
	defer server.Close()

	adapter, err := NewGreenhouse(Config{Board: "gone"}, NewClient(time.Second, zap.NewNop()), zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	adapter.APIURL = server.URL

	if _, err := adapter.Fetch(context.Background()); err == nil {
		t.Fatalf("expected an error for a missing board")
	}
}

func TestGreenhouseRequiresBoard(t *testing.T) {
	if _, err := NewGreenhouse(Config{}, nil, zap.NewNop()); err == nil {
		t.Fatalf("expected an error without a board token")
	}
}

func TestGreenhouseCompanyFallsBackToBoard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"jobs": [{"id": 1, "title": "Engineer", "absolute_url": "https://x", "location": {"name": "Berlin"}}]}`))
	}))
	defer server.Close()

	adapter, _ := NewGreenhouse(Config{Board: "acme"}, NewClient(time.Second, zap.NewNop()), zap.NewNop())
	adapter.APIURL = server.URL

	raw, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw[0].Company != "acme" {
		t.Fatalf("expected the board token as company fallback, got %q", raw[0].Company)
	}
}
