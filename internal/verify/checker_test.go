package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smolbet/oracle/internal/model"
)

func newTestChecker() *Checker {
	return NewChecker(5*time.Second, 4, "test-agent/1.0", 1<<20, "", "", "")
}

func TestCheck_LiveLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><head><title>NEAR crosses $2</title></head><body>ok</body></html>`))
		}
	}))
	defer server.Close()

	checks := newTestChecker().Check(context.Background(), []model.OrganicResult{
		{Position: 1, Link: server.URL + "/article"},
	})

	if len(checks) != 1 {
		t.Fatalf("Expected 1 check, got %d", len(checks))
	}
	if !checks[0].Live || checks[0].StatusCode != http.StatusOK {
		t.Errorf("Expected live 200, got %+v", checks[0])
	}
	if checks[0].Title != "NEAR crosses $2" {
		t.Errorf("Expected extracted title, got %q", checks[0].Title)
	}
}

func TestCheck_DeadLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checks := newTestChecker().Check(context.Background(), []model.OrganicResult{
		{Position: 1, Link: server.URL + "/gone"},
	})

	if checks[0].Live {
		t.Errorf("Expected dead link, got %+v", checks[0])
	}
	if checks[0].StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", checks[0].StatusCode)
	}
}

func TestCheck_RobotsDisallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		w.Write([]byte("should not be fetched"))
	}))
	defer server.Close()

	checks := newTestChecker().Check(context.Background(), []model.OrganicResult{
		{Position: 1, Link: server.URL + "/private/page"},
	})

	if checks[0].Live {
		t.Errorf("Expected disallowed link to stay dead, got %+v", checks[0])
	}
	if !strings.Contains(checks[0].Error, "robots.txt") {
		t.Errorf("Expected robots.txt error, got %q", checks[0].Error)
	}
}

func TestCheck_RetriesTransientFailure(t *testing.T) {
	original := checkSleepFunc
	checkSleepFunc = func(time.Duration) {}
	defer func() { checkSleepFunc = original }()

	var pageHits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if atomic.AddInt32(&pageHits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	checks := newTestChecker().Check(context.Background(), []model.OrganicResult{
		{Position: 1, Link: server.URL + "/flaky"},
	})

	if !checks[0].Live {
		t.Errorf("Expected retry to recover, got %+v", checks[0])
	}
	if got := atomic.LoadInt32(&pageHits); got != 2 {
		t.Errorf("Expected 2 attempts, got %d", got)
	}
}

func TestCheck_NoRetryOnPermanentFailure(t *testing.T) {
	original := checkSleepFunc
	checkSleepFunc = func(time.Duration) {}
	defer func() { checkSleepFunc = original }()

	var pageHits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		atomic.AddInt32(&pageHits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	newTestChecker().Check(context.Background(), []model.OrganicResult{
		{Position: 1, Link: server.URL + "/gone"},
	})

	if got := atomic.LoadInt32(&pageHits); got != 1 {
		t.Errorf("Expected a single attempt for 404, got %d", got)
	}
}

func TestCheck_EmptyResults(t *testing.T) {
	if checks := newTestChecker().Check(context.Background(), nil); checks != nil {
		t.Errorf("Expected nil for empty input, got %+v", checks)
	}
}

func TestCheck_PreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	results := []model.OrganicResult{
		{Position: 1, Link: server.URL + "/a"},
		{Position: 2, Link: server.URL + "/b"},
		{Position: 3, Link: server.URL + "/c"},
	}

	checks := newTestChecker().Check(context.Background(), results)
	if len(checks) != 3 {
		t.Fatalf("Expected 3 checks, got %d", len(checks))
	}
	for i, r := range results {
		if checks[i].URL != r.Link {
			t.Errorf("Check %d: expected %s, got %s", i, r.Link, checks[i].URL)
		}
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"simple", `<html><head><title>Hello</title></head></html>`, "Hello"},
		{"whitespace", "<title>\n  Spaced \n</title>", "Spaced"},
		{"no title", `<html><body>nothing</body></html>`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTitle(strings.NewReader(tt.html)); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
