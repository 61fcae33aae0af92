package alert

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func capturePayload(t *testing.T) (*httptest.Server, *string) {
	t.Helper()
	var content string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode webhook payload: %v", err)
		}
		content = payload["content"]
	}))
	t.Cleanup(srv.Close)
	return srv, &content
}

func TestNotify_FormatsMessage(t *testing.T) {
	srv, content := capturePayload(t)

	n := NewNotifier(srv.URL, testLogger())
	n.Notify("Scrape failed", Options{
		Severity:  "error",
		Component: "scraper",
		Err:       errors.New("connection refused"),
		Extra:     map[string]any{"pagesFetched": 0},
	})

	want := "**ERROR** [scraper] Scrape failed\nError: connection refused\npagesFetched: 0"
	if *content != want {
		t.Errorf("content = %q, want %q", *content, want)
	}
}

func TestNotify_DefaultSeverity(t *testing.T) {
	srv, content := capturePayload(t)

	n := NewNotifier(srv.URL, testLogger())
	n.Notify("hello", Options{})

	if !strings.HasPrefix(*content, "**INFO** hello") {
		t.Errorf("content = %q, want INFO prefix", *content)
	}
}

func TestNotify_TruncatesLongFields(t *testing.T) {
	srv, content := capturePayload(t)

	n := NewNotifier(srv.URL, testLogger())
	n.Notify(strings.Repeat("x", 5000), Options{})

	lines := strings.Split(*content, "\n")
	if got := len(lines[0]); got > len("**INFO** ")+maxFieldLen {
		t.Errorf("message line length = %d, want <= %d", got, len("**INFO** ")+maxFieldLen)
	}
}

func TestNotify_TruncatesOnRuneBoundary(t *testing.T) {
	srv, content := capturePayload(t)

	// 2-byte runes arranged so the byte cap lands mid-rune.
	msg := "x" + strings.Repeat("ä", maxFieldLen)
	n := NewNotifier(srv.URL, testLogger())
	n.Notify(msg, Options{})

	if !utf8.ValidString(*content) {
		t.Error("content contains an invalid UTF-8 sequence after truncation")
	}
	line := strings.Split(*content, "\n")[0]
	if got := len(line) - len("**INFO** "); got > maxFieldLen {
		t.Errorf("message field length = %d bytes, want <= %d", got, maxFieldLen)
	}
}

func TestNotify_NoopWithoutWebhook(t *testing.T) {
	n := NewNotifier("", testLogger())
	// Must not panic or attempt network IO.
	n.Notify("anything", Options{Severity: "error"})
}

func TestNotify_SwallowsSendFailure(t *testing.T) {
	// Unroutable destination; Notify must not panic and has no error to
	// return by design.
	n := NewNotifier("http://127.0.0.1:1/webhook", testLogger())
	n.Notify("anything", Options{})
}
