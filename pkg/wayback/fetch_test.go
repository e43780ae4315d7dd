package wayback

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	errs "waycrawl/pkg/errors"
	"waycrawl/pkg/ratelimit"
)

func newTestFetcher(serverURL string) *ContentFetcher {
	client := NewClient(5*time.Second, nil)
	cf := NewContentFetcher(client, ratelimit.NewSlidingWindow(100, time.Second), testRetryConfig(), nil)
	cf.baseURL = serverURL
	return cf
}

func testRef() SnapshotRef {
	ts, _ := time.Parse(cdxTimestampLayout, "20230215120000")
	return SnapshotRef{
		Timestamp: ts,
		Raw:       "20230215120000",
		Original:  "http://example.com/robots.txt",
		Digest:    "AAAA",
	}
}

func TestFetchSuccess(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("User-agent: *\nDisallow: /private"))
	}))
	defer server.Close()

	cf := newTestFetcher(server.URL)
	content, err := cf.Fetch(context.Background(), testRef())
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if content != "User-agent: *\nDisallow: /private" {
		t.Errorf("Unexpected content %q", content)
	}

	// The replay path carries the timestamp and the id_ flag
	if !strings.Contains(gotPath, "/web/20230215120000id_/") {
		t.Errorf("Expected replay path with id_ flag, got %s", gotPath)
	}
}

func TestFetchMissingSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cf := newTestFetcher(server.URL)
	_, err := cf.Fetch(context.Background(), testRef())

	var apiErr *errs.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected typed error, got %v", err)
	}
	if apiErr.Type != errs.ErrorTypeNotFound {
		t.Errorf("Expected not_found, got %s", apiErr.Type)
	}
	// The failed capture must be identifiable in the failure log
	if apiErr.Timestamp != "20230215120000" {
		t.Errorf("Expected error stamped with the capture timestamp, got %q", apiErr.Timestamp)
	}
}

func TestFetchBinaryContentFailsDecode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte{0x89, 'P', 'N', 'G', 0x00, 0x01, 0x02})
	}))
	defer server.Close()

	cf := newTestFetcher(server.URL)
	_, err := cf.Fetch(context.Background(), testRef())

	var apiErr *errs.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected typed error, got %v", err)
	}
	if apiErr.Type != errs.ErrorTypeDecode {
		t.Errorf("Expected decode error for binary content, got %s", apiErr.Type)
	}
}

func TestDecodeText(t *testing.T) {
	t.Run("plain UTF-8", func(t *testing.T) {
		got, err := decodeText([]byte("héllo wörld"), "text/html; charset=utf-8")
		if err != nil {
			t.Fatalf("Expected success, got %v", err)
		}
		if got != "héllo wörld" {
			t.Errorf("Unexpected content %q", got)
		}
	})

	t.Run("latin-1 transcoded", func(t *testing.T) {
		// "café" in ISO-8859-1: é is 0xE9
		raw := []byte{'c', 'a', 'f', 0xE9}
		got, err := decodeText(raw, "text/html; charset=iso-8859-1")
		if err != nil {
			t.Fatalf("Expected success, got %v", err)
		}
		if got != "café" {
			t.Errorf("Expected transcoded content %q, got %q", "café", got)
		}
	})

	t.Run("NUL bytes rejected", func(t *testing.T) {
		if _, err := decodeText([]byte{'a', 0x00, 'b'}, "text/plain"); err == nil {
			t.Error("Expected error for content with NUL bytes")
		}
	})

	t.Run("empty body", func(t *testing.T) {
		got, err := decodeText(nil, "text/plain")
		if err != nil {
			t.Fatalf("Expected success for empty body, got %v", err)
		}
		if got != "" {
			t.Errorf("Expected empty string, got %q", got)
		}
	})
}
