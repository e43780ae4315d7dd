package wayback

import (
	"net/url"
	"strings"
	"testing"
)

func TestCollapseFilter(t *testing.T) {
	tests := []struct {
		frequency string
		expected  string
	}{
		{"daily", "timestamp:8"},
		{"monthly", "timestamp:6"},
		{"annually", "timestamp:4"},
		{"Monthly", "timestamp:6"},
		{"unknown", "timestamp:8"},
	}

	for _, test := range tests {
		if got := CollapseFilter(test.frequency); got != test.expected {
			t.Errorf("CollapseFilter(%q) = %q, want %q", test.frequency, got, test.expected)
		}
	}
}

func TestCDXQueryURL(t *testing.T) {
	raw := CDXQueryURL("http://example.com/robots.txt", "20200101", "20201231", "timestamp:6")

	if !strings.HasPrefix(raw, CDXEndpoint+"?") {
		t.Fatalf("Expected query URL to start with the CDX endpoint, got %s", raw)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Failed to parse query URL: %v", err)
	}
	params := parsed.Query()

	if got := params.Get("url"); got != "http://example.com/robots.txt" {
		t.Errorf("Expected url param to be the target, got %q", got)
	}
	if got := params.Get("output"); got != "json" {
		t.Errorf("Expected JSON output, got %q", got)
	}
	if got := params.Get("from"); got != "20200101" {
		t.Errorf("Expected from=20200101, got %q", got)
	}
	if got := params.Get("to"); got != "20201231" {
		t.Errorf("Expected to=20201231, got %q", got)
	}
	if got := params.Get("collapse"); got != "timestamp:6" {
		t.Errorf("Expected collapse=timestamp:6, got %q", got)
	}
	if got := params.Get("fl"); got != "timestamp,original,mimetype,statuscode,digest" {
		t.Errorf("Unexpected field list %q", got)
	}

	filters := params["filter"]
	if len(filters) != 2 {
		t.Fatalf("Expected 2 filters, got %v", filters)
	}
	if filters[0] != "!statuscode:404" || filters[1] != "!mimetype:warc/revisit" {
		t.Errorf("Unexpected filters %v", filters)
	}
}

func TestSnapshotURL(t *testing.T) {
	got := SnapshotURL("20230215120000", "http://example.com/robots.txt")
	want := "https://web.archive.org/web/20230215120000id_/http://example.com/robots.txt"
	if got != want {
		t.Errorf("SnapshotURL = %q, want %q", got, want)
	}
}
