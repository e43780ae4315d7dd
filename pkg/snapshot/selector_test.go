package snapshot

import (
	"testing"
	"time"

	"waycrawl/pkg/wayback"
)

func ref(ts, digest string) wayback.SnapshotRef {
	parsed, err := time.Parse("20060102150405", ts)
	if err != nil {
		panic(err)
	}
	return wayback.SnapshotRef{
		Timestamp: parsed,
		Raw:       ts,
		Original:  "http://example.com",
		Digest:    digest,
	}
}

func date(s string) time.Time {
	parsed, err := time.Parse("20060102", s)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		input   string
		want    Frequency
		wantErr bool
	}{
		{"daily", Daily, false},
		{"monthly", Monthly, false},
		{"annually", Annually, false},
		{"Monthly", Monthly, false},
		{"weekly", "", true},
		{"", "", true},
	}

	for _, test := range tests {
		got, err := ParseFrequency(test.input)
		if test.wantErr {
			if err == nil {
				t.Errorf("ParseFrequency(%q): expected error", test.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFrequency(%q): unexpected error %v", test.input, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseFrequency(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestBucketKey(t *testing.T) {
	ts := time.Date(2023, 2, 15, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		freq Frequency
		want string
	}{
		{Daily, "2023-02-15"},
		{Monthly, "2023-02"},
		{Annually, "2023"},
	}

	for _, test := range tests {
		if got := test.freq.BucketKey(ts); got != test.want {
			t.Errorf("%s.BucketKey = %q, want %q", test.freq, got, test.want)
		}
	}
}

func TestSelectMonthly(t *testing.T) {
	// January has two captures, February none, March one.
	refs := []wayback.SnapshotRef{
		ref("20230120090000", "BBBB"), // late January
		ref("20230105120000", "AAAA"), // early January, should win
		ref("20230310100000", "CCCC"),
	}

	selected := Select(refs, date("20230101"), date("20231231"), Monthly)

	if len(selected) != 2 {
		t.Fatalf("Expected 2 selections (Jan, Mar), got %d", len(selected))
	}
	if selected[0].Raw != "20230105120000" {
		t.Errorf("Expected earliest January capture, got %s", selected[0].Raw)
	}
	if selected[1].Raw != "20230310100000" {
		t.Errorf("Expected March capture, got %s", selected[1].Raw)
	}
}

func TestSelectFiltersRange(t *testing.T) {
	refs := []wayback.SnapshotRef{
		ref("20191231235959", "OLD"),  // before range
		ref("20200101000000", "AAAA"), // first instant of range
		ref("20200615120000", "BBBB"),
		ref("20201231235959", "CCCC"), // last day still included
		ref("20210101000000", "NEW"),  // after range
	}

	selected := Select(refs, date("20200101"), date("20201231"), Monthly)

	if len(selected) != 3 {
		t.Fatalf("Expected 3 selections, got %d", len(selected))
	}
	for _, s := range selected {
		if s.Digest == "OLD" || s.Digest == "NEW" {
			t.Errorf("Capture %s is outside the requested range", s.Raw)
		}
	}
}

func TestSelectStrictlyIncreasing(t *testing.T) {
	// Unsorted input with several captures per bucket
	refs := []wayback.SnapshotRef{
		ref("20230315000000", "E"),
		ref("20230101120000", "A"),
		ref("20230125000000", "B"),
		ref("20230301080000", "D"),
		ref("20230102060000", "C"),
	}

	selected := Select(refs, date("20230101"), date("20231231"), Monthly)

	seen := make(map[string]bool)
	for i, s := range selected {
		if i > 0 && !selected[i-1].Timestamp.Before(s.Timestamp) {
			t.Errorf("Selection not strictly increasing at %d: %v !< %v",
				i, selected[i-1].Timestamp, s.Timestamp)
		}
		key := Monthly.BucketKey(s.Timestamp)
		if seen[key] {
			t.Errorf("Bucket %s selected twice", key)
		}
		seen[key] = true
	}
}

func TestSelectDaily(t *testing.T) {
	refs := []wayback.SnapshotRef{
		ref("20230101080000", "A"),
		ref("20230101200000", "B"), // same day, dropped
		ref("20230102090000", "C"),
	}

	selected := Select(refs, date("20230101"), date("20230102"), Daily)
	if len(selected) != 2 {
		t.Fatalf("Expected 2 daily selections, got %d", len(selected))
	}
	if selected[0].Digest != "A" || selected[1].Digest != "C" {
		t.Errorf("Unexpected selections %v", selected)
	}
}

func TestSelectAnnually(t *testing.T) {
	refs := []wayback.SnapshotRef{
		ref("20210601000000", "A"),
		ref("20211201000000", "B"),
		ref("20220301000000", "C"),
	}

	selected := Select(refs, date("20210101"), date("20221231"), Annually)
	if len(selected) != 2 {
		t.Fatalf("Expected one selection per year, got %d", len(selected))
	}
}

func TestSelectEmpty(t *testing.T) {
	if got := Select(nil, date("20200101"), date("20201231"), Monthly); got != nil {
		t.Errorf("Expected nil for empty input, got %v", got)
	}
}

func TestSelectKeepsDuplicateDigests(t *testing.T) {
	// Identical content in adjacent months still yields one entry per month
	refs := []wayback.SnapshotRef{
		ref("20230105000000", "SAME"),
		ref("20230205000000", "SAME"),
	}

	selected := Select(refs, date("20230101"), date("20231231"), Monthly)
	if len(selected) != 2 {
		t.Errorf("Expected duplicate digests to be kept, got %d selections", len(selected))
	}
}
