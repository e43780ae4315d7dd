package snapshot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"waycrawl/pkg/wayback"
)

// Frequency is the sampling frequency used to bucket captures
type Frequency string

const (
	Daily    Frequency = "daily"
	Monthly  Frequency = "monthly"
	Annually Frequency = "annually"
)

// ParseFrequency validates and normalizes a frequency string
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(strings.ToLower(s)) {
	case Daily:
		return Daily, nil
	case Monthly:
		return Monthly, nil
	case Annually:
		return Annually, nil
	default:
		return "", fmt.Errorf("unknown frequency %q", s)
	}
}

// BucketKey maps a capture time onto its bucket: the calendar day, month,
// or year it falls in.
func (f Frequency) BucketKey(t time.Time) string {
	switch f {
	case Daily:
		return t.Format("2006-01-02")
	case Monthly:
		return t.Format("2006-01")
	case Annually:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}

// Select picks one representative capture per bucket: the earliest capture
// whose timestamp falls inside the bucket ("first capture of the period").
// Buckets with no captures produce no entry. Captures outside
// [start, end] (end inclusive through end of day) are ignored.
//
// The result is ordered by strictly increasing timestamp, one entry per
// distinct bucket. Consecutive entries may share a digest; deduplication
// is the change counter's concern, not selection's.
func Select(refs []wayback.SnapshotRef, start, end time.Time, freq Frequency) []wayback.SnapshotRef {
	if len(refs) == 0 {
		return nil
	}

	rangeEnd := end.AddDate(0, 0, 1)

	ordered := make([]wayback.SnapshotRef, 0, len(refs))
	for _, ref := range refs {
		if ref.Timestamp.Before(start) || !ref.Timestamp.Before(rangeEnd) {
			continue
		}
		ordered = append(ordered, ref)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	seen := make(map[string]bool)
	selected := make([]wayback.SnapshotRef, 0, len(ordered))
	for _, ref := range ordered {
		key := freq.BucketKey(ref.Timestamp)
		if seen[key] {
			continue
		}
		seen[key] = true
		selected = append(selected, ref)
	}

	return selected
}
