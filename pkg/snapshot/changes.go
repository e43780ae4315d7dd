package snapshot

import (
	"sort"

	"waycrawl/pkg/wayback"
)

// ChangeRecord reports how often a URL's content changed across the index
// entries in range, independent of sampling frequency.
type ChangeRecord struct {
	URL         string `json:"url"`
	ChangeCount int    `json:"change_count"`
}

// CountChanges orders refs by timestamp and counts adjacent-pair digest
// transitions. The first entry contributes no comparison; zero or one ref
// yields a count of 0. No content is fetched: only the digests already
// present on the index entries are compared.
func CountChanges(url string, refs []wayback.SnapshotRef) ChangeRecord {
	record := ChangeRecord{URL: url}
	if len(refs) < 2 {
		return record
	}

	ordered := make([]wayback.SnapshotRef, len(refs))
	copy(ordered, refs)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	for i := 1; i < len(ordered); i++ {
		if ordered[i].Digest != ordered[i-1].Digest {
			record.ChangeCount++
		}
	}

	return record
}
