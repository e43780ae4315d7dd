package wayback

import "time"

// cdxTimestampLayout is the 14-digit capture timestamp format used by the
// CDX index and the replay endpoint.
const cdxTimestampLayout = "20060102150405"

// SnapshotRef is one entry from the CDX index: an available capture of a
// URL identified by its timestamp and content digest. Two refs with equal
// digests are presumed to have identical content.
type SnapshotRef struct {
	// Timestamp is the capture time parsed from the CDX timestamp field
	Timestamp time.Time
	// Raw is the original 14-digit timestamp string, used to build replay URLs
	Raw string
	// Original is the captured URL exactly as the archive recorded it
	Original string
	// Digest is the archive's content fingerprint for this capture
	Digest string
}

// Date returns the capture date in YYYY-MM-DD form
func (r SnapshotRef) Date() string {
	return r.Timestamp.Format("2006-01-02")
}
