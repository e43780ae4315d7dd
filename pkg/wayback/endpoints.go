package wayback

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the base URL of the web archive
	BaseURL = "https://web.archive.org"

	// CDXEndpoint is the snapshot index (CDX) API endpoint
	CDXEndpoint = BaseURL + "/cdx/search/cdx"

	// DefaultUserAgent is a desktop browser user agent, used for robots.txt
	// requests which some archived origins served per-agent
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/124.0.0.0 Safari/537.36"
)

// cdxFields is the field list requested from the CDX API
var cdxFields = []string{"timestamp", "original", "mimetype", "statuscode", "digest"}

// cdxFilters excludes captures with no usable content:
// 404 pages and revisit records (duplicates without a body).
var cdxFilters = []string{"!statuscode:404", "!mimetype:warc/revisit"}

// CollapseFilter returns the CDX collapse parameter that groups captures by
// the given sampling frequency: one capture per day, month, or year. The
// collapse works on timestamp prefixes (YYYYMMDD / YYYYMM / YYYY).
func CollapseFilter(frequency string) string {
	switch strings.ToLower(frequency) {
	case "daily":
		return "timestamp:8"
	case "monthly":
		return "timestamp:6"
	case "annually":
		return "timestamp:4"
	default:
		return "timestamp:8"
	}
}

// CDXQueryURL constructs the index query URL for all captures of target
// between startDate and endDate (inclusive, YYYYMMDD), pre-collapsed
// server-side by the given collapse filter.
//
// CDX documentation: https://github.com/internetarchive/wayback/tree/master/wayback-cdx-server
func CDXQueryURL(target, startDate, endDate, collapse string) string {
	return fmt.Sprintf("%s?%s", CDXEndpoint, cdxQueryParams(target, startDate, endDate, collapse).Encode())
}

func cdxQueryParams(target, startDate, endDate, collapse string) url.Values {
	params := url.Values{}
	params.Set("url", target)
	params.Set("output", "json")
	params.Set("from", startDate)
	params.Set("to", endDate)
	params.Set("collapse", collapse)
	params.Set("fl", strings.Join(cdxFields, ","))
	for _, f := range cdxFilters {
		params.Add("filter", f)
	}
	return params
}

// SnapshotURL constructs the replay URL for the capture of original taken
// at the given 14-digit timestamp. The id_ flag requests the original
// captured bytes rather than the archive-rewritten page.
func SnapshotURL(timestamp, original string) string {
	return snapshotURLAt(BaseURL, timestamp, original)
}

func snapshotURLAt(base, timestamp, original string) string {
	return fmt.Sprintf("%s/web/%sid_/%s", base, timestamp, original)
}
