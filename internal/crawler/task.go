package crawler

import (
	"fmt"
	"strings"
)

// SiteType identifies which resource of a site is being collected
type SiteType string

const (
	SiteTypeTOS    SiteType = "tos"
	SiteTypeRobots SiteType = "robots"
	SiteTypeMain   SiteType = "main"
)

// ParseSiteType validates and normalizes a site type string
func ParseSiteType(s string) (SiteType, error) {
	switch SiteType(strings.ToLower(s)) {
	case SiteTypeTOS:
		return SiteTypeTOS, nil
	case SiteTypeRobots:
		return SiteTypeRobots, nil
	case SiteTypeMain:
		return SiteTypeMain, nil
	default:
		return "", fmt.Errorf("unknown site type %q", s)
	}
}

// UrlTask is one unit of work: a single URL to collect snapshots for.
// Immutable once constructed; each task is consumed by exactly one worker.
type UrlTask struct {
	RawURL      string
	SiteType    SiteType
	ResolvedURL string
}

// NewUrlTask resolves a raw input URL for its site type. For robots the
// "/robots.txt" suffix is appended unless already present; tos and main
// URLs pass through unchanged.
func NewUrlTask(rawURL string, siteType SiteType) UrlTask {
	resolved := rawURL
	if siteType == SiteTypeRobots && !strings.HasSuffix(rawURL, "/robots.txt") {
		resolved = strings.TrimSuffix(rawURL, "/") + "/robots.txt"
	}
	return UrlTask{
		RawURL:      rawURL,
		SiteType:    siteType,
		ResolvedURL: resolved,
	}
}

// BuildTasks constructs one task per input URL
func BuildTasks(urls []string, siteType SiteType) []UrlTask {
	tasks := make([]UrlTask, 0, len(urls))
	for _, u := range urls {
		tasks = append(tasks, NewUrlTask(u, siteType))
	}
	return tasks
}
