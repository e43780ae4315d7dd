package input

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// ExtractURLs reads the input CSV and returns the URL list for a run.
// The URL column is located by header: a column named after the site type
// ("tos", "robots", "main") wins, otherwise the first column whose header
// contains "url". Empty cells and duplicates are dropped, preserving first
// appearance order.
func ExtractURLs(path, siteType string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // ragged rows are tolerated

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse input CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input CSV %s is empty", path)
	}

	col, err := urlColumn(records[0], siteType)
	if err != nil {
		return nil, fmt.Errorf("%w in %s", err, path)
	}

	seen := make(map[string]bool)
	urls := make([]string, 0, len(records)-1)
	for _, row := range records[1:] {
		if col >= len(row) {
			continue
		}
		u := strings.TrimSpace(row[col])
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}

	return urls, nil
}

func urlColumn(header []string, siteType string) (int, error) {
	siteType = strings.ToLower(strings.TrimSpace(siteType))
	for i, name := range header {
		if strings.ToLower(strings.TrimSpace(name)) == siteType {
			return i, nil
		}
	}
	for i, name := range header {
		if strings.Contains(strings.ToLower(name), "url") {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no %q or url column found", siteType)
}
