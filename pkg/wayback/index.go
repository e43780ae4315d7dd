package wayback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	errs "waycrawl/pkg/errors"
	"waycrawl/pkg/logger"
	"waycrawl/pkg/ratelimit"
	"waycrawl/pkg/retry"
)

// IndexClient queries the CDX index for the captures of a URL within a
// date range. Every call passes through the shared rate limiter and the
// configured retry policy.
type IndexClient struct {
	client   *Client
	limiter  ratelimit.Limiter
	retryCfg *retry.Config
	endpoint string
	logger   logger.Logger
}

// NewIndexClient creates a new index client
func NewIndexClient(client *Client, limiter ratelimit.Limiter, retryCfg *retry.Config, log logger.Logger) *IndexClient {
	if log == nil {
		log = logger.GetLogger()
	}
	return &IndexClient{
		client:   client,
		limiter:  limiter,
		retryCfg: retryCfg,
		endpoint: CDXEndpoint,
		logger:   log,
	}
}

// Query returns the captures of resolvedURL between startDate and endDate
// (inclusive, YYYYMMDD), pre-collapsed by the given collapse filter.
// Malformed index rows are dropped rather than failing the whole query.
func (ic *IndexClient) Query(ctx context.Context, resolvedURL, startDate, endDate, collapse string) ([]SnapshotRef, error) {
	queryURL := fmt.Sprintf("%s?%s", ic.endpoint, cdxQueryParams(resolvedURL, startDate, endDate, collapse).Encode())

	cfg := *ic.retryCfg
	cfg.Context = ctx

	body, err := retry.DoWithResult(func() ([]byte, error) {
		ic.limiter.Wait()

		resp, err := ic.client.Get(ctx, queryURL)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &errs.Error{
				Type:    errs.ErrorTypeNetwork,
				Message: fmt.Sprintf("failed to read index response: %v", err),
				Code:    resp.StatusCode,
				URL:     resolvedURL,
			}
		}
		return data, nil
	}, &cfg)
	if err != nil {
		return nil, err
	}

	refs, err := parseCDXResponse(body, resolvedURL)
	if err != nil {
		return nil, err
	}

	ic.logger.DebugWithFields("index query completed", map[string]interface{}{
		"url":      resolvedURL,
		"captures": len(refs),
	})

	return refs, nil
}

// parseCDXResponse parses the CDX JSON array-of-arrays body: a header row
// naming the fields, followed by one row per capture. Rows with missing
// fields or unparsable timestamps are skipped.
func parseCDXResponse(body []byte, resolvedURL string) ([]SnapshotRef, error) {
	if len(body) == 0 {
		return nil, nil
	}

	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("unparsable index response: %v", err),
			URL:     resolvedURL,
		}
	}

	if len(rows) <= 1 {
		return nil, nil
	}

	header := rows[0]
	fieldIndex := make(map[string]int, len(header))
	for i, field := range header {
		fieldIndex[field] = i
	}

	tsIdx, tsOK := fieldIndex["timestamp"]
	digestIdx, digestOK := fieldIndex["digest"]
	origIdx, origOK := fieldIndex["original"]
	if !tsOK || !digestOK {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: "index response header is missing timestamp or digest",
			URL:     resolvedURL,
		}
	}

	refs := make([]SnapshotRef, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if tsIdx >= len(row) || digestIdx >= len(row) {
			continue
		}
		ts, err := time.Parse(cdxTimestampLayout, row[tsIdx])
		if err != nil {
			continue
		}
		ref := SnapshotRef{
			Timestamp: ts,
			Raw:       row[tsIdx],
			Digest:    row[digestIdx],
			Original:  resolvedURL,
		}
		if origOK && origIdx < len(row) && row[origIdx] != "" {
			ref.Original = row[origIdx]
		}
		refs = append(refs, ref)
	}

	return refs, nil
}
