package wayback

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	errs "waycrawl/pkg/errors"
	"waycrawl/pkg/logger"
	"waycrawl/pkg/ratelimit"
	"waycrawl/pkg/retry"
)

// ContentFetcher retrieves the raw captured body of a snapshot from the
// archive's replay endpoint. Fetches share the same rate limiter and retry
// policy as index queries.
type ContentFetcher struct {
	client   *Client
	limiter  ratelimit.Limiter
	retryCfg *retry.Config
	baseURL  string
	logger   logger.Logger
}

// NewContentFetcher creates a new content fetcher
func NewContentFetcher(client *Client, limiter ratelimit.Limiter, retryCfg *retry.Config, log logger.Logger) *ContentFetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &ContentFetcher{
		client:   client,
		limiter:  limiter,
		retryCfg: retryCfg,
		baseURL:  BaseURL,
		logger:   log,
	}
}

// Fetch retrieves the snapshot identified by ref and decodes it as text.
// Bodies that cannot be represented as text fail with a decode error
// rather than being silently truncated.
func (cf *ContentFetcher) Fetch(ctx context.Context, ref SnapshotRef) (string, error) {
	snapshotURL := snapshotURLAt(cf.baseURL, ref.Raw, ref.Original)

	cfg := *cf.retryCfg
	cfg.Context = ctx

	type fetched struct {
		body        []byte
		contentType string
	}

	result, err := retry.DoWithResult(func() (fetched, error) {
		cf.limiter.Wait()

		resp, err := cf.client.Get(ctx, snapshotURL)
		if err != nil {
			return fetched{}, attachTimestamp(err, ref.Raw)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fetched{}, &errs.Error{
				Type:      errs.ErrorTypeNetwork,
				Message:   fmt.Sprintf("failed to read snapshot body: %v", err),
				Code:      resp.StatusCode,
				URL:       ref.Original,
				Timestamp: ref.Raw,
			}
		}
		return fetched{body: body, contentType: resp.Header.Get("Content-Type")}, nil
	}, &cfg)
	if err != nil {
		return "", err
	}

	content, err := decodeText(result.body, result.contentType)
	if err != nil {
		return "", &errs.Error{
			Type:      errs.ErrorTypeDecode,
			Message:   err.Error(),
			URL:       ref.Original,
			Timestamp: ref.Raw,
		}
	}

	cf.logger.DebugWithFields("snapshot fetched", map[string]interface{}{
		"url":       ref.Original,
		"timestamp": ref.Raw,
		"size":      len(content),
	})

	return content, nil
}

// decodeText decodes raw bytes as UTF-8 text, using the Content-Type
// charset (or byte sniffing) to transcode legacy encodings.
func decodeText(body []byte, contentType string) (string, error) {
	if bytes.IndexByte(body, 0) >= 0 {
		return "", fmt.Errorf("content contains NUL bytes, not text")
	}

	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("failed to detect charset: %v", err)
	}

	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to decode content: %v", err)
	}

	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("content is not representable as text")
	}

	return string(decoded), nil
}

// attachTimestamp stamps typed errors with the snapshot timestamp so the
// failure log can identify which capture failed.
func attachTimestamp(err error, timestamp string) error {
	if apiErr, ok := err.(*errs.Error); ok && apiErr.Timestamp == "" {
		apiErr.Timestamp = timestamp
	}
	return err
}
