package client

import (
	"bytes"
	"context"

	"nflpickem/ingestion/internal/feed"
	"nflpickem/ingestion/internal/metrics"

	"github.com/rs/zerolog/log"
)

const feedCachePrefix = "pickem:feed:"

// FetchCSV downloads a CSV feed and parses it into records
func (c *Client) FetchCSV(ctx context.Context, url string) ([]feed.Record, error) {
	body, err := c.csvBody(ctx, url)
	if err != nil {
		return nil, err
	}

	records := feed.ParseCSVReader(bytes.NewReader(body))
	log.Debug().
		Str("url", url).
		Int("records", len(records)).
		Msg("Parsed CSV feed")
	return records, nil
}

func (c *Client) csvBody(ctx context.Context, url string) ([]byte, error) {
	key := feedCachePrefix + url
	if c.cache != nil {
		body, ok, err := c.cache.GetBytes(ctx, key)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("url", url).Msg("Feed cache read failed")
		case ok:
			metrics.RecordCacheHit()
			return body, nil
		default:
			metrics.RecordCacheMiss()
		}
	}

	body, err := c.get(ctx, "csv", url, nil, "text/csv, text/plain, */*")
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetBytes(ctx, key, body, c.cacheTTL); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("Feed cache write failed")
		}
	}
	return body, nil
}
