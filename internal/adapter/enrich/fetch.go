// Package enrich augments user prompts with verified scripture references.
//
// Each enricher scans the prompt for a citation, fetches the canonical text
// from a public API, and appends it as grounding context for the AI provider.
// Enrichment is best effort: any miss, parse failure, or upstream error
// returns the prompt unchanged so a chat never fails because a reference
// API is down.
package enrich

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

const maxRefBody = 1 << 20

// fetcher is the shared read-through HTTP client for reference APIs. Verses
// and hadith are immutable, so responses cache well; Redis is optional and
// a nil client degrades to direct fetches.
type fetcher struct {
	hc         *http.Client
	rdb        redis.UniversalClient
	ttl        time.Duration
	maxElapsed time.Duration
}

func newFetcher(hc *http.Client, rdb redis.UniversalClient, ttl, maxElapsed time.Duration) *fetcher {
	return &fetcher{hc: hc, rdb: rdb, ttl: ttl, maxElapsed: maxElapsed}
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "enrich:ref:" + hex.EncodeToString(sum[:16])
}

// getJSON fetches url and decodes the body into out, consulting the cache
// first. Network errors and 5xx responses are retried with exponential
// backoff; other statuses fail immediately.
func (f *fetcher) getJSON(ctx context.Context, url string, out any) error {
	key := cacheKey(url)
	if f.rdb != nil {
		if b, err := f.rdb.Get(ctx, key).Bytes(); err == nil {
			return json.Unmarshal(b, out)
		}
	}

	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("op=enrich.request: %w", err))
		}
		resp, err := f.hc.Do(req)
		if err != nil {
			return fmt.Errorf("op=enrich.fetch: %w", err)
		}
		b, readErr := io.ReadAll(io.LimitReader(resp.Body, maxRefBody))
		_ = resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("op=enrich.read: %w", readErr)
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("op=enrich.fetch: upstream status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("op=enrich.fetch: status %d", resp.StatusCode))
		}
		body = b
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = f.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return err
	}

	if f.rdb != nil {
		if err := f.rdb.Set(ctx, key, body, f.ttl).Err(); err != nil {
			slog.Debug("reference cache write failed", slog.Any("error", err))
		}
	}
	return json.Unmarshal(body, out)
}
