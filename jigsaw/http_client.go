package jigsaw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	// DefaultFetchTimeout bounds a single tile download.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultFetchAttempts is how many times a tile source is tried.
	DefaultFetchAttempts = 3

	// MaxTilePayload is the largest tile set accepted from a source (16 MB).
	MaxTilePayload = 16 << 20
)

// ErrPayloadTooLarge is returned when a tile source sends more than the
// fetcher's byte limit. A truncated tile set would misparse, so the download
// is rejected instead.
var ErrPayloadTooLarge = errors.New("tile payload too large")

// FetchError describes a tile download that did not produce a body.
type FetchError struct {
	URL      string
	Attempts int
	Status   int // last HTTP status, 0 for transport failures
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch tiles from %s: status %d after %d attempt(s)", e.URL, e.Status, e.Attempts)
	}
	return fmt.Sprintf("fetch tiles from %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TileFetcher downloads tile sets from HTTP puzzle sources.
// Transport errors, 429 and 5xx responses are retried with doubling delays.
// Other statuses, oversized bodies and malformed tiles fail immediately.
type TileFetcher struct {
	Client     *http.Client
	Attempts   int
	Backoff    time.Duration // delay before the second attempt
	MaxBackoff time.Duration // 0 means no cap
	MaxBytes   int64
}

// NewTileFetcher returns a fetcher with the default limits
func NewTileFetcher() *TileFetcher {
	return &TileFetcher{
		Client:     &http.Client{Timeout: DefaultFetchTimeout},
		Attempts:   DefaultFetchAttempts,
		Backoff:    500 * time.Millisecond,
		MaxBackoff: 10 * time.Second,
		MaxBytes:   MaxTilePayload,
	}
}

// FetchTilesFromAPI downloads and decodes a tile set using NewTileFetcher.
func FetchTilesFromAPI(ctx context.Context, apiURL string) ([]Fragment, error) {
	return NewTileFetcher().Fetch(ctx, apiURL)
}

// Fetch downloads the tile set at url and decodes it with DecodeTilePayload.
func (f *TileFetcher) Fetch(ctx context.Context, url string) ([]Fragment, error) {
	if url == "" {
		return nil, errors.New("fetch tiles: source URL is empty")
	}

	attempts := max(f.Attempts, 1)
	delay := f.Backoff
	var lastErr *FetchError

	for n := 1; n <= attempts; n++ {
		if n > 1 {
			if err := sleepContext(ctx, delay); err != nil {
				return nil, fmt.Errorf("fetch tiles from %s: %w", url, err)
			}
			delay = f.nextBackoff(delay)
		}

		body, status, err := f.get(ctx, url)
		if err == nil {
			return decodeFetched(url, body)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("fetch tiles from %s: %w", url, ctxErr)
		}

		lastErr = &FetchError{URL: url, Attempts: n, Status: status, Err: err}
		if errors.Is(err, ErrPayloadTooLarge) || (status != 0 && !retryableStatus(status)) {
			return nil, lastErr
		}
		if n < attempts {
			log.Printf("Tile source %s failed (attempt %d/%d): %v", url, n, attempts, err)
		}
	}
	return nil, lastErr
}

// get performs one GET. status is non-zero only for a non-200 response.
func (f *TileFetcher) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "text/plain, application/json, application/zlib")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = MaxTilePayload
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, 0, err
	}
	if int64(len(body)) > limit {
		return nil, 0, fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, limit)
	}
	return body, 0, nil
}

func (f *TileFetcher) nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if f.MaxBackoff > 0 && d > f.MaxBackoff {
		return f.MaxBackoff
	}
	return d
}

// decodeFetched decodes a downloaded body, naming the offending line when
// the tile text itself is malformed.
func decodeFetched(url string, body []byte) ([]Fragment, error) {
	fragments, err := DecodeTilePayload(body)
	if err == nil {
		return fragments, nil
	}
	var perr *ParseError
	if errors.As(err, &perr) && perr.Line > 0 {
		return nil, fmt.Errorf("tiles from %s rejected at line %d: %w", url, perr.Line, err)
	}
	return nil, fmt.Errorf("decode tiles from %s: %w", url, err)
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
