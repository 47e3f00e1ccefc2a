package jigsaw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func sampleText(t *testing.T) []byte {
	t.Helper()
	return FormatTiles(loadSample(t))
}

// testFetcher returns a fetcher bound to srv with millisecond backoff.
func testFetcher(srv *httptest.Server) *TileFetcher {
	f := NewTileFetcher()
	f.Client = srv.Client()
	f.Backoff = time.Millisecond
	return f
}

// countingServer serves handler and counts requests.
func countingServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestTileFetcher_Success(t *testing.T) {
	body := sampleText(t)
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept"), "text/plain") {
			t.Errorf("expected Accept to include text/plain, got %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write(body)
	})

	fragments, err := testFetcher(srv).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(fragments) != 9 {
		t.Errorf("got %d fragments, want 9", len(fragments))
	}
}

func TestTileFetcher_CompressedBody(t *testing.T) {
	body := compress(t, sampleText(t))
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	})

	fragments, err := testFetcher(srv).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(fragments) != 9 {
		t.Errorf("got %d fragments, want 9", len(fragments))
	}
}

func TestFetchTilesFromAPI_EmptyURL(t *testing.T) {
	_, err := FetchTilesFromAPI(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty URL")
	}
	if !strings.Contains(err.Error(), "empty") {
		t.Errorf("error = %v, want mention of empty URL", err)
	}
}

func TestTileFetcher_RetriesTransientStatus(t *testing.T) {
	body := sampleText(t)
	var served atomic.Int32
	srv, calls := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch served.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write(body)
		}
	})

	fragments, err := testFetcher(srv).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(fragments) != 9 {
		t.Errorf("got %d fragments, want 9", len(fragments))
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server called %d times, want 3", got)
	}
}

func TestTileFetcher_AllAttemptsFail(t *testing.T) {
	srv, calls := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	f := testFetcher(srv)
	f.Attempts = 2

	_, err := f.Fetch(context.Background(), srv.URL)
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if ferr.Status != http.StatusInternalServerError || ferr.Attempts != 2 {
		t.Errorf("FetchError = %+v, want status 500 after 2 attempts", ferr)
	}
	if !strings.Contains(err.Error(), "status 500 after 2 attempt(s)") {
		t.Errorf("error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}
}

func TestTileFetcher_ClientErrorNotRetried(t *testing.T) {
	srv, calls := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := testFetcher(srv).Fetch(context.Background(), srv.URL)
	var ferr *FetchError
	if !errors.As(err, &ferr) || ferr.Status != http.StatusNotFound {
		t.Fatalf("error = %v, want 404 FetchError", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestTileFetcher_PayloadTooLarge(t *testing.T) {
	body := sampleText(t)
	srv, calls := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	})
	f := testFetcher(srv)
	f.MaxBytes = int64(len(body) - 1)

	_, err := f.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("error = %v, want ErrPayloadTooLarge", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}

	// Exactly at the limit is accepted.
	f.MaxBytes = int64(len(body))
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Errorf("Fetch() at limit error: %v", err)
	}
}

func TestTileFetcher_ContextCancellation(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	f := testFetcher(srv)
	f.Backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, srv.URL)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestTileFetcher_MalformedTilesNotRetried(t *testing.T) {
	srv, calls := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Tile 1:\n#x\n##\n"))
	})

	_, err := testFetcher(srv).Fetch(context.Background(), srv.URL)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if perr.Line != 2 {
		t.Errorf("ParseError.Line = %d, want 2", perr.Line)
	}
	if !strings.Contains(err.Error(), "rejected at line 2") {
		t.Errorf("error = %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestTileFetcher_Backoff(t *testing.T) {
	f := &TileFetcher{MaxBackoff: 3 * time.Second}
	d := time.Second
	var got []time.Duration
	for range 4 {
		d = f.nextBackoff(d)
		got = append(got, d)
	}
	want := []time.Duration{2 * time.Second, 3 * time.Second, 3 * time.Second, 3 * time.Second}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("backoff[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if d := (&TileFetcher{}).nextBackoff(time.Minute); d != 2*time.Minute {
		t.Errorf("uncapped backoff = %v, want 2m", d)
	}
}

func TestNewTileFetcher_Defaults(t *testing.T) {
	f := NewTileFetcher()
	if f.Client == nil || f.Client.Timeout != DefaultFetchTimeout {
		t.Errorf("Client = %+v, want timeout %v", f.Client, DefaultFetchTimeout)
	}
	if f.Attempts != DefaultFetchAttempts {
		t.Errorf("Attempts = %d, want %d", f.Attempts, DefaultFetchAttempts)
	}
	if f.MaxBytes != MaxTilePayload {
		t.Errorf("MaxBytes = %d, want %d", f.MaxBytes, MaxTilePayload)
	}
}
