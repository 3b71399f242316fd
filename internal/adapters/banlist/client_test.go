package banlist

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"doorman/internal/platform/clock"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *clock.Manual, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c := New(zerolog.Nop(), clk, Options{BaseURL: srv.URL, CacheTTL: 10 * time.Minute})
	return c, clk, srv
}

func TestLookupBanned(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id"); got != "42" {
			t.Errorf("id = %q, want 42", got)
		}
		fmt.Fprint(w, `{"banned": true}`)
	})

	banned, err := c.Lookup(context.Background(), 42)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !banned {
		t.Fatal("want banned")
	}
}

func TestLookupCaches(t *testing.T) {
	var hits atomic.Int32
	c, clk, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"banned": false}`)
	})

	for i := 0; i < 3; i++ {
		if _, err := c.Lookup(context.Background(), 7); err != nil {
			t.Fatalf("Lookup %d: %v", i, err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("backend hits = %d, want 1", hits.Load())
	}

	clk.Advance(11 * time.Minute)
	if _, err := c.Lookup(context.Background(), 7); err != nil {
		t.Fatalf("Lookup after expiry: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("backend hits = %d, want 2 after cache expiry", hits.Load())
	}
}

func TestLookupErrorIsNotClean(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	banned, err := c.Lookup(context.Background(), 7)
	if err == nil {
		t.Fatal("want error on 502")
	}
	if banned {
		t.Fatal("failed lookup must not report banned")
	}
}

func TestLookupErrorNotCached(t *testing.T) {
	var hits atomic.Int32
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"banned": true}`)
	})

	if _, err := c.Lookup(context.Background(), 7); err == nil {
		t.Fatal("want error on first call")
	}
	banned, err := c.Lookup(context.Background(), 7)
	if err != nil {
		t.Fatalf("second Lookup: %v", err)
	}
	if !banned {
		t.Fatal("want banned from recovered backend")
	}
}
