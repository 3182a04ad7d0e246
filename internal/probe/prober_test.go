package probe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProbe_HealthyChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(srv.URL, time.Second, 30*time.Second, OverrideNone, testLogger())
	if !p.Probe(context.Background()) {
		t.Error("healthy channel reported unavailable")
	}
	rec := p.Last()
	if rec == nil || !rec.OK {
		t.Errorf("last record = %+v", rec)
	}
}

func TestProbe_UnhealthyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New(srv.URL, time.Second, 30*time.Second, OverrideNone, testLogger())
	if p.Probe(context.Background()) {
		t.Error("unhealthy channel reported available")
	}
}

func TestProbe_SlowChannelBoundedByTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	p := New(srv.URL, 100*time.Millisecond, 30*time.Second, OverrideNone, testLogger())
	start := time.Now()
	ok := p.Probe(context.Background())
	elapsed := time.Since(start)

	if ok {
		t.Error("hanging channel reported available")
	}
	if elapsed > time.Second {
		t.Errorf("probe took %v, timeout not enforced", elapsed)
	}
}

func TestProbe_CachesVerdict(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(srv.URL, time.Second, 30*time.Second, OverrideNone, testLogger())
	p.Probe(context.Background())
	p.Probe(context.Background())
	p.Probe(context.Background())
	if got := hits.Load(); got != 1 {
		t.Errorf("health endpoint hit %d times, want 1 (cached)", got)
	}
}

func TestProbe_CacheExpires(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(srv.URL, time.Second, 30*time.Second, OverrideNone, testLogger())
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	p.Probe(context.Background())
	now = now.Add(31 * time.Second)
	p.Probe(context.Background())
	if got := hits.Load(); got != 2 {
		t.Errorf("health endpoint hit %d times, want 2 after TTL", got)
	}
}

func TestProbe_ForceRefresh(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(srv.URL, time.Second, 30*time.Second, OverrideNone, testLogger())
	p.Probe(context.Background())
	p.ForceRefresh()
	p.Probe(context.Background())
	if got := hits.Load(); got != 2 {
		t.Errorf("health endpoint hit %d times, want 2 after refresh", got)
	}
}

func TestProbe_Overrides(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	forcedOff := New(srv.URL, time.Second, 30*time.Second, OverrideUnavailable, testLogger())
	if forcedOff.Probe(context.Background()) {
		t.Error("OverrideUnavailable ignored")
	}

	forcedOn := New(srv.URL, time.Second, 30*time.Second, OverrideAvailable, testLogger())
	if !forcedOn.Probe(context.Background()) {
		t.Error("OverrideAvailable ignored")
	}

	if hits.Load() != 0 {
		t.Error("overrides should skip the real probe")
	}
}
