package proxymgr_test

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"slices"
	"testing"
	"testing/synctest"
	"time"

	"ytbatch/internal/config"
	"ytbatch/internal/errs"
	"ytbatch/internal/observability"
	"ytbatch/internal/proxymgr"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testProxyURL = "socks5h://localhost:1080"

func newManager(proxies []string, maxFailures int, backoff time.Duration) *proxymgr.Manager {
	cfg := &config.Config{
		Proxy: config.Proxy{
			Proxies:        proxies,
			MaxFailures:    maxFailures,
			FailureBackoff: backoff,
		},
	}

	return proxymgr.New(slog.Default(), cfg, nil)
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		proxies   []string
		wantCount int
	}{
		{name: "no proxies", proxies: nil, wantCount: 0},
		{name: "single proxy", proxies: []string{testProxyURL}, wantCount: 1},
		{name: "multiple proxies", proxies: []string{"socks5h://proxy1:1080", "socks5h://proxy2:1080"}, wantCount: 2},
		{name: "duplicates collapsed", proxies: []string{testProxyURL, testProxyURL}, wantCount: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mgr := newManager(tc.proxies, 3, time.Minute)

			if got := mgr.Count(); got != tc.wantCount {
				t.Errorf("Count() = %d, want %d", got, tc.wantCount)
			}
		})
	}
}

func TestAcquire(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		proxies []string
	}{
		{name: "no proxies returns empty", proxies: nil},
		{name: "single proxy", proxies: []string{testProxyURL}},
		{name: "multiple proxies returns one of them", proxies: []string{"socks5h://proxy1:1080", "socks5h://proxy2:1080"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mgr := newManager(tc.proxies, 3, time.Minute)

			got, err := mgr.Acquire()
			if err != nil {
				t.Fatalf("Acquire() error = %v", err)
			}

			if len(tc.proxies) == 0 && got != "" {
				t.Errorf("Acquire() = %q, want empty", got)
			}

			if len(tc.proxies) > 0 && !slices.Contains(tc.proxies, got) {
				t.Errorf("Acquire() = %q, want one of %v", got, tc.proxies)
			}
		})
	}
}

func TestAcquireNilManager(t *testing.T) {
	t.Parallel()

	var mgr *proxymgr.Manager

	got, err := mgr.Acquire()
	if err != nil || got != "" {
		t.Errorf("Acquire() on nil manager = %q, %v", got, err)
	}

	mgr.Report("socks5h://x:1", errors.New("ignored"))
}

func TestReportBackoffAndRecovery(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		mgr := newManager([]string{testProxyURL}, 2, time.Minute)

		mgr.Report(testProxyURL, errors.New("429"))

		if state, failures, _ := mgr.State(testProxyURL); state != proxymgr.ProxyStateAvailable || failures != 1 {
			t.Fatalf("after one failure state = %v failures = %d", state, failures)
		}

		mgr.Report(testProxyURL, errors.New("429"))

		if state, _, _ := mgr.State(testProxyURL); state != proxymgr.ProxyStateFailed {
			t.Fatalf("after max failures state = %v, want failed", state)
		}

		if _, err := mgr.Acquire(); !errors.Is(err, errs.ErrNoProxiesAvailable) {
			t.Fatalf("Acquire() during backoff error = %v, want ErrNoProxiesAvailable", err)
		}

		time.Sleep(time.Minute + time.Second)

		got, err := mgr.Acquire()
		if err != nil || got != testProxyURL {
			t.Fatalf("Acquire() after backoff = %q, %v", got, err)
		}

		mgr.Report(testProxyURL, nil)

		if state, failures, _ := mgr.State(testProxyURL); state != proxymgr.ProxyStateAvailable || failures != 0 {
			t.Errorf("after success state = %v failures = %d", state, failures)
		}
	})
}

func TestReportUnknownProxy(t *testing.T) {
	t.Parallel()

	mgr := newManager([]string{testProxyURL}, 1, time.Minute)
	mgr.Report("socks5h://unknown:1080", errors.New("boom"))

	if _, _, ok := mgr.State("socks5h://unknown:1080"); ok {
		t.Error("unknown proxy must not be tracked")
	}

	if got := mgr.AvailableCount(); got != 1 {
		t.Errorf("AvailableCount() = %d, want 1", got)
	}
}

func TestMetricsWired(t *testing.T) {
	t.Parallel()

	metrics := observability.New()
	cfg := &config.Config{Proxy: config.Proxy{Proxies: []string{testProxyURL}, MaxFailures: 1, FailureBackoff: time.Hour}}
	mgr := proxymgr.New(slog.Default(), cfg, metrics)

	if _, err := mgr.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	mgr.Report(testProxyURL, errors.New("boom"))

	if got := testutil.ToFloat64(metrics.ProxyRequestsTotal.WithLabelValues(testProxyURL)); got != 1 {
		t.Errorf("proxy requests = %v, want 1", got)
	}

	if got := testutil.ToFloat64(metrics.ProxyFailures.WithLabelValues(testProxyURL)); got != 1 {
		t.Errorf("proxy failures = %v, want 1", got)
	}

	if got := testutil.ToFloat64(metrics.ProxiesAvailable); got != 0 {
		t.Errorf("proxies available = %v, want 0", got)
	}
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	up := "socks5h://" + listener.Addr().String()
	mgr := newManager([]string{up}, 1, time.Hour)

	mgr.MarkFailed(up)

	if err := mgr.HealthCheck(context.Background(), up); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	if state, _, _ := mgr.State(up); state != proxymgr.ProxyStateAvailable {
		t.Errorf("state after healthy check = %v, want available", state)
	}
}

func TestStartHealthCheckerNoProxies(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newManager(nil, 3, time.Minute).StartHealthChecker(ctx)
}
