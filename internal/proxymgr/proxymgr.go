// Package proxymgr rotates download traffic across a list of proxies.
// It tracks failures, backs off proxies that keep failing and restores
// them after a health check or once the backoff expires.
package proxymgr

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/url"
	"sync"
	"time"

	"ytbatch/internal/config"
	"ytbatch/internal/errs"
	"ytbatch/internal/observability"
)

// ProxyState represents the current state of a proxy.
type ProxyState int

const (
	// ProxyStateAvailable indicates the proxy is available for use.
	ProxyStateAvailable ProxyState = iota
	// ProxyStateFailed indicates the proxy has failed and is in backoff.
	ProxyStateFailed
)

const (
	healthCheckTimeout = 10 * time.Second
	maxBackoff         = time.Hour
)

type proxyInfo struct {
	state         ProxyState
	failureCount  int
	backoffUntil  time.Time
	lastHealthChk time.Time
}

// Manager hands out proxies to concurrent downloads.
type Manager struct {
	log     *slog.Logger
	cfg     config.Proxy
	metrics *observability.Metrics

	mu      sync.Mutex
	proxies map[string]*proxyInfo
	order   []string // insertion order for stable iteration
}

// New creates a proxy manager from cfg.Proxy.Proxies. Metrics may be nil.
func New(log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) *Manager {
	mgr := &Manager{
		log:     log.With(slog.String("package", "proxymgr")),
		cfg:     cfg.Proxy,
		metrics: metrics,
		proxies: make(map[string]*proxyInfo, len(cfg.Proxy.Proxies)),
		order:   make([]string, 0, len(cfg.Proxy.Proxies)),
	}

	for _, proxy := range cfg.Proxy.Proxies {
		if _, dup := mgr.proxies[proxy]; dup {
			continue
		}

		mgr.proxies[proxy] = &proxyInfo{state: ProxyStateAvailable}
		mgr.order = append(mgr.order, proxy)
	}

	mgr.publishAvailable()

	return mgr
}

// Count returns the number of configured proxies.
func (m *Manager) Count() int {
	return len(m.order)
}

// Acquire picks a random available proxy.
// It returns "" and no error when no proxies are configured, so callers download directly.
func (m *Manager) Acquire() (string, error) {
	if m == nil || len(m.order) == 0 {
		return "", nil
	}

	m.mu.Lock()
	available := m.availableLocked(time.Now())
	m.mu.Unlock()

	if len(available) == 0 {
		return "", errs.ErrNoProxiesAvailable
	}

	proxy := available[rand.IntN(len(available))]

	if m.metrics != nil {
		m.metrics.RecordProxyRequest(proxy)
	}

	return proxy, nil
}

// Report feeds a download outcome back into the proxy's state.
func (m *Manager) Report(proxyURL string, err error) {
	if m == nil || proxyURL == "" {
		return
	}

	if err != nil {
		m.MarkFailed(proxyURL)

		return
	}

	m.MarkSuccess(proxyURL)
}

// MarkFailed counts a failure and applies exponential backoff once MaxFailures is reached.
func (m *Manager) MarkFailed(proxyURL string) {
	m.mu.Lock()

	info, exists := m.proxies[proxyURL]
	if !exists {
		m.mu.Unlock()

		return
	}

	info.failureCount++

	var backoff time.Duration
	if m.cfg.MaxFailures > 0 && info.failureCount >= m.cfg.MaxFailures {
		info.state = ProxyStateFailed
		backoff = min(m.cfg.FailureBackoff<<(info.failureCount-m.cfg.MaxFailures), maxBackoff)
		info.backoffUntil = time.Now().Add(backoff)
	}

	failures := info.failureCount
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordProxyFailure(proxyURL)
	}

	if backoff > 0 {
		m.log.Warn("proxy marked as failed",
			slog.String("proxy", proxyURL),
			slog.Int("failure_count", failures),
			slog.Duration("backoff", backoff))
	}

	m.publishAvailable()
}

// MarkSuccess resets the failure count of a proxy.
func (m *Manager) MarkSuccess(proxyURL string) {
	m.mu.Lock()

	info, exists := m.proxies[proxyURL]
	if exists {
		info.state = ProxyStateAvailable
		info.failureCount = 0
		info.backoffUntil = time.Time{}
	}

	m.mu.Unlock()

	m.publishAvailable()
}

// State returns the state and failure count of a proxy.
func (m *Manager) State(proxyURL string) (ProxyState, int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, exists := m.proxies[proxyURL]
	if !exists {
		return ProxyStateAvailable, 0, false
	}

	return info.state, info.failureCount, true
}

// AvailableCount returns the number of proxies not in backoff.
func (m *Manager) AvailableCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.availableLocked(time.Now()))
}

// HealthCheck dials the proxy host and updates its state.
func (m *Manager) HealthCheck(ctx context.Context, proxyURL string) error {
	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("parse proxy URL: %w", err)
	}

	dialer := &net.Dialer{Timeout: healthCheckTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", parsedURL.Host)
	if err != nil {
		m.MarkFailed(proxyURL)

		return fmt.Errorf("%w: dial %s: %w", errs.ErrProxyFailed, parsedURL.Host, err)
	}
	defer conn.Close()

	m.mu.Lock()
	if info, exists := m.proxies[proxyURL]; exists {
		info.lastHealthChk = time.Now()
	}
	m.mu.Unlock()

	m.MarkSuccess(proxyURL)

	return nil
}

// StartHealthChecker checks all proxies every HealthCheckInterval until ctx is done.
func (m *Manager) StartHealthChecker(ctx context.Context) {
	if m.cfg.HealthCheckInterval <= 0 || len(m.order) == 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(m.cfg.HealthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkAll(ctx)
			}
		}
	}()

	m.log.Info("proxy health checker started",
		slog.Duration("interval", m.cfg.HealthCheckInterval),
		slog.Int("proxy_count", len(m.order)))
}

func (m *Manager) checkAll(ctx context.Context) {
	for _, proxy := range m.order {
		if ctx.Err() != nil {
			return
		}

		if err := m.HealthCheck(ctx, proxy); err != nil {
			m.log.Debug("proxy health check failed", slog.String("proxy", proxy), slog.Any("error", err))
		}
	}
}

// availableLocked returns proxies that are available or whose backoff expired.
func (m *Manager) availableLocked(now time.Time) []string {
	available := make([]string, 0, len(m.order))

	for _, proxyURL := range m.order {
		info := m.proxies[proxyURL]
		if info.state == ProxyStateAvailable || now.After(info.backoffUntil) {
			available = append(available, proxyURL)
		}
	}

	return available
}

func (m *Manager) publishAvailable() {
	if m.metrics == nil {
		return
	}

	m.metrics.SetProxiesAvailable(m.AvailableCount())
}
