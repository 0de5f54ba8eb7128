package remote

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/comptoirlabs/comptoir-backend/pkg/config"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
)

// HealthChecker probes the remote service's health endpoint with a short
// timeout; a failed probe flips the device into offline mode.
type HealthChecker struct {
	target string
	client *http.Client
}

// NewHealthChecker builds a checker from the device configuration.
func NewHealthChecker(cfg config.RemoteConfig) (*HealthChecker, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrUnavailable
	}
	if _, err := url.Parse(base); err != nil {
		return nil, err
	}
	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HealthChecker{
		target: base + "/healthz",
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Online reports whether the remote service currently answers.
func (h *HealthChecker) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.target, nil)
	if err != nil {
		return false
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Watcher polls the connectivity signal and fires a callback on the
// offline-to-online transition, which is what triggers queue replay.
type Watcher struct {
	checker  Checker
	interval time.Duration
	logg     *logger.Logger

	mtx    sync.Mutex
	online bool
}

// NewWatcher builds a connectivity watcher.
func NewWatcher(checker Checker, interval time.Duration, logg *logger.Logger) (*Watcher, error) {
	if checker == nil {
		return nil, ErrUnavailable
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{checker: checker, interval: interval, logg: logg}, nil
}

// Online returns the last observed connectivity state.
func (w *Watcher) Online() bool {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.online
}

// Run polls until the context is cancelled, invoking onReconnect on each
// offline-to-online transition.
func (w *Watcher) Run(ctx context.Context, onReconnect func(context.Context)) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.observe(ctx, onReconnect)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.observe(ctx, onReconnect)
		}
	}
}

func (w *Watcher) observe(ctx context.Context, onReconnect func(context.Context)) {
	current := w.checker.Online(ctx)

	w.mtx.Lock()
	previous := w.online
	w.online = current
	w.mtx.Unlock()

	if current == previous {
		return
	}
	if current {
		if w.logg != nil {
			w.logg.Info(ctx, "connectivity restored")
		}
		if onReconnect != nil {
			onReconnect(ctx)
		}
		return
	}
	if w.logg != nil {
		w.logg.Warn(ctx, "connectivity lost, entering offline mode")
	}
}
