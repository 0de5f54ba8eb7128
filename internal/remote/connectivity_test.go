package remote

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeChecker struct {
	mtx    sync.Mutex
	online bool
}

func (f *fakeChecker) Online(context.Context) bool {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.online
}

func (f *fakeChecker) set(online bool) {
	f.mtx.Lock()
	f.online = online
	f.mtx.Unlock()
}

func TestWatcherFiresOnReconnect(t *testing.T) {
	checker := &fakeChecker{}
	watcher, err := NewWatcher(checker, 5*time.Millisecond, testLogger())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	reconnects := make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx, func(context.Context) {
		reconnects <- struct{}{}
	})

	// Still offline: no callback expected.
	select {
	case <-reconnects:
		t.Fatalf("unexpected reconnect while offline")
	case <-time.After(25 * time.Millisecond):
	}

	checker.set(true)
	select {
	case <-reconnects:
	case <-time.After(time.Second):
		t.Fatalf("reconnect callback never fired")
	}
	if !watcher.Online() {
		t.Fatalf("watcher should observe online")
	}

	// Flapping offline then online again fires once more.
	checker.set(false)
	time.Sleep(25 * time.Millisecond)
	checker.set(true)
	select {
	case <-reconnects:
	case <-time.After(time.Second):
		t.Fatalf("second reconnect callback never fired")
	}
}
