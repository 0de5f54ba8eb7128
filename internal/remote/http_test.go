package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/comptoirlabs/comptoir-backend/pkg/config"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &bytes.Buffer{}})
}

func newClient(t *testing.T, baseURL string) *HTTPClient {
	t.Helper()
	client, err := NewHTTPClient(config.RemoteConfig{
		BaseURL:        baseURL,
		RequestTimeout: 2 * time.Second,
	}, "device-token", testLogger())
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	client.backoff = time.Millisecond
	return client
}

func TestFetchDecodesEnvelope(t *testing.T) {
	doc := state.New("rest-1")
	doc.LastUpdatedAt = 77

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/state/rest-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer device-token" {
			t.Errorf("missing bearer token, got %q", got)
		}
		payload, _ := json.Marshal(doc)
		json.NewEncoder(w).Encode(map[string]json.RawMessage{"data": payload})
	}))
	defer srv.Close()

	got, err := newClient(t, srv.URL).Fetch(context.Background(), "rest-1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.RestaurantID != "rest-1" || got.LastUpdatedAt != 77 {
		t.Fatalf("unexpected document %+v", got)
	}
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Fetch(context.Background(), "rest-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	doc := state.New("rest-1")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		payload, _ := json.Marshal(doc)
		json.NewEncoder(w).Encode(map[string]json.RawMessage{"data": payload})
	}))
	defer srv.Close()

	if _, err := newClient(t, srv.URL).Fetch(context.Background(), "rest-1"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestFetchGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Fetch(context.Background(), "rest-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if calls.Load() != transientRetries+1 {
		t.Fatalf("expected %d attempts, got %d", transientRetries+1, calls.Load())
	}
}

func TestUpsertSendsFullDocument(t *testing.T) {
	var received state.AppState
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	doc := state.New("rest-1")
	doc.LastUpdatedAt = 123
	if err := newClient(t, srv.URL).Upsert(context.Background(), "rest-1", doc); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if received.RestaurantID != "rest-1" || received.LastUpdatedAt != 123 {
		t.Fatalf("server received wrong document %+v", received)
	}
}

func TestUpsertUnreachableHost(t *testing.T) {
	client := newClient(t, "http://127.0.0.1:1")
	err := client.Upsert(context.Background(), "rest-1", state.New("rest-1"))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestHealthChecker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker, err := NewHealthChecker(config.RemoteConfig{BaseURL: srv.URL, ProbeTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewHealthChecker: %v", err)
	}
	if !checker.Online(context.Background()) {
		t.Fatalf("expected online")
	}

	srv.Close()
	if checker.Online(context.Background()) {
		t.Fatalf("expected offline after server shutdown")
	}
}
