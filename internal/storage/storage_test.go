package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store, err := NewSQLiteStore(db, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	return store
}

func TestGetMissingSnapshot(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "rest-none")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetThenGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc := json.RawMessage(`{"restaurantId":"rest-1","lastUpdatedAt":42}`)

	if err := store.Set(ctx, "rest-1", doc, 42); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, "rest-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(doc) {
		t.Fatalf("round trip mismatch: %s", got)
	}
}

func TestSetOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "rest-1", json.RawMessage(`{"lastUpdatedAt":1}`), 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, "rest-1", json.RawMessage(`{"lastUpdatedAt":2}`), 2); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, "rest-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"lastUpdatedAt":2}` {
		t.Fatalf("expected latest write, got %s", got)
	}
}
