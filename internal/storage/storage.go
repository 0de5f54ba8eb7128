// Package storage is the device-local durable store: one snapshot row per
// restaurant, written synchronously on every mutation and read back on boot.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/comptoirlabs/comptoir-backend/pkg/db/models"
	"github.com/comptoirlabs/comptoir-backend/pkg/metrics"
)

// ErrNotFound reports that no snapshot has ever been persisted for the key.
var ErrNotFound = errors.New("snapshot not found")

// Store is the durable get/set surface the state container depends on.
type Store interface {
	Get(ctx context.Context, restaurantID string) (json.RawMessage, error)
	Set(ctx context.Context, restaurantID string, payload json.RawMessage, lastUpdatedAt int64) error
}

// SQLiteStore persists snapshots in the device's embedded database.
type SQLiteStore struct {
	db      *gorm.DB
	metrics *metrics.SyncMetrics
}

// NewSQLiteStore prepares the snapshot table and returns a ready store.
func NewSQLiteStore(db *gorm.DB, m *metrics.SyncMetrics) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if err := db.AutoMigrate(&models.LocalSnapshot{}); err != nil {
		return nil, fmt.Errorf("migrating local snapshot table: %w", err)
	}
	return &SQLiteStore{db: db, metrics: m}, nil
}

// Get returns the stored document bytes for the restaurant.
func (s *SQLiteStore) Get(ctx context.Context, restaurantID string) (json.RawMessage, error) {
	var row models.LocalSnapshot
	err := s.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return row.Payload, nil
}

// Set overwrites the stored document for the restaurant.
func (s *SQLiteStore) Set(ctx context.Context, restaurantID string, payload json.RawMessage, lastUpdatedAt int64) error {
	start := time.Now()
	row := models.LocalSnapshot{
		RestaurantID:  restaurantID,
		Payload:       payload,
		LastUpdatedAt: lastUpdatedAt,
	}
	err := s.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return fmt.Errorf("persisting snapshot: %w", err)
	}
	s.metrics.ObservePersist(time.Since(start))
	return nil
}
