// Package queue persists offline mutation intents and replays them against
// the remote state service once connectivity returns.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/comptoirlabs/comptoir-backend/pkg/db/models"
	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
)

// Repository stores queued actions in the device-local SQLite database.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if err := db.AutoMigrate(&models.QueuedAction{}); err != nil {
		return nil, fmt.Errorf("migrating queued actions: %w", err)
	}
	return &Repository{db: db}, nil
}

// Enqueue records one replayable action for the owning restaurant. The
// payload must be one of the action structs in this package.
func (r *Repository) Enqueue(ctx context.Context, restaurantID string, actionType enums.QueuedActionType, payload any) (*models.QueuedAction, error) {
	if restaurantID == "" {
		return nil, fmt.Errorf("restaurant id required")
	}
	if !actionType.IsValid() {
		return nil, fmt.Errorf("invalid queued action type %q", actionType)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding queued action payload: %w", err)
	}
	action := models.QueuedAction{
		ID:           uuid.NewString(),
		RestaurantID: restaurantID,
		ActionType:   actionType,
		Payload:      raw,
	}
	if err := r.db.WithContext(ctx).Create(&action).Error; err != nil {
		return nil, fmt.Errorf("inserting queued action: %w", err)
	}
	return &action, nil
}

// List returns the restaurant's pending actions in insertion order. The
// filter keeps a shared device database from replaying another
// restaurant's actions.
func (r *Repository) List(ctx context.Context, restaurantID string) ([]models.QueuedAction, error) {
	var actions []models.QueuedAction
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("seq ASC").
		Find(&actions).Error
	if err != nil {
		return nil, fmt.Errorf("listing queued actions: %w", err)
	}
	return actions, nil
}

// Delete removes an acknowledged or dropped action.
func (r *Repository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Delete(&models.QueuedAction{}, "id = ?", id).Error
	if err != nil {
		return fmt.Errorf("deleting queued action: %w", err)
	}
	return nil
}

// RecordFailure bumps the retry counter and keeps the action queued.
func (r *Repository) RecordFailure(ctx context.Context, id string, attempts int, cause error) error {
	updates := map[string]any{"attempts": attempts}
	if cause != nil {
		msg := cause.Error()
		if len(msg) > 512 {
			msg = msg[:512]
		}
		updates["last_error"] = msg
	}
	err := r.db.WithContext(ctx).
		Model(&models.QueuedAction{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("recording queued action failure: %w", err)
	}
	return nil
}

// Count returns the restaurant's pending action count.
func (r *Repository) Count(ctx context.Context, restaurantID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.QueuedAction{}).
		Where("restaurant_id = ?", restaurantID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting queued actions: %w", err)
	}
	return n, nil
}
