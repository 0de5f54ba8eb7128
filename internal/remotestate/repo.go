// Package remotestate is the server-side document service: it stores the
// canonical copy of each restaurant's state, caches reads in Redis and
// emits outbox events inside the same transaction as every write.
package remotestate

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/comptoirlabs/comptoir-backend/pkg/db/models"
	pkgerrors "github.com/comptoirlabs/comptoir-backend/pkg/errors"
)

// Repository handles restaurant state persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to restaurant state operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads the canonical document row.
func (r *Repository) FindByID(ctx context.Context, restaurantID string) (*models.RestaurantState, error) {
	var row models.RestaurantState
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "restaurant state not found")
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByIDTx loads the row inside an open transaction.
func (r *Repository) FindByIDTx(tx *gorm.DB, restaurantID string) (*models.RestaurantState, error) {
	var row models.RestaurantState
	err := tx.Where("restaurant_id = ?", restaurantID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "restaurant state not found")
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SaveTx writes the row inside an open transaction. The write is a blind
// full-document overwrite: the sync protocol resolves conflicts on read,
// not on write.
func (r *Repository) SaveTx(tx *gorm.DB, row *models.RestaurantState) error {
	return tx.Save(row).Error
}
