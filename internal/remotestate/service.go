package remotestate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	dbpkg "github.com/comptoirlabs/comptoir-backend/pkg/db"
	"github.com/comptoirlabs/comptoir-backend/pkg/db/models"
	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
	pkgerrors "github.com/comptoirlabs/comptoir-backend/pkg/errors"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
	"github.com/comptoirlabs/comptoir-backend/pkg/outbox"
	"github.com/comptoirlabs/comptoir-backend/pkg/outbox/payloads"
	"github.com/comptoirlabs/comptoir-backend/pkg/redis"
	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

// snapshotCache is the slice of the Redis client the service consumes.
type snapshotCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SnapshotKey(restaurantID string) string
}

// Document is a fetched canonical snapshot.
type Document struct {
	RestaurantID  string          `json:"restaurant_id"`
	LastUpdatedAt int64           `json:"last_updated_at"`
	Payload       json.RawMessage `json:"payload"`
}

// Service owns the canonical restaurant documents.
type Service struct {
	db     *dbpkg.Client
	repo   *Repository
	events *outbox.Service
	cache  snapshotCache
	ttl    time.Duration
	logg   *logger.Logger
}

func NewService(db *dbpkg.Client, repo *Repository, events *outbox.Service, cache snapshotCache, ttl time.Duration, logg *logger.Logger) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{db: db, repo: repo, events: events, cache: cache, ttl: ttl, logg: logg}, nil
}

// Fetch returns the canonical document, cache-aside through Redis.
func (s *Service) Fetch(ctx context.Context, restaurantID string) (*Document, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, s.cache.SnapshotKey(restaurantID))
		if err == nil {
			var doc Document
			if jsonErr := json.Unmarshal([]byte(cached), &doc); jsonErr == nil {
				return &doc, nil
			}
			s.logg.Warn(ctx, "snapshot cache entry unreadable, falling through")
		} else if !errors.Is(err, redis.Nil) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "snapshot cache read failed")
		}
	}

	row, err := s.repo.FindByID(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		RestaurantID:  row.RestaurantID,
		LastUpdatedAt: row.LastUpdatedAt,
		Payload:       row.Payload,
	}
	s.cacheDocument(ctx, doc)
	return doc, nil
}

// Upsert overwrites the canonical document and emits the sync events in
// the same transaction. Snapshot bursts from the same restaurant collapse
// to one pending outbox event; order completions always emit.
func (s *Service) Upsert(ctx context.Context, device *outbox.DeviceRef, restaurantID string, raw json.RawMessage) (*Document, error) {
	doc, err := state.Decode(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid state document")
	}
	if doc.RestaurantID != restaurantID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document restaurant id mismatch")
	}

	updatedBy := ""
	if device != nil {
		updatedBy = device.DeviceID
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var previous *state.AppState
		if row, findErr := s.repo.FindByIDTx(tx, restaurantID); findErr == nil {
			previous, _ = state.Decode(row.Payload)
		} else if appErr := pkgerrors.As(findErr); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
			return findErr
		}

		row := &models.RestaurantState{
			RestaurantID:  restaurantID,
			Payload:       raw,
			LastUpdatedAt: doc.LastUpdatedAt,
			UpdatedBy:     updatedBy,
		}
		if saveErr := s.repo.SaveTx(tx, row); saveErr != nil {
			return saveErr
		}

		emitErr := s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSnapshotUpdated,
			AggregateType: enums.AggregateRestaurantState,
			AggregateID:   restaurantID,
			Device:        device,
			Data: payloads.SnapshotUpdatedEvent{
				RestaurantID:  restaurantID,
				LastUpdatedAt: doc.LastUpdatedAt,
				UpdatedBy:     updatedBy,
				Document:      raw,
			},
			Version: 1,
		})
		if emitErr != nil {
			return emitErr
		}

		for _, order := range newlyCompleted(previous, doc) {
			emitErr := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCompleted,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Device:        device,
				Data: payloads.OrderCompletedEvent{
					RestaurantID:  restaurantID,
					OrderID:       order.ID,
					OrderNumber:   order.Number,
					Total:         order.Total,
					PaymentMethod: order.PaymentMethod.String(),
					InvoiceNumber: order.InvoiceNumber,
					CompletedAt:   time.UnixMilli(order.UpdatedAt),
				},
				Version: 1,
			})
			if emitErr != nil {
				return emitErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stored := &Document{
		RestaurantID:  restaurantID,
		LastUpdatedAt: doc.LastUpdatedAt,
		Payload:       raw,
	}
	s.cacheDocument(ctx, stored)
	return stored, nil
}

func (s *Service) cacheDocument(ctx context.Context, doc *Document) {
	if s.cache == nil {
		return
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.SnapshotKey(doc.RestaurantID), encoded, s.ttl); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "snapshot cache write failed")
	}
}

// newlyCompleted lists orders completed in next but not in previous.
func newlyCompleted(previous, next *state.AppState) []state.Order {
	done := map[string]bool{}
	if previous != nil {
		for _, order := range previous.Orders {
			if order.Status == enums.OrderStatusCompleted {
				done[order.ID] = true
			}
		}
	}
	var out []state.Order
	for _, order := range next.Orders {
		if order.Status == enums.OrderStatusCompleted && !done[order.ID] {
			out = append(out, order)
		}
	}
	return out
}
