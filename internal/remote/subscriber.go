package remote

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/comptoirlabs/comptoir-backend/pkg/enums"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
	"github.com/comptoirlabs/comptoir-backend/pkg/outbox"
	"github.com/comptoirlabs/comptoir-backend/pkg/outbox/payloads"
)

// SnapshotHandler receives the raw document bytes of a snapshot push.
type SnapshotHandler func(ctx context.Context, doc []byte)

// SnapshotSubscriber listens for snapshot pushes and hands the embedded
// document to the reconciliation path. Malformed messages are acked and
// logged: redelivering them cannot make them parse.
type SnapshotSubscriber struct {
	restaurantID string
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewSnapshotSubscriber builds the push listener for one restaurant.
func NewSnapshotSubscriber(restaurantID string, subscription *pubsub.Subscriber, logg *logger.Logger) (*SnapshotSubscriber, error) {
	if restaurantID == "" {
		return nil, fmt.Errorf("restaurant id required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("snapshot subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &SnapshotSubscriber{
		restaurantID: restaurantID,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run consumes snapshot pushes until the context is cancelled.
func (s *SnapshotSubscriber) Run(ctx context.Context, handler SnapshotHandler) error {
	if handler == nil {
		return fmt.Errorf("snapshot handler required")
	}
	return s.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.process(ctx, msg, handler)
		msg.Ack()
	})
}

func (s *SnapshotSubscriber) process(ctx context.Context, msg *pubsub.Message, handler SnapshotHandler) {
	eventType := msg.Attributes["event_type"]
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventSnapshotUpdated) {
		s.logg.Info(logCtx, "skipping non-snapshot event")
		return
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		s.logg.Error(logCtx, "failed to decode envelope", err)
		return
	}
	var payload payloads.SnapshotUpdatedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		s.logg.Error(logCtx, "failed to parse snapshot payload", err)
		return
	}
	if payload.RestaurantID != s.restaurantID {
		return
	}

	logCtx = s.logg.WithRestaurantID(logCtx, payload.RestaurantID)
	s.logg.Info(logCtx, "snapshot push received")
	handler(ctx, payload.Document)
}
