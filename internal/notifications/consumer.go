package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/mksagencies/storefront-backend/pkg/enums"
	"github.com/mksagencies/storefront-backend/pkg/idempotency"
	"github.com/mksagencies/storefront-backend/pkg/logger"
)

const mailerConsumer = "mailer"

// Handler renders and sends one notification from its raw JSON payload.
type Handler interface {
	Handle(ctx context.Context, kind enums.NotificationType, data json.RawMessage) error
}

type claimer interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
}

// Consumer pulls notification envelopes off Pub/Sub and hands them to the
// mailer. Each event id is handled at most once.
type Consumer struct {
	subscription *pubsub.Subscriber
	guard        claimer
	handler      Handler
	logg         *logger.Logger
}

func NewConsumer(subscription *pubsub.Subscriber, guard *idempotency.Guard, handler Handler, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if handler == nil {
		return nil, fmt.Errorf("notification handler required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		guard:        guard,
		handler:      handler,
		logg:         logg,
	}, nil
}

// Run receives until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes, msg.Data) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process returns true when the message should be redelivered. That only
// happens when the idempotency store is unreachable, so nothing was claimed.
func (c *Consumer) process(ctx context.Context, messageID string, attrs map[string]string, data []byte) bool {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id":        messageID,
		"notification_type": attrs["type"],
		"event_id":          attrs["event_id"],
	})

	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "notification.decode_failed", err)
		return false
	}
	if !envelope.Type.IsValid() {
		c.logg.Warn(logCtx, "notification.unknown_type")
		return false
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "notification.invalid_event_id", err)
		return false
	}

	claimed, err := c.guard.Claim(ctx, mailerConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "notification.idempotency_failed", err)
		return true
	}
	if !claimed {
		c.logg.Info(logCtx, "notification.duplicate")
		return false
	}

	if err := c.handler.Handle(logCtx, envelope.Type, envelope.Data); err != nil {
		c.logg.Error(logCtx, "notification.failed", err)
		return false
	}
	c.logg.Info(logCtx, "notification.sent")
	return false
}
