package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
)

type publishFunc func(ctx context.Context, msg *pubsub.Message) (string, error)

// PubSubDispatcher publishes notifications for the mailer to consume.
type PubSubDispatcher struct {
	publish publishFunc
	now     func() time.Time
}

func NewPubSubDispatcher(publisher *pubsub.Publisher) (*PubSubDispatcher, error) {
	if publisher == nil {
		return nil, fmt.Errorf("notification publisher is required")
	}
	return &PubSubDispatcher{
		publish: func(ctx context.Context, msg *pubsub.Message) (string, error) {
			return publisher.Publish(ctx, msg).Get(ctx)
		},
		now: time.Now,
	}, nil
}

func (d *PubSubDispatcher) Dispatch(ctx context.Context, n Notification) error {
	if !n.Type.IsValid() {
		return fmt.Errorf("unknown notification type %q", n.Type)
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	data, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", n.Type, err)
	}
	body, err := json.Marshal(Envelope{
		EventID:    n.ID.String(),
		Type:       n.Type,
		OccurredAt: d.now().UTC(),
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"type":     n.Type.String(),
			"event_id": n.ID.String(),
		},
	}
	if _, err := d.publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", n.Type, err)
	}
	return nil
}
