package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/brandinbox/pkg/logger"
	"github.com/google/uuid"
)

// Sender hands an encoded message to the transport and returns its server id.
type Sender interface {
	Send(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

// TopicSender adapts a Pub/Sub v2 publisher.
type TopicSender struct {
	Publisher *pubsub.Publisher
}

func (t TopicSender) Send(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	if t.Publisher == nil {
		return "", fmt.Errorf("pubsub publisher not configured")
	}
	res := t.Publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	return res.Get(ctx)
}

// PubSubPublisher wraps events in an Envelope and sends them to the listing events topic.
type PubSubPublisher struct {
	sender Sender
	logg   *logger.Logger
	now    func() time.Time
}

func NewPubSubPublisher(sender Sender, logg *logger.Logger) *PubSubPublisher {
	return &PubSubPublisher{sender: sender, logg: logg, now: time.Now}
}

func (p *PubSubPublisher) PublishStatusChanged(ctx context.Context, event ListingStatusChanged) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", TypeListingStatusChanged, err)
	}

	envelope := Envelope{
		Version:    EnvelopeVersion,
		EventID:    uuid.NewString(),
		EventType:  TypeListingStatusChanged,
		OccurredAt: event.OccurredAt,
		Data:       data,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	attrs := map[string]string{
		"event_type": TypeListingStatusChanged,
		"event_id":   envelope.EventID,
		"listing_id": event.ListingID,
		"status":     event.To.String(),
	}
	serverID, err := p.sender.Send(ctx, body, attrs)
	if err != nil {
		return fmt.Errorf("publish %s: %w", TypeListingStatusChanged, err)
	}

	if p.logg != nil {
		logCtx := p.logg.WithFields(ctx, map[string]any{
			"event_id":   envelope.EventID,
			"message_id": serverID,
			"listing_id": event.ListingID,
			"status":     event.To.String(),
		})
		p.logg.Debug(logCtx, "listing event published")
	}
	return nil
}
