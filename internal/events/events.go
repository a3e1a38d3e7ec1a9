// Package events publishes listing lifecycle events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/brandinbox/pkg/enums"
)

const (
	// EnvelopeVersion is bumped on breaking payload changes.
	EnvelopeVersion = 1

	TypeListingStatusChanged = "listing.status_changed"
)

// Envelope is the stable wrapper every message body carries.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// ListingStatusChanged is emitted after every committed status transition.
type ListingStatusChanged struct {
	ListingID    string              `json:"listing_id"`
	UserID       uint                `json:"user_id"`
	From         enums.ListingStatus `json:"from"`
	To           enums.ListingStatus `json:"to"`
	ErrorMessage *string             `json:"error_message,omitempty"`
	OccurredAt   time.Time           `json:"occurred_at"`
}

// Publisher delivers listing events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishStatusChanged(ctx context.Context, event ListingStatusChanged) error
}

// Nop drops every event; used when Pub/Sub is disabled.
type Nop struct{}

func (Nop) PublishStatusChanged(context.Context, ListingStatusChanged) error { return nil }
