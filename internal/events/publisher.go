// Package events publishes domain events about obligations and transfers.
package events

import (
	"context"
	"time"
)

const (
	ObligationCreated       = "obligation.created"
	ObligationStatusChanged = "obligation.status_changed"
	TransferSettled         = "transfer.settled"
)

// Event is the envelope written to the broker. Data carries the
// event-specific payload.
type Event struct {
	Type       string      `json:"type"`
	BusinessID string      `json:"business_id"`
	SubjectID  string      `json:"subject_id"`
	Data       interface{} `json:"data,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }
func (NopPublisher) Close() error                                   { return nil }
