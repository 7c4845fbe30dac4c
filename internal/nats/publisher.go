package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishLeadCreated publishes a lead creation event.
func (p *Publisher) PublishLeadCreated(ctx context.Context, event LeadCreatedEvent) error {
	return p.publish(ctx, SubjectLeadCreated, event)
}

// PublishLeadPurchased publishes a slot purchase event.
func (p *Publisher) PublishLeadPurchased(ctx context.Context, event LeadPurchasedEvent) error {
	return p.publish(ctx, SubjectLeadPurchased, event)
}

// PublishLeadSoldOut publishes a sold-out event.
func (p *Publisher) PublishLeadSoldOut(ctx context.Context, event LeadSoldOutEvent) error {
	return p.publish(ctx, SubjectLeadSoldOut, event)
}

// PublishQuotaApplied publishes a free quota deduction event.
func (p *Publisher) PublishQuotaApplied(ctx context.Context, event QuotaAppliedEvent) error {
	return p.publish(ctx, SubjectQuotaApplied, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
