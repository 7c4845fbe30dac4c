package activity

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/fenestra-platform/fenestra/internal/nats"
)

// Consumer persists lead events from the stream into lead_events. One
// durable consumer covers all lead subjects.
type Consumer struct {
	repo        *Repository
	consumerMgr *inats.ConsumerManager
}

func NewConsumer(repo *Repository, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, "lead-activity-persister", inats.SubjectLeadWildcard)
	if err != nil {
		return err
	}

	slog.Info("activity consumer started", "consumer", "lead-activity-persister")

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("activity consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleEvent(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// envelope is the shared shape of every lead event payload.
type envelope struct {
	LeadID   uuid.UUID  `json:"lead_id"`
	SellerID *uuid.UUID `json:"seller_id,omitempty"`
}

// eventFromMessage extracts the common envelope fields and derives the event
// type from the subject. Fails on payloads that do not reference a lead.
func eventFromMessage(subject string, data []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.LeadID == uuid.Nil {
		return nil, errMissingLeadID
	}
	return &Event{
		ID:        uuid.New(),
		LeadID:    env.LeadID,
		SellerID:  env.SellerID,
		EventType: strings.TrimPrefix(subject, "fenestra.events."),
		Details:   json.RawMessage(data),
		CreatedAt: time.Now(),
	}, nil
}

var errMissingLeadID = errors.New("event payload has no lead id")

func (c *Consumer) handleEvent(ctx context.Context, msg jetstream.Msg) {
	event, err := eventFromMessage(msg.Subject(), msg.Data())
	if err != nil {
		if errors.Is(err, errMissingLeadID) {
			// Malformed but not retryable: drop rather than redeliver forever.
			slog.Error("activity consumer: event without lead id", "subject", msg.Subject())
			_ = msg.Ack()
			return
		}
		slog.Error("activity consumer: unmarshaling event", "subject", msg.Subject(), "error", err)
		_ = msg.Nak()
		return
	}

	if err := c.repo.Insert(ctx, event); err != nil {
		slog.Error("activity consumer: persisting lead event", "lead_id", event.LeadID, "error", err)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()

	slog.Debug("activity consumer: persisted event",
		"event_type", event.EventType,
		"lead_id", event.LeadID,
	)
}
