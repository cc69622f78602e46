// Package notifications fans settlement outcomes out to participants through
// Pub/Sub. Delivery is fire-and-forget: a failed publish is logged and never
// blocks or rolls back settlement.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/vyronamart/groupbuy-backend/pkg/logger"
)

const defaultPublishTimeout = 10 * time.Second

// EventType identifies a participant-facing event.
type EventType string

const (
	EventCampaignSettled      EventType = "campaign.settled"
	EventCampaignExpired      EventType = "campaign.expired"
	EventCampaignCancelled    EventType = "campaign.cancelled"
	EventContributionRefunded EventType = "contribution.refunded"
)

// Event is the payload delivered to participants.
type Event struct {
	Type          EventType `json:"type"`
	CampaignID    uuid.UUID `json:"campaign_id"`
	ParticipantID uuid.UUID `json:"participant_id,omitempty"`
	OrderID       uuid.UUID `json:"order_id,omitempty"`
	AmountCents   int       `json:"amount_cents,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("nil publish result")
	}
	return r.PublishResult.Get(ctx)
}

// Dispatcher publishes participant events.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
}

type dispatcher struct {
	publisher publisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewDispatcher builds the Pub/Sub backed dispatcher.
func NewDispatcher(pub *gcppubsub.Publisher, logg *logger.Logger, now func() time.Time) (Dispatcher, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher required")
	}
	return newDispatcher(&gcpPublisher{Publisher: pub}, logg, now)
}

func newDispatcher(pub publisher, logg *logger.Logger, now func() time.Time) (Dispatcher, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if now == nil {
		now = time.Now
	}
	return &dispatcher{publisher: pub, logg: logg, now: now}, nil
}

// Dispatch publishes the event and waits for the broker ack within the
// publish timeout. Errors are logged only.
func (d *dispatcher) Dispatch(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.now().UTC()
	}

	logCtx := d.logg.WithCampaignID(ctx, event.CampaignID.String())
	payload, err := json.Marshal(event)
	if err != nil {
		d.logg.Error(logCtx, "encoding participant event failed", err)
		return
	}

	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_type":  string(event.Type),
			"campaign_id": event.CampaignID.String(),
			"occurred_at": event.OccurredAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultPublishTimeout)
	defer cancel()
	result := d.publisher.Publish(publishCtx, msg)
	if result == nil {
		d.logg.Error(logCtx, "publisher returned nil result", fmt.Errorf("event %s dropped", event.Type))
		return
	}
	if _, err := result.Get(publishCtx); err != nil {
		d.logg.Error(logCtx, fmt.Sprintf("publishing %s failed", event.Type), err)
	}
}

// NopDispatcher drops every event. Used when Pub/Sub is not configured.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(ctx context.Context, event Event) {}
