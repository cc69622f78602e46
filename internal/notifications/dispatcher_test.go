package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyronamart/groupbuy-backend/pkg/logger"
)

type fakePublishResult struct {
	id  string
	err error
}

func (r fakePublishResult) Get(ctx context.Context) (string, error) {
	return r.id, r.err
}

type fakePublisher struct {
	messages []*gcppubsub.Message
	result   publishResult
}

func (p *fakePublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	return p.result
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestDispatchPublishesEvent(t *testing.T) {
	pub := &fakePublisher{result: fakePublishResult{id: "m-1"}}
	fixedNow := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	d, err := newDispatcher(pub, testLogger(), func() time.Time { return fixedNow })
	require.NoError(t, err)

	campaignID := uuid.New()
	participantID := uuid.New()
	d.Dispatch(context.Background(), Event{
		Type:          EventCampaignSettled,
		CampaignID:    campaignID,
		ParticipantID: participantID,
	})

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, string(EventCampaignSettled), msg.Attributes["event_type"])
	assert.Equal(t, campaignID.String(), msg.Attributes["campaign_id"])

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, participantID, decoded.ParticipantID)
	assert.Equal(t, fixedNow, decoded.OccurredAt)
}

func TestDispatchSwallowsPublishErrors(t *testing.T) {
	pub := &fakePublisher{result: fakePublishResult{err: errors.New("broker down")}}
	d, err := newDispatcher(pub, testLogger(), nil)
	require.NoError(t, err)

	// Must not panic or propagate the error.
	d.Dispatch(context.Background(), Event{Type: EventCampaignExpired, CampaignID: uuid.New()})
	assert.Len(t, pub.messages, 1)
}
