package activity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inats "github.com/fenestra-platform/fenestra/internal/nats"
)

func TestEventFromMessage_Purchased(t *testing.T) {
	leadID := uuid.New()
	sellerID := uuid.New()

	payload, err := json.Marshal(inats.LeadPurchasedEvent{
		LeadID:         leadID,
		SellerID:       sellerID,
		SlotsBought:    2,
		SlotsRemaining: 3,
		AmountDue:      2100,
		PurchasedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)

	event, err := eventFromMessage(inats.SubjectLeadPurchased, payload)
	require.NoError(t, err)

	assert.Equal(t, leadID, event.LeadID)
	require.NotNil(t, event.SellerID)
	assert.Equal(t, sellerID, *event.SellerID)
	assert.Equal(t, EventLeadPurchased, event.EventType)
	assert.JSONEq(t, string(payload), string(event.Details))
}

func TestEventFromMessage_CreatedHasNoSeller(t *testing.T) {
	leadID := uuid.New()

	payload, err := json.Marshal(inats.LeadCreatedEvent{
		LeadID:    leadID,
		BuyerID:   uuid.New(),
		TotalSqft: 100,
		MaxSlots:  5,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	event, err := eventFromMessage(inats.SubjectLeadCreated, payload)
	require.NoError(t, err)

	assert.Equal(t, leadID, event.LeadID)
	assert.Nil(t, event.SellerID)
	assert.Equal(t, EventLeadCreated, event.EventType)
}

func TestEventFromMessage_RejectsMissingLeadID(t *testing.T) {
	_, err := eventFromMessage(inats.SubjectLeadCreated, []byte(`{"buyer_id":"x"}`))
	assert.Error(t, err)

	_, err = eventFromMessage(inats.SubjectLeadCreated, []byte(`{}`))
	assert.ErrorIs(t, err, errMissingLeadID)
}

func TestEventFromMessage_RejectsGarbage(t *testing.T) {
	_, err := eventFromMessage(inats.SubjectLeadCreated, []byte(`not json`))
	assert.Error(t, err)
}
