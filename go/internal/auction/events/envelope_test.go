package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeDecode(t *testing.T) {
	auctionID := uuid.New()
	at := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

	env, err := New(auctionID, 7, TypeBidPlaced, at, BidPlacedPayload{SchoolID: "s1", TeamID: "t1", Amount: 60, PlacedAt: at})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), env.Sequence)
	assert.NotEmpty(t, env.EventID)

	decoded, err := Decode(env)
	require.NoError(t, err)
	bid, ok := decoded.(*BidPlacedPayload)
	require.True(t, ok)
	assert.Equal(t, int64(60), bid.Amount)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode(Envelope{EventType: "Nope", Payload: []byte("{}")})
	assert.Error(t, err)
}

func TestTopicRoundTrip(t *testing.T) {
	id := uuid.New()
	got, err := ParseTopic(Topic(id))
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseTopic("draft." + id.String())
	assert.Error(t, err)
}
