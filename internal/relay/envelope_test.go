package relay

import (
	"encoding/json"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/quizbid/quizbid/internal/auction"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	ev := auction.NewEvent(auction.EventTypeCurrBid, auction.CurrBidPayload{
		Team:   "teamA",
		Amount: 100,
	})

	data, err := json.Marshal(toEnvelope(ev))
	assert.NoError(t, err)

	var env envelope
	assert.NoError(t, json.Unmarshal(data, &env))

	got, err := fromEnvelope(env)
	assert.NoError(t, err)
	check.Equal(t, ev.ID, got.ID)
	check.Equal(t, ev.Type, got.Type)

	var payload auction.CurrBidPayload
	assert.NoError(t, json.Unmarshal(got.Data, &payload))
	check.Equal(t, "teamA", payload.Team)
	check.Equal(t, int64(100), payload.Amount)
}

func TestFromEnvelopeRejectsUnknownType(t *testing.T) {
	_, err := fromEnvelope(envelope{EventID: "x", EventType: "mystery"})
	check.Error(t, err)
}

func TestFromEnvelopeRejectsBidAck(t *testing.T) {
	// Bid acks are connection-local and never cross nodes.
	_, err := fromEnvelope(envelope{EventID: "x", EventType: string(auction.EventTypeBidAck)})
	check.Error(t, err)
}
