package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/quizbid/quizbid/internal/auction"
)

// envelope is the wire format mirrored onto NATS. It matches the
// WebSocket event closely so a remote gateway can rebroadcast without
// translation loss.
type envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func toEnvelope(ev auction.Event) envelope {
	return envelope{
		EventID:   ev.ID,
		EventType: string(ev.Type),
		Timestamp: ev.Timestamp,
		Payload:   ev.Data,
	}
}

func fromEnvelope(env envelope) (auction.Event, error) {
	switch auction.EventType(env.EventType) {
	case auction.EventTypeQuestion,
		auction.EventTypeCurrBid,
		auction.EventTypeAbort,
		auction.EventTypeTimeUp,
		auction.EventTypeUpdateInfo,
		auction.EventTypeSnapshot:
	default:
		return auction.Event{}, fmt.Errorf("unknown event type: %s", env.EventType)
	}
	return auction.Event{
		ID:        env.EventID,
		Type:      auction.EventType(env.EventType),
		Timestamp: env.Timestamp,
		Data:      env.Payload,
	}, nil
}
