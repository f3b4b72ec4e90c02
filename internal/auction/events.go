package auction

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a broadcast event on the auction channel.
type EventType string

const (
	EventTypeQuestion   EventType = "question"
	EventTypeCurrBid    EventType = "currBidData"
	EventTypeAbort      EventType = "abort"
	EventTypeTimeUp     EventType = "timeIsUp"
	EventTypeUpdateInfo EventType = "updateInfo"
	EventTypeSnapshot   EventType = "snapshot"
	EventTypeBidAck     EventType = "bidAck"
)

// Event is the envelope delivered to every subscriber.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// QuestionPayload announces the lot now open for bidding and resets
// every client's bidding view.
type QuestionPayload struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Tag         *string `json:"tag"`
}

// CurrBidPayload carries the new leading bid after an accepted bid.
type CurrBidPayload struct {
	Team   string `json:"team"`
	Amount int64  `json:"amount"`
}

// AbortPayload resets clients to the idle display after the host
// aborts the current lot.
type AbortPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      *int64 `json:"points"`
}

// UpdateInfoPayload announces a settled lot.
type UpdateInfoPayload struct {
	Title  string `json:"title"`
	Team   string `json:"team"`
	Amount int64  `json:"amount"`
}

// SnapshotPayload is sent to a connection when it registers so late
// joiners see the current lot instead of waiting for the next event.
type SnapshotPayload struct {
	Open         bool    `json:"open"`
	Index        *int    `json:"index"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Tag          *string `json:"tag"`
	LeaderTeam   string  `json:"leader_team"`
	LeaderAmount int64   `json:"leader_amount"`
}

// BidAckPayload is the per-bid acknowledgment sent only to the
// submitting connection. Rejections never broadcast.
type BidAckPayload struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	Amount   int64  `json:"amount"`
}

// NewEvent wraps a payload in an Event envelope.
func NewEvent(typ EventType, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		// Payloads are plain structs; marshal cannot fail at runtime.
		panic(err)
	}
	return Event{
		ID:        uuid.New().String(),
		Type:      typ,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Broadcaster fans an event out to every connected subscriber.
// Delivery is fire-and-forget, at most once per subscriber.
type Broadcaster interface {
	Broadcast(ev Event)
}

// BroadcasterFunc adapts a function to the Broadcaster interface.
type BroadcasterFunc func(ev Event)

func (f BroadcasterFunc) Broadcast(ev Event) { f(ev) }

// MultiBroadcaster delivers each event to every given broadcaster, in
// order. Used to tee the local hub and the NATS relay.
func MultiBroadcaster(broadcasters ...Broadcaster) Broadcaster {
	return BroadcasterFunc(func(ev Event) {
		for _, b := range broadcasters {
			b.Broadcast(ev)
		}
	})
}
