package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quizbid/quizbid/internal/auction"
)

// Mirror reconstructs the current lot state from the relayed event
// stream so a mirror node's gateway can serve snapshots to clients
// that connect to it. It satisfies the gateway's Controller interface,
// but it only observes: operator commands are ignored and bids are
// rejected, because arbitration lives on the primary node.
type Mirror struct {
	mu    sync.Mutex
	state auction.SnapshotPayload
}

// NewMirror creates a mirror with no open lot.
func NewMirror() *Mirror {
	return &Mirror{
		state: auction.SnapshotPayload{
			Title:       auction.PlaceholderTitle,
			Description: auction.PlaceholderDescription,
		},
	}
}

// Broadcast updates the reconstructed state from a relayed event.
// Wire the consumer through the mirror before the hub so snapshots
// never lag the events clients have already seen.
func (m *Mirror) Broadcast(ev auction.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Type {
	case auction.EventTypeQuestion:
		var p auction.QuestionPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			log.Error().Err(err).Msg("mirror: bad question payload")
			return
		}
		m.state = auction.SnapshotPayload{
			Open:        true,
			Title:       p.Title,
			Description: p.Description,
			Tag:         p.Tag,
		}

	case auction.EventTypeCurrBid:
		var p auction.CurrBidPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			log.Error().Err(err).Msg("mirror: bad bid payload")
			return
		}
		m.state.LeaderTeam = p.Team
		m.state.LeaderAmount = p.Amount

	case auction.EventTypeAbort, auction.EventTypeUpdateInfo:
		m.state = auction.SnapshotPayload{
			Title:       auction.PlaceholderTitle,
			Description: auction.PlaceholderDescription,
		}

	case auction.EventTypeSnapshot:
		var p auction.SnapshotPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			log.Error().Err(err).Msg("mirror: bad snapshot payload")
			return
		}
		m.state = p
	}
}

// Snapshot returns the reconstructed lot state.
func (m *Mirror) Snapshot() auction.SnapshotPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SubmitBid rejects: mirrors do not arbitrate.
func (m *Mirror) SubmitBid(team string, amount int64) auction.BidResult {
	log.Warn().Str("team", team).Int64("amount", amount).Msg("bid submitted to mirror node, rejecting")
	return auction.BidResult{Reason: auction.RejectNotPrimary}
}

// OpenLot is ignored on mirror nodes.
func (m *Mirror) OpenLot(_ context.Context, index int) {
	log.Warn().Int("index", index).Msg("operator command on mirror node ignored")
}

// AbortLot is ignored on mirror nodes.
func (m *Mirror) AbortLot() {
	log.Warn().Msg("operator command on mirror node ignored")
}

// TimeUp is ignored on mirror nodes.
func (m *Mirror) TimeUp() {
	log.Warn().Msg("operator command on mirror node ignored")
}

// ArmCountdown is ignored on mirror nodes.
func (m *Mirror) ArmCountdown(time.Duration) {
	log.Warn().Msg("operator command on mirror node ignored")
}

// SettleLot is ignored on mirror nodes.
func (m *Mirror) SettleLot(context.Context) error {
	log.Warn().Msg("operator command on mirror node ignored")
	return nil
}
