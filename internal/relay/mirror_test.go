package relay

import (
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/quizbid/quizbid/internal/auction"
)

func TestMirrorReconstructsState(t *testing.T) {
	m := NewMirror()

	snap := m.Snapshot()
	check.False(t, snap.Open)
	check.Equal(t, auction.PlaceholderTitle, snap.Title)

	tag := "graphs"
	m.Broadcast(auction.NewEvent(auction.EventTypeQuestion, auction.QuestionPayload{
		Title:       "Graph Theory",
		Description: "Shortest paths under fire",
		Tag:         &tag,
	}))

	snap = m.Snapshot()
	check.True(t, snap.Open)
	check.Equal(t, "Graph Theory", snap.Title)
	check.Equal(t, int64(0), snap.LeaderAmount)

	m.Broadcast(auction.NewEvent(auction.EventTypeCurrBid, auction.CurrBidPayload{
		Team:   "teamA",
		Amount: 100,
	}))

	snap = m.Snapshot()
	check.Equal(t, "teamA", snap.LeaderTeam)
	check.Equal(t, int64(100), snap.LeaderAmount)
}

func TestMirrorResetsOnAbortAndSettle(t *testing.T) {
	for _, typ := range []auction.EventType{auction.EventTypeAbort, auction.EventTypeUpdateInfo} {
		m := NewMirror()
		m.Broadcast(auction.NewEvent(auction.EventTypeQuestion, auction.QuestionPayload{Title: "Q"}))
		m.Broadcast(auction.NewEvent(auction.EventTypeCurrBid, auction.CurrBidPayload{Team: "teamA", Amount: 50}))

		m.Broadcast(auction.Event{Type: typ, Data: []byte(`{}`)})

		snap := m.Snapshot()
		check.False(t, snap.Open)
		check.Equal(t, "", snap.LeaderTeam)
		check.Equal(t, int64(0), snap.LeaderAmount)
		check.Equal(t, auction.PlaceholderTitle, snap.Title)
	}
}

func TestMirrorRejectsBids(t *testing.T) {
	m := NewMirror()
	res := m.SubmitBid("teamA", 100)
	check.False(t, res.Accepted)
	check.Equal(t, auction.RejectNotPrimary, res.Reason)
}
