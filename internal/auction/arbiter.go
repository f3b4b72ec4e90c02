package auction

// RejectReason says why a bid was not accepted.
type RejectReason string

const (
	RejectNoActiveLot RejectReason = "no_active_lot"
	RejectTooLow      RejectReason = "too_low"
	// RejectNotPrimary is returned by mirror nodes, which rebroadcast
	// events but do not arbitrate bids.
	RejectNotPrimary RejectReason = "not_primary"
)

// BidResult is the explicit per-bid outcome returned to the submitting
// connection. Rejections are never broadcast to other subscribers.
type BidResult struct {
	Accepted bool
	Reason   RejectReason
}

// SubmitBid applies the acceptance rule against the current lot: a bid
// wins the lead iff it is strictly greater than the leading amount.
// Ties lose, so the earlier bidder keeps the lead. There is no minimum
// increment and a team may outbid itself.
//
// The compare and the mutation happen under one lock acquisition with
// no suspension point between them, so concurrent bids are serialized.
func (c *Controller) SubmitBid(team string, amount int64) BidResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Open {
		return BidResult{Reason: RejectNoActiveLot}
	}
	if amount <= c.state.LeaderAmount {
		return BidResult{Reason: RejectTooLow}
	}

	c.state.LeaderTeam = team
	c.state.LeaderAmount = amount

	// Emitted under the lock so subscribers observe accepted bids in
	// the order they were applied. Broadcast only enqueues.
	c.broadcaster.Broadcast(NewEvent(EventTypeCurrBid, CurrBidPayload{
		Team:   team,
		Amount: amount,
	}))
	return BidResult{Accepted: true}
}
