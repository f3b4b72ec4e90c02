package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quizbid/quizbid/internal/auction"
)

// Command is a client message on the auction channel. Action names
// match the wire protocol the clients already speak.
type Command struct {
	Action  string `json:"action"`
	Index   *int   `json:"index,omitempty"`
	Team    string `json:"team,omitempty"`
	Amount  *int64 `json:"amount,omitempty"`
	Seconds *int   `json:"seconds,omitempty"`
}

const (
	ActionHost      = "host"
	ActionBid       = "bid"
	ActionAbort     = "abortCurrBid"
	ActionTimeUp    = "timeUp"
	ActionCountdown = "countdown"
	ActionSettle    = "update-user-data"
)

// handleCommand routes one client message to the controller. Malformed
// messages are logged and dropped; a malformed or missing bid amount
// never reaches the arbiter. Operator actions from a non-host
// connection are refused.
func (h *Hub) handleCommand(ctx context.Context, conn *Connection, message []byte) {
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", conn.ID).
			Msg("unparseable client command")
		return
	}

	switch cmd.Action {
	case ActionBid:
		h.handleBid(conn, cmd)
	case ActionHost:
		if !h.requireHost(conn, cmd.Action) {
			return
		}
		if cmd.Index == nil {
			log.Warn().Str("connection_id", conn.ID).Msg("host command without index")
			return
		}
		h.controller.OpenLot(ctx, *cmd.Index)
	case ActionAbort:
		if !h.requireHost(conn, cmd.Action) {
			return
		}
		h.controller.AbortLot()
	case ActionTimeUp:
		if !h.requireHost(conn, cmd.Action) {
			return
		}
		h.controller.TimeUp()
	case ActionCountdown:
		if !h.requireHost(conn, cmd.Action) {
			return
		}
		if cmd.Seconds == nil || *cmd.Seconds <= 0 {
			log.Warn().Str("connection_id", conn.ID).Msg("countdown command without positive seconds")
			return
		}
		h.controller.ArmCountdown(time.Duration(*cmd.Seconds) * time.Second)
	case ActionSettle:
		if !h.requireHost(conn, cmd.Action) {
			return
		}
		if err := h.controller.SettleLot(ctx); err != nil {
			// Already logged at the settlement boundary; nothing is
			// surfaced to clients.
			log.Error().Err(err).Msg("settlement failed")
		}
	default:
		log.Warn().
			Str("connection_id", conn.ID).
			Str("action", cmd.Action).
			Msg("unknown client command")
	}
}

// handleBid submits a bid and acknowledges it to the sender only.
// Rejections are never broadcast.
func (h *Hub) handleBid(conn *Connection, cmd Command) {
	team := cmd.Team
	if team == "" {
		team = conn.Team
	}
	if team == "" || cmd.Amount == nil {
		log.Warn().Str("connection_id", conn.ID).Msg("bid command missing team or amount")
		return
	}

	res := h.controller.SubmitBid(team, *cmd.Amount)
	conn.sendEvent(auction.NewEvent(auction.EventTypeBidAck, auction.BidAckPayload{
		Accepted: res.Accepted,
		Reason:   string(res.Reason),
		Amount:   *cmd.Amount,
	}))
}

func (h *Hub) requireHost(conn *Connection, action string) bool {
	if conn.Role == RoleHost {
		return true
	}
	log.Warn().
		Str("connection_id", conn.ID).
		Str("team", conn.Team).
		Str("action", action).
		Msg("operator command from non-host connection refused")
	return false
}
