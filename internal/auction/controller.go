package auction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Controller is the auction state machine. It exclusively owns the
// LotState; the gateway and any other caller mutate bidding state only
// through its methods. All in-memory reads and writes happen under one
// mutex, and external store calls always run against a snapshot taken
// before the lock is released, never under it.
type Controller struct {
	questions   QuestionStore
	ledger      TeamLedger
	broadcaster Broadcaster
	clock       clockwork.Clock

	mu    sync.Mutex
	state LotState

	// gen increments whenever the open lot changes. Settlement and the
	// countdown re-validate against it after any wait, so a lot opened
	// mid-flight is never clobbered by a stale operation.
	gen uint64

	// countdownGen invalidates a pending countdown when it is re-armed.
	// It is separate from gen: arming a countdown is not a lot change
	// and must not disturb an in-flight settlement.
	countdownGen uint64
}

// NewController creates a controller with no open lot.
func NewController(questions QuestionStore, ledger TeamLedger, broadcaster Broadcaster) *Controller {
	c := &Controller{
		questions:   questions,
		ledger:      ledger,
		broadcaster: broadcaster,
		clock:       clockwork.NewRealClock(),
	}
	c.state.reset()
	return c
}

// WithClock swaps the clock, for tests with a fake clock.
func (c *Controller) WithClock(clock clockwork.Clock) *Controller {
	c.clock = clock
	return c
}

// OpenLot puts the question at index up for bidding. The lot state is
// reset unconditionally: leader cleared, amount back to zero. If no
// question exists at the index the lot opens with placeholder display
// values, which is not an error. Any previously open unsettled lot is
// superseded and its bid state discarded.
func (c *Controller) OpenLot(ctx context.Context, index int) {
	q, err := c.questions.FindByIndex(ctx, index)
	if err != nil {
		// Clients still need their bidding view reset, so the lot
		// opens with placeholders and the lookup failure stays local.
		log.Error().Err(err).Int("index", index).Msg("question lookup failed, opening with placeholders")
		q = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.state.reset()
	c.state.Open = true
	idx := index
	c.state.Index = &idx
	if q != nil {
		c.state.Title = q.Title
		c.state.Description = q.Description
		c.state.Tag = q.Tag
	}

	c.broadcaster.Broadcast(NewEvent(EventTypeQuestion, QuestionPayload{
		Title:       c.state.Title,
		Description: c.state.Description,
		Tag:         c.state.Tag,
	}))

	log.Info().
		Int("index", index).
		Str("title", c.state.Title).
		Bool("found", q != nil).
		Msg("lot opened")
}

// AbortLot closes the current lot without settlement and resets the
// lot state in full, so the in-memory record matches what the abort
// broadcast tells every client. Aborting with no open lot still emits
// the broadcast and is otherwise a no-op.
func (c *Controller) AbortLot() {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasOpen := c.state.Open
	c.gen++
	c.state.reset()

	c.broadcaster.Broadcast(NewEvent(EventTypeAbort, AbortPayload{
		Title:       PlaceholderTitle,
		Description: PlaceholderDescription,
		Points:      nil,
	}))

	log.Info().Bool("was_open", wasOpen).Msg("lot aborted")
}

// TimeUp tells clients bidding is closed. It is advisory only: no
// state transition, no settlement.
func (c *Controller) TimeUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcaster.Broadcast(NewEvent(EventTypeTimeUp, struct{}{}))
	log.Info().Msg("time up signalled")
}

// ArmCountdown schedules an automatic timeIsUp broadcast after d. The
// countdown is advisory like TimeUp and is cancelled when the lot
// changes (open, abort, settle) or when re-armed. Arming with no open
// lot is ignored.
func (c *Controller) ArmCountdown(d time.Duration) {
	c.mu.Lock()
	if !c.state.Open {
		c.mu.Unlock()
		return
	}
	c.countdownGen++
	cdGen := c.countdownGen
	lotGen := c.gen
	c.mu.Unlock()

	timer := c.clock.After(d)
	go func() {
		<-timer
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != lotGen || c.countdownGen != cdGen || !c.state.Open {
			return
		}
		c.broadcaster.Broadcast(NewEvent(EventTypeTimeUp, struct{}{}))
		log.Info().Dur("after", d).Msg("countdown expired")
	}()
}

// SettleLot finalizes the current lot: the leading team becomes the
// question's owner, its balance is debited and the won title appended
// in one transaction, and only after all of that succeeds does the
// updateInfo broadcast fire. Store failures are logged here and never
// leave a partial broadcast. No open lot or no leading bid is a silent
// no-op; a missing ledger row abandons settlement after the owner
// write, matching the store-by-store order of the operation.
func (c *Controller) SettleLot(ctx context.Context) error {
	c.mu.Lock()
	if !c.state.Open || c.state.Index == nil {
		c.mu.Unlock()
		log.Debug().Msg("settle with no open lot, ignoring")
		return nil
	}
	snap := c.state.snapshot()
	gen := c.gen
	c.mu.Unlock()

	if snap.LeaderTeam == "" {
		log.Warn().Int("index", *snap.Index).Msg("settle with no leading bid, ignoring")
		return nil
	}

	// Everything below works off the snapshot. The lot may be
	// superseded while these writes are in flight; the gen check at
	// the end keeps a stale settle from resetting the new lot.
	if err := c.questions.SetOwner(ctx, *snap.Index, snap.LeaderTeam); err != nil {
		log.Error().Err(err).Int("index", *snap.Index).Msg("settlement: set owner failed")
		return fmt.Errorf("set question owner: %w", err)
	}

	entry, err := c.ledger.FindByTeam(ctx, snap.LeaderTeam)
	if err != nil {
		log.Error().Err(err).Str("team", snap.LeaderTeam).Msg("settlement: ledger lookup failed")
		return fmt.Errorf("find ledger entry: %w", err)
	}
	if entry == nil {
		log.Warn().Str("team", snap.LeaderTeam).Msg("settlement: no ledger entry for leading team, abandoning")
		return nil
	}

	if err := c.ledger.ApplyAtomic(ctx, snap.LeaderTeam, snap.LeaderAmount, snap.Title); err != nil {
		log.Error().Err(err).Str("team", snap.LeaderTeam).Msg("settlement: ledger update failed")
		return fmt.Errorf("apply ledger update: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.broadcaster.Broadcast(NewEvent(EventTypeUpdateInfo, UpdateInfoPayload{
		Title:  snap.Title,
		Team:   snap.LeaderTeam,
		Amount: snap.LeaderAmount,
	}))

	if c.gen == gen {
		c.gen++
		c.state.reset()
	}

	log.Info().
		Int("index", *snap.Index).
		Str("team", snap.LeaderTeam).
		Int64("amount", snap.LeaderAmount).
		Str("title", snap.Title).
		Msg("lot settled")
	return nil
}

// Snapshot returns a copy of the current lot state, sent to clients
// when they connect.
func (c *Controller) Snapshot() SnapshotPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.snapshot()
}
