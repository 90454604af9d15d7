package mutate

import (
	"context"

	"tripsync/pkg/logger"
	"tripsync/pkg/models"
	"tripsync/pkg/neterr"
	"tripsync/pkg/repo"
)

// PollController runs optimistic votes against one poll. Voting is
// single-shot: a second vote intent on a poll whose vote is already
// set is rejected before entering the provisional phase.
type PollController struct {
	repo  *repo.Polls
	state *State[models.Poll]
}

// NewPollController starts from a confirmed poll sourced from a
// repository read.
func NewPollController(r *repo.Polls, initial models.Poll) *PollController {
	return &PollController{repo: r, state: NewState(initial.Clone())}
}

// Current returns the visible poll snapshot.
func (c *PollController) Current() Snapshot[models.Poll] { return c.state.Get() }

// Watch subscribes to visible state changes.
func (c *PollController) Watch() (<-chan Snapshot[models.Poll], func()) { return c.state.Watch() }

// Vote casts an optimistic vote for optionID: the target option's
// count is incremented by exactly one and the user's vote marked,
// synchronously, before the network call. On success the server's poll
// replaces the guess; on failure the prior state is restored exactly.
func (c *PollController) Vote(ctx context.Context, optionID string) error {
	cur := c.state.Get()
	if cur.Value.UserVoteID != "" {
		return neterr.New(neterr.ValidationFailure, "poll.Vote", "already voted on this poll")
	}
	prior := cur.Value.Clone()
	next := cur.Value.Clone()
	opt := next.Option(optionID)
	if opt == nil {
		return neterr.New(neterr.ValidationFailure, "poll.Vote", "unknown option "+optionID)
	}
	opt.VoteCount++
	next.UserVoteID = optionID

	gen := c.state.begin(next)
	confirmed, ok, err := c.repo.Vote(ctx, next, optionID)
	if err != nil {
		c.rollback(ctx, gen, prior, err)
		return err
	}
	if !ok {
		// vote accepted but totals unverified: stay Provisional until
		// the next refresh settles on server truth
		logger.Debug("vote_unconfirmed", "poll", next.ID)
		return nil
	}
	c.state.settle(gen, PhaseConfirmed, confirmed)
	return nil
}

// Unvote retracts the user's current vote with the inverse delta.
func (c *PollController) Unvote(ctx context.Context) error {
	cur := c.state.Get()
	optionID := cur.Value.UserVoteID
	if optionID == "" {
		return neterr.New(neterr.ValidationFailure, "poll.Unvote", "no vote to retract")
	}
	prior := cur.Value.Clone()
	next := cur.Value.Clone()
	if opt := next.Option(optionID); opt != nil && opt.VoteCount > 0 {
		opt.VoteCount--
	}
	next.UserVoteID = ""

	gen := c.state.begin(next)
	confirmed, ok, err := c.repo.Unvote(ctx, next, optionID)
	if err != nil {
		c.rollback(ctx, gen, prior, err)
		return err
	}
	if !ok {
		logger.Debug("unvote_unconfirmed", "poll", next.ID)
		return nil
	}
	c.state.settle(gen, PhaseConfirmed, confirmed)
	return nil
}

// rollback restores the pre-mutation poll, undoes the provisional
// local-store write, and — when the failure was not an offline one —
// re-reads from the server so the visible state settles on truth.
func (c *PollController) rollback(ctx context.Context, gen uint64, prior models.Poll, cause error) {
	if !c.state.settle(gen, PhaseRolledBack, prior) {
		// superseded: a newer intent owns the visible state now
		return
	}
	if err := c.repo.PutLocal(prior); err != nil {
		logger.Error("poll_rollback_store_failed", "poll", prior.ID, "error", err)
	}
	if neterr.Retryable(cause) {
		return
	}
	if err := c.repo.Refresh(ctx, prior.TripID); err != nil {
		logger.Debug("poll_rollback_refresh_failed", "poll", prior.ID, "error", err)
		return
	}
	if fresh, err := c.repo.GetLocal(prior.TripID, prior.ID); err == nil {
		c.state.settle(gen, PhaseIdle, fresh)
	}
}
