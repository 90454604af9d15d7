package repo

import (
	"context"

	"tripsync/pkg/logger"
	"tripsync/pkg/models"
	"tripsync/pkg/store"
)

// PollAPI is the slice of the gateway the poll repository needs.
type PollAPI interface {
	ListPolls(ctx context.Context, tripID string) ([]models.Poll, error)
	GetPoll(ctx context.Context, id string) (models.Poll, error)
	CreatePoll(ctx context.Context, p models.Poll) (models.Poll, error)
	DeletePoll(ctx context.Context, id string) error
	Vote(ctx context.Context, pollID, optionID string) error
	Unvote(ctx context.Context, pollID, optionID string) error
}

// Polls is the repository for trip polls, scoped per trip.
type Polls struct {
	store *store.Store
	api   PollAPI
}

func NewPolls(s *store.Store, api PollAPI) *Polls {
	return &Polls{store: s, api: api}
}

// Read returns a trip's polls under the shared freshness policy.
func (r *Polls) Read(ctx context.Context, tripID string, opts ReadOpts) ([]models.Poll, error) {
	refresh := func(ctx context.Context) error { return r.Refresh(ctx, tripID) }
	return readList(ctx, r.store, store.KindPolls, tripID, opts, refresh, models.SortPolls)
}

// Refresh fetches the trip's polls and replaces the snapshot.
func (r *Polls) Refresh(ctx context.Context, tripID string) error {
	polls, err := r.api.ListPolls(ctx, tripID)
	if err != nil {
		return err
	}
	ids, recs := idsAndRecs(polls, func(p models.Poll) string { return p.ID })
	return r.store.ReplaceScope(store.KindPolls, tripID, ids, recs)
}

// GetLocal returns one cached poll.
func (r *Polls) GetLocal(tripID, id string) (models.Poll, error) {
	var p models.Poll
	if err := r.store.Get(store.KindPolls, tripID, id, &p); err != nil {
		return models.Poll{}, err
	}
	return p, nil
}

// PutLocal upserts one poll row locally. Controllers use it for
// provisional writes and rollbacks.
func (r *Polls) PutLocal(p models.Poll) error {
	return r.store.Put(store.KindPolls, p.TripID, p.ID, p)
}

// Create writes through a new poll.
func (r *Polls) Create(ctx context.Context, p models.Poll) (models.Poll, error) {
	if err := r.PutLocal(p); err != nil {
		return models.Poll{}, err
	}
	created, err := r.api.CreatePoll(ctx, p)
	if err != nil {
		return models.Poll{}, err
	}
	if created.ID != p.ID {
		if err := r.store.Delete(store.KindPolls, p.TripID, p.ID); err != nil {
			return models.Poll{}, err
		}
	}
	if err := r.PutLocal(created); err != nil {
		return models.Poll{}, err
	}
	return created, nil
}

// Delete writes through a poll removal.
func (r *Polls) Delete(ctx context.Context, tripID, id string) error {
	if err := r.store.Delete(store.KindPolls, tripID, id); err != nil {
		return err
	}
	return r.api.DeletePoll(ctx, id)
}

// Vote writes through: the provisional poll (count bumped, vote marked)
// lands locally, then the vote call; on success the poll is re-read for
// authoritative totals. When the re-read fails the accepted vote is not
// rolled back — the guess stands until the next sync pass trues it, and
// the false confirmed flag tells the caller the value is still a guess.
func (r *Polls) Vote(ctx context.Context, provisional models.Poll, optionID string) (models.Poll, bool, error) {
	if err := r.PutLocal(provisional); err != nil {
		return models.Poll{}, false, err
	}
	if err := r.api.Vote(ctx, provisional.ID, optionID); err != nil {
		return models.Poll{}, false, err
	}
	confirmed, err := r.api.GetPoll(ctx, provisional.ID)
	if err != nil {
		logger.Warn("vote_confirm_fetch_failed", "poll", provisional.ID, "error", err)
		return provisional, false, nil
	}
	if err := r.PutLocal(confirmed); err != nil {
		return models.Poll{}, false, err
	}
	return confirmed, true, nil
}

// Unvote writes through a vote retraction with the same discipline.
func (r *Polls) Unvote(ctx context.Context, provisional models.Poll, optionID string) (models.Poll, bool, error) {
	if err := r.PutLocal(provisional); err != nil {
		return models.Poll{}, false, err
	}
	if err := r.api.Unvote(ctx, provisional.ID, optionID); err != nil {
		return models.Poll{}, false, err
	}
	confirmed, err := r.api.GetPoll(ctx, provisional.ID)
	if err != nil {
		logger.Warn("unvote_confirm_fetch_failed", "poll", provisional.ID, "error", err)
		return provisional, false, nil
	}
	if err := r.PutLocal(confirmed); err != nil {
		return models.Poll{}, false, err
	}
	return confirmed, true, nil
}
