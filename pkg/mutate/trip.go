package mutate

import (
	"context"

	"github.com/google/uuid"

	"tripsync/pkg/logger"
	"tripsync/pkg/models"
	"tripsync/pkg/neterr"
	"tripsync/pkg/repo"
)

// TripController runs optimistic create/update/delete against the trip
// list.
type TripController struct {
	repo  *repo.Trips
	state *State[[]models.Trip]
}

// NewTripController starts from a confirmed trip list sourced from a
// repository read.
func NewTripController(r *repo.Trips, initial []models.Trip) *TripController {
	models.SortTrips(initial)
	return &TripController{repo: r, state: NewState(cloneTrips(initial))}
}

// Current returns the visible trip list snapshot.
func (c *TripController) Current() Snapshot[[]models.Trip] { return c.state.Get() }

// Watch subscribes to visible state changes.
func (c *TripController) Watch() (<-chan Snapshot[[]models.Trip], func()) { return c.state.Watch() }

func cloneTrips(trips []models.Trip) []models.Trip {
	out := make([]models.Trip, len(trips))
	copy(out, trips)
	return out
}

// Create inserts a provisional trip (uuid id, draft status unless set)
// and swaps it for the server's row on success.
func (c *TripController) Create(ctx context.Context, t models.Trip) error {
	cur := c.state.Get()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = models.TripStatusDraft
	}
	next := append(cloneTrips(cur.Value), t)
	models.SortTrips(next)

	gen := c.state.begin(next)
	created, err := c.repo.Create(ctx, t)
	if err != nil {
		restored := removeTrip(cloneTrips(next), t.ID)
		c.rollback(ctx, gen, restored, err)
		if derr := c.repo.DeleteLocal(t.ID); derr != nil {
			logger.Error("trip_rollback_store_failed", "trip", t.ID, "error", derr)
		}
		return err
	}
	confirmed := removeTrip(cloneTrips(next), t.ID)
	confirmed = append(confirmed, created)
	models.SortTrips(confirmed)
	c.state.settle(gen, PhaseConfirmed, confirmed)
	return nil
}

// Update replaces a trip row optimistically.
func (c *TripController) Update(ctx context.Context, t models.Trip) error {
	cur := c.state.Get()
	prior, ok := findTrip(cur.Value, t.ID)
	if !ok {
		return neterr.New(neterr.ValidationFailure, "trip.Update", "unknown trip "+t.ID)
	}
	next := replaceTrip(cloneTrips(cur.Value), t)

	gen := c.state.begin(next)
	updated, err := c.repo.Update(ctx, t)
	if err != nil {
		restored := replaceTrip(cloneTrips(next), prior)
		c.rollback(ctx, gen, restored, err)
		if perr := c.repo.PutLocal(prior); perr != nil {
			logger.Error("trip_rollback_store_failed", "trip", prior.ID, "error", perr)
		}
		return err
	}
	c.state.settle(gen, PhaseConfirmed, replaceTrip(cloneTrips(next), updated))
	return nil
}

// Delete removes a trip optimistically; on failure the row returns to
// its place in the canonical order.
func (c *TripController) Delete(ctx context.Context, id string) error {
	cur := c.state.Get()
	prior, ok := findTrip(cur.Value, id)
	if !ok {
		return neterr.New(neterr.ValidationFailure, "trip.Delete", "unknown trip "+id)
	}
	next := removeTrip(cloneTrips(cur.Value), id)

	gen := c.state.begin(next)
	if err := c.repo.Delete(ctx, id); err != nil {
		restored := append(cloneTrips(next), prior)
		models.SortTrips(restored)
		c.rollback(ctx, gen, restored, err)
		if perr := c.repo.PutLocal(prior); perr != nil {
			logger.Error("trip_rollback_store_failed", "trip", prior.ID, "error", perr)
		}
		return err
	}
	c.state.settle(gen, PhaseConfirmed, next)
	return nil
}

// rollback restores a known-good list and settles on a fresh read when
// the failure was not an offline one.
func (c *TripController) rollback(ctx context.Context, gen uint64, restored []models.Trip, cause error) {
	if !c.state.settle(gen, PhaseRolledBack, restored) {
		return
	}
	if neterr.Retryable(cause) {
		return
	}
	if fresh, err := c.repo.Read(ctx, repo.ReadOpts{ForceRefresh: true}); err == nil {
		c.state.settle(gen, PhaseIdle, fresh)
	}
}

func findTrip(trips []models.Trip, id string) (models.Trip, bool) {
	for _, t := range trips {
		if t.ID == id {
			return t, true
		}
	}
	return models.Trip{}, false
}

func replaceTrip(trips []models.Trip, t models.Trip) []models.Trip {
	for i := range trips {
		if trips[i].ID == t.ID {
			trips[i] = t
		}
	}
	return trips
}

func removeTrip(trips []models.Trip, id string) []models.Trip {
	out := trips[:0]
	for _, t := range trips {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}
