package repo

import (
	"context"

	"tripsync/pkg/models"
	"tripsync/pkg/store"
)

// TripAPI is the slice of the gateway the trip repository needs.
type TripAPI interface {
	ListTrips(ctx context.Context) ([]models.Trip, error)
	GetTrip(ctx context.Context, id string) (models.Trip, error)
	CreateTrip(ctx context.Context, t models.Trip) (models.Trip, error)
	UpdateTrip(ctx context.Context, t models.Trip) (models.Trip, error)
	DeleteTrip(ctx context.Context, id string) error
}

// Trips is the repository for the trips table. Trips live in one
// unscoped snapshot.
type Trips struct {
	store *store.Store
	api   TripAPI
}

func NewTrips(s *store.Store, api TripAPI) *Trips {
	return &Trips{store: s, api: api}
}

// Read returns the trip list under the shared freshness policy.
func (r *Trips) Read(ctx context.Context, opts ReadOpts) ([]models.Trip, error) {
	return readList(ctx, r.store, store.KindTrips, "", opts, r.Refresh, models.SortTrips)
}

// Refresh fetches the authoritative list and replaces the snapshot.
// Unlike Read it never degrades to cache; the syncer depends on seeing
// the raw classification.
func (r *Trips) Refresh(ctx context.Context) error {
	trips, err := r.api.ListTrips(ctx)
	if err != nil {
		return err
	}
	ids, recs := idsAndRecs(trips, func(t models.Trip) string { return t.ID })
	return r.store.ReplaceScope(store.KindTrips, "", ids, recs)
}

// Get returns one trip, cache-first, with a single-row upsert on a
// forced refresh.
func (r *Trips) Get(ctx context.Context, id string, opts ReadOpts) (models.Trip, error) {
	if !opts.ForceRefresh {
		var t models.Trip
		err := r.store.Get(store.KindTrips, "", id, &t)
		if err == nil {
			return t, nil
		}
		if err != store.ErrNotFound {
			return models.Trip{}, err
		}
	}
	t, err := r.api.GetTrip(ctx, id)
	if err != nil {
		return models.Trip{}, err
	}
	if err := r.store.Put(store.KindTrips, "", t.ID, t); err != nil {
		return models.Trip{}, err
	}
	return t, nil
}

// PutLocal upserts a trip row locally without touching the network.
// Controllers use it for provisional writes and rollbacks.
func (r *Trips) PutLocal(t models.Trip) error {
	return r.store.Put(store.KindTrips, "", t.ID, t)
}

// DeleteLocal removes a trip row locally.
func (r *Trips) DeleteLocal(id string) error {
	return r.store.Delete(store.KindTrips, "", id)
}

// Create writes through: local row first, then the remote call; on
// success the provisional row is replaced by the server's.
func (r *Trips) Create(ctx context.Context, t models.Trip) (models.Trip, error) {
	if err := r.PutLocal(t); err != nil {
		return models.Trip{}, err
	}
	created, err := r.api.CreateTrip(ctx, t)
	if err != nil {
		return models.Trip{}, err
	}
	if created.ID != t.ID {
		if err := r.DeleteLocal(t.ID); err != nil {
			return models.Trip{}, err
		}
	}
	if err := r.PutLocal(created); err != nil {
		return models.Trip{}, err
	}
	return created, nil
}

// Update writes through an edit.
func (r *Trips) Update(ctx context.Context, t models.Trip) (models.Trip, error) {
	if err := r.PutLocal(t); err != nil {
		return models.Trip{}, err
	}
	updated, err := r.api.UpdateTrip(ctx, t)
	if err != nil {
		return models.Trip{}, err
	}
	if err := r.PutLocal(updated); err != nil {
		return models.Trip{}, err
	}
	return updated, nil
}

// Delete writes through a removal.
func (r *Trips) Delete(ctx context.Context, id string) error {
	if err := r.DeleteLocal(id); err != nil {
		return err
	}
	return r.api.DeleteTrip(ctx, id)
}
