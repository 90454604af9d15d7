package repo

import (
	"context"

	"tripsync/pkg/logger"
	"tripsync/pkg/models"
	"tripsync/pkg/store"
)

// ItineraryAPI is the slice of the gateway the itinerary repository needs.
type ItineraryAPI interface {
	ListItineraries(ctx context.Context, tripID string) ([]models.Itinerary, error)
	GetItinerary(ctx context.Context, id string) (models.Itinerary, error)
	CreateItinerary(ctx context.Context, it models.Itinerary) (models.Itinerary, error)
	CreateItem(ctx context.Context, item models.ItineraryItem) (models.ItineraryItem, error)
	UpdateItem(ctx context.Context, item models.ItineraryItem) (models.ItineraryItem, error)
	DeleteItem(ctx context.Context, id string) error
	ReorderItems(ctx context.Context, itineraryID string, ids []string) ([]models.ItineraryItem, error)
}

// Itineraries is the repository for itinerary days and their ordered
// items, scoped per trip.
type Itineraries struct {
	store *store.Store
	api   ItineraryAPI
}

func NewItineraries(s *store.Store, api ItineraryAPI) *Itineraries {
	return &Itineraries{store: s, api: api}
}

func sortItineraries(its []models.Itinerary) {
	for i := range its {
		models.SortItems(its[i].Items)
	}
}

// Read returns a trip's itineraries under the shared freshness policy.
func (r *Itineraries) Read(ctx context.Context, tripID string, opts ReadOpts) ([]models.Itinerary, error) {
	refresh := func(ctx context.Context) error { return r.Refresh(ctx, tripID) }
	return readList(ctx, r.store, store.KindItineraries, tripID, opts, refresh, sortItineraries)
}

// Refresh fetches the trip's itineraries and replaces the snapshot.
func (r *Itineraries) Refresh(ctx context.Context, tripID string) error {
	its, err := r.api.ListItineraries(ctx, tripID)
	if err != nil {
		return err
	}
	ids, recs := idsAndRecs(its, func(it models.Itinerary) string { return it.ID })
	return r.store.ReplaceScope(store.KindItineraries, tripID, ids, recs)
}

// GetLocal returns one cached itinerary.
func (r *Itineraries) GetLocal(tripID, id string) (models.Itinerary, error) {
	var it models.Itinerary
	if err := r.store.Get(store.KindItineraries, tripID, id, &it); err != nil {
		return models.Itinerary{}, err
	}
	models.SortItems(it.Items)
	return it, nil
}

// PutLocal upserts one itinerary row locally. Controllers use it for
// provisional writes and rollbacks.
func (r *Itineraries) PutLocal(it models.Itinerary) error {
	return r.store.Put(store.KindItineraries, it.TripID, it.ID, it)
}

// Create writes through a new itinerary day.
func (r *Itineraries) Create(ctx context.Context, it models.Itinerary) (models.Itinerary, error) {
	if err := r.PutLocal(it); err != nil {
		return models.Itinerary{}, err
	}
	created, err := r.api.CreateItinerary(ctx, it)
	if err != nil {
		return models.Itinerary{}, err
	}
	if created.ID != it.ID {
		if err := r.store.Delete(store.KindItineraries, it.TripID, it.ID); err != nil {
			return models.Itinerary{}, err
		}
	}
	if err := r.PutLocal(created); err != nil {
		return models.Itinerary{}, err
	}
	return created, nil
}

// Reorder writes through a permutation: the provisional itinerary
// (items already permuted) lands locally first, then the server call;
// on success the server's item list replaces the guess.
func (r *Itineraries) Reorder(ctx context.Context, provisional models.Itinerary, ids []string) ([]models.ItineraryItem, error) {
	if err := r.PutLocal(provisional); err != nil {
		return nil, err
	}
	items, err := r.api.ReorderItems(ctx, provisional.ID, ids)
	if err != nil {
		return nil, err
	}
	models.SortItems(items)
	provisional.Items = items
	if err := r.PutLocal(provisional); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteItem writes through an item removal; provisional already has
// the item removed.
func (r *Itineraries) DeleteItem(ctx context.Context, provisional models.Itinerary, itemID string) error {
	if err := r.PutLocal(provisional); err != nil {
		return err
	}
	return r.api.DeleteItem(ctx, itemID)
}

// AddItem writes through a new item. The provisional itinerary carries
// the locally-guessed item; on success the server row replaces it.
func (r *Itineraries) AddItem(ctx context.Context, provisional models.Itinerary, item models.ItineraryItem) (models.ItineraryItem, error) {
	if err := r.PutLocal(provisional); err != nil {
		return models.ItineraryItem{}, err
	}
	created, err := r.api.CreateItem(ctx, item)
	if err != nil {
		return models.ItineraryItem{}, err
	}
	for i := range provisional.Items {
		if provisional.Items[i].ID == item.ID {
			provisional.Items[i] = created
		}
	}
	models.SortItems(provisional.Items)
	if err := r.PutLocal(provisional); err != nil {
		return models.ItineraryItem{}, err
	}
	logger.Debug("item_added", "itinerary", provisional.ID, "item", created.ID)
	return created, nil
}
