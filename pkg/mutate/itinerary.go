package mutate

import (
	"context"

	"github.com/google/uuid"

	"tripsync/pkg/logger"
	"tripsync/pkg/models"
	"tripsync/pkg/neterr"
	"tripsync/pkg/repo"
)

// ItineraryController runs optimistic item mutations against one
// itinerary day: reorder, delete, add.
type ItineraryController struct {
	repo  *repo.Itineraries
	state *State[models.Itinerary]
}

// NewItineraryController starts from a confirmed itinerary sourced
// from a repository read.
func NewItineraryController(r *repo.Itineraries, initial models.Itinerary) *ItineraryController {
	models.SortItems(initial.Items)
	return &ItineraryController{repo: r, state: NewState(cloneItinerary(initial))}
}

// Current returns the visible itinerary snapshot.
func (c *ItineraryController) Current() Snapshot[models.Itinerary] { return c.state.Get() }

// Watch subscribes to visible state changes.
func (c *ItineraryController) Watch() (<-chan Snapshot[models.Itinerary], func()) {
	return c.state.Watch()
}

func cloneItinerary(it models.Itinerary) models.Itinerary {
	out := it
	out.Items = make([]models.ItineraryItem, len(it.Items))
	copy(out.Items, it.Items)
	return out
}

// Reorder applies the permutation given by ids optimistically. The
// intent is rejected unless ids is an exact permutation of the current
// item ids. On failure the pre-mutation id order is restored exactly.
func (c *ItineraryController) Reorder(ctx context.Context, ids []string) error {
	cur := c.state.Get()
	prior := cloneItinerary(cur.Value)
	items, err := models.Permute(cur.Value.Items, ids)
	if err != nil {
		return neterr.Wrap(neterr.ValidationFailure, "itinerary.Reorder", err)
	}
	next := cloneItinerary(cur.Value)
	next.Items = items

	gen := c.state.begin(next)
	serverItems, err := c.repo.Reorder(ctx, next, ids)
	if err != nil {
		c.rollback(ctx, gen, prior, err)
		return err
	}
	next.Items = serverItems
	c.state.settle(gen, PhaseConfirmed, next)
	return nil
}

// DeleteItem removes the item optimistically, remembering its list
// position. On failure the item reappears at that exact position, not
// appended at the end.
func (c *ItineraryController) DeleteItem(ctx context.Context, itemID string) error {
	cur := c.state.Get()
	idx := -1
	for i, item := range cur.Value.Items {
		if item.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return neterr.New(neterr.ValidationFailure, "itinerary.DeleteItem", "unknown item "+itemID)
	}
	removed := cur.Value.Items[idx]
	next := cloneItinerary(cur.Value)
	next.Items = append(next.Items[:idx], next.Items[idx+1:]...)

	gen := c.state.begin(next)
	if err := c.repo.DeleteItem(ctx, next, itemID); err != nil {
		restored := cloneItinerary(next)
		restored.Items = insertItem(restored.Items, idx, removed)
		c.rollback(ctx, gen, restored, err)
		return err
	}
	c.state.settle(gen, PhaseConfirmed, next)
	return nil
}

// AddItem appends a provisional item (uuid id, next order slot) and
// swaps it for the server's row on success.
func (c *ItineraryController) AddItem(ctx context.Context, item models.ItineraryItem) error {
	cur := c.state.Get()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.ItineraryID = cur.Value.ID
	item.Order = len(cur.Value.Items)
	next := cloneItinerary(cur.Value)
	next.Items = append(next.Items, item)

	gen := c.state.begin(next)
	created, err := c.repo.AddItem(ctx, next, item)
	if err != nil {
		restored := cloneItinerary(next)
		restored.Items = removeItem(restored.Items, item.ID)
		c.rollback(ctx, gen, restored, err)
		return err
	}
	confirmed := cloneItinerary(next)
	for i := range confirmed.Items {
		if confirmed.Items[i].ID == item.ID {
			confirmed.Items[i] = created
		}
	}
	models.SortItems(confirmed.Items)
	c.state.settle(gen, PhaseConfirmed, confirmed)
	return nil
}

// rollback restores the given known-good itinerary. The revert is
// scoped to the failed mutation's delta: it's computed against the
// provisional value this generation installed, so it never discards a
// newer provisional edit (the settle is generation-guarded).
func (c *ItineraryController) rollback(ctx context.Context, gen uint64, restored models.Itinerary, cause error) {
	if !c.state.settle(gen, PhaseRolledBack, restored) {
		return
	}
	if err := c.repo.PutLocal(restored); err != nil {
		logger.Error("itinerary_rollback_store_failed", "itinerary", restored.ID, "error", err)
	}
	if neterr.Retryable(cause) {
		return
	}
	if err := c.repo.Refresh(ctx, restored.TripID); err != nil {
		logger.Debug("itinerary_rollback_refresh_failed", "itinerary", restored.ID, "error", err)
		return
	}
	if fresh, err := c.repo.GetLocal(restored.TripID, restored.ID); err == nil {
		c.state.settle(gen, PhaseIdle, fresh)
	}
}

func insertItem(items []models.ItineraryItem, idx int, item models.ItineraryItem) []models.ItineraryItem {
	if idx > len(items) {
		idx = len(items)
	}
	items = append(items, models.ItineraryItem{})
	copy(items[idx+1:], items[idx:])
	items[idx] = item
	return items
}

func removeItem(items []models.ItineraryItem, id string) []models.ItineraryItem {
	out := items[:0]
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}
