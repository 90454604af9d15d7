package mutate

import (
	"context"
	"testing"

	"tripsync/pkg/models"
	"tripsync/pkg/neterr"
	"tripsync/pkg/repo"
)

// stubItineraryAPI echoes reorder permutations and lets tests fail any
// call.
type stubItineraryAPI struct {
	itinerary models.Itinerary
	err       error
	reorders  int
	deletes   int
}

func (a *stubItineraryAPI) ListItineraries(ctx context.Context, tripID string) ([]models.Itinerary, error) {
	if a.err != nil {
		return nil, a.err
	}
	return []models.Itinerary{a.itinerary}, nil
}

func (a *stubItineraryAPI) GetItinerary(ctx context.Context, id string) (models.Itinerary, error) {
	return a.itinerary, a.err
}

func (a *stubItineraryAPI) CreateItinerary(ctx context.Context, it models.Itinerary) (models.Itinerary, error) {
	return it, a.err
}

func (a *stubItineraryAPI) CreateItem(ctx context.Context, item models.ItineraryItem) (models.ItineraryItem, error) {
	if a.err != nil {
		return models.ItineraryItem{}, a.err
	}
	item.ID = "srv-" + item.ID
	return item, nil
}

func (a *stubItineraryAPI) UpdateItem(ctx context.Context, item models.ItineraryItem) (models.ItineraryItem, error) {
	return item, a.err
}

func (a *stubItineraryAPI) DeleteItem(ctx context.Context, id string) error {
	a.deletes++
	return a.err
}

func (a *stubItineraryAPI) ReorderItems(ctx context.Context, itineraryID string, ids []string) ([]models.ItineraryItem, error) {
	a.reorders++
	if a.err != nil {
		return nil, a.err
	}
	items := make([]models.ItineraryItem, len(ids))
	for i, id := range ids {
		items[i] = models.ItineraryItem{ID: id, ItineraryID: itineraryID, Order: i}
	}
	return items, nil
}

func fiveItemDay() models.Itinerary {
	items := make([]models.ItineraryItem, 5)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		items[i] = models.ItineraryItem{ID: id, ItineraryID: "i1", Order: i}
	}
	return models.Itinerary{ID: "i1", TripID: "t1", Date: "2026-09-01", Items: items}
}

func idsOf(t *testing.T, snap Snapshot[models.Itinerary]) []string {
	t.Helper()
	return models.ItemIDs(snap.Value.Items)
}

func wantIDs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("ids: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids: got %v want %v", got, want)
		}
	}
}

func TestReorderConfirmed(t *testing.T) {
	api := &stubItineraryAPI{itinerary: fiveItemDay()}
	c := NewItineraryController(repo.NewItineraries(openStore(t), api), fiveItemDay())

	want := []string{"c", "a", "b", "e", "d"}
	if err := c.Reorder(context.Background(), want); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	cur := c.Current()
	if cur.Phase != PhaseConfirmed {
		t.Fatalf("phase %s", cur.Phase)
	}
	wantIDs(t, idsOf(t, cur), want)
	for i, item := range cur.Value.Items {
		if item.Order != i {
			t.Fatalf("item %s order %d at position %d", item.ID, item.Order, i)
		}
	}
}

func TestReorderRolledBackRestoresOrder(t *testing.T) {
	api := &stubItineraryAPI{itinerary: fiveItemDay(), err: offline()}
	c := NewItineraryController(repo.NewItineraries(openStore(t), api), fiveItemDay())

	err := c.Reorder(context.Background(), []string{"e", "d", "c", "b", "a"})
	if !neterr.Retryable(err) {
		t.Fatalf("classified %v", neterr.KindOf(err))
	}
	cur := c.Current()
	if cur.Phase != PhaseRolledBack {
		t.Fatalf("phase %s", cur.Phase)
	}
	wantIDs(t, idsOf(t, cur), []string{"a", "b", "c", "d", "e"})
}

func TestReorderRejectsMembershipChange(t *testing.T) {
	api := &stubItineraryAPI{itinerary: fiveItemDay()}
	c := NewItineraryController(repo.NewItineraries(openStore(t), api), fiveItemDay())

	cases := [][]string{
		{"a", "b", "c", "d"},           // missing
		{"a", "b", "c", "d", "x"},      // foreign
		{"a", "a", "b", "c", "d"},      // duplicate
		{"a", "b", "c", "d", "e", "e"}, // extra
	}
	for _, ids := range cases {
		err := c.Reorder(context.Background(), ids)
		if neterr.KindOf(err) != neterr.ValidationFailure {
			t.Fatalf("ids %v classified %v", ids, neterr.KindOf(err))
		}
	}
	if api.reorders != 0 {
		t.Fatalf("rejected reorder reached the network")
	}
	if cur := c.Current(); cur.Phase != PhaseIdle {
		t.Fatalf("rejected reorder moved the machine to %s", cur.Phase)
	}
}

func TestDeleteItemConfirmed(t *testing.T) {
	api := &stubItineraryAPI{itinerary: fiveItemDay()}
	c := NewItineraryController(repo.NewItineraries(openStore(t), api), fiveItemDay())

	if err := c.DeleteItem(context.Background(), "c"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	cur := c.Current()
	if cur.Phase != PhaseConfirmed {
		t.Fatalf("phase %s", cur.Phase)
	}
	wantIDs(t, idsOf(t, cur), []string{"a", "b", "d", "e"})
}

func TestDeleteItemRollbackRestoresPosition(t *testing.T) {
	api := &stubItineraryAPI{itinerary: fiveItemDay(), err: offline()}
	c := NewItineraryController(repo.NewItineraries(openStore(t), api), fiveItemDay())

	err := c.DeleteItem(context.Background(), "c")
	if !neterr.Retryable(err) {
		t.Fatalf("classified %v", neterr.KindOf(err))
	}
	cur := c.Current()
	if cur.Phase != PhaseRolledBack {
		t.Fatalf("phase %s", cur.Phase)
	}
	// the removed item must come back at index 2, not at the end
	wantIDs(t, idsOf(t, cur), []string{"a", "b", "c", "d", "e"})
}

func TestDeleteUnknownItemRejected(t *testing.T) {
	api := &stubItineraryAPI{itinerary: fiveItemDay()}
	c := NewItineraryController(repo.NewItineraries(openStore(t), api), fiveItemDay())
	err := c.DeleteItem(context.Background(), "zz")
	if neterr.KindOf(err) != neterr.ValidationFailure {
		t.Fatalf("classified %v", neterr.KindOf(err))
	}
	if api.deletes != 0 {
		t.Fatalf("rejected delete reached the network")
	}
}

func TestAddItemSwapsServerRow(t *testing.T) {
	api := &stubItineraryAPI{itinerary: fiveItemDay()}
	c := NewItineraryController(repo.NewItineraries(openStore(t), api), fiveItemDay())

	if err := c.AddItem(context.Background(), models.ItineraryItem{Title: "Dinner"}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	cur := c.Current()
	if cur.Phase != PhaseConfirmed {
		t.Fatalf("phase %s", cur.Phase)
	}
	if len(cur.Value.Items) != 6 {
		t.Fatalf("%d items after add", len(cur.Value.Items))
	}
	last := cur.Value.Items[5]
	if last.Title != "Dinner" || last.Order != 5 {
		t.Fatalf("appended item %+v", last)
	}
	if len(last.ID) < 4 || last.ID[:4] != "srv-" {
		t.Fatalf("provisional id survived confirm: %s", last.ID)
	}
}

func TestAddItemRollbackRemovesGuess(t *testing.T) {
	api := &stubItineraryAPI{itinerary: fiveItemDay(), err: offline()}
	c := NewItineraryController(repo.NewItineraries(openStore(t), api), fiveItemDay())

	err := c.AddItem(context.Background(), models.ItineraryItem{Title: "Dinner"})
	if !neterr.Retryable(err) {
		t.Fatalf("classified %v", neterr.KindOf(err))
	}
	cur := c.Current()
	if cur.Phase != PhaseRolledBack {
		t.Fatalf("phase %s", cur.Phase)
	}
	wantIDs(t, idsOf(t, cur), []string{"a", "b", "c", "d", "e"})
}
