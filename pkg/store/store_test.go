package store

import (
	"encoding/json"
	"testing"
)

type rec struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func open(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := open(t)
	if err := s.Put(KindTrips, "", "t1", rec{ID: "t1", Name: "alps"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	var got rec
	if err := s.Get(KindTrips, "", "t1", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "alps" {
		t.Fatalf("got %+v", got)
	}
}

func TestGetAbsentIsErrNotFound(t *testing.T) {
	s := open(t)
	var got rec
	if err := s.Get(KindTrips, "", "missing", &got); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScopesAreIndependent(t *testing.T) {
	s := open(t)
	if err := s.Put(KindPolls, "trip1", "p1", rec{ID: "p1"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(KindPolls, "trip2", "p2", rec{ID: "p2"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	raws, err := s.List(KindPolls, "trip1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(raws) != 1 {
		t.Fatalf("trip1 scope has %d records, want 1", len(raws))
	}
	if err := s.Clear(KindPolls, "trip1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if has, _ := s.Has(KindPolls, "trip1"); has {
		t.Fatalf("trip1 scope not cleared")
	}
	if has, _ := s.Has(KindPolls, "trip2"); !has {
		t.Fatalf("Clear leaked into trip2 scope")
	}
}

func TestReplaceScopeSwapsSnapshot(t *testing.T) {
	s := open(t)
	if err := s.Put(KindTrips, "", "old", rec{ID: "old"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ids := []string{"a", "b"}
	recs := []any{rec{ID: "a"}, rec{ID: "b"}}
	if err := s.ReplaceScope(KindTrips, "", ids, recs); err != nil {
		t.Fatalf("ReplaceScope: %v", err)
	}
	raws, err := s.List(KindTrips, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("snapshot has %d records, want 2", len(raws))
	}
	var got rec
	if err := s.Get(KindTrips, "", "old", &got); err != ErrNotFound {
		t.Fatalf("stale record survived replace: %v", err)
	}
}

func TestPutManyBatch(t *testing.T) {
	s := open(t)
	ids := []string{"m1", "m2", "m3"}
	recs := []any{rec{ID: "m1"}, rec{ID: "m2"}, rec{ID: "m3"}}
	if err := s.PutMany(KindMessages, "room1", ids, recs); err != nil {
		t.Fatalf("PutMany: %v", err)
	}
	raws, err := s.List(KindMessages, "room1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(raws) != 3 {
		t.Fatalf("got %d records, want 3", len(raws))
	}
	for _, raw := range raws {
		var r rec
		if err := json.Unmarshal(raw, &r); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

func TestDeleteThenAbsent(t *testing.T) {
	s := open(t)
	if err := s.Put(KindTrips, "", "t1", rec{ID: "t1"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete(KindTrips, "", "t1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var got rec
	if err := s.Get(KindTrips, "", "t1", &got); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// deleting an absent id is a no-op
	if err := s.Delete(KindTrips, "", "t1"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestClosedStorePropagatesErrors(t *testing.T) {
	s, err := Open(t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Put(KindTrips, "", "t1", rec{ID: "t1"}); err != ErrClosed {
		t.Fatalf("write on closed store: got %v want ErrClosed", err)
	}
	if _, err := s.List(KindTrips, ""); err != ErrClosed {
		t.Fatalf("list on closed store: got %v want ErrClosed", err)
	}
	// double close is safe
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
