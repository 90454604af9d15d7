package models

import (
	"fmt"
	"time"
)

// Itinerary is one day of a trip; its items are the orderable plan.
type Itinerary struct {
	ID        string          `json:"id"`
	TripID    string          `json:"trip_id"`
	Date      string          `json:"date"`
	Title     string          `json:"title,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	Items     []ItineraryItem `json:"items,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type ItineraryItem struct {
	ID          string `json:"id"`
	ItineraryID string `json:"itinerary_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	// Times are clock times ("15:04"); empty when unscheduled.
	StartTime string    `json:"start_time,omitempty"`
	EndTime   string    `json:"end_time,omitempty"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SortItems orders items by the persisted order field, then start time,
// matching the backend's default ordering.
func SortItems(items []ItineraryItem) {
	sortSlice(items, func(a, b ItineraryItem) bool {
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
}

// ItemIDs returns the id sequence of items in their current order.
func ItemIDs(items []ItineraryItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// Permute rearranges items into the order given by ids. It fails unless
// ids is an exact permutation of the item ids: reordering may never
// change membership. The returned slice is a copy with renumbered
// order fields.
func Permute(items []ItineraryItem, ids []string) ([]ItineraryItem, error) {
	if len(ids) != len(items) {
		return nil, fmt.Errorf("permutation has %d ids, list has %d items", len(ids), len(items))
	}
	byID := make(map[string]ItineraryItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	out := make([]ItineraryItem, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		it, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown item id %q in permutation", id)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate item id %q in permutation", id)
		}
		seen[id] = true
		it.Order = i
		out = append(out, it)
	}
	return out, nil
}
