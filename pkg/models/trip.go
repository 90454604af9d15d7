package models

import "time"

// Trip status values accepted by the backend.
const (
	TripStatusDraft     = "draft"
	TripStatusPlanned   = "planned"
	TripStatusActive    = "active"
	TripStatusCompleted = "completed"
	TripStatusCancelled = "cancelled"
)

// Trip visibility values.
const (
	VisibilityPrivate = "private"
	VisibilityShared  = "shared"
	VisibilityPublic  = "public"
)

type Trip struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Visibility  string `json:"visibility,omitempty"`
	// Dates are calendar dates ("2006-01-02"); empty when unset.
	StartDate string    `json:"start_date,omitempty"`
	EndDate   string    `json:"end_date,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SortTrips orders trips newest-first, the backend's list order.
func SortTrips(trips []Trip) {
	sortSlice(trips, func(a, b Trip) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
