package models

import (
	"sort"
	"time"
)

// Chat message types accepted by the backend.
const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
	MessageTypeFile   = "file"
)

// ChatMessage is one message in a trip's chat room, ordered by CreatedAt.
type ChatMessage struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	SenderID    string    `json:"sender_id"`
	SenderName  string    `json:"sender_name,omitempty"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	ReplyTo     string    `json:"reply_to,omitempty"`
	Edited      bool      `json:"is_edited,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SortMessages orders messages chronologically, ties broken by id so
// the order is a total order.
func SortMessages(msgs []ChatMessage) {
	sortSlice(msgs, func(a, b ChatMessage) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func sortSlice[T any](s []T, less func(a, b T) bool) {
	sort.SliceStable(s, func(i, j int) bool { return less(s[i], s[j]) })
}
