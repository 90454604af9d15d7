package repo

import (
	"context"

	"tripsync/pkg/models"
	"tripsync/pkg/store"
)

// ChatAPI is the slice of the gateway the chat repository needs.
type ChatAPI interface {
	ListMessages(ctx context.Context, roomID string) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error)
}

// Chat is the repository for chat history, scoped per room.
type Chat struct {
	store *store.Store
	api   ChatAPI
}

func NewChat(s *store.Store, api ChatAPI) *Chat {
	return &Chat{store: s, api: api}
}

// Read returns a room's messages, oldest first, under the shared
// freshness policy.
func (r *Chat) Read(ctx context.Context, roomID string, opts ReadOpts) ([]models.ChatMessage, error) {
	refresh := func(ctx context.Context) error { return r.Refresh(ctx, roomID) }
	return readList(ctx, r.store, store.KindMessages, roomID, opts, refresh, models.SortMessages)
}

// Refresh fetches the room history and replaces the snapshot.
func (r *Chat) Refresh(ctx context.Context, roomID string) error {
	msgs, err := r.api.ListMessages(ctx, roomID)
	if err != nil {
		return err
	}
	ids, recs := idsAndRecs(msgs, func(m models.ChatMessage) string { return m.ID })
	return r.store.ReplaceScope(store.KindMessages, roomID, ids, recs)
}

// Append upserts one message locally: live-channel deliveries are
// confirmed writes, controller guesses are provisional ones.
func (r *Chat) Append(msg models.ChatMessage) error {
	return r.store.Put(store.KindMessages, msg.RoomID, msg.ID, msg)
}

// RemoveLocal deletes one message locally (rollback of a failed send).
func (r *Chat) RemoveLocal(roomID, id string) error {
	return r.store.Delete(store.KindMessages, roomID, id)
}

// Send writes through: the provisional message lands locally, then the
// REST call; on success the provisional row is swapped for the server's.
func (r *Chat) Send(ctx context.Context, provisional models.ChatMessage) (models.ChatMessage, error) {
	if err := r.Append(provisional); err != nil {
		return models.ChatMessage{}, err
	}
	sent, err := r.api.SendMessage(ctx, provisional)
	if err != nil {
		return models.ChatMessage{}, err
	}
	if sent.ID != provisional.ID {
		if err := r.RemoveLocal(provisional.RoomID, provisional.ID); err != nil {
			return models.ChatMessage{}, err
		}
	}
	if sent.RoomID == "" {
		sent.RoomID = provisional.RoomID
	}
	if err := r.Append(sent); err != nil {
		return models.ChatMessage{}, err
	}
	return sent, nil
}
