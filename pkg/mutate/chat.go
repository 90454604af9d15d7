package mutate

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tripsync/pkg/gateway"
	"tripsync/pkg/logger"
	"tripsync/pkg/models"
	"tripsync/pkg/repo"
)

// ChatController runs optimistic sends against one room's message list
// and folds live-channel deliveries into it. Sends for different
// messages may be in flight concurrently; each settles by swapping its
// own provisional row, so a resolving older send never disturbs a
// newer one.
type ChatController struct {
	repo   *repo.Chat
	roomID string
	sender string
	state  *State[[]models.ChatMessage]
}

// NewChatController starts from a confirmed history sourced from a
// repository read. sender identifies the local user on provisional rows.
func NewChatController(r *repo.Chat, roomID, sender string, initial []models.ChatMessage) *ChatController {
	models.SortMessages(initial)
	return &ChatController{repo: r, roomID: roomID, sender: sender, state: NewState(cloneMessages(initial))}
}

// Current returns the visible message list snapshot.
func (c *ChatController) Current() Snapshot[[]models.ChatMessage] { return c.state.Get() }

// Watch subscribes to visible state changes.
func (c *ChatController) Watch() (<-chan Snapshot[[]models.ChatMessage], func()) {
	return c.state.Watch()
}

func cloneMessages(msgs []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}

// Send appends a provisional message (uuid id, local clock) before the
// network call; on success the server row replaces it, on failure it
// disappears again and the error is reported.
func (c *ChatController) Send(ctx context.Context, content, replyTo string) error {
	cur := c.state.Get()
	msg := models.ChatMessage{
		ID:          uuid.NewString(),
		RoomID:      c.roomID,
		SenderID:    c.sender,
		Content:     content,
		MessageType: models.MessageTypeText,
		ReplyTo:     replyTo,
		CreatedAt:   time.Now().UTC(),
	}
	next := append(cloneMessages(cur.Value), msg)

	gen := c.state.begin(next)
	sent, err := c.repo.Send(ctx, msg)
	if err != nil {
		// the revert is scoped to this send: only its own provisional
		// row is removed, concurrent sends keep theirs
		c.state.amend(gen, PhaseRolledBack, func(msgs []models.ChatMessage) []models.ChatMessage {
			return removeMessage(cloneMessages(msgs), msg.ID)
		})
		if rerr := c.repo.RemoveLocal(c.roomID, msg.ID); rerr != nil {
			logger.Error("chat_rollback_store_failed", "msg", msg.ID, "error", rerr)
		}
		return err
	}
	c.state.amend(gen, PhaseConfirmed, func(msgs []models.ChatMessage) []models.ChatMessage {
		out := removeMessage(cloneMessages(msgs), msg.ID)
		out = upsertMessage(out, sent)
		models.SortMessages(out)
		return out
	})
	return nil
}

// ApplyLive folds one live-channel event into the store and the
// visible state. Message deliveries and the connect-time history
// backlog are confirmed writes; typing and disconnect events are not
// state.
func (c *ChatController) ApplyLive(ev gateway.Event) error {
	switch ev.Type {
	case gateway.EventMessage, gateway.EventEdited:
		if ev.Message == nil {
			return nil
		}
		msg := *ev.Message
		if msg.RoomID == "" {
			msg.RoomID = c.roomID
		}
		if err := c.repo.Append(msg); err != nil {
			return err
		}
		cur := c.state.Get()
		c.state.amend(cur.Gen, cur.Phase, func(msgs []models.ChatMessage) []models.ChatMessage {
			out := upsertMessage(cloneMessages(msgs), msg)
			models.SortMessages(out)
			return out
		})
	case gateway.EventHistory:
		history := cloneMessages(ev.Messages)
		for i := range history {
			if history[i].RoomID == "" {
				history[i].RoomID = c.roomID
			}
			if err := c.repo.Append(history[i]); err != nil {
				return err
			}
		}
		cur := c.state.Get()
		c.state.amend(cur.Gen, cur.Phase, func(msgs []models.ChatMessage) []models.ChatMessage {
			out := cloneMessages(msgs)
			for _, msg := range history {
				out = upsertMessage(out, msg)
			}
			models.SortMessages(out)
			return out
		})
	case gateway.EventError:
		logger.Warn("live_frame_error", "room", c.roomID, "error", ev.Err)
	}
	return nil
}

func removeMessage(msgs []models.ChatMessage, id string) []models.ChatMessage {
	out := msgs[:0]
	for _, m := range msgs {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

func upsertMessage(msgs []models.ChatMessage, msg models.ChatMessage) []models.ChatMessage {
	for i := range msgs {
		if msgs[i].ID == msg.ID {
			msgs[i] = msg
			return msgs
		}
	}
	return append(msgs, msg)
}
