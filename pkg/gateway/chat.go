package gateway

import (
	"context"

	"tripsync/pkg/models"
)

// ListMessages fetches a room's message history, oldest first.
func (c *Client) ListMessages(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	if err := c.doJSON(ctx, "gateway.ListMessages", "GET", "/api/v1/chat/rooms/"+roomID+"/messages/", nil, &out); err != nil {
		return nil, err
	}
	models.SortMessages(out)
	return out, nil
}

// SendMessage posts a message over REST and returns the persisted row.
// The live channel is the preferred path; this is the fallback used by
// the send controller so delivery does not depend on an open socket.
func (c *Client) SendMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	var out models.ChatMessage
	if err := c.doJSON(ctx, "gateway.SendMessage", "POST", "/api/v1/chat/messages/", msg, &out); err != nil {
		return models.ChatMessage{}, err
	}
	return out, nil
}
