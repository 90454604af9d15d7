package gateway

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"tripsync/pkg/logger"
	"tripsync/pkg/models"
	"tripsync/pkg/neterr"
)

// EventType tags frames delivered by a LiveChannel.
type EventType string

const (
	// EventMessage carries a new chat message.
	EventMessage EventType = "chat_message"
	// EventEdited carries an edited chat message.
	EventEdited EventType = "message_edited"
	// EventHistory carries the recent-message backlog the server sends
	// on connect.
	EventHistory EventType = "message_history"
	// EventTyping carries a typing indicator from another user.
	EventTyping EventType = "typing"
	// EventError carries a frame that failed to decode or a server-sent
	// error frame; Err is classified and Raw holds the payload.
	EventError EventType = "error"
	// EventDisconnected is terminal: the transport is gone and the
	// event stream ends after it.
	EventDisconnected EventType = "disconnected"
)

// Event is one decoded frame from the live channel.
type Event struct {
	Type     EventType
	Message  *models.ChatMessage
	Messages []models.ChatMessage
	UserID   string
	Typing   bool
	Raw      []byte
	Err      error
}

// Outbound is a frame sent to the server over the live channel.
type Outbound struct {
	Type        string `json:"type"`
	Content     string `json:"content,omitempty"`
	MessageType string `json:"message_type,omitempty"`
	ReplyTo     string `json:"reply_to,omitempty"`
}

// wire shape of inbound frames. Message is raw because error frames
// reuse the field for a plain string.
type liveFrame struct {
	Type     string               `json:"type"`
	Message  json.RawMessage      `json:"message"`
	Messages []models.ChatMessage `json:"messages"`
	UserID   string               `json:"user_id"`
	IsTyping bool                 `json:"is_typing"`
}

// LiveChannel is one logical websocket subscription per chat room.
// Connect may be called at most once per active room; Disconnect is
// idempotent and always releases the transport and the event stream.
// Reconnection policy belongs to the caller; the channel never redials.
type LiveChannel struct {
	wsURL  string
	token  TokenProvider
	dialer *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	events chan Event
	done   chan struct{}
	roomID string
}

// Live returns a new, unconnected live channel bound to this client's
// endpoint and credential.
func (c *Client) Live() *LiveChannel {
	return &LiveChannel{wsURL: c.wsURL, token: c.token, dialer: websocket.DefaultDialer}
}

// Connect dials the room's websocket endpoint and starts the event
// stream. Calling Connect while connected is an error.
func (l *LiveChannel) Connect(ctx context.Context, roomID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return neterr.New(neterr.ValidationFailure, "live.Connect", "already connected")
	}
	url := l.wsURL + "/ws/chat/" + roomID + "/"
	if l.token != nil {
		if tok, ok := l.token.AccessToken(); ok {
			url += "?token=" + tok
		}
	}
	conn, _, err := l.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return neterr.Wrap(neterr.ConnectionFailure, "live.Connect", err)
	}
	l.conn = conn
	l.roomID = roomID
	l.events = make(chan Event, 64)
	l.done = make(chan struct{})
	go l.readLoop(conn, l.events, l.done)
	logger.Info("live_connected", "room", roomID)
	return nil
}

// Events returns the stream for the current connection. The channel is
// closed after the terminal EventDisconnected.
func (l *LiveChannel) Events() <-chan Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events
}

// Send writes an outbound frame. Fails with ConnectionFailure when the
// channel is not connected.
func (l *LiveChannel) Send(ev Outbound) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return neterr.New(neterr.ConnectionFailure, "live.Send", "not connected")
	}
	if err := conn.WriteJSON(ev); err != nil {
		return neterr.Wrap(neterr.ConnectionFailure, "live.Send", err)
	}
	return nil
}

// Disconnect closes the transport and ends the event stream. Calling it
// on an unconnected channel is a no-op; calling it twice is safe. The
// channel can be connected again afterwards.
func (l *LiveChannel) Disconnect() {
	l.mu.Lock()
	conn := l.conn
	done := l.done
	l.conn = nil
	l.done = nil
	l.mu.Unlock()
	if conn == nil {
		return
	}
	close(done)
	_ = conn.Close()
	logger.Info("live_disconnected", "room", l.roomID)
}

// readLoop decodes frames until the transport fails or Disconnect
// fires. It owns the events channel: the terminal EventDisconnected is
// always emitted (best-effort) and the channel always closed.
func (l *LiveChannel) readLoop(conn *websocket.Conn, events chan Event, done chan struct{}) {
	defer close(events)
	defer func() {
		l.mu.Lock()
		if l.conn == conn {
			l.conn = nil
			l.done = nil
		}
		l.mu.Unlock()
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			terminal := Event{Type: EventDisconnected, Err: err}
			select {
			case events <- terminal:
			case <-done:
			default:
				// full: drop the oldest pending frame so the terminal
				// event still lands before close
				select {
				case <-events:
				default:
				}
				select {
				case events <- terminal:
				case <-done:
				}
			}
			return
		}
		ev := decodeFrame(data)
		select {
		case events <- ev:
		case <-done:
			return
		}
	}
}

func decodeFrame(data []byte) Event {
	var f liveFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return Event{Type: EventError, Raw: data, Err: neterr.Wrap(neterr.DecodeFailure, "live.read", err)}
	}
	switch f.Type {
	case "chat_message":
		return decodeMessageFrame(EventMessage, f.Message, data)
	case "message_edited":
		return decodeMessageFrame(EventEdited, f.Message, data)
	case "message_history":
		return Event{Type: EventHistory, Messages: f.Messages}
	case "typing":
		return Event{Type: EventTyping, UserID: f.UserID, Typing: f.IsTyping}
	case "error":
		// server-sent error frame: message is a plain string
		var msg string
		if err := json.Unmarshal(f.Message, &msg); err != nil || msg == "" {
			msg = "server error"
		}
		return Event{Type: EventError, Raw: data, Err: neterr.New(neterr.ServerError, "live.read", msg)}
	default:
		return Event{Type: EventError, Raw: data, Err: neterr.New(neterr.DecodeFailure, "live.read", "unknown frame type "+f.Type)}
	}
}

func decodeMessageFrame(typ EventType, raw json.RawMessage, data []byte) Event {
	if len(raw) == 0 || string(raw) == "null" {
		return Event{Type: EventError, Raw: data, Err: neterr.New(neterr.DecodeFailure, "live.read", string(typ)+" frame without message")}
	}
	var msg models.ChatMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Event{Type: EventError, Raw: data, Err: neterr.Wrap(neterr.DecodeFailure, "live.read", err)}
	}
	return Event{Type: typ, Message: &msg}
}
