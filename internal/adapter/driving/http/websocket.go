package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/Wyydra/ya-signal/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/ya-signal/internal/core/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict to the configured client origin once it is deployed
	// behind a known host.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSClient owns one socket. Events are queued on send and written by a
// single writer goroutine, so frames to a connection keep their order.
type WSClient struct {
	id   domain.ConnID
	conn *websocket.Conn
	send chan domain.Event

	done      chan struct{}
	closeOnce sync.Once
}

func newWSClient(id domain.ConnID, conn *websocket.Conn, buffer int) *WSClient {
	return &WSClient{
		id:   id,
		conn: conn,
		send: make(chan domain.Event, buffer),
		done: make(chan struct{}),
	}
}

func (c *WSClient) ID() domain.ConnID {
	return c.id
}

// Send queues an event without blocking.
func (c *WSClient) Send(event domain.Event) error {
	select {
	case <-c.done:
		return ws.ErrClientClosed
	default:
	}
	select {
	case c.send <- event:
		return nil
	default:
		return ws.ErrSendBufferFull
	}
}

// Close asks the writer to say goodbye and drop the socket; the read loop
// then fails and runs the cleanup.
func (c *WSClient) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *WSClient) writePump(writeWait, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(evt); err != nil {
				log.Debug().Err(err).Str("conn_id", c.id.String()).Msg("Write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}

// HTTP handler
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := domain.UserID(r.URL.Query().Get("userId"))
	name := r.URL.Query().Get("name")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	client := newWSClient(domain.NewConnID(), conn, h.ws.SendBuffer)
	l := log.With().Str("conn_id", client.id.String()).Str("user_id", userID.String()).Logger()

	// Cleanup must run even once the request context is cancelled.
	ctx := context.WithoutCancel(r.Context())

	if err := h.Hub.Register(client); err != nil {
		l.Warn().Err(err).Msg("Refusing connection")
		conn.Close()
		return
	}
	go client.writePump(h.ws.WriteWait, h.ws.PongWait*9/10)

	self := domain.NewConnection(client.id, userID, name)
	if err := h.Signaling.Connect(ctx, self); err != nil {
		if errors.Is(err, domain.ErrMissingIdentity) {
			l.Debug().Msg("Connection without user id, dropping")
		} else {
			l.Error().Err(err).Msg("Failed to register connection")
		}
		h.Hub.Unregister(client)
		client.Close()
		return
	}
	l.Info().Str("name", self.DisplayName).Msg("New client connected")

	defer func() {
		h.Signaling.Disconnect(ctx, client.id)
		h.Hub.Unregister(client)
		client.Close()
		l.Info().Msg("Client disconnected")
	}()

	conn.SetReadLimit(h.ws.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.ws.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.ws.PongWait))
	})

	// listening for browser
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l.Error().Err(err).Msg("Unexpected close error")
			}
			return
		}
		h.handleFrame(ctx, self, data, l)
	}
}

// handleFrame processes one inbound frame. Nothing a client sends may take
// the connection down.
func (h *Handler) handleFrame(ctx context.Context, self domain.Connection, data []byte, l zerolog.Logger) {
	var in domain.InboundEvent
	defer func() {
		if rec := recover(); rec != nil {
			l.Error().Interface("panic", rec).Str("event", in.Name).Msg("Recovered while handling event")
		}
	}()

	if err := json.Unmarshal(data, &in); err != nil {
		h.reportError(ctx, self, "", &domain.ProtocolError{Err: err}, l)
		return
	}
	if err := h.dispatch(ctx, self, in); err != nil {
		h.reportError(ctx, self, in.Name, err, l)
	}
}

func (h *Handler) dispatch(ctx context.Context, self domain.Connection, in domain.InboundEvent) error {
	calls := h.Signaling.Calls

	switch in.Name {
	case domain.EventInitiateCall:
		req, err := decode[domain.InitiateCallRequest](in)
		if err != nil {
			return err
		}
		_, err = calls.Initiate(ctx, self.ID, req)
		return err

	case domain.EventAcceptCall:
		req, err := decodeCallID(in)
		if err != nil {
			return err
		}
		_, err = calls.Accept(ctx, self.ID, req.CallID)
		return err

	case domain.EventRejectCall:
		req, err := decode[domain.RejectCallRequest](in)
		if err != nil {
			return err
		}
		if req.CallID == "" {
			return &domain.ProtocolError{Event: in.Name, Field: "callId", Err: domain.ErrMissingField}
		}
		_, err = calls.Reject(ctx, self.ID, req.CallID, req.Reason)
		return err

	case domain.EventCancelCall:
		req, err := decodeCallID(in)
		if err != nil {
			return err
		}
		_, err = calls.Cancel(ctx, self.ID, req.CallID)
		return err

	case domain.EventEndCall:
		req, err := decode[domain.EndCallRequest](in)
		if err != nil {
			return err
		}
		_, err = calls.End(ctx, self.ID, req)
		return err

	case domain.EventJoinRoom:
		req, err := decode[domain.JoinRoomRequest](in)
		if err != nil {
			return err
		}
		return h.Signaling.JoinRoom(ctx, self.ID, req.RoomID)

	case domain.EventWebRTCSignal:
		req, err := decode[domain.SignalRequest](in)
		if err != nil {
			return err
		}
		return h.Relay.Relay(ctx, self.ID, req.To, req.Signal)

	case domain.EventJoinGroupChat, domain.EventLeaveGroupChat:
		req, err := decode[domain.GroupChatRequest](in)
		if err != nil {
			return err
		}
		if in.Name == domain.EventJoinGroupChat {
			return h.Chat.JoinChat(ctx, self.ID, domain.RoomGroup, req.GroupID)
		}
		return h.Chat.LeaveChat(ctx, self.ID, domain.RoomGroup, req.GroupID)

	case domain.EventJoinPrivateChat, domain.EventLeavePrivateChat:
		req, err := decode[domain.PrivateChatRequest](in)
		if err != nil {
			return err
		}
		if in.Name == domain.EventJoinPrivateChat {
			return h.Chat.JoinChat(ctx, self.ID, domain.RoomPrivate, req.ChatID)
		}
		return h.Chat.LeaveChat(ctx, self.ID, domain.RoomPrivate, req.ChatID)

	case domain.EventSendGroupMessage:
		req, err := decode[domain.GroupMessageRequest](in)
		if err != nil {
			return err
		}
		_, err = h.Chat.SendMessage(ctx, domain.MessageDraft{
			Kind:     domain.RoomGroup,
			RoomID:   req.GroupID,
			SenderID: senderOr(req.SenderID, self.UserID),
			Text:     req.Text,
		})
		return err

	case domain.EventSendPrivateMessage:
		req, err := decode[domain.PrivateMessageRequest](in)
		if err != nil {
			return err
		}
		_, err = h.Chat.SendMessage(ctx, domain.MessageDraft{
			Kind:     domain.RoomPrivate,
			RoomID:   req.ChatID,
			SenderID: senderOr(req.SenderID, self.UserID),
			Text:     req.Text,
		})
		return err
	}

	return &domain.ProtocolError{Event: in.Name, Err: domain.ErrUnknownEvent}
}

// reportError answers the requesting connection only.
func (h *Handler) reportError(ctx context.Context, self domain.Connection, event string, err error, l zerolog.Logger) {
	var (
		admission *domain.AdmissionError
		protocol  *domain.ProtocolError
		notFound  *domain.NotFoundError
		storage   *domain.StorageError
	)

	switch {
	case errors.As(err, &admission):
		l.Info().Err(err).Str("event", event).Msg("Call refused")
		h.reply(ctx, self.ID, domain.NewEvent(domain.EventCallFailed, domain.CallFailedPayload{Reason: admission.Reason()}))
	case errors.As(err, &protocol):
		l.Debug().Err(err).Str("event", event).Msg("Dropping malformed event")
	case errors.As(err, &notFound):
		l.Warn().Err(err).Str("event", event).Msg("Request lost a race")
		h.reply(ctx, self.ID, domain.NewEvent(domain.EventErrorMessage, domain.ErrorPayload{Message: notFound.Error()}))
	case errors.As(err, &storage):
		l.Error().Err(err).Str("event", event).Msg("Storage failure")
		h.reply(ctx, self.ID, domain.NewEvent(domain.EventErrorMessage, domain.ErrorPayload{Message: "failed to send message"}))
	default:
		l.Error().Err(err).Str("event", event).Msg("Failed to handle event")
		h.reply(ctx, self.ID, domain.NewEvent(domain.EventErrorMessage, domain.ErrorPayload{Message: "internal error"}))
	}
}

func (h *Handler) reply(ctx context.Context, id domain.ConnID, event domain.Event) {
	if err := h.Hub.Send(ctx, id, event); err != nil {
		log.Debug().Err(err).Str("conn_id", id.String()).Str("event", event.Name).Msg("Reply not delivered")
	}
}

func decode[T any](in domain.InboundEvent) (T, error) {
	var v T
	if len(in.Data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(in.Data, &v); err != nil {
		return v, &domain.ProtocolError{Event: in.Name, Err: err}
	}
	return v, nil
}

func decodeCallID(in domain.InboundEvent) (domain.CallIDRequest, error) {
	req, err := decode[domain.CallIDRequest](in)
	if err != nil {
		return req, err
	}
	if req.CallID == "" {
		return req, &domain.ProtocolError{Event: in.Name, Field: "callId", Err: domain.ErrMissingField}
	}
	return req, nil
}

func senderOr(sender, fallback domain.UserID) domain.UserID {
	if sender == "" {
		return fallback
	}
	return sender
}
