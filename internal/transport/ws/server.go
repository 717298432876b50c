package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aura-chat/chat-service/internal/domain"
	"github.com/aura-chat/chat-service/internal/feed"
	"github.com/aura-chat/chat-service/internal/security"
	"github.com/aura-chat/chat-service/internal/service"
	"github.com/aura-chat/chat-service/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// roomBackend собирает для сессии то, что раскидано по двум сервисам.
type roomBackend struct {
	rooms   *service.RoomService
	members *service.MemberService
}

func (b roomBackend) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	return b.rooms.GetRoom(ctx, roomID)
}

func (b roomBackend) CountParticipants(ctx context.Context, roomID string) (int64, error) {
	return b.members.CountParticipants(ctx, roomID)
}

func (b roomBackend) ListParticipants(ctx context.Context, roomID string) ([]domain.Participant, error) {
	return b.members.ListParticipants(ctx, roomID)
}

func (b roomBackend) JoinRoom(ctx context.Context, roomID, userID string) error {
	return b.members.JoinRoom(ctx, roomID, userID)
}

type Server struct {
	upgrader websocket.Upgrader

	chatSvc   *service.ChatService
	memberSvc *service.MemberService
	roomSvc   *service.RoomService
	feed      feed.Feed
	signer    *security.TokenSigner

	typingDebounce time.Duration
	pingEvery      time.Duration
}

func NewServer(chat *service.ChatService, member *service.MemberService, room *service.RoomService, f feed.Feed, signer *security.TokenSigner, typingDebounce time.Duration) *Server {
	return &Server{
		chatSvc:   chat,
		memberSvc: member,
		roomSvc:   room,
		feed:      f,
		signer:    signer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		typingDebounce: typingDebounce,
		pingEvery:      15 * time.Second,
	}
}

// WS endpoint: GET /ws/rooms/{id}?access_token=...
// Одно соединение — одна сессия комнаты: состояние создаётся при апгрейде
// и умирает при разрыве, повторное открытие начинает с чистого листа.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	accessToken := strings.TrimSpace(r.URL.Query().Get("access_token"))
	userID, _, err := s.signer.Parse(accessToken)
	if err != nil {
		http.Error(w, "invalid access_token", http.StatusUnauthorized)
		return
	}
	roomID := chi.URLParam(r, "id")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	sess := session.New(session.Deps{
		Messages: s.chatSvc,
		Typing:   s.memberSvc,
		Rooms:    roomBackend{rooms: s.roomSvc, members: s.memberSvc},
		Feed:     s.feed,
	}, session.Config{
		RoomID:         roomID,
		UserID:         userID,
		TypingDebounce: s.typingDebounce,
	})

	if err := sess.Open(r.Context()); err != nil {
		slog.Error("ws.HandleWS.Open:", slog.Any("err", err))
		switch {
		case isNotFound(err):
			http.Error(w, "room not found", http.StatusNotFound)
		case isRoomFull(err):
			http.Error(w, "room full", http.StatusConflict)
		default:
			http.Error(w, "open session failed", http.StatusInternalServerError)
		}
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		sess.Close()
		return
	}

	c := newWsConn(conn)

	if err := s.sendState(c, sess); err != nil {
		slog.Warn("ws send initial state failed", "room", roomID, "user", userID, "err", err)
	}

	go s.writeLoop(c, sess)
	s.readLoop(r.Context(), c, sess)

	sess.Close()
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "room", roomID, "user", userID, "err", err)
	}
}

// sendState — снапшот комнаты и вся история первым кадром после апгрейда.
func (s *Server) sendState(c *wsConn, sess *session.Session) error {
	view := sess.View()

	parts, err := s.memberSvc.ListParticipants(context.Background(), view.Room.ID)
	if err != nil {
		return err
	}
	items := make([]ParticipantStateItem, 0, len(parts))
	for _, p := range parts {
		items = append(items, participantItem(p))
	}

	if err := c.Send(Frame{
		Type: TypeState,
		Payload: StatePayload{
			Room:         roomItem(view.Room),
			MemberCount:  view.MemberCount,
			Participants: items,
		},
	}); err != nil {
		return err
	}

	entries := sess.Store.Messages()
	history := make([]ChatItem, 0, len(entries))
	for _, e := range entries {
		history = append(history, chatItem(e))
	}

	return c.Send(Frame{
		Type:    TypeHistory,
		Payload: HistoryPayload{RoomID: view.Room.ID, Items: history},
	})
}

func (s *Server) readLoop(ctx context.Context, c *wsConn, sess *session.Session) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}

		switch f.Type {
		case TypeChat:
			var p ChatInPayload
			if decode(f.Payload, &p) != nil {
				continue
			}
			// оптимистичная запись уходит отправителю из writeLoop,
			// остальным — через ленту после записи в стор
			sess.Send(ctx, p.Message)

		case TypeTyping:
			sess.Keystroke(ctx)

		case TypeRetry:
			var p RetryInPayload
			if decode(f.Payload, &p) == nil && p.TempID != "" {
				sess.Retry(ctx, p.TempID)
			}

		default:
			// ignore
		}
	}
}

func (s *Server) writeLoop(c *wsConn, sess *session.Session) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case u := <-sess.Updates():
			if err := c.Send(frameFor(u)); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-sess.Done():
			return
		case <-c.closed:
			return
		}
	}
}

func frameFor(u session.Update) Frame {
	switch u.Kind {
	case session.UpdateAck:
		return Frame{Type: TypeChatAck, Payload: ChatAckPayload{TempID: u.TempID, Item: chatItem(*u.Entry)}}
	case session.UpdateFailed:
		return Frame{Type: TypeSendFailed, Payload: SendFailedPayload{TempID: u.TempID}}
	case session.UpdateReaction:
		return Frame{Type: TypeReaction, Payload: chatItem(*u.Entry)}
	case session.UpdateTyping:
		return Frame{Type: TypeTyping, Payload: TypingPayload{UserID: u.UserID, IsTyping: u.IsTyping}}
	case session.UpdatePeerJoined:
		return Frame{Type: TypePeerJoined, Payload: PeerEventPayload{UserID: u.UserID}}
	case session.UpdatePeerLeft:
		return Frame{Type: TypePeerLeft, Payload: PeerEventPayload{UserID: u.UserID}}
	default:
		return Frame{Type: TypeChat, Payload: chatItem(*u.Entry)}
	}
}

func isNotFound(err error) bool { return errors.Is(err, domain.ErrRoomNotFound) }
func isRoomFull(err error) bool { return errors.Is(err, domain.ErrRoomFull) }

// --- helpers ---

func decode(payload any, dst any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, dst)
}

type wsConn struct {
	conn   *websocket.Conn
	sendMu chan struct{}

	// Close зовут обе петли, closeOnce гарантирует единственный close(closed)
	closeOnce sync.Once
	closed    chan struct{}
}

func newWsConn(c *websocket.Conn) *wsConn {
	return &wsConn{
		conn:   c,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(msg Frame) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.conn.Close()
}
