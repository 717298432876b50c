package ws

import (
	"github.com/aura-chat/chat-service/internal/domain"
	"github.com/aura-chat/chat-service/internal/session"
)

// Типы кадров, которые ходят по WS
const (
	TypeState      = "state"       // снапшот комнаты + участников
	TypeHistory    = "history"     // история сообщений на момент открытия
	TypeChat       = "chat"        // сообщение (и оптимистичное, и чужое)
	TypeChatAck    = "chat_ack"    // временная запись получила серверный id
	TypeSendFailed = "send_failed" // запись не прошла, можно retry
	TypeReaction   = "reaction"    // к сообщению прикрепили реакцию
	TypeTyping     = "typing"      // собеседник начал/перестал печатать
	TypePeerJoined = "peer_joined" // участник вошёл
	TypePeerLeft   = "peer_left"   // участник покинул

	// входящие
	TypeRetry = "retry" // переотправить failed-запись
)

type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type StatePayload struct {
	Room         RoomItem               `json:"room"`
	MemberCount  int64                  `json:"member_count"`
	Participants []ParticipantStateItem `json:"participants"`
}

type RoomItem struct {
	ID               string   `json:"id"`
	Kind             string   `json:"kind"`
	Name             *string  `json:"name,omitempty"`
	InviteCode       *string  `json:"invite_code,omitempty"`
	MatchedInterests []string `json:"matched_interests,omitempty"`
}

type ParticipantStateItem struct {
	UserID   string `json:"user_id"`
	JoinedAt int64  `json:"joined_at_unix"`
	IsTyping bool   `json:"is_typing"`
}

type HistoryPayload struct {
	RoomID string     `json:"room_id"`
	Items  []ChatItem `json:"items"`
}

type ChatItem struct {
	ID       string  `json:"id"`
	RoomID   string  `json:"room_id"`
	SenderID string  `json:"sender_id"`
	Message  string  `json:"message"`
	Reaction *string `json:"reaction,omitempty"`
	TSUnix   int64   `json:"ts_unix"`
	Pending  bool    `json:"pending,omitempty"`
	Failed   bool    `json:"failed,omitempty"`
}

// для клиента: снимает pending и подменяет temp id на серверный
type ChatAckPayload struct {
	TempID string   `json:"temp_id"`
	Item   ChatItem `json:"item"`
}

type SendFailedPayload struct {
	TempID string `json:"temp_id"`
}

type TypingPayload struct {
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

type PeerEventPayload struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

type ChatInPayload struct {
	Message string `json:"message"`
}

type RetryInPayload struct {
	TempID string `json:"temp_id"`
}

func chatItem(e session.Entry) ChatItem {
	return ChatItem{
		ID:       e.ID,
		RoomID:   e.RoomID,
		SenderID: e.SenderID,
		Message:  e.Content,
		Reaction: e.Reaction,
		TSUnix:   e.CreatedAt.Unix(),
		Pending:  e.Pending,
		Failed:   e.Failed,
	}
}

func roomItem(r *domain.Room) RoomItem {
	return RoomItem{
		ID:               r.ID,
		Kind:             string(r.Kind),
		Name:             r.Name,
		InviteCode:       r.InviteCode,
		MatchedInterests: r.MatchedInterests,
	}
}

func participantItem(p domain.Participant) ParticipantStateItem {
	return ParticipantStateItem{
		UserID:   p.UserID,
		JoinedAt: p.JoinedAt.Unix(),
		IsTyping: p.IsTyping,
	}
}
