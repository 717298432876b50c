package http

import (
	"time"

	"github.com/aura-chat/chat-service/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// --- профили ---

type CreateProfileRequest struct {
	Username  string   `json:"username"`
	Interests []string `json:"interests"`
}

type ProfileItem struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Interests   []string  `json:"interests"`
	IsSearching bool      `json:"is_searching"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateProfileResponse struct {
	Profile ProfileItem `json:"profile"`
	Token   string      `json:"token"`
}

// --- комнаты ---

type CreateRoomRequest struct {
	Kind string  `json:"kind"` // private | group
	Name *string `json:"name,omitempty"`
}

type RoomItem struct {
	ID               string     `json:"id"`
	Kind             string     `json:"kind"`
	Name             *string    `json:"name,omitempty"`
	InviteCode       *string    `json:"invite_code,omitempty"`
	MatchedInterests []string   `json:"matched_interests,omitempty"`
	MaxParticipants  int64      `json:"max_participants,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type RoomsListResponse struct {
	Items      []RoomItem `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

type ParticipantItem struct {
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
	IsTyping bool      `json:"is_typing"`
}

type ParticipantsResponse struct {
	Items []ParticipantItem `json:"items"`
}

// --- сообщения ---

type ChatMessageItem struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Message   string    `json:"message"`
	Reaction  *string   `json:"reaction,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatHistoryResponse struct {
	Items      []ChatMessageItem `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type SetReactionRequest struct {
	Reaction *string `json:"reaction"` // null снимает реакцию
}

// --- матчинг ---

type MatchRequest struct {
	Interests []string `json:"interests"`
}

type MatchResponse struct {
	Matched bool      `json:"matched"`
	Room    *RoomItem `json:"room,omitempty"`
}

// --- письма ---

type CreateLetterRequest struct {
	Content string `json:"content"`
	Theme   string `json:"theme,omitempty"`
}

type LetterItem struct {
	ID        string                 `json:"id"`
	SenderID  string                 `json:"sender_id"`
	Content   string                 `json:"content"`
	Theme     string                 `json:"theme"`
	Reactions domain.LetterReactions `json:"reactions"`
	CreatedAt time.Time              `json:"created_at"`
}

type ReactLetterRequest struct {
	Kind string `json:"kind"` // hearts | kiss | cry
}

func roomItem(r *domain.Room) RoomItem {
	return RoomItem{
		ID:               r.ID,
		Kind:             string(r.Kind),
		Name:             r.Name,
		InviteCode:       r.InviteCode,
		MatchedInterests: r.MatchedInterests,
		MaxParticipants:  r.MaxParticipants,
		ExpiresAt:        r.ExpiresAt,
		CreatedAt:        r.CreatedAt,
	}
}

func profileItem(p *domain.Profile) ProfileItem {
	return ProfileItem{
		ID:          p.ID,
		Username:    p.Username,
		Interests:   p.Interests,
		IsSearching: p.IsSearching,
		CreatedAt:   p.CreatedAt,
	}
}

func messageItem(m domain.Message) ChatMessageItem {
	return ChatMessageItem{
		ID:        m.ID,
		RoomID:    m.RoomID,
		SenderID:  m.SenderID,
		Message:   m.Content,
		Reaction:  m.Reaction,
		CreatedAt: m.CreatedAt.Truncate(time.Millisecond),
	}
}

func letterItem(l *domain.LoveLetter) LetterItem {
	return LetterItem{
		ID:        l.ID,
		SenderID:  l.SenderID,
		Content:   l.Content,
		Theme:     string(l.Theme),
		Reactions: l.Reactions,
		CreatedAt: l.CreatedAt,
	}
}
