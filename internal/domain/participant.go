package domain

import "time"

type Participant struct {
	RoomID   string    `db:"room_id"`
	UserID   string    `db:"user_id"`
	JoinedAt time.Time `db:"joined_at"`
	IsTyping bool      `db:"is_typing"`
}
