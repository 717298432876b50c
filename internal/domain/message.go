package domain

import "time"

type Message struct {
	ID        string    `db:"id"`
	RoomID    string    `db:"room_id"`
	SenderID  string    `db:"sender_id"`
	Content   string    `db:"content"`
	Reaction  *string   `db:"reaction"`
	CreatedAt time.Time `db:"created_at"`
}
