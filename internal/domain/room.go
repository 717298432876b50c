package domain

import "time"

type RoomKind string

const (
	RoomPrivate RoomKind = "private"
	RoomGroup   RoomKind = "group"
	RoomMatched RoomKind = "matched"
)

type Room struct {
	ID               string     `db:"id"`
	Kind             RoomKind   `db:"kind"`
	Name             *string    `db:"name"`
	CreatedBy        string     `db:"created_by"`
	InviteCode       *string    `db:"invite_code"`
	MatchedInterests []string   `db:"matched_interests"`
	MaxParticipants  int64      `db:"max_participants"`
	IsActive         bool       `db:"is_active"`
	ExpiresAt        *time.Time `db:"expires_at"`
	CreatedAt        time.Time  `db:"created_at"`
}

// Capped сообщает, ограничено ли число участников.
// Приватные комнаты лимит не проверяют — как и матчи один на один.
func (r *Room) Capped() bool {
	return r.Kind == RoomGroup && r.MaxParticipants > 0
}
