package domain

import "time"

type Profile struct {
	ID          string    `db:"id"`
	Username    string    `db:"username"`
	Interests   []string  `db:"interests"`
	IsSearching bool      `db:"is_searching"`
	CreatedAt   time.Time `db:"created_at"`
	LastActive  time.Time `db:"last_active"`
}
