package domain

import "time"

type LetterTheme string

const (
	ThemeRoses  LetterTheme = "roses"
	ThemeBears  LetterTheme = "bears"
	ThemeGalaxy LetterTheme = "galaxy"
)

func (t LetterTheme) Valid() bool {
	switch t {
	case ThemeRoses, ThemeBears, ThemeGalaxy:
		return true
	}
	return false
}

// LetterReactions — счётчики эмодзи-реакций письма.
type LetterReactions struct {
	Hearts int64 `json:"hearts"`
	Kiss   int64 `json:"kiss"`
	Cry    int64 `json:"cry"`
}

type LoveLetter struct {
	ID        string          `db:"id"`
	SenderID  string          `db:"sender_id"`
	Content   string          `db:"content"`
	Theme     LetterTheme     `db:"theme"`
	Reactions LetterReactions `db:"reactions"`
	CreatedAt time.Time       `db:"created_at"`
}
