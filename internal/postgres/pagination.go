package postgres

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor — позиция для keyset-пагинации (created_at, id).
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Токен — base64url от "<unix-микросекунды>|<id>". Микросекунд хватает:
// timestamptz в Postgres хранится с той же точностью, поэтому round-trip
// через токен не теряет позицию.
func EncodeCursor(c Cursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixMicro(), 10) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor возвращает nil для пустой строки (первая страница).
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64: %v", ErrInvalidCursor, err)
	}

	ts, id, ok := strings.Cut(string(data), "|")
	if !ok || id == "" {
		return nil, fmt.Errorf("%w: malformed token", ErrInvalidCursor)
	}
	micros, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp: %v", ErrInvalidCursor, err)
	}

	return &Cursor{CreatedAt: time.UnixMicro(micros).UTC(), ID: id}, nil
}
