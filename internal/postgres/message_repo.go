package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aura-chat/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Save(ctx context.Context, roomID, senderID, content string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO messages (room_id, sender_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, room_id, sender_id, content, reaction, created_at
	`, roomID, senderID, content)

	var m domain.Message
	if err := row.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.Reaction, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByRoom возвращает всю историю комнаты по возрастанию created_at.
// Используется сессией при открытии комнаты.
func (r *MessageRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, room_id, sender_id, content, reaction, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at ASC, id ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.Reaction, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// History — курсорная пагинация (created_at,id DESC) для HTTP-эндпоинта.
func (r *MessageRepository) History(ctx context.Context, roomID, after string, limit int) ([]domain.Message, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	cur, err := DecodeCursor(after)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}
	const baseQuery = `
		SELECT id, room_id, sender_id, content, reaction, created_at
		FROM messages
		WHERE room_id = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR created_at < $2
		    OR (created_at = $2 AND id < $3)
		  )
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, baseQuery, roomID, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.Reaction, &m.CreatedAt); err != nil {
			return nil, "", err
		}
		out = append(out, m)
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		next = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return out, next, nil
}

// SetReaction — единственная разрешённая мутация сообщения.
func (r *MessageRepository) SetReaction(ctx context.Context, messageID string, reaction *string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE messages SET reaction=$2 WHERE id=$1
		RETURNING id, room_id, sender_id, content, reaction, created_at
	`, messageID, reaction)

	var m domain.Message
	if err := row.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.Reaction, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}
