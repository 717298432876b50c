package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aura-chat/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LetterRepository struct {
	db *pgxpool.Pool
}

func NewLetterRepository(db *pgxpool.Pool) *LetterRepository {
	return &LetterRepository{db: db}
}

func (r *LetterRepository) Create(ctx context.Context, l *domain.LoveLetter) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO love_letters (sender_id, content, theme)
		VALUES ($1, $2, $3)
		RETURNING id, reactions, created_at
	`, l.SenderID, l.Content, l.Theme)

	return row.Scan(&l.ID, &l.Reactions, &l.CreatedAt)
}

func (r *LetterRepository) Get(ctx context.Context, id string) (*domain.LoveLetter, error) {
	var l domain.LoveLetter
	err := r.db.QueryRow(ctx, `
		SELECT id, sender_id, content, theme, reactions, created_at
		FROM love_letters WHERE id=$1
	`, id).Scan(&l.ID, &l.SenderID, &l.Content, &l.Theme, &l.Reactions, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLetterNotFound
		}
		return nil, err
	}
	return &l, nil
}

// React атомарно увеличивает один счётчик в JSONB и возвращает свежие значения.
// Инкремент на стороне БД — два параллельных React не потеряют друг друга.
func (r *LetterRepository) React(ctx context.Context, id, kind string) (*domain.LoveLetter, error) {
	switch kind {
	case "hearts", "kiss", "cry":
	default:
		return nil, fmt.Errorf("unknown reaction kind: %q", kind)
	}

	var l domain.LoveLetter
	err := r.db.QueryRow(ctx, `
		UPDATE love_letters
		SET reactions = jsonb_set(reactions, ARRAY[$2],
			to_jsonb(COALESCE((reactions->>$2)::bigint, 0) + 1))
		WHERE id=$1
		RETURNING id, sender_id, content, theme, reactions, created_at
	`, id, kind).Scan(&l.ID, &l.SenderID, &l.Content, &l.Theme, &l.Reactions, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLetterNotFound
		}
		return nil, err
	}
	return &l, nil
}
