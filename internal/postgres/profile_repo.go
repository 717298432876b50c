package postgres

import (
	"context"
	"errors"

	"github.com/aura-chat/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Upsert создаёт или обновляет анонимный профиль (id генерирует вызывающая сторона).
func (r *ProfileRepository) Upsert(ctx context.Context, p *domain.Profile) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO profiles (id, username, interests)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
		    interests = EXCLUDED.interests,
		    last_active = now()
		RETURNING is_searching, created_at, last_active
	`, p.ID, p.Username, p.Interests)

	return row.Scan(&p.IsSearching, &p.CreatedAt, &p.LastActive)
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRow(ctx, `
		SELECT id, username, interests, is_searching, created_at, last_active
		FROM profiles WHERE id=$1
	`, id).Scan(&p.ID, &p.Username, &p.Interests, &p.IsSearching, &p.CreatedAt, &p.LastActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) SetSearching(ctx context.Context, id string, searching bool, interests []string) error {
	if interests != nil {
		_, err := r.db.Exec(ctx,
			`UPDATE profiles SET is_searching=$2, interests=$3, last_active=now() WHERE id=$1`,
			id, searching, interests)
		return err
	}
	_, err := r.db.Exec(ctx,
		`UPDATE profiles SET is_searching=$2, last_active=now() WHERE id=$1`, id, searching)
	return err
}

// ListSearching — кандидаты для матчинга, кроме самого пользователя.
func (r *ProfileRepository) ListSearching(ctx context.Context, excludeID string, limit int) ([]domain.Profile, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, username, interests, is_searching, created_at, last_active
		FROM profiles
		WHERE is_searching AND id <> $1
		ORDER BY last_active DESC
		LIMIT $2
	`, excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.Interests, &p.IsSearching, &p.CreatedAt, &p.LastActive); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProfileRepository) ClearSearching(ctx context.Context, ids []string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE profiles SET is_searching=false WHERE id = ANY($1)`, ids)
	return err
}
