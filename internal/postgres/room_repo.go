package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/aura-chat/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	query := `
		INSERT INTO rooms (kind, name, created_by, invite_code, matched_interests, max_participants, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_active, created_at`
	err := r.db.QueryRow(ctx, query,
		room.Kind, room.Name, room.CreatedBy, room.InviteCode,
		room.MatchedInterests, room.MaxParticipants, room.ExpiresAt,
	).Scan(&room.ID, &room.IsActive, &room.CreatedAt)
	if err != nil {
		return err
	}
	return nil
}

const roomColumns = `id, kind, name, created_by, invite_code, matched_interests, max_participants, is_active, expires_at, created_at`

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var rm domain.Room
	err := row.Scan(&rm.ID, &rm.Kind, &rm.Name, &rm.CreatedBy, &rm.InviteCode,
		&rm.MatchedInterests, &rm.MaxParticipants, &rm.IsActive, &rm.ExpiresAt, &rm.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rm, nil
}

func (r *RoomRepository) Get(ctx context.Context, id string) (*domain.Room, error) {
	rm, err := scanRoom(r.db.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return rm, nil
}

// GetByInviteCode ищет активную, не истёкшую комнату по коду приглашения.
func (r *RoomRepository) GetByInviteCode(ctx context.Context, code string) (*domain.Room, error) {
	rm, err := scanRoom(r.db.QueryRow(ctx, `
		SELECT `+roomColumns+`
		FROM rooms
		WHERE invite_code=$1
		  AND is_active
		  AND (expires_at IS NULL OR expires_at > now())`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidInvite
		}
		return nil, err
	}
	return rm, nil
}

func (r *RoomRepository) List(ctx context.Context, limit int, cursorStr string) ([]domain.Room, string, error) {
	cur, err := DecodeCursor(cursorStr)
	if err != nil {
		return nil, "", err
	}

	query := `
		SELECT ` + roomColumns + `
		FROM rooms
		WHERE is_active
		  AND ($1::timestamptz IS NULL OR created_at < $1
		       OR (created_at = $1 AND id < $2))
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, query, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		var rm domain.Room
		if err := rows.Scan(&rm.ID, &rm.Kind, &rm.Name, &rm.CreatedBy, &rm.InviteCode,
			&rm.MatchedInterests, &rm.MaxParticipants, &rm.IsActive, &rm.ExpiresAt, &rm.CreatedAt); err != nil {
			return nil, "", err
		}
		rooms = append(rooms, rm)
	}

	var nextCursor string
	if len(rooms) == limit {
		last := rooms[len(rooms)-1]
		nextCursor = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return rooms, nextCursor, nil
}

func (r *RoomRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE rooms SET is_active=false WHERE id=$1`, id)
	return err
}

// ExpireStale помечает неактивными комнаты с истёкшим expires_at.
func (r *RoomRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx,
		`UPDATE rooms SET is_active=false WHERE is_active AND expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
