package postgres

import (
	"context"

	"github.com/aura-chat/chat-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ParticipantRepository struct {
	db *pgxpool.Pool
}

func NewParticipantRepository(db *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) CountInRoom(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM room_participants WHERE room_id=$1`, roomID).Scan(&count)
	return count, err
}

func (r *ParticipantRepository) Exists(ctx context.Context, roomID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM room_participants WHERE room_id=$1 AND user_id=$2)`,
		roomID, userID).Scan(&exists)
	return exists, err
}

// Join — защищён от гонок по max_participants.
// Два параллельных Join по одной комнате не пробьют лимит: строка комнаты
// блокируется FOR UPDATE на время транзакции.
func (r *ParticipantRepository) Join(ctx context.Context, p *domain.Participant, maxParticipants int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if maxParticipants > 0 {
		var room domain.Room
		if err := tx.QueryRow(ctx,
			`SELECT kind, max_participants FROM rooms WHERE id=$1 FOR UPDATE`, p.RoomID).Scan(&room.Kind, &room.MaxParticipants); err != nil {
			return err
		}
		if room.MaxParticipants > 0 {
			maxParticipants = room.MaxParticipants
		} else {
			room.MaxParticipants = maxParticipants
		}

		if room.Capped() {
			var count int64
			if err := tx.QueryRow(ctx,
				`SELECT COUNT(*) FROM room_participants WHERE room_id=$1`, p.RoomID).Scan(&count); err != nil {
				return err
			}
			if count >= maxParticipants {
				return domain.ErrRoomFull
			}
		}
	}

	// Повторный join той же пары (room, user) — no-op.
	if _, err := tx.Exec(ctx, `
		INSERT INTO room_participants (room_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (room_id, user_id) DO NOTHING
	`, p.RoomID, p.UserID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *ParticipantRepository) Leave(ctx context.Context, roomID, userID string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM room_participants WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotInRoom
	}

	return nil
}

func (r *ParticipantRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Participant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT room_id, user_id, joined_at, is_typing FROM room_participants WHERE room_id=$1 ORDER BY joined_at ASC`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.RoomID, &p.UserID, &p.JoinedAt, &p.IsTyping); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// SetTyping — единственное мутабельное поле участника после создания.
// Пишет только собственный клиент пользователя, last-write-wins достаточно.
func (r *ParticipantRepository) SetTyping(ctx context.Context, roomID, userID string, isTyping bool) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE room_participants SET is_typing=$3 WHERE room_id=$1 AND user_id=$2`,
		roomID, userID, isTyping)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotInRoom
	}
	return nil
}
