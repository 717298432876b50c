package session

import (
	"context"
	"fmt"

	"github.com/aura-chat/chat-service/internal/domain"
)

// RoomBackend — метаданные комнаты и членство.
type RoomBackend interface {
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	CountParticipants(ctx context.Context, roomID string) (int64, error)
	ListParticipants(ctx context.Context, roomID string) ([]domain.Participant, error)
	JoinRoom(ctx context.Context, roomID, userID string) error
}

// RoomView — то, что нужно открытой комнате для шапки: метаданные и счётчик.
type RoomView struct {
	Room        *domain.Room
	MemberCount int64
}

// RoomBinder резолвит комнату для отображения. Два независимых чтения,
// порядок между ними не важен.
type RoomBinder struct {
	backend RoomBackend
}

func NewRoomBinder(backend RoomBackend) *RoomBinder {
	return &RoomBinder{backend: backend}
}

func (b *RoomBinder) Load(ctx context.Context, roomID string) (*RoomView, error) {
	room, err := b.backend.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}

	count, err := b.backend.CountParticipants(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("count participants: %w", err)
	}

	return &RoomView{Room: room, MemberCount: count}, nil
}

// Join идемпотентен; переполнение групповой комнаты — domain.ErrRoomFull.
func (b *RoomBinder) Join(ctx context.Context, roomID, userID string) error {
	return b.backend.JoinRoom(ctx, roomID, userID)
}
