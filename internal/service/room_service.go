package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aura-chat/chat-service/internal/domain"
	"github.com/aura-chat/chat-service/internal/security"
)

const inviteCodeLen = 8

// RoomStore — хранилище комнат (postgres.RoomRepository в проде).
type RoomStore interface {
	Create(ctx context.Context, room *domain.Room) error
	Get(ctx context.Context, id string) (*domain.Room, error)
	GetByInviteCode(ctx context.Context, code string) (*domain.Room, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.Room, string, error)
	Deactivate(ctx context.Context, id string) error
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

type RoomService struct {
	roomRepo  RoomStore
	memberSvc *MemberService

	groupCapacity int64
	inviteTTL     time.Duration
}

func NewRoomService(roomRepo RoomStore, memberSvc *MemberService, groupCapacity int64, inviteTTL time.Duration) *RoomService {
	if groupCapacity <= 0 {
		groupCapacity = 20
	}
	if inviteTTL <= 0 {
		inviteTTL = 24 * time.Hour
	}
	return &RoomService{
		roomRepo:      roomRepo,
		memberSvc:     memberSvc,
		groupCapacity: groupCapacity,
		inviteTTL:     inviteTTL,
	}
}

// CreatePrivate создаёт приватную комнату с кодом приглашения и сроком жизни.
// Создатель сразу становится участником.
func (s *RoomService) CreatePrivate(ctx context.Context, userID string, name *string) (*domain.Room, error) {
	return s.create(ctx, userID, domain.RoomPrivate, name, 0)
}

// CreateGroup — групповая комната с лимитом участников.
func (s *RoomService) CreateGroup(ctx context.Context, userID string, name *string) (*domain.Room, error) {
	return s.create(ctx, userID, domain.RoomGroup, name, s.groupCapacity)
}

func (s *RoomService) create(ctx context.Context, userID string, kind domain.RoomKind, name *string, max int64) (*domain.Room, error) {
	code, err := security.NewInviteCode(inviteCodeLen)
	if err != nil {
		return nil, fmt.Errorf("invite code: %w", err)
	}
	expires := time.Now().Add(s.inviteTTL)

	room := &domain.Room{
		Kind:            kind,
		Name:            name,
		CreatedBy:       userID,
		InviteCode:      &code,
		MaxParticipants: max,
		ExpiresAt:       &expires,
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("roomRepo.Create: %w", err)
	}

	if err := s.memberSvc.JoinRoom(ctx, room.ID, userID); err != nil &&
		!errors.Is(err, domain.ErrAlreadyJoined) {
		return nil, fmt.Errorf("join own room: %w", err)
	}
	return room, nil
}

// JoinByCode резолвит код приглашения в комнату и присоединяет пользователя.
// Неизвестный/просроченный код — ErrInvalidInvite, никаких записей.
func (s *RoomService) JoinByCode(ctx context.Context, userID, code string) (*domain.Room, error) {
	room, err := s.roomRepo.GetByInviteCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := s.memberSvc.JoinRoom(ctx, room.ID, userID); err != nil {
		// уже участник — тоже успех, join идемпотентен
		if errors.Is(err, domain.ErrAlreadyJoined) {
			return room, nil
		}
		return nil, err
	}
	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	return s.roomRepo.Get(ctx, id)
}

// CloseRoom деактивирует комнату. Разрешено только создателю.
func (s *RoomService) CloseRoom(ctx context.Context, roomID, userID string) error {
	room, err := s.roomRepo.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CreatedBy != userID {
		return domain.ErrNotRoomOwner
	}
	return s.roomRepo.Deactivate(ctx, roomID)
}

// ExpireStale гасит комнаты с истёкшим expires_at; зовётся фоновым тикером.
func (s *RoomService) ExpireStale(ctx context.Context) (int64, error) {
	return s.roomRepo.ExpireStale(ctx, time.Now())
}

// ListRooms возвращает список комнат с курсорной пагинацией.
func (s *RoomService) ListRooms(ctx context.Context, limit int, cursor string) ([]domain.Room, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	return s.roomRepo.List(ctx, limit, cursor)
}
