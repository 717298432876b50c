package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aura-chat/chat-service/internal/domain"
	"github.com/aura-chat/chat-service/internal/feed"
)

// ParticipantStore — хранилище строк участников (postgres.ParticipantRepository
// в проде). Join отвечает за лимит вместимости и идемпотентность пары.
type ParticipantStore interface {
	CountInRoom(ctx context.Context, roomID string) (int64, error)
	Exists(ctx context.Context, roomID, userID string) (bool, error)
	Join(ctx context.Context, p *domain.Participant, maxParticipants int64) error
	Leave(ctx context.Context, roomID, userID string) error
	ListByRoom(ctx context.Context, roomID string) ([]domain.Participant, error)
	SetTyping(ctx context.Context, roomID, userID string, isTyping bool) error
}

type MemberService struct {
	roomRepo        RoomStore
	participantRepo ParticipantStore
	feed            feed.Feed

	groupCapacity int64
}

func NewMemberService(roomRepo RoomStore, participantRepo ParticipantStore, f feed.Feed, groupCapacity int64) *MemberService {
	if groupCapacity <= 0 {
		groupCapacity = 20
	}
	return &MemberService{
		roomRepo:        roomRepo,
		participantRepo: participantRepo,
		feed:            f,
		groupCapacity:   groupCapacity,
	}
}

// JoinRoom идемпотентен: повторный join той же пары (room, user) не создаёт
// строку и возвращает ErrAlreadyJoined (вызывающие трактуют как успех).
// Переполненная групповая комната — ErrRoomFull без каких-либо записей.
func (s *MemberService) JoinRoom(ctx context.Context, roomID, userID string) error {
	if _, err := s.roomRepo.Get(ctx, roomID); err != nil {
		return err
	}

	exists, err := s.participantRepo.Exists(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrAlreadyJoined
	}

	p := &domain.Participant{
		RoomID:   roomID,
		UserID:   userID,
		JoinedAt: time.Now(),
	}
	if err := s.participantRepo.Join(ctx, p, s.groupCapacity); err != nil {
		return err
	}

	if err := s.feed.Publish(ctx, feed.RoomTopic(roomID), feed.Event{
		Type:        feed.EventParticipantJoined,
		RoomID:      roomID,
		Participant: p,
	}); err != nil {
		slog.Debug("member: publish join failed", "room", roomID, "user", userID, "err", err)
	}
	return nil
}

func (s *MemberService) LeaveRoom(ctx context.Context, roomID, userID string) error {
	if err := s.participantRepo.Leave(ctx, roomID, userID); err != nil {
		return err
	}

	if err := s.feed.Publish(ctx, feed.RoomTopic(roomID), feed.Event{
		Type:        feed.EventParticipantLeft,
		RoomID:      roomID,
		Participant: &domain.Participant{RoomID: roomID, UserID: userID},
	}); err != nil {
		slog.Debug("member: publish leave failed", "room", roomID, "user", userID, "err", err)
	}
	return nil
}

func (s *MemberService) ListParticipants(ctx context.Context, roomID string) ([]domain.Participant, error) {
	return s.participantRepo.ListByRoom(ctx, roomID)
}

func (s *MemberService) CountParticipants(ctx context.Context, roomID string) (int64, error) {
	return s.participantRepo.CountInRoom(ctx, roomID)
}

// SetTyping пишет собственный флаг пользователя и зеркалит его собеседникам
// через ленту. Писать чужой флаг нельзя — write-path единственного владельца.
func (s *MemberService) SetTyping(ctx context.Context, roomID, userID string, isTyping bool) error {
	if err := s.participantRepo.SetTyping(ctx, roomID, userID, isTyping); err != nil {
		return err
	}

	if err := s.feed.Publish(ctx, feed.RoomTopic(roomID), feed.Event{
		Type:        feed.EventParticipantUpdate,
		RoomID:      roomID,
		Participant: &domain.Participant{RoomID: roomID, UserID: userID, IsTyping: isTyping},
	}); err != nil {
		slog.Debug("member: publish typing failed", "room", roomID, "user", userID, "err", err)
	}
	return nil
}
