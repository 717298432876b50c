package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aura-chat/chat-service/internal/domain"
	"github.com/aura-chat/chat-service/internal/feed"
	"github.com/aura-chat/chat-service/internal/postgres"
)

type ChatService struct {
	messageRepo *postgres.MessageRepository
	feed        feed.Feed

	maxLen int
}

func NewChatService(messageRepo *postgres.MessageRepository, f feed.Feed, maxLen int) *ChatService {
	if maxLen <= 0 {
		maxLen = 2000
	}
	return &ChatService{messageRepo: messageRepo, feed: f, maxLen: maxLen}
}

// Send сохраняет сообщение и публикует insert в ленту комнаты.
// Пустой (после trim) текст — no-op с ошибкой домена, записи нет.
func (s *ChatService) Send(ctx context.Context, roomID, senderID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrEmptyMessage
	}
	if len(content) > s.maxLen {
		return nil, domain.ErrMessageTooLong
	}

	m, err := s.messageRepo.Save(ctx, roomID, senderID, content)
	if err != nil {
		return nil, err
	}

	// лента best-effort: строка уже в сторе, подписчики догонят историей
	if err := s.feed.Publish(ctx, feed.RoomTopic(roomID), feed.Event{
		Type:    feed.EventMessageInserted,
		RoomID:  roomID,
		Message: m,
	}); err != nil {
		slog.Warn("chat: publish insert failed", "room", roomID, "msg", m.ID, "err", err)
	}

	return m, nil
}

// ListByRoom — полная история для открывающейся сессии.
func (s *ChatService) ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error) {
	return s.messageRepo.ListByRoom(ctx, roomID)
}

// History — постраничная история для HTTP.
func (s *ChatService) History(ctx context.Context, roomID, after string, limit int) ([]domain.Message, string, error) {
	return s.messageRepo.History(ctx, roomID, after, limit)
}

// React прикрепляет эмодзи-реакцию — единственная мутация сообщения.
func (s *ChatService) React(ctx context.Context, messageID string, reaction *string) (*domain.Message, error) {
	m, err := s.messageRepo.SetReaction(ctx, messageID, reaction)
	if err != nil {
		return nil, err
	}

	if err := s.feed.Publish(ctx, feed.RoomTopic(m.RoomID), feed.Event{
		Type:    feed.EventMessageUpdated,
		RoomID:  m.RoomID,
		Message: m,
	}); err != nil {
		slog.Warn("chat: publish reaction failed", "room", m.RoomID, "msg", m.ID, "err", err)
	}
	return m, nil
}
