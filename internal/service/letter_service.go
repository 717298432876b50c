package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aura-chat/chat-service/internal/domain"
	"github.com/aura-chat/chat-service/internal/feed"
	"github.com/aura-chat/chat-service/internal/postgres"
)

const maxLetterLength = 2000

type LetterService struct {
	letterRepo *postgres.LetterRepository
	feed       feed.Feed
}

func NewLetterService(letterRepo *postgres.LetterRepository, f feed.Feed) *LetterService {
	return &LetterService{letterRepo: letterRepo, feed: f}
}

func (s *LetterService) Create(ctx context.Context, senderID, content string, theme domain.LetterTheme) (*domain.LoveLetter, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrEmptyMessage
	}
	if len(content) > maxLetterLength {
		return nil, domain.ErrMessageTooLong
	}
	if theme == "" {
		theme = domain.ThemeRoses
	}
	if !theme.Valid() {
		return nil, domain.ErrInvalidTheme
	}

	l := &domain.LoveLetter{
		SenderID: senderID,
		Content:  content,
		Theme:    theme,
	}
	if err := s.letterRepo.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create letter: %w", err)
	}
	return l, nil
}

func (s *LetterService) Get(ctx context.Context, id string) (*domain.LoveLetter, error) {
	return s.letterRepo.Get(ctx, id)
}

// React увеличивает счётчик реакции и рассылает свежие значения всем,
// кто сейчас смотрит письмо.
func (s *LetterService) React(ctx context.Context, id, kind string) (*domain.LoveLetter, error) {
	switch kind {
	case "hearts", "kiss", "cry":
	default:
		return nil, domain.ErrInvalidReaction
	}

	l, err := s.letterRepo.React(ctx, id, kind)
	if err != nil {
		return nil, err
	}

	if err := s.feed.Publish(ctx, feed.LetterTopic(l.ID), feed.Event{
		Type:   feed.EventLetterUpdated,
		Letter: l,
	}); err != nil {
		slog.Warn("letter: publish reaction failed", "letter", l.ID, "err", err)
	}
	return l, nil
}
