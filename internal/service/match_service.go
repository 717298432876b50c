package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aura-chat/chat-service/internal/domain"
	"github.com/aura-chat/chat-service/internal/feed"
	"github.com/aura-chat/chat-service/internal/postgres"
)

const matchCandidateLimit = 10

type MatchService struct {
	profileRepo *postgres.ProfileRepository
	roomRepo    RoomStore
	memberSvc   *MemberService
	feed        feed.Feed
}

func NewMatchService(profileRepo *postgres.ProfileRepository, roomRepo RoomStore, memberSvc *MemberService, f feed.Feed) *MatchService {
	return &MatchService{
		profileRepo: profileRepo,
		roomRepo:    roomRepo,
		memberSvc:   memberSvc,
		feed:        f,
	}
}

// FindMatch помечает пользователя ищущим и пытается свести его с кандидатом
// по максимуму общих интересов. Если кандидатов нет — (nil, nil): пользователь
// остаётся в поиске, завершение придёт событием match.found в его ленту.
func (s *MatchService) FindMatch(ctx context.Context, userID string, interests []string) (*domain.Room, error) {
	if err := s.profileRepo.SetSearching(ctx, userID, true, interests); err != nil {
		return nil, fmt.Errorf("mark searching: %w", err)
	}

	candidates, err := s.profileRepo.ListSearching(ctx, userID, matchCandidateLimit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	best := bestMatch(interests, candidates)
	common := commonInterests(interests, best.Interests)

	room := &domain.Room{
		Kind:             domain.RoomMatched,
		CreatedBy:        userID,
		MatchedInterests: common,
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("create matched room: %w", err)
	}

	for _, uid := range []string{userID, best.ID} {
		if err := s.memberSvc.JoinRoom(ctx, room.ID, uid); err != nil {
			return nil, fmt.Errorf("join matched room: %w", err)
		}
	}

	if err := s.profileRepo.ClearSearching(ctx, []string{userID, best.ID}); err != nil {
		slog.Warn("match: clear searching failed", "err", err)
	}

	// ждущая сторона узнаёт о комнате из своей ленты
	if err := s.feed.Publish(ctx, feed.UserTopic(best.ID), feed.Event{
		Type:   feed.EventMatchFound,
		RoomID: room.ID,
		UserID: best.ID,
	}); err != nil {
		slog.Warn("match: publish match.found failed", "user", best.ID, "err", err)
	}

	return room, nil
}

func (s *MatchService) CancelSearch(ctx context.Context, userID string) error {
	return s.profileRepo.SetSearching(ctx, userID, false, nil)
}

// bestMatch выбирает кандидата с наибольшим числом общих интересов;
// при равенстве — первый из выборки (она отсортирована по свежести).
func bestMatch(interests []string, candidates []domain.Profile) domain.Profile {
	best := candidates[0]
	maxCommon := len(commonInterests(interests, best.Interests))

	for _, c := range candidates[1:] {
		if n := len(commonInterests(interests, c.Interests)); n > maxCommon {
			best = c
			maxCommon = n
		}
	}
	return best
}

func commonInterests(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, i := range b {
		set[i] = struct{}{}
	}

	var out []string
	for _, i := range a {
		if _, ok := set[i]; ok {
			out = append(out, i)
		}
	}
	return out
}
