package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aura-chat/chat-service/internal/domain"
	"github.com/aura-chat/chat-service/internal/postgres"
	"github.com/aura-chat/chat-service/internal/security"

	"github.com/google/uuid"
)

const (
	maxUsernameLen = 32
	maxInterests   = 5
)

type ProfileService struct {
	profileRepo *postgres.ProfileRepository
	signer      *security.TokenSigner
}

func NewProfileService(profileRepo *postgres.ProfileRepository, signer *security.TokenSigner) *ProfileService {
	return &ProfileService{profileRepo: profileRepo, signer: signer}
}

// CreateAnonymous регистрирует анонимный профиль и выпускает device-токен.
// Никаких паролей: идентичность живёт только в токене на устройстве.
func (s *ProfileService) CreateAnonymous(ctx context.Context, username string, interests []string) (*domain.Profile, string, error) {
	username = strings.TrimSpace(username)
	if err := validateProfile(username, interests); err != nil {
		return nil, "", err
	}

	p := &domain.Profile{
		ID:        uuid.NewString(),
		Username:  username,
		Interests: normalizeInterests(interests),
	}
	if err := s.profileRepo.Upsert(ctx, p); err != nil {
		return nil, "", fmt.Errorf("upsert profile: %w", err)
	}

	token, err := s.signer.Sign(p.ID, p.Username)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return p, token, nil
}

func (s *ProfileService) Update(ctx context.Context, userID, username string, interests []string) (*domain.Profile, error) {
	username = strings.TrimSpace(username)
	if err := validateProfile(username, interests); err != nil {
		return nil, err
	}

	p := &domain.Profile{
		ID:        userID,
		Username:  username,
		Interests: normalizeInterests(interests),
	}
	if err := s.profileRepo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.profileRepo.Get(ctx, userID)
}

func validateProfile(username string, interests []string) error {
	if username == "" || len(username) > maxUsernameLen {
		return domain.ErrInvalidUsername
	}
	if len(interests) > maxInterests {
		return fmt.Errorf("%w: too many interests", domain.ErrInvalidUsername)
	}
	return nil
}

// normalizeInterests убирает пустые и повторяющиеся значения, сохраняя порядок.
func normalizeInterests(interests []string) []string {
	seen := make(map[string]struct{}, len(interests))
	out := make([]string, 0, len(interests))
	for _, raw := range interests {
		i := strings.ToLower(strings.TrimSpace(raw))
		if i == "" {
			continue
		}
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	return out
}
