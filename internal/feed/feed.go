package feed

import (
	"context"
	"sync"

	"github.com/aura-chat/chat-service/internal/domain"
)

// Типы событий ленты изменений
const (
	EventMessageInserted   = "message.insert"     // новое сообщение в комнате
	EventMessageUpdated    = "message.update"     // к сообщению прикрепили реакцию
	EventParticipantUpdate = "participant.update" // смена is_typing
	EventParticipantJoined = "participant.join"   // участник вошёл
	EventParticipantLeft   = "participant.leave"  // участник вышел
	EventMatchFound        = "match.found"        // пользователю нашли пару
	EventLetterUpdated     = "letter.update"      // реакции письма изменились
)

type Event struct {
	Type        string              `json:"type"`
	RoomID      string              `json:"room_id,omitempty"`
	Message     *domain.Message     `json:"message,omitempty"`
	Participant *domain.Participant `json:"participant,omitempty"`
	Letter      *domain.LoveLetter  `json:"letter,omitempty"`
	UserID      string              `json:"user_id,omitempty"`
}

// Feed — лента изменений: publish в топик и подписка на него.
// Доставка best-effort, порядок внутри топика совпадает с порядком публикаций.
type Feed interface {
	Publish(ctx context.Context, topic string, ev Event) error
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
}

// Subscription — одна регистрация в ленте. Close идемпотентен и безопасен
// из teardown-пути, даже если подписка так и не подтвердилась.
type Subscription struct {
	C <-chan Event

	once   sync.Once
	cancel func()
}

func newSubscription(c <-chan Event, cancel func()) *Subscription {
	return &Subscription{C: c, cancel: cancel}
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

func RoomTopic(roomID string) string     { return "room:" + roomID }
func UserTopic(userID string) string     { return "user:" + userID }
func LetterTopic(letterID string) string { return "letter:" + letterID }
