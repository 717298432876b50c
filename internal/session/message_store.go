package session

import (
	"sort"
	"sync"
	"time"

	"github.com/aura-chat/chat-service/internal/domain"

	"github.com/google/uuid"
)

// localIDPrefix отличает временные client-side id от серверных uuid;
// коллизия с серверным id невозможна.
const localIDPrefix = "local-"

// Entry — сообщение в видимой последовательности комнаты.
// Pending: оптимистичная запись, ещё не подтверждена стором.
// Failed: запись не прошла; остаётся видимой и может быть переотправлена.
type Entry struct {
	domain.Message
	Pending bool
	Failed  bool
}

// MessageStore — упорядоченный лог сообщений открытой комнаты.
// Сливает три источника (история, локальные оптимистичные отправки, удалённые
// insert-ы из ленты) в одну последовательность: каждый логический message
// ровно один раз, сортировка по created_at, ничьи — в порядке прибытия.
type MessageStore struct {
	mu        sync.Mutex
	localUser string
	entries   []Entry
	seen      map[string]struct{} // id (временные и серверные), уже в логе
}

func NewMessageStore(localUser string) *MessageStore {
	return &MessageStore{
		localUser: localUser,
		seen:      make(map[string]struct{}),
	}
}

// Hydrate загружает историю. Повторная гидратация заменяет лог целиком.
func (s *MessageStore) Hydrate(history []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = s.entries[:0]
	s.seen = make(map[string]struct{}, len(history))
	for _, m := range history {
		if _, ok := s.seen[m.ID]; ok {
			continue
		}
		s.insertLocked(Entry{Message: m})
	}
}

// AppendLocal добавляет оптимистичную запись с временным id.
// Видна сразу, до завершения записи в стор.
func (s *MessageStore) AppendLocal(roomID, content string) Entry {
	e := Entry{
		Message: domain.Message{
			ID:        localIDPrefix + uuid.NewString(),
			RoomID:    roomID,
			SenderID:  s.localUser,
			Content:   content,
			CreatedAt: time.Now(),
		},
		Pending: true,
	}

	s.mu.Lock()
	s.insertLocked(e)
	s.mu.Unlock()
	return e
}

// Confirm заменяет временную запись авторитетной строкой стора.
// Возвращает false, если запись уже была согласована эхом из ленты
// (или серверный id уже известен) — тогда делать ничего не нужно.
func (s *MessageStore) Confirm(tempID string, saved *domain.Message) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[saved.ID]; ok {
		// эхо из ленты успело первым
		s.dropLocked(tempID)
		return Entry{}, false
	}

	i := s.indexLocked(tempID)
	if i < 0 {
		return Entry{}, false
	}

	e := Entry{Message: *saved}
	s.replaceLocked(i, tempID, e)
	return e, true
}

// MarkFailed помечает оптимистичную запись как неотправленную.
// Запись не исчезает: пользователь видит ошибку и может повторить.
func (s *MessageStore) MarkFailed(tempID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(tempID)
	if i < 0 {
		return Entry{}, false
	}
	s.entries[i].Pending = false
	s.entries[i].Failed = true
	return s.entries[i], true
}

// MarkPending возвращает failed-запись в состояние отправки (retry).
func (s *MessageStore) MarkPending(tempID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(tempID)
	if i < 0 || !s.entries[i].Failed {
		return Entry{}, false
	}
	s.entries[i].Pending = true
	s.entries[i].Failed = false
	return s.entries[i], true
}

// ApplyRemote применяет insert из ленты. Дедупликация по id: повторная
// доставка и оверлап с историей отбрасываются. Эхо собственной отправки
// согласует pending-запись вместо добавления второй копии.
func (s *MessageStore) ApplyRemote(m domain.Message) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[m.ID]; ok {
		return Entry{}, false
	}

	if m.SenderID == s.localUser {
		if i := s.oldestPendingLocked(m.Content); i >= 0 {
			tempID := s.entries[i].ID
			e := Entry{Message: m}
			s.replaceLocked(i, tempID, e)
			return e, true
		}
	}

	e := Entry{Message: m}
	s.insertLocked(e)
	return e, true
}

// ApplyReaction обновляет реакцию существующего сообщения.
func (s *MessageStore) ApplyReaction(messageID string, reaction *string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(messageID)
	if i < 0 {
		return Entry{}, false
	}
	s.entries[i].Reaction = reaction
	return s.entries[i], true
}

// Messages — снапшот видимой последовательности.
func (s *MessageStore) Messages() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// --- внутреннее, под mu ---

// insertLocked вставляет с сохранением сортировки по created_at;
// при равных created_at новая запись идёт после существующих (порядок прибытия).
func (s *MessageStore) insertLocked(e Entry) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].CreatedAt.After(e.CreatedAt)
	})
	s.entries = append(s.entries, Entry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
	s.seen[e.ID] = struct{}{}
}

func (s *MessageStore) indexLocked(id string) int {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *MessageStore) oldestPendingLocked(content string) int {
	for i := range s.entries {
		if s.entries[i].Pending && s.entries[i].Content == content {
			return i
		}
	}
	return -1
}

// replaceLocked удаляет запись i и вставляет e заново (timestamp мог измениться).
func (s *MessageStore) replaceLocked(i int, oldID string, e Entry) {
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.seen, oldID)
	s.insertLocked(e)
}

func (s *MessageStore) dropLocked(id string) {
	if i := s.indexLocked(id); i >= 0 {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		delete(s.seen, id)
	}
}
