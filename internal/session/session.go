package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aura-chat/chat-service/internal/domain"
	"github.com/aura-chat/chat-service/internal/feed"
)

// MessageBackend — история и запись сообщений в стор.
type MessageBackend interface {
	ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error)
	Send(ctx context.Context, roomID, senderID, content string) (*domain.Message, error)
}

type Deps struct {
	Messages MessageBackend
	Typing   TypingBackend
	Rooms    RoomBackend
	Feed     feed.Feed
}

type Config struct {
	RoomID         string
	UserID         string
	TypingDebounce time.Duration
}

// Виды исходящих обновлений для view.
type UpdateKind int

const (
	UpdateMessage UpdateKind = iota + 1 // новая запись в логе
	UpdateAck                           // оптимистичная запись подтверждена
	UpdateFailed                        // запись не прошла
	UpdateReaction
	UpdateTyping
	UpdatePeerJoined
	UpdatePeerLeft
)

type Update struct {
	Kind     UpdateKind
	Entry    *Entry // для message-обновлений
	TempID   string // для UpdateAck: каким временным id была запись
	UserID   string // для typing / peer-событий
	IsTyping bool
}

// Session — state holder одной открытой комнаты: создаётся при открытии view,
// уничтожается при закрытии. Свободно плавающих переменных нет — всё состояние
// комнаты живёт здесь, смена комнаты не может прочитать устаревший room id.
type Session struct {
	cfg  Config
	deps Deps

	Store  *MessageStore
	Typing *TypingSignal
	binder *RoomBinder

	sub *feed.Subscription

	// mu защищает closed и view: view мутируется из dispatch-горутины,
	// а читается транспортом.
	mu      sync.Mutex
	closed  bool
	view    *RoomView
	done    chan struct{}
	updates chan Update
}

func New(deps Deps, cfg Config) *Session {
	return &Session{
		cfg:     cfg,
		deps:    deps,
		Store:   NewMessageStore(cfg.UserID),
		Typing:  NewTypingSignal(deps.Typing, cfg.RoomID, cfg.UserID, cfg.TypingDebounce),
		binder:  NewRoomBinder(deps.Rooms),
		done:    make(chan struct{}),
		updates: make(chan Update, 64),
	}
}

// Open: присоединение, две независимые загрузки (метаданные+счётчик, история),
// затем подписка на ленту. Ошибка подписки не фатальна — остаёмся на
// history-only view с записью в лог.
func (s *Session) Open(ctx context.Context) error {
	if err := s.binder.Join(ctx, s.cfg.RoomID, s.cfg.UserID); err != nil &&
		!errors.Is(err, domain.ErrAlreadyJoined) {
		return err
	}

	view, err := s.binder.Load(ctx, s.cfg.RoomID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.view = view
	s.mu.Unlock()

	history, err := s.deps.Messages.ListByRoom(ctx, s.cfg.RoomID)
	if err != nil {
		// FetchError: комната открывается пустой, а не падает
		slog.Error("session: history load failed", "room", s.cfg.RoomID, "err", err)
	} else {
		s.Store.Hydrate(history)
	}

	// состояние typing собеседников на момент открытия
	if parts, err := s.deps.Rooms.ListParticipants(ctx, s.cfg.RoomID); err == nil {
		for _, p := range parts {
			if p.IsTyping {
				s.Typing.ApplyPeerUpdate(p.UserID, true)
			}
		}
	}

	sub, err := s.deps.Feed.Subscribe(ctx, feed.RoomTopic(s.cfg.RoomID))
	if err != nil {
		slog.Error("session: subscribe failed, history-only view", "room", s.cfg.RoomID, "err", err)
		return nil
	}
	s.sub = sub

	go s.dispatch()
	return nil
}

// View — снапшот шапки комнаты. Копия: счётчик участников живёт
// под мьютексом и меняется из dispatch-горутины.
func (s *Session) View() RoomView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return RoomView{}
	}
	return *s.view
}

// Updates — поток обновлений для view (ws-соединения).
func (s *Session) Updates() <-chan Update { return s.updates }

// Done закрывается при Close.
func (s *Session) Done() <-chan struct{} { return s.done }

// Send: оптимистичная запись видна синхронно, до любого сетевого завершения;
// сама запись в стор уходит конкурентно. Отправка из одних пробелов — no-op.
func (s *Session) Send(ctx context.Context, content string) (Entry, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Entry{}, false
	}

	s.Typing.Stop()

	entry := s.Store.AppendLocal(s.cfg.RoomID, content)
	s.emit(Update{Kind: UpdateMessage, Entry: &entry})

	go s.persist(entry.ID, content)
	return entry, true
}

// Retry переотправляет failed-запись вручную.
func (s *Session) Retry(ctx context.Context, tempID string) bool {
	entry, ok := s.Store.MarkPending(tempID)
	if !ok {
		return false
	}
	go s.persist(tempID, entry.Content)
	return true
}

func (s *Session) persist(tempID, content string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	saved, err := s.deps.Messages.Send(ctx, s.cfg.RoomID, s.cfg.UserID, content)
	if err != nil {
		// оптимистичная запись не исчезает молча: флаг + лог
		slog.Error("session: send failed", "room", s.cfg.RoomID, "temp_id", tempID, "err", err)
		if e, ok := s.Store.MarkFailed(tempID); ok {
			s.emit(Update{Kind: UpdateFailed, Entry: &e, TempID: tempID})
		}
		return
	}

	if e, ok := s.Store.Confirm(tempID, saved); ok {
		s.emit(Update{Kind: UpdateAck, Entry: &e, TempID: tempID})
	}
}

// Keystroke — пользователь печатает.
func (s *Session) Keystroke(ctx context.Context) {
	s.Typing.Keystroke(ctx)
}

// dispatch прокачивает события ленты в store/typing, пока сессию не закрыли.
func (s *Session) dispatch() {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.sub.C:
			if !ok {
				return
			}
			s.handle(ev)
		}
	}
}

func (s *Session) handle(ev feed.Event) {
	// guard: события не должны трогать закрытый view
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	switch ev.Type {
	case feed.EventMessageInserted:
		if ev.Message == nil || ev.Message.RoomID != s.cfg.RoomID {
			return
		}
		if e, ok := s.Store.ApplyRemote(*ev.Message); ok {
			s.emit(Update{Kind: UpdateMessage, Entry: &e})
		}

	case feed.EventMessageUpdated:
		if ev.Message == nil || ev.Message.RoomID != s.cfg.RoomID {
			return
		}
		if e, ok := s.Store.ApplyReaction(ev.Message.ID, ev.Message.Reaction); ok {
			s.emit(Update{Kind: UpdateReaction, Entry: &e})
		}

	case feed.EventParticipantUpdate:
		if ev.Participant == nil || ev.Participant.RoomID != s.cfg.RoomID {
			return
		}
		if s.Typing.ApplyPeerUpdate(ev.Participant.UserID, ev.Participant.IsTyping) {
			s.emit(Update{Kind: UpdateTyping, UserID: ev.Participant.UserID, IsTyping: ev.Participant.IsTyping})
		}

	case feed.EventParticipantJoined:
		if ev.Participant == nil || ev.Participant.RoomID != s.cfg.RoomID {
			return
		}
		s.mu.Lock()
		if s.view != nil && ev.Participant.UserID != s.cfg.UserID {
			s.view.MemberCount++
		}
		s.mu.Unlock()
		s.emit(Update{Kind: UpdatePeerJoined, UserID: ev.Participant.UserID})

	case feed.EventParticipantLeft:
		if ev.Participant == nil || ev.Participant.RoomID != s.cfg.RoomID {
			return
		}
		s.mu.Lock()
		if s.view != nil && s.view.MemberCount > 0 {
			s.view.MemberCount--
		}
		s.mu.Unlock()
		s.emit(Update{Kind: UpdatePeerLeft, UserID: ev.Participant.UserID})
	}
}

func (s *Session) emit(u Update) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	select {
	case s.updates <- u:
	default:
		// view не успевает разбирать обновления; теряем, не блокируемся
		slog.Debug("session: update dropped", "room", s.cfg.RoomID, "kind", u.Kind)
	}
}

// Close освобождает подписку и гасит typing-таймер. Идемпотентен, безопасен
// из teardown даже если Open не дошёл до подписки.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	if s.sub != nil {
		s.sub.Close()
	}
	s.Typing.Close()
}
