package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TypingBackend — запись собственного флага «печатает» в общий стор.
type TypingBackend interface {
	SetTyping(ctx context.Context, roomID, userID string, isTyping bool) error
}

// TypingSignal владеет локальным debounce-таймером и write-path собственного
// флага is_typing. Чужой флаг только читает (через ApplyPeerUpdate).
// Запись true коалесцируется: один write на всплеск клавиатуры, а не на
// каждый символ.
type TypingSignal struct {
	backend  TypingBackend
	roomID   string
	userID   string
	debounce time.Duration

	mu     sync.Mutex
	active bool
	timer  *time.Timer // не бывает двух живых таймеров одновременно
	gen    uint64      // растёт на каждый keystroke/stop; устаревший expire не срабатывает
	closed bool

	peers map[string]bool
}

func NewTypingSignal(backend TypingBackend, roomID, userID string, debounce time.Duration) *TypingSignal {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &TypingSignal{
		backend:  backend,
		roomID:   roomID,
		userID:   userID,
		debounce: debounce,
		peers:    make(map[string]bool),
	}
}

// Keystroke отмечает активность набора. Первый keystroke всплеска пишет
// true в стор; каждый следующий только переустанавливает таймер.
func (t *TypingSignal) Keystroke(ctx context.Context) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	writeTrue := !t.active
	t.active = true
	// timer.Stop() не отменяет уже запущенный callback: старый expire мог
	// проскочить мимо Stop и выполниться после нового keystroke. Поколение
	// делает такие опоздавшие срабатывания no-op.
	t.gen++
	g := t.gen
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.debounce, func() { t.expire(g) })
	t.mu.Unlock()

	if writeTrue {
		if err := t.backend.SetTyping(ctx, t.roomID, t.userID, true); err != nil {
			slog.Warn("typing: set true failed", "room", t.roomID, "user", t.userID, "err", err)
		}
	}
}

// expire — debounce истёк без новых keystroke: снимаем флаг.
// gen привязывает callback к таймеру, который его поставил.
func (t *TypingSignal) expire(gen uint64) {
	t.mu.Lock()
	if t.closed || !t.active || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.active = false
	t.timer = nil
	t.mu.Unlock()

	t.writeFalse()
}

// Stop снимает флаг немедленно (отправка сообщения) и гасит таймер.
// Флаг не может остаться висеть true после send.
func (t *TypingSignal) Stop() {
	t.mu.Lock()
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	wasActive := t.active
	t.active = false
	t.mu.Unlock()

	if wasActive {
		t.writeFalse()
	}
}

// ApplyPeerUpdate применяет событие из ленты. Собственные обновления
// игнорируются: на свои же записи не реагируем.
// Возвращает (userID, isTyping, применимо ли).
func (t *TypingSignal) ApplyPeerUpdate(userID string, isTyping bool) bool {
	if userID == t.userID {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	if t.peers[userID] == isTyping {
		return false
	}
	t.peers[userID] = isTyping
	return true
}

// PeerTyping — печатает ли сейчас хоть один собеседник.
func (t *TypingSignal) PeerTyping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, v := range t.peers {
		if v {
			return true
		}
	}
	return false
}

// Close гасит таймер и гарантированно снимает флаг.
func (t *TypingSignal) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	wasActive := t.active
	t.active = false
	t.mu.Unlock()

	if wasActive {
		t.writeFalse()
	}
}

func (t *TypingSignal) writeFalse() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.backend.SetTyping(ctx, t.roomID, t.userID, false); err != nil {
		slog.Warn("typing: set false failed", "room", t.roomID, "user", t.userID, "err", err)
	}
}
