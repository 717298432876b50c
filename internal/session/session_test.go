package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aura-chat/chat-service/internal/domain"
	"github.com/aura-chat/chat-service/internal/feed"
)

type fakeChatBackend struct {
	mu       sync.Mutex
	hub      *feed.Hub
	history  map[string][]domain.Message
	seq      int
	failNext bool
	block    chan struct{} // если не nil, Send ждёт закрытия
}

func newFakeChatBackend(hub *feed.Hub) *fakeChatBackend {
	return &fakeChatBackend{hub: hub, history: make(map[string][]domain.Message)}
}

func (f *fakeChatBackend) ListByRoom(_ context.Context, roomID string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Message(nil), f.history[roomID]...), nil
}

func (f *fakeChatBackend) Send(ctx context.Context, roomID, senderID, content string) (*domain.Message, error) {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	if f.failNext {
		f.failNext = false
		f.mu.Unlock()
		return nil, errors.New("write failed")
	}
	f.seq++
	m := domain.Message{
		ID:        fmt.Sprintf("srv-%d", f.seq),
		RoomID:    roomID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	f.history[roomID] = append(f.history[roomID], m)
	f.mu.Unlock()

	// как ChatService: запись видна всем через ленту
	_ = f.hub.Publish(ctx, feed.RoomTopic(roomID), feed.Event{
		Type:    feed.EventMessageInserted,
		RoomID:  roomID,
		Message: &m,
	})
	return &m, nil
}

type fakeRoomBackend struct {
	mu    sync.Mutex
	rooms map[string]*domain.Room
	joins map[string][]string
}

func newFakeRoomBackend(rooms ...*domain.Room) *fakeRoomBackend {
	f := &fakeRoomBackend{rooms: make(map[string]*domain.Room), joins: make(map[string][]string)}
	for _, r := range rooms {
		f.rooms[r.ID] = r
	}
	return f
}

func (f *fakeRoomBackend) GetRoom(_ context.Context, roomID string) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return r, nil
}

func (f *fakeRoomBackend) CountParticipants(_ context.Context, roomID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.joins[roomID])), nil
}

func (f *fakeRoomBackend) ListParticipants(_ context.Context, roomID string) ([]domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Participant
	for _, uid := range f.joins[roomID] {
		out = append(out, domain.Participant{RoomID: roomID, UserID: uid})
	}
	return out, nil
}

func (f *fakeRoomBackend) JoinRoom(_ context.Context, roomID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, uid := range f.joins[roomID] {
		if uid == userID {
			return domain.ErrAlreadyJoined
		}
	}
	f.joins[roomID] = append(f.joins[roomID], userID)
	return nil
}

func newTestSession(t *testing.T, hub *feed.Hub, chat *fakeChatBackend, roomID, userID string) *Session {
	t.Helper()
	rooms := newFakeRoomBackend(&domain.Room{ID: roomID, Kind: domain.RoomPrivate, CreatedBy: userID})
	s := New(Deps{
		Messages: chat,
		Typing:   &fakeTypingBackend{},
		Rooms:    rooms,
		Feed:     hub,
	}, Config{RoomID: roomID, UserID: userID, TypingDebounce: time.Hour})
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestSession_WhitespaceSendIsNoop(t *testing.T) {
	hub := feed.NewHub()
	chat := newFakeChatBackend(hub)
	s := newTestSession(t, hub, chat, "room-1", "alice")

	if _, ok := s.Send(context.Background(), "   \t\n"); ok {
		t.Fatal("whitespace-only send must be a no-op")
	}
	if s.Store.Len() != 0 {
		t.Fatal("no optimistic entry expected")
	}
	select {
	case u := <-s.Updates():
		t.Fatalf("no update expected, got %+v", u)
	default:
	}
}

func TestSession_LocalSendVisibleSynchronously(t *testing.T) {
	hub := feed.NewHub()
	chat := newFakeChatBackend(hub)
	chat.block = make(chan struct{}) // стор «висит»: завершений сети ещё не было
	s := newTestSession(t, hub, chat, "room-1", "alice")

	entry, ok := s.Send(context.Background(), "hi")
	if !ok {
		t.Fatal("send must be accepted")
	}

	// запись видна сразу, до завершения записи в стор
	msgs := s.Store.Messages()
	if len(msgs) != 1 || msgs[0].Content != "hi" || msgs[0].SenderID != "alice" || !msgs[0].Pending {
		t.Fatalf("optimistic entry missing or wrong: %+v", msgs)
	}
	select {
	case u := <-s.Updates():
		if u.Kind != UpdateMessage || u.Entry.ID != entry.ID {
			t.Fatalf("unexpected update: %+v", u)
		}
	default:
		t.Fatal("optimistic update must be emitted synchronously")
	}

	close(chat.block)
	waitFor(t, 2*time.Second, func() bool {
		m := s.Store.Messages()
		return len(m) == 1 && !m[0].Pending
	})
}

func TestSession_FailedSendFlaggedAndRetryable(t *testing.T) {
	hub := feed.NewHub()
	chat := newFakeChatBackend(hub)
	s := newTestSession(t, hub, chat, "room-1", "alice")

	chat.failNext = true
	entry, ok := s.Send(context.Background(), "hi")
	if !ok {
		t.Fatal("send must be accepted")
	}

	waitFor(t, 2*time.Second, func() bool {
		m := s.Store.Messages()
		return len(m) == 1 && m[0].Failed
	})

	// запись не исчезла и переотправляется вручную
	if !s.Retry(context.Background(), entry.ID) {
		t.Fatal("retry of failed entry must be accepted")
	}
	waitFor(t, 2*time.Second, func() bool {
		m := s.Store.Messages()
		return len(m) == 1 && !m[0].Failed && !m[0].Pending
	})
}

func TestSession_CloseReleasesSubscription(t *testing.T) {
	hub := feed.NewHub()
	chat := newFakeChatBackend(hub)

	rooms := newFakeRoomBackend(&domain.Room{ID: "room-1", Kind: domain.RoomPrivate})
	s := New(Deps{Messages: chat, Typing: &fakeTypingBackend{}, Rooms: rooms, Feed: hub},
		Config{RoomID: "room-1", UserID: "alice"})
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	if n := hub.SubscriberCount(feed.RoomTopic("room-1")); n != 1 {
		t.Fatalf("want 1 subscription, got %d", n)
	}

	s.Close()
	s.Close() // идемпотентен

	if n := hub.SubscriberCount(feed.RoomTopic("room-1")); n != 0 {
		t.Fatalf("subscription leaked after close: %d", n)
	}

	// события после закрытия не трогают store
	_ = hub.Publish(context.Background(), feed.RoomTopic("room-1"), feed.Event{
		Type:    feed.EventMessageInserted,
		RoomID:  "room-1",
		Message: &domain.Message{ID: "late", RoomID: "room-1", SenderID: "bob", Content: "late"},
	})
	time.Sleep(20 * time.Millisecond)
	if s.Store.Len() != 0 {
		t.Fatal("closed session must not apply events")
	}
}

func TestSession_CrossRoomIsolationAfterReopen(t *testing.T) {
	hub := feed.NewHub()
	chat := newFakeChatBackend(hub)

	first := newTestSession(t, hub, chat, "room-a", "alice")
	first.Close()

	second := newTestSession(t, hub, chat, "room-b", "alice")

	// сообщение первой комнаты не должно попасть во вторую
	_ = hub.Publish(context.Background(), feed.RoomTopic("room-a"), feed.Event{
		Type:    feed.EventMessageInserted,
		RoomID:  "room-a",
		Message: &domain.Message{ID: "m-a", RoomID: "room-a", SenderID: "bob", Content: "wrong room"},
	})
	time.Sleep(20 * time.Millisecond)

	if second.Store.Len() != 0 {
		t.Fatalf("room-b view received room-a message: %+v", second.Store.Messages())
	}
}

func TestSession_TypingEventsFromPeerOnly(t *testing.T) {
	hub := feed.NewHub()
	chat := newFakeChatBackend(hub)
	s := newTestSession(t, hub, chat, "room-1", "alice")

	// собственный update из ленты игнорируется
	_ = hub.Publish(context.Background(), feed.RoomTopic("room-1"), feed.Event{
		Type:        feed.EventParticipantUpdate,
		RoomID:      "room-1",
		Participant: &domain.Participant{RoomID: "room-1", UserID: "alice", IsTyping: true},
	})
	_ = hub.Publish(context.Background(), feed.RoomTopic("room-1"), feed.Event{
		Type:        feed.EventParticipantUpdate,
		RoomID:      "room-1",
		Participant: &domain.Participant{RoomID: "room-1", UserID: "bob", IsTyping: true},
	})

	waitFor(t, 2*time.Second, func() bool { return s.Typing.PeerTyping() })

	var sawSelf bool
	for {
		select {
		case u := <-s.Updates():
			if u.Kind == UpdateTyping && u.UserID == "alice" {
				sawSelf = true
			}
			continue
		default:
		}
		break
	}
	if sawSelf {
		t.Fatal("self typing update must not reach the view")
	}
}

func TestSession_MemberCountTracksPeerEventsUnderConcurrentReads(t *testing.T) {
	hub := feed.NewHub()
	chat := newFakeChatBackend(hub)
	s := newTestSession(t, hub, chat, "room-1", "alice")

	if got := s.View().MemberCount; got != 1 {
		t.Fatalf("initial member count = %d, want 1", got)
	}

	// view читается транспортом, пока dispatch применяет peer-события
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = s.View().MemberCount
		}
	}()

	const peers = 20
	for i := 0; i < peers; i++ {
		_ = hub.Publish(context.Background(), feed.RoomTopic("room-1"), feed.Event{
			Type:        feed.EventParticipantJoined,
			RoomID:      "room-1",
			Participant: &domain.Participant{RoomID: "room-1", UserID: fmt.Sprintf("peer-%d", i)},
		})
	}
	<-done

	waitFor(t, 2*time.Second, func() bool { return s.View().MemberCount == 1+peers })

	_ = hub.Publish(context.Background(), feed.RoomTopic("room-1"), feed.Event{
		Type:        feed.EventParticipantLeft,
		RoomID:      "room-1",
		Participant: &domain.Participant{RoomID: "room-1", UserID: "peer-0"},
	})
	waitFor(t, 2*time.Second, func() bool { return s.View().MemberCount == peers })
}

func TestSession_EndToEndHelloDeliveredExactlyOnce(t *testing.T) {
	hub := feed.NewHub()
	chat := newFakeChatBackend(hub)

	alice := newTestSession(t, hub, chat, "room-1", "alice")
	bob := newTestSession(t, hub, chat, "room-1", "bob")

	if _, ok := alice.Send(context.Background(), "hello"); !ok {
		t.Fatal("send must be accepted")
	}

	// B видит ровно одно сообщение от A
	waitFor(t, 2*time.Second, func() bool { return bob.Store.Len() == 1 })
	time.Sleep(30 * time.Millisecond) // даём шанс дублю проявиться
	msgs := bob.Store.Messages()
	if len(msgs) != 1 || msgs[0].Content != "hello" || msgs[0].SenderID != "alice" {
		t.Fatalf("bob's view wrong: %+v", msgs)
	}

	// у A тоже ровно одно: эхо из ленты согласовано с оптимистичной записью
	waitFor(t, 2*time.Second, func() bool {
		m := alice.Store.Messages()
		return len(m) == 1 && !m[0].Pending
	})
	time.Sleep(30 * time.Millisecond)
	if alice.Store.Len() != 1 {
		t.Fatalf("alice sees %d copies of her own message", alice.Store.Len())
	}
}
