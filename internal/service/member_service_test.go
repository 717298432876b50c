package service

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

// fakeRoomStore повторяет контракт postgres.RoomRepository в памяти.
type fakeRoomStore struct {
	mu    sync.Mutex
	seq   int
	rooms map[string]*domain.Room
}

func newFakeRoomStore() *fakeRoomStore {
	return &fakeRoomStore{rooms: make(map[string]*domain.Room)}
}

func (f *fakeRoomStore) Create(_ context.Context, room *domain.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	room.ID = fmt.Sprintf("room-%d", f.seq)
	room.IsActive = true
	room.CreatedAt = time.Now()
	f.rooms[room.ID] = room
	return nil
}

func (f *fakeRoomStore) Get(_ context.Context, id string) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return r, nil
}

func (f *fakeRoomStore) GetByInviteCode(_ context.Context, code string) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.InviteCode == nil || *r.InviteCode != code {
			continue
		}
		// как в SQL: неактивная или просроченная комната кода не резолвит
		if !r.IsActive || (r.ExpiresAt != nil && r.ExpiresAt.Before(time.Now())) {
			break
		}
		return r, nil
	}
	return nil, domain.ErrInvalidInvite
}

func (f *fakeRoomStore) List(_ context.Context, _ int, _ string) ([]domain.Room, string, error) {
	return nil, "", nil
}

func (f *fakeRoomStore) Deactivate(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rooms[id]; ok {
		r.IsActive = false
	}
	return nil
}

func (f *fakeRoomStore) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.rooms {
		if r.IsActive && r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
			r.IsActive = false
			n++
		}
	}
	return n, nil
}

// fakeParticipantStore повторяет семантику Join-транзакции:
// лимит только для групповых комнат, повторная пара — no-op.
type fakeParticipantStore struct {
	mu      sync.Mutex
	rooms   *fakeRoomStore
	members map[string]map[string]domain.Participant
}

func newFakeParticipantStore(rooms *fakeRoomStore) *fakeParticipantStore {
	return &fakeParticipantStore{rooms: rooms, members: make(map[string]map[string]domain.Participant)}
}

func (f *fakeParticipantStore) CountInRoom(_ context.Context, roomID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.members[roomID])), nil
}

func (f *fakeParticipantStore) Exists(_ context.Context, roomID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.members[roomID][userID]
	return ok, nil
}

func (f *fakeParticipantStore) Join(_ context.Context, p *domain.Participant, maxParticipants int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	room := f.rooms.rooms[p.RoomID]
	if room != nil && room.MaxParticipants > 0 {
		maxParticipants = room.MaxParticipants
	}
	if room != nil && room.Kind == domain.RoomGroup && maxParticipants > 0 {
		if int64(len(f.members[p.RoomID])) >= maxParticipants {
			return domain.ErrRoomFull
		}
	}

	if f.members[p.RoomID] == nil {
		f.members[p.RoomID] = make(map[string]domain.Participant)
	}
	if _, ok := f.members[p.RoomID][p.UserID]; ok {
		return nil
	}
	f.members[p.RoomID][p.UserID] = *p
	return nil
}

func (f *fakeParticipantStore) Leave(_ context.Context, roomID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[roomID][userID]; !ok {
		return domain.ErrNotInRoom
	}
	delete(f.members[roomID], userID)
	return nil
}

func (f *fakeParticipantStore) ListByRoom(_ context.Context, roomID string) ([]domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Participant
	for _, p := range f.members[roomID] {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeParticipantStore) SetTyping(_ context.Context, roomID, userID string, isTyping bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.members[roomID][userID]
	if !ok {
		return domain.ErrNotInRoom
	}
	p.IsTyping = isTyping
	f.members[roomID][userID] = p
	return nil
}

func newTestRoomServices(groupCapacity int64) (*RoomService, *MemberService, *fakeParticipantStore) {
	rooms := newFakeRoomStore()
	parts := newFakeParticipantStore(rooms)
	memberSvc := NewMemberService(rooms, parts, feed.NewHub(), groupCapacity)
	roomSvc := NewRoomService(rooms, memberSvc, groupCapacity, 24*time.Hour)
	return roomSvc, memberSvc, parts
}

func TestJoinRoomIdempotent(t *testing.T) {
	roomSvc, memberSvc, _ := newTestRoomServices(20)
	ctx := context.Background()

	room, err := roomSvc.CreatePrivate(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	if err := memberSvc.JoinRoom(ctx, room.ID, "bob"); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if err := memberSvc.JoinRoom(ctx, room.ID, "bob"); !errors.Is(err, domain.ErrAlreadyJoined) {
		t.Fatalf("second join = %v, want ErrAlreadyJoined", err)
	}

	n, _ := memberSvc.CountParticipants(ctx, room.ID)
	if n != 2 {
		t.Fatalf("participant count = %d, want 2 (alice + bob, ровно одна строка на пару)", n)
	}
}

func TestJoinGroupRoomAtCapacityFails(t *testing.T) {
	const capacity = 20
	roomSvc, memberSvc, _ := newTestRoomServices(capacity)
	ctx := context.Background()

	room, err := roomSvc.CreateGroup(ctx, "user-0", nil)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	// создатель уже внутри, добиваем до лимита
	for i := 1; i < capacity; i++ {
		if err := memberSvc.JoinRoom(ctx, room.ID, fmt.Sprintf("user-%d", i)); err != nil {
			t.Fatalf("join user-%d: %v", i, err)
		}
	}

	if err := memberSvc.JoinRoom(ctx, room.ID, "latecomer"); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("join over capacity = %v, want ErrRoomFull", err)
	}

	// счётчик не изменился, частичных записей нет
	n, _ := memberSvc.CountParticipants(ctx, room.ID)
	if n != capacity {
		t.Fatalf("participant count after rejected join = %d, want %d", n, capacity)
	}
}

func TestPrivateRoomNotCapped(t *testing.T) {
	roomSvc, memberSvc, _ := newTestRoomServices(2)
	ctx := context.Background()

	room, err := roomSvc.CreatePrivate(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	// лимит действует только для групповых комнат
	for _, uid := range []string{"bob", "carol", "dave"} {
		if err := memberSvc.JoinRoom(ctx, room.ID, uid); err != nil {
			t.Fatalf("join %s: %v", uid, err)
		}
	}
}

func TestJoinByCodeUnknownCode(t *testing.T) {
	roomSvc, _, parts := newTestRoomServices(20)
	ctx := context.Background()

	if _, err := roomSvc.JoinByCode(ctx, "bob", "NOPE1234"); !errors.Is(err, domain.ErrInvalidInvite) {
		t.Fatalf("join by unknown code = %v, want ErrInvalidInvite", err)
	}

	// никаких записей
	parts.mu.Lock()
	defer parts.mu.Unlock()
	for roomID, m := range parts.members {
		for uid := range m {
			if uid == "bob" {
				t.Fatalf("bob joined %s via unknown code", roomID)
			}
		}
	}
}

func TestJoinByCodeExpired(t *testing.T) {
	roomSvc, _, _ := newTestRoomServices(20)
	ctx := context.Background()

	room, err := roomSvc.CreatePrivate(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	past := time.Now().Add(-time.Minute)
	room.ExpiresAt = &past

	if _, err := roomSvc.JoinByCode(ctx, "bob", *room.InviteCode); !errors.Is(err, domain.ErrInvalidInvite) {
		t.Fatalf("join by expired code = %v, want ErrInvalidInvite", err)
	}
}

func TestJoinByCodeJoinsAndIsIdempotent(t *testing.T) {
	roomSvc, memberSvc, _ := newTestRoomServices(20)
	ctx := context.Background()

	room, err := roomSvc.CreatePrivate(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	joined, err := roomSvc.JoinByCode(ctx, "bob", *room.InviteCode)
	if err != nil {
		t.Fatalf("join by code: %v", err)
	}
	if joined.ID != room.ID {
		t.Fatalf("joined wrong room: %s", joined.ID)
	}

	// повторный вход по тому же коду — успех, строк не прибавляется
	if _, err := roomSvc.JoinByCode(ctx, "bob", *room.InviteCode); err != nil {
		t.Fatalf("repeat join by code: %v", err)
	}
	n, _ := memberSvc.CountParticipants(ctx, room.ID)
	if n != 2 {
		t.Fatalf("participant count = %d, want 2", n)
	}
}
