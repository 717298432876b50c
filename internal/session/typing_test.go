package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeTypingBackend struct {
	mu     sync.Mutex
	writes []bool
}

func (f *fakeTypingBackend) SetTyping(_ context.Context, _, _ string, isTyping bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, isTyping)
	return nil
}

func (f *fakeTypingBackend) snapshot() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.writes))
	copy(out, f.writes)
	return out
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestTypingSignal_BurstCoalescedToOneWrite(t *testing.T) {
	backend := &fakeTypingBackend{}
	ts := NewTypingSignal(backend, "room-1", "me", 50*time.Millisecond)
	defer ts.Close()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		ts.Keystroke(ctx)
	}

	got := backend.snapshot()
	if len(got) != 1 || got[0] != true {
		t.Fatalf("burst must produce exactly one true write, got %v", got)
	}
}

func TestTypingSignal_DebounceWritesFalse(t *testing.T) {
	backend := &fakeTypingBackend{}
	ts := NewTypingSignal(backend, "room-1", "me", 30*time.Millisecond)
	defer ts.Close()

	ts.Keystroke(context.Background())

	waitFor(t, time.Second, func() bool {
		w := backend.snapshot()
		return len(w) == 2 && w[1] == false
	})
}

func TestTypingSignal_KeystrokeResetsTimer(t *testing.T) {
	backend := &fakeTypingBackend{}
	ts := NewTypingSignal(backend, "room-1", "me", 60*time.Millisecond)
	defer ts.Close()

	ctx := context.Background()
	ts.Keystroke(ctx)
	time.Sleep(35 * time.Millisecond)
	ts.Keystroke(ctx) // таймер переустановлен, false ещё рано
	time.Sleep(35 * time.Millisecond)

	if w := backend.snapshot(); len(w) != 1 {
		t.Fatalf("false written too early: %v", w)
	}

	waitFor(t, time.Second, func() bool {
		return len(backend.snapshot()) == 2
	})
}

func TestTypingSignal_StaleExpireDoesNotClearFreshBurst(t *testing.T) {
	backend := &fakeTypingBackend{}
	ts := NewTypingSignal(backend, "room-1", "me", time.Hour)
	defer ts.Close()

	ctx := context.Background()
	ts.Keystroke(ctx) // таймер поколения 1
	ts.Keystroke(ctx) // таймер переустановлен, поколение 2

	// callback первого таймера мог уже стартовать, когда Stop() его «гасил» —
	// опоздавшее срабатывание не должно снять флаг посреди всплеска
	ts.expire(1)
	if w := backend.snapshot(); len(w) != 1 || w[0] != true {
		t.Fatalf("stale expire must be a no-op, got writes %v", w)
	}

	// актуальное поколение снимает флаг как обычно
	ts.expire(2)
	w := backend.snapshot()
	if len(w) != 2 || w[1] != false {
		t.Fatalf("current-generation expire must clear the flag, got %v", w)
	}
}

func TestTypingSignal_StaleExpireAfterStop(t *testing.T) {
	backend := &fakeTypingBackend{}
	ts := NewTypingSignal(backend, "room-1", "me", time.Hour)
	defer ts.Close()

	ctx := context.Background()
	ts.Keystroke(ctx) // поколение 1
	ts.Stop()         // поколение 2, false записан
	ts.Keystroke(ctx) // поколение 3, true записан

	ts.expire(1)
	w := backend.snapshot()
	if len(w) != 3 || w[2] != true {
		t.Fatalf("expire of a stopped timer must not write, got %v", w)
	}
}

func TestTypingSignal_StopWritesFalseImmediately(t *testing.T) {
	backend := &fakeTypingBackend{}
	ts := NewTypingSignal(backend, "room-1", "me", time.Hour) // таймер не должен понадобиться
	defer ts.Close()

	ts.Keystroke(context.Background())
	ts.Stop()

	w := backend.snapshot()
	if len(w) != 2 || w[0] != true || w[1] != false {
		t.Fatalf("send must clear typing immediately, got %v", w)
	}

	// после send флаг не «застревает» — таймер погашен, новых записей нет
	time.Sleep(50 * time.Millisecond)
	if len(backend.snapshot()) != 2 {
		t.Fatalf("unexpected writes after stop: %v", backend.snapshot())
	}
}

func TestTypingSignal_StopWithoutKeystrokeIsNoop(t *testing.T) {
	backend := &fakeTypingBackend{}
	ts := NewTypingSignal(backend, "room-1", "me", time.Hour)
	defer ts.Close()

	ts.Stop()
	if w := backend.snapshot(); len(w) != 0 {
		t.Fatalf("stop without burst must not write, got %v", w)
	}
}

func TestTypingSignal_PeerUpdatesIgnoreSelf(t *testing.T) {
	backend := &fakeTypingBackend{}
	ts := NewTypingSignal(backend, "room-1", "me", time.Hour)
	defer ts.Close()

	if ts.ApplyPeerUpdate("me", true) {
		t.Fatal("self-originated update must be ignored")
	}
	if !ts.ApplyPeerUpdate("peer", true) {
		t.Fatal("peer update must apply")
	}
	if ts.ApplyPeerUpdate("peer", true) {
		t.Fatal("unchanged peer state must not re-apply")
	}
	if !ts.PeerTyping() {
		t.Fatal("peer must be reported as typing")
	}
	if !ts.ApplyPeerUpdate("peer", false) {
		t.Fatal("peer stop must apply")
	}
	if ts.PeerTyping() {
		t.Fatal("peer must no longer be typing")
	}
}

func TestTypingSignal_CloseClearsActiveFlag(t *testing.T) {
	backend := &fakeTypingBackend{}
	ts := NewTypingSignal(backend, "room-1", "me", time.Hour)

	ts.Keystroke(context.Background())
	ts.Close()

	w := backend.snapshot()
	if len(w) != 2 || w[1] != false {
		t.Fatalf("close must clear the typing flag, got %v", w)
	}

	// после Close новые keystroke игнорируются
	ts.Keystroke(context.Background())
	if len(backend.snapshot()) != 2 {
		t.Fatal("keystroke after close must be ignored")
	}
}
