package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

func dialTestConn(t *testing.T) *wsConn {
	t.Helper()

	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return newWsConn(c)
}

// read-loop и write-loop закрывают соединение независимо; повторный
// и одновременный Close не должен ронять процесс.
func TestWsConnConcurrentClose(t *testing.T) {
	c := dialTestConn(t)

	const n = 100
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_ = c.Close()
		}()
	}
	close(start)
	wg.Wait()

	select {
	case <-c.closed:
	default:
		t.Fatal("closed channel is still open after Close")
	}

	// и ещё раз последовательно — тоже no-op
	_ = c.Close()
}

func TestWsConnSendAfterClose(t *testing.T) {
	c := dialTestConn(t)
	_ = c.Close()

	if err := c.Send(Frame{Type: TypeState}); err == nil {
		t.Fatal("Send after Close = nil, want error")
	}
}
