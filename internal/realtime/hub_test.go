package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/table-booking/internal/logging"
)

// fakeConn records written frames; ReadMessage blocks until Close.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn { return &fakeConn{closed: make(chan struct{})} }

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, append([]byte(nil), data...))
	return nil
}
func (c *fakeConn) WriteControl(int, []byte, time.Time) error { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error          { return nil }
func (c *fakeConn) SetReadDeadline(time.Time) error           { return nil }
func (c *fakeConn) SetReadLimit(int64)                        {}
func (c *fakeConn) SetPongHandler(func(string) error)         {}
func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("closed")
}
func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) events(t *testing.T) []Frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Frame, 0, len(c.frames))
	for _, raw := range c.frames {
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatal(err)
		}
		out = append(out, f)
	}
	return out
}

func newTestHub() *Hub {
	h := NewHub(logging.Discard())
	h.now = func() time.Time { return time.Date(2030, 1, 7, 10, 0, 0, 0, time.UTC) }
	return h
}

func TestHub_GreetingThenEventsInOrder(t *testing.T) {
	h := newTestHub()
	conn := newFakeConn()
	c := NewClient(h, conn, "s-1", 16)
	h.Attach(c)

	ctx := context.Background()
	h.Publish(ctx, "new-reservation", map[string]string{"id": "r1"})
	h.Publish(ctx, "update-reservation", map[string]string{"id": "r1"})
	h.Publish(ctx, "cancel-reservation", map[string]string{"id": "r1"})
	h.Detach(c)
	c.WritePump() // drains the buffer, then sees it closed

	frames := conn.events(t)
	want := []string{"connected", "new-reservation", "update-reservation", "cancel-reservation"}
	if len(frames) != len(want) {
		t.Fatalf("got %d frames, want %d", len(frames), len(want))
	}
	for i, w := range want {
		if frames[i].Event != w {
			t.Fatalf("frame %d: got %s, want %s", i, frames[i].Event, w)
		}
	}
	greeting, _ := frames[0].Data.(map[string]any)
	if greeting["sessionId"] != "s-1" {
		t.Errorf("greeting data: %v", frames[0].Data)
	}
	if !frames[1].Timestamp.Equal(h.now()) {
		t.Errorf("timestamp: %s", frames[1].Timestamp)
	}
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	h := newTestHub()
	slow := NewClient(h, newFakeConn(), "slow", 1)
	h.Attach(slow) // the greeting fills the buffer
	fast := NewClient(h, newFakeConn(), "fast", 16)
	h.Attach(fast)

	h.Publish(context.Background(), "new-reservation", nil)

	deadline := time.Now().Add(time.Second)
	for h.Count() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("slow client still attached, count %d", h.Count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_DetachIsIdempotent(t *testing.T) {
	h := newTestHub()
	c := NewClient(h, newFakeConn(), "s", 4)
	h.Attach(c)
	h.Detach(c)
	h.Detach(c)
	if h.Count() != 0 {
		t.Fatalf("count %d", h.Count())
	}
	// Publishing to nobody is fine.
	h.Publish(context.Background(), "new-reservation", nil)
}

func TestHub_ReadPumpDetachesOnClose(t *testing.T) {
	h := newTestHub()
	conn := newFakeConn()
	c := NewClient(h, conn, "s", 4)
	h.Attach(c)

	done := make(chan struct{})
	go func() {
		c.ReadPump()
		close(done)
	}()
	_ = conn.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read pump did not return")
	}
	if h.Count() != 0 {
		t.Fatalf("count %d", h.Count())
	}
}

func TestHub_Close(t *testing.T) {
	h := newTestHub()
	for _, id := range []string{"a", "b"} {
		h.Attach(NewClient(h, newFakeConn(), id, 4))
	}
	h.Close()
	if h.Count() != 0 {
		t.Fatalf("count %d", h.Count())
	}
}
