package transport

import (
	"sync"
	"testing"
	"time"
)

// capturingClient records everything written to it.
type capturingClient struct {
	c  *client
	mu sync.Mutex
	wr [][]byte
}

func newCapturingClient(id string) *capturingClient {
	cc := &capturingClient{}
	cc.c = newClient(id, "test",
		func(data []byte) error {
			cc.mu.Lock()
			cc.wr = append(cc.wr, append([]byte(nil), data...))
			cc.mu.Unlock()
			return nil
		},
		func() error { return nil },
	)
	return cc
}

func (cc *capturingClient) waitForWrite(t *testing.T, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		cc.mu.Lock()
		for _, w := range cc.wr {
			if string(w) == want {
				cc.mu.Unlock()
				return
			}
		}
		cc.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client %s never received %q", cc.c.id, want)
}

func TestBroadcastDeliversToAll(t *testing.T) {
	h := NewHub(nil)
	a := newCapturingClient("a")
	b := newCapturingClient("b")
	h.add(a.c)
	h.add(b.c)

	h.Broadcast([]string{"a", "b"}, map[string]string{"type": "test"})

	a.waitForWrite(t, `{"type":"test"}`)
	b.waitForWrite(t, `{"type":"test"}`)
}

// A client that already failed must not block delivery to the others.
func TestBroadcastIsolatesFailedClient(t *testing.T) {
	h := NewHub(nil)
	a := newCapturingClient("a")
	b := newCapturingClient("b")
	c := newCapturingClient("c")
	h.add(a.c)
	h.add(b.c)
	h.add(c.c)

	// Simulate a write failure having torn down b's connection.
	b.c.shutdown()

	h.Broadcast([]string{"a", "b", "c"}, map[string]string{"type": "test"})

	a.waitForWrite(t, `{"type":"test"}`)
	c.waitForWrite(t, `{"type":"test"}`)
	if n := h.ClientCount(); n != 2 {
		t.Errorf("ClientCount() = %d, want 2 after dropping failed client", n)
	}
}

// A client whose writes stall is dropped once its buffer fills; the
// rest keep receiving.
func TestSlowClientDropped(t *testing.T) {
	h := NewHub(nil)
	unblock := make(chan struct{})
	slow := &capturingClient{}
	slow.c = newClient("slow", "test",
		func([]byte) error {
			<-unblock
			return nil
		},
		func() error { return nil },
	)
	defer close(unblock)
	fast := newCapturingClient("fast")
	h.add(slow.c)
	h.add(fast.c)

	// One message in flight plus a full buffer, then one more to
	// trigger the drop.
	for i := 0; i <= sendBufferSize+1; i++ {
		h.Broadcast([]string{"slow"}, map[string]string{"type": "fill"})
	}
	h.Broadcast([]string{"slow", "fast"}, map[string]string{"type": "test"})

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := h.ClientCount(); n != 1 {
		t.Fatalf("ClientCount() = %d, want 1 after slow client dropped", n)
	}
	fast.waitForWrite(t, `{"type":"test"}`)
}

func TestSendToUnknownClient(t *testing.T) {
	h := NewHub(nil)
	// Must not panic or block.
	h.Send("missing", map[string]string{"type": "test"})
	h.Broadcast([]string{"missing"}, map[string]string{"type": "test"})
}

func TestRemoveIsIdempotent(t *testing.T) {
	h := NewHub(nil)
	a := newCapturingClient("a")
	h.add(a.c)
	h.remove("a")
	h.remove("a")
	if n := h.ClientCount(); n != 0 {
		t.Errorf("ClientCount() = %d, want 0", n)
	}
}

func TestCloseAll(t *testing.T) {
	h := NewHub(nil)
	h.add(newCapturingClient("a").c)
	h.add(newCapturingClient("b").c)
	h.CloseAll()
	if n := h.ClientCount(); n != 0 {
		t.Errorf("ClientCount() = %d, want 0 after CloseAll", n)
	}
}
