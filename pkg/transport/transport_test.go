package transport

import (
	"net"
	"sync"
	"testing"
	"time"

	"gossipnet/pkg/wire"
)

// echoHandler answers every PING with a PONG and records what it saw.
type echoHandler struct {
	mu   sync.Mutex
	seen []wire.Type
}

func (h *echoHandler) HandleMessage(msg *wire.Message, conn net.Conn) {
	h.mu.Lock()
	h.seen = append(h.seen, msg.Type)
	h.mu.Unlock()

	if msg.Type == wire.TypePing {
		pong, _ := wire.NewPong("test:0")
		Write(conn, pong, time.Second)
	}
}

func (h *echoHandler) types() []wire.Type {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]wire.Type(nil), h.seen...)
}

func startServer(t *testing.T, h Handler) *Server {
	t.Helper()
	s, err := Listen("127.0.0.1", 0, h)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSendReceive(t *testing.T) {
	h := &echoHandler{}
	s := startServer(t, h)

	ping, _ := wire.NewPing("client:1")
	reply, err := SendReceive(s.Addr().String(), ping, 2*time.Second)
	if err != nil {
		t.Fatalf("SendReceive failed: %v", err)
	}
	if reply.Type != wire.TypePong {
		t.Errorf("expected PONG, got %s", reply.Type)
	}
}

func TestSendFireAndForget(t *testing.T) {
	h := &echoHandler{}
	s := startServer(t, h)

	gossip, _ := wire.NewGossip("1:127.0.0.1:9999:1", "deadbeef", "client:1")
	if err := Send(s.Addr().String(), gossip, 2*time.Second); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitFor(t, func() bool { return len(h.types()) == 1 })
	if h.types()[0] != wire.TypeGossip {
		t.Errorf("expected GOSSIP, got %s", h.types()[0])
	}
}

func TestMalformedFramesAreDropped(t *testing.T) {
	h := &echoHandler{}
	s := startServer(t, h)

	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// One garbage line, then a valid PING on the same connection.
	if _, err := conn.Write([]byte("this is not json\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	ping, _ := wire.NewPing("client:1")
	if err := Write(conn, ping, time.Second); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	waitFor(t, func() bool { return len(h.types()) == 1 })
	if h.types()[0] != wire.TypePing {
		t.Errorf("expected only the PING to be dispatched, got %v", h.types())
	}
}

func TestSendReceiveConnectFailure(t *testing.T) {
	// A port nothing listens on: grab one and release it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ping, _ := wire.NewPing("client:1")
	if _, err := SendReceive(addr, ping, 500*time.Millisecond); err == nil {
		t.Fatal("expected connect failure")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
