package peer

import (
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gossipnet/pkg/logging"
	"gossipnet/pkg/netconf"
	"gossipnet/pkg/transport"
	"gossipnet/pkg/wire"
)

// freePorts reserves n distinct loopback ports by binding and releasing
// them.
func freePorts(t *testing.T, n int) []int {
	t.Helper()
	ports := make([]int, n)
	for i := range ports {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		ports[i] = ln.Addr().(*net.TCPAddr).Port
		require.NoError(t, ln.Close())
	}
	return ports
}

// recorder is a scripted protocol endpoint: it records every inbound frame
// and answers pings and suspect queries as configured.
type recorder struct {
	mu   sync.Mutex
	msgs []*wire.Message

	pong    bool // answer PING with PONG
	confirm bool // SUSPECT_RESPONSE verdict
}

func (r *recorder) HandleMessage(msg *wire.Message, conn net.Conn) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()

	switch msg.Type {
	case wire.TypePing:
		if r.pong {
			if pong, err := wire.NewPong("stub:0"); err == nil {
				transport.Write(conn, pong, time.Second)
			}
		}
	case wire.TypeSuspectQuery:
		var q wire.SuspectQuery
		if msg.Decode(&q) != nil {
			return
		}
		resp, err := wire.New(wire.TypeSuspectResponse, &wire.SuspectResponse{
			Sender:    "stub:0",
			Suspect:   q.Suspect,
			Confirmed: r.confirm,
		})
		if err == nil {
			transport.Write(conn, resp, time.Second)
		}
	}
}

func (r *recorder) byType(t wire.Type) []*wire.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*wire.Message
	for _, m := range r.msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// startRecorder serves a recorder on an ephemeral port and returns its
// host:port address.
func startRecorder(t *testing.T, r *recorder) string {
	t.Helper()
	srv, err := transport.Listen("127.0.0.1", 0, r)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv.Addr().String()
}

// newTestPeer builds a peer for direct handler-level tests, without starting
// its listener or loops.
func newTestPeer(t *testing.T, cfg *Config) *Peer {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Port == 0 {
		cfg.Port = freePorts(t, 1)[0]
	}
	if cfg.Seeds == nil {
		cfg.Seeds = []netconf.Seed{{Host: "127.0.0.1", Port: freePorts(t, 1)[0]}}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewWithOutput(logging.RolePeer, cfg.Port, io.Discard)
	}
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

// addNeighbors wires neighbor addresses directly into the peer's overlay.
func addNeighbors(p *Peer, addrs ...string) {
	p.neighborsMu.Lock()
	defer p.neighborsMu.Unlock()
	for _, a := range addrs {
		p.neighbors[a] = struct{}{}
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 20*time.Millisecond, msg)
}
