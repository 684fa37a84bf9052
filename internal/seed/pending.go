package seed

import (
	"fmt"
	"net"
	"sync"

	"github.com/pkg/errors"
)

var (
	errMissingPort = errors.New("seed: port is required")
	errNoSeeds     = errors.New("seed: seed list is empty")
)

// pendingTable maps a proposal id to the peer connection awaiting the
// registration decision. The handler that received the REGISTER_REQUEST
// holds the connection open across vote collection; the decision step takes
// it back to send the ACK or NACK.
type pendingTable struct {
	mu    sync.Mutex
	conns map[string]net.Conn
}

func newPendingTable() *pendingTable {
	return &pendingTable{conns: make(map[string]net.Conn)}
}

func (t *pendingTable) put(propID string, conn net.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[propID] = conn
}

func (t *pendingTable) take(propID string) (net.Conn, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	conn, ok := t.conns[propID]
	if ok {
		delete(t.conns, propID)
	}
	return conn, ok
}

func yesVotesMessage(yes int) string {
	return fmt.Sprintf("Registration approved (%d votes)", yes)
}
