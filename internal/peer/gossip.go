package peer

import (
	"time"

	"gossipnet/pkg/identity"
	"gossipnet/pkg/transport"
	"gossipnet/pkg/wire"
)

// Gossip engine defaults.
const (
	DefaultGossipInterval    = 5 * time.Second
	DefaultMaxGossipMessages = 10

	gossipSettleDelay = 2 * time.Second
	forwardTimeout    = 3 * time.Second

	// gossipStoreSize bounds the dedup store. Far above the per-originator
	// cap times any realistic overlay size, so eviction never races dedup.
	gossipStoreSize = 65536
)

// Record tracks the first sighting of a gossip message hash.
type Record struct {
	ID           string
	Timestamp    float64
	Origin       string
	ReceivedFrom string
	MsgNum       int
}

// gossipLoop generates one message every gossip interval after the overlay
// settles, until the originator cap is reached.
func (p *Peer) gossipLoop() {
	select {
	case <-p.done:
		return
	case <-time.After(gossipSettleDelay):
	}
	for {
		p.counterMu.Lock()
		capped := p.msgCounter >= p.maxGossip
		p.counterMu.Unlock()
		if capped {
			return
		}
		p.generateGossip()
		select {
		case <-p.done:
			return
		case <-time.After(p.gossipInterval):
		}
	}
}

// generateGossip creates, stores and disseminates one message.
func (p *Peer) generateGossip() {
	p.counterMu.Lock()
	if p.msgCounter >= p.maxGossip {
		p.counterMu.Unlock()
		return
	}
	p.msgCounter++
	n := p.msgCounter
	p.counterMu.Unlock()

	ts := wire.Now()
	msgID := identity.MessageID(ts, p.host, p.port, n)
	msgHash := identity.Hash(msgID)

	// Storing our own hash before forwarding means echoes flooding back
	// are dropped as duplicates.
	p.seen.ContainsOrAdd(msgHash, &Record{
		ID:        msgID,
		Timestamp: ts,
		Origin:    p.id,
		MsgNum:    n,
	})

	p.log.Infof("Generated gossip #%d/%d: %s", n, p.maxGossip, msgID)
	p.forwardGossip(msgID, msgHash, "")
}

// forwardGossip sends a message to every current neighbor except the one it
// arrived from. Delivery is best-effort: a failed send is not retried and
// does not touch dedup state.
func (p *Peer) forwardGossip(msgID, msgHash, except string) {
	msg, err := wire.NewGossip(msgID, msgHash, p.id)
	if err != nil {
		return
	}
	for _, id := range p.neighborIDs() {
		if id == except {
			continue
		}
		transport.Send(id, msg, forwardTimeout)
	}
}

// handleGossip stores and re-floods first sightings; duplicates are dropped
// silently.
func (p *Peer) handleGossip(g wire.Gossip) {
	if g.MsgID == "" || g.MsgHash == "" {
		return
	}
	dup, _ := p.seen.ContainsOrAdd(g.MsgHash, &Record{
		ID:           g.MsgID,
		Timestamp:    wire.Now(),
		ReceivedFrom: g.Sender,
	})
	if dup {
		return
	}

	p.log.Infof("Gossip received  [from=%s, msg=%s, time=%s]",
		g.Sender, g.MsgID, time.Now().Format("2006-01-02 15:04:05"))

	p.forwardGossip(g.MsgID, g.MsgHash, g.Sender)
}

// SeenRecord returns the stored record for a message hash, if any.
func (p *Peer) SeenRecord(msgHash string) (*Record, bool) {
	v, ok := p.seen.Get(msgHash)
	if !ok {
		return nil, false
	}
	return v.(*Record), true
}

// MessagesSeen returns the number of distinct gossip messages recorded.
func (p *Peer) MessagesSeen() int {
	return p.seen.Len()
}
