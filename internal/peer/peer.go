// Package peer implements an overlay participant: it registers with a
// quorum-sized subset of seeds, builds a power-law neighbor graph from the
// union of seed peer lists, floods identified gossip with hash-based
// deduplication, and runs the peer-level half of the two-level failure
// detector.
package peer

import (
	"math/rand"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gossipnet/pkg/identity"
	"gossipnet/pkg/logging"
	"gossipnet/pkg/netconf"
	"gossipnet/pkg/transport"
	"gossipnet/pkg/wire"
)

// DefaultRegisterTimeout bounds one registration exchange with one seed.
const DefaultRegisterTimeout = 10 * time.Second

const peerListTimeout = 5 * time.Second

// ErrRegistrationFailed means no seed acknowledged the registration. Fatal
// for the peer process.
var ErrRegistrationFailed = errors.New("peer: registration failed — no ACKs received")

// Config holds peer configuration.
type Config struct {
	Host  string         // bind host
	Port  int            // bind port
	Seeds []netconf.Seed // static seed set from config.txt

	GossipInterval     time.Duration // default 5s
	MaxGossipMessages  int           // default 10
	PingInterval       time.Duration // default 3s
	PingTimeout        time.Duration // default 2s
	SuspicionThreshold int           // default 3
	RegisterTimeout    time.Duration // default 10s

	EventLog string      // event log path (default outputfile.txt)
	Logger   *log.Logger // overrides event-log setup when set (tests)
}

// Peer is one running overlay node.
type Peer struct {
	host string
	port int
	id   string

	seeds []netconf.Seed
	log   *log.Logger

	gossipInterval     time.Duration
	maxGossip          int
	pingInterval       time.Duration
	pingTimeout        time.Duration
	suspicionThreshold int
	registerTimeout    time.Duration

	// Overlay state. Neighbor ids double as dial addresses.
	neighborsMu sync.Mutex
	neighbors   map[string]struct{}
	knownMu     sync.Mutex
	knownPeers  map[string]wire.PeerEntry

	// Gossip state: first-write-wins dedup store and originator counter.
	seen       *lru.Cache
	counterMu  sync.Mutex
	msgCounter int

	// Liveness state.
	pingMu          sync.Mutex
	pingResponses   map[string]float64
	suspectMu       sync.Mutex
	suspicionCounts map[string]int
	suspected       mapset.Set

	rngMu sync.Mutex
	rng   *rand.Rand

	registered atomic.Bool
	srv        *transport.Server
	done       chan struct{}
}

// Status is a point-in-time summary of one peer.
type Status struct {
	PeerID       string
	Registered   bool
	Neighbors    []string
	Degree       int
	MessagesSeen int
}

// New validates the configuration and builds a peer node.
func New(cfg *Config) (*Peer, error) {
	if cfg.Port == 0 {
		return nil, errors.New("peer: port is required")
	}
	if len(cfg.Seeds) == 0 {
		return nil, errors.New("peer: seed list is empty")
	}
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}

	logger := cfg.Logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.RolePeer, cfg.Port, cfg.EventLog)
		if err != nil {
			return nil, err
		}
	}

	seen, err := lru.New(gossipStoreSize)
	if err != nil {
		return nil, errors.Wrap(err, "peer: gossip store")
	}

	p := &Peer{
		host:               host,
		port:               cfg.Port,
		id:                 identity.PeerID(host, cfg.Port),
		seeds:              cfg.Seeds,
		log:                logger,
		gossipInterval:     cfg.GossipInterval,
		maxGossip:          cfg.MaxGossipMessages,
		pingInterval:       cfg.PingInterval,
		pingTimeout:        cfg.PingTimeout,
		suspicionThreshold: cfg.SuspicionThreshold,
		registerTimeout:    cfg.RegisterTimeout,
		neighbors:          make(map[string]struct{}),
		knownPeers:         make(map[string]wire.PeerEntry),
		seen:               seen,
		pingResponses:      make(map[string]float64),
		suspicionCounts:    make(map[string]int),
		suspected:          mapset.NewSet(),
		rng:                rand.New(rand.NewSource(time.Now().UnixNano())),
		done:               make(chan struct{}),
	}
	if p.gossipInterval == 0 {
		p.gossipInterval = DefaultGossipInterval
	}
	if p.maxGossip == 0 {
		p.maxGossip = DefaultMaxGossipMessages
	}
	if p.pingInterval == 0 {
		p.pingInterval = DefaultPingInterval
	}
	if p.pingTimeout == 0 {
		p.pingTimeout = DefaultPingTimeout
	}
	if p.suspicionThreshold == 0 {
		p.suspicionThreshold = DefaultSuspicionThreshold
	}
	if p.registerTimeout == 0 {
		p.registerTimeout = DefaultRegisterTimeout
	}

	p.log.Infof("Peer node initialized at %s", p.id)
	return p, nil
}

// Start brings the peer up: listener, registration, overlay, then the
// gossip and liveness loops. A bind failure or zero registration ACKs is
// fatal; the caller exits non-zero.
func (p *Peer) Start() error {
	srv, err := transport.Listen(p.host, p.port, p)
	if err != nil {
		return err
	}
	p.srv = srv
	p.log.Infof("Listening on %s:%d", p.host, p.port)

	if err := p.registerWithSeeds(); err != nil {
		p.log.Error("Registration FAILED — shutting down")
		p.Stop()
		return err
	}

	p.fetchPeerLists()
	p.buildOverlay()

	go p.gossipLoop()
	go p.livenessLoop()

	p.log.Info("Peer node fully active — gossip & liveness running")
	return nil
}

// Stop closes the listener and stops the background loops.
func (p *Peer) Stop() {
	select {
	case <-p.done:
		return
	default:
	}
	close(p.done)
	if p.srv != nil {
		p.srv.Close()
	}
	p.log.Info("Peer node stopped.")
}

// ID returns the peer's canonical identifier.
func (p *Peer) ID() string { return p.id }

// Addr returns the bound listener address.
func (p *Peer) Addr() net.Addr { return p.srv.Addr() }

// Status summarises this peer.
func (p *Peer) Status() Status {
	neighbors := p.neighborIDs()
	return Status{
		PeerID:       p.id,
		Registered:   p.registered.Load(),
		Neighbors:    neighbors,
		Degree:       len(neighbors),
		MessagesSeen: p.MessagesSeen(),
	}
}

// HandleMessage routes one inbound message.
func (p *Peer) HandleMessage(msg *wire.Message, conn net.Conn) {
	switch msg.Type {
	case wire.TypeGossip:
		var g wire.Gossip
		if msg.Decode(&g) == nil {
			p.handleGossip(g)
		}
	case wire.TypePing:
		p.handlePing(conn)
	case wire.TypePong:
		var pong wire.Pong
		if msg.Decode(&pong) == nil {
			p.handlePong(pong)
		}
	case wire.TypeSuspectQuery:
		var q wire.SuspectQuery
		if msg.Decode(&q) == nil {
			p.handleSuspectQuery(q, conn)
		}
	case wire.TypeSuspectResponse:
		// Responses are read inline by the querying connection.
	case wire.TypeRemovalNotify:
		// Reserved for the event-log visualizer feed.
	default:
		p.log.Warnf("Unknown message type: %s", msg.Type)
	}
}

// registerWithSeeds contacts a random quorum-sized subset of seeds. A single
// ACK makes the peer active: each ACK already implies that seed's local
// consensus approved.
func (p *Peer) registerWithSeeds() error {
	n := len(p.seeds)
	required := n/2 + 1
	if required > n {
		required = n
	}

	p.rngMu.Lock()
	perm := p.rng.Perm(n)
	p.rngMu.Unlock()
	chosen := make([]netconf.Seed, 0, required)
	for _, i := range perm[:required] {
		chosen = append(chosen, p.seeds[i])
	}

	p.log.Infof("Registering with %d/%d seeds (quorum = %d)", len(chosen), n, required)

	req, err := wire.New(wire.TypeRegisterRequest, &wire.RegisterRequest{
		Host: p.host,
		Port: p.port,
	})
	if err != nil {
		return err
	}

	acks := 0
	for _, s := range chosen {
		sid := s.ID()
		p.log.Infof("Sending registration to seed %s", sid)
		reply, err := transport.SendReceive(sid, req, p.registerTimeout)
		if err != nil {
			p.log.Warnf("Cannot reach seed %s: %v", sid, err)
			continue
		}
		switch reply.Type {
		case wire.TypeRegisterAck:
			acks++
			p.log.Infof("ACK from seed %s  (%d/%d)", sid, acks, required)
		case wire.TypeRegisterNack:
			p.log.Warnf("NACK from seed %s", sid)
		}
	}

	if acks == 0 {
		p.log.Error("Registration failed — no ACKs received")
		return ErrRegistrationFailed
	}
	p.registered.Store(true)
	p.log.Infof("Registration complete — ACKs=%d", acks)
	return nil
}

// fetchPeerLists queries every seed and stores the union, minus this peer.
func (p *Peer) fetchPeerLists() {
	req, err := wire.New(wire.TypeGetPeerList, nil)
	if err != nil {
		return
	}

	all := make(map[string]wire.PeerEntry)
	for _, s := range p.seeds {
		reply, err := transport.SendReceive(s.ID(), req, peerListTimeout)
		if err != nil {
			p.log.Warnf("Cannot reach seed %s: %v", s.ID(), err)
			continue
		}
		if reply.Type != wire.TypePeerList {
			continue
		}
		var pl wire.PeerList
		if reply.Decode(&pl) != nil {
			continue
		}
		p.log.Infof("Received Peer List from seed %s: %v", pl.SeedID, sortedKeys(pl.Peers))
		for id, entry := range pl.Peers {
			all[id] = entry
		}
	}

	delete(all, p.id)
	p.knownMu.Lock()
	p.knownPeers = all
	p.knownMu.Unlock()
	p.log.Infof("Union of Peer Lists: %d peers — %v", len(all), sortedKeys(all))
}

// Rebuild refreshes the known-peer union from the seeds and reselects the
// overlay from scratch.
func (p *Peer) Rebuild() {
	p.neighborsMu.Lock()
	p.neighbors = make(map[string]struct{})
	p.neighborsMu.Unlock()
	p.fetchPeerLists()
	p.buildOverlay()
}

func (p *Peer) neighborIDs() []string {
	p.neighborsMu.Lock()
	defer p.neighborsMu.Unlock()
	ids := make([]string, 0, len(p.neighbors))
	for id := range p.neighbors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *Peer) isNeighbor(id string) bool {
	p.neighborsMu.Lock()
	defer p.neighborsMu.Unlock()
	_, ok := p.neighbors[id]
	return ok
}

func sortedKeys(m map[string]wire.PeerEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
