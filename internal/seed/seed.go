// Package seed implements the membership authority of the gossip network.
// A seed accepts peer registrations and dead-node reports, mutates its peer
// list only through majority consensus with the other seeds, serves
// peer-list reads, and periodically syncs its snapshot with every other
// seed. Seeds are not overlay participants and never gossip.
package seed

import (
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"gossipnet/pkg/identity"
	"gossipnet/pkg/logging"
	"gossipnet/pkg/netconf"
	"gossipnet/pkg/transport"
	"gossipnet/pkg/wire"
)

// Defaults for the seed's timing knobs.
const (
	DefaultSyncInterval = 15 * time.Second
	DefaultVoteTimeout  = 5 * time.Second
)

// Config holds seed configuration.
type Config struct {
	Host  string         // bind host
	Port  int            // bind port
	Seeds []netconf.Seed // full static seed set, including this seed

	// StrictQuorum requires Q yes votes even when fewer than N seeds are
	// reachable. Off preserves the degraded mode: once the collection pass
	// ends short of N replies, a registration is approved with the votes
	// that arrived.
	StrictQuorum bool

	SyncInterval time.Duration // snapshot exchange period (default 15s)
	VoteTimeout  time.Duration // per-seed vote collection timeout (default 5s)

	EventLog string      // event log path (default outputfile.txt)
	Logger   *log.Logger // overrides event-log setup when set (tests)
}

// Seed is one running seed node.
type Seed struct {
	host string
	port int
	id   string

	seeds      []netconf.Seed
	others     []netconf.Seed
	totalSeeds int
	quorum     int
	strict     bool

	syncInterval time.Duration
	voteTimeout  time.Duration

	log        *log.Logger
	membership *Membership
	proposals  *proposalTable
	pending    *pendingTable

	srv  *transport.Server
	done chan struct{}
}

// Status is a point-in-time summary of one seed, mirroring what the seed
// reports about itself.
type Status struct {
	SeedID    string
	Peers     []string
	PeerCount int
	Quorum    int
}

// New validates the configuration and builds a seed node.
func New(cfg *Config) (*Seed, error) {
	if cfg.Port == 0 {
		return nil, errMissingPort
	}
	if len(cfg.Seeds) == 0 {
		return nil, errNoSeeds
	}
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	id := identity.PeerID(host, cfg.Port)

	logger := cfg.Logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.RoleSeed, cfg.Port, cfg.EventLog)
		if err != nil {
			return nil, err
		}
	}

	var others []netconf.Seed
	for _, s := range cfg.Seeds {
		if s.ID() != id {
			others = append(others, s)
		}
	}

	syncInterval := cfg.SyncInterval
	if syncInterval == 0 {
		syncInterval = DefaultSyncInterval
	}
	voteTimeout := cfg.VoteTimeout
	if voteTimeout == 0 {
		voteTimeout = DefaultVoteTimeout
	}

	s := &Seed{
		host:         host,
		port:         cfg.Port,
		id:           id,
		seeds:        cfg.Seeds,
		others:       others,
		totalSeeds:   len(cfg.Seeds),
		quorum:       len(cfg.Seeds)/2 + 1,
		strict:       cfg.StrictQuorum,
		syncInterval: syncInterval,
		voteTimeout:  voteTimeout,
		log:          logger,
		membership:   NewMembership(),
		proposals:    newProposalTable(),
		pending:      newPendingTable(),
		done:         make(chan struct{}),
	}

	s.log.Infof("Seed node initialized at %s", s.id)
	s.log.Infof("Total seeds: %d, Quorum: %d", s.totalSeeds, s.quorum)
	otherIDs := make([]string, len(others))
	for i, o := range others {
		otherIDs[i] = o.ID()
	}
	s.log.Infof("Other seeds: %v", otherIDs)
	return s, nil
}

// Start binds the listener and launches the sync loop. A bind failure is
// fatal for the process; the caller exits non-zero.
func (s *Seed) Start() error {
	srv, err := transport.Listen(s.host, s.port, s)
	if err != nil {
		return err
	}
	s.srv = srv
	s.log.Infof("Seed node listening on %s:%d", s.host, s.port)
	go s.syncLoop()
	return nil
}

// Stop closes the listener and stops the background sync.
func (s *Seed) Stop() {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)
	if s.srv != nil {
		s.srv.Close()
	}
	s.log.Info("Seed node stopped.")
}

// ID returns the seed's canonical identifier.
func (s *Seed) ID() string { return s.id }

// Addr returns the bound listener address.
func (s *Seed) Addr() net.Addr { return s.srv.Addr() }

// Quorum returns the configured majority threshold.
func (s *Seed) Quorum() int { return s.quorum }

// Membership exposes the authoritative store.
func (s *Seed) Membership() *Membership { return s.membership }

// Status summarises this seed.
func (s *Seed) Status() Status {
	peers := s.membership.IDs()
	return Status{SeedID: s.id, Peers: peers, PeerCount: len(peers), Quorum: s.quorum}
}

// HandleMessage routes one inbound message.
func (s *Seed) HandleMessage(msg *wire.Message, conn net.Conn) {
	switch msg.Type {
	case wire.TypeRegisterRequest:
		var p wire.RegisterRequest
		if msg.Decode(&p) == nil {
			s.handleRegisterRequest(p, conn)
		}
	case wire.TypeDeadNodeReport:
		var p wire.DeadNodeReport
		if msg.Decode(&p) == nil {
			s.handleDeadNodeReport(p)
		}
	case wire.TypeGetPeerList:
		s.handleGetPeerList(conn)
	case wire.TypeProposeRegister:
		var p wire.ProposeRegister
		if msg.Decode(&p) == nil {
			s.handleProposeRegister(p, conn)
		}
	case wire.TypeVoteRegister, wire.TypeVoteRemove:
		var p wire.Vote
		if msg.Decode(&p) == nil {
			s.proposals.recordVote(p.ProposalID, p.Voter, p.Vote)
		}
	case wire.TypeProposeRemove:
		var p wire.ProposeRemove
		if msg.Decode(&p) == nil {
			s.handleProposeRemove(p, conn)
		}
	case wire.TypeSeedSync:
		var p wire.SeedSync
		if msg.Decode(&p) == nil {
			s.handleSeedSync(p, conn)
		}
	default:
		s.log.Warnf("Unknown message type: %s", msg.Type)
	}
}

// ── Registration consensus ──

// handleRegisterRequest runs a full consensus round for a joining peer,
// holding the requesting connection open until the decision is made.
func (s *Seed) handleRegisterRequest(req wire.RegisterRequest, conn net.Conn) {
	reqID := identity.PeerID(req.Host, req.Port)

	// Already registered: idempotent ACK, no new proposal.
	if s.membership.Contains(reqID) {
		s.log.Infof("Peer %s already registered — sending ACK", reqID)
		s.reply(conn, wire.TypeRegisterAck, &wire.RegisterReply{
			PeerID:  reqID,
			Message: "Already registered",
		})
		return
	}

	propID := newProposalID()
	s.proposals.create(&proposal{
		id:       propID,
		kind:     kindRegister,
		peerID:   reqID,
		peerHost: req.Host,
		peerPort: req.Port,
		proposer: s.id,
		votes:    map[string]bool{s.id: true},
	})
	s.pending.put(propID, conn)

	s.log.Infof("PROPOSAL: Register peer %s  [id=%s, self-vote=YES, votes=1/%d needed]",
		reqID, propID, s.quorum)

	propose, err := wire.New(wire.TypeProposeRegister, &wire.ProposeRegister{
		ProposalID: propID,
		PeerHost:   req.Host,
		PeerPort:   req.Port,
		PeerID:     reqID,
		Proposer:   s.id,
	})
	if err != nil {
		s.decideRegistration(propID)
		return
	}
	s.collectVotes(propID, wire.TypeVoteRegister, propose, "Vote")
	s.decideRegistration(propID)
}

// collectVotes sends a proposal to every other seed and records the YES
// votes that match it; NO replies are not recorded. Unreachable seeds
// contribute no vote; there are no retries.
func (s *Seed) collectVotes(propID string, voteType wire.Type, propose *wire.Message, label string) {
	for _, other := range s.others {
		reply, err := transport.SendReceive(other.ID(), propose, s.voteTimeout)
		if err != nil {
			s.log.Warnf("Cannot reach seed %s: %v", other.ID(), err)
			continue
		}
		if reply.Type != voteType {
			continue
		}
		var v wire.Vote
		if reply.Decode(&v) != nil || v.ProposalID != propID || !v.Vote {
			continue
		}
		if yes, ok := s.proposals.recordVote(propID, v.Voter, true); ok {
			s.log.Infof("%s from %s: YES  (total %d/%d)", label, v.Voter, yes, s.quorum)
		}
	}
}

// decideRegistration settles a registration proposal against the quorum
// rule. With StrictQuorum off and fewer than N replies in, the degraded rule
// approves with whatever yes votes arrived.
func (s *Seed) decideRegistration(propID string) {
	p, yes, total, ok := s.proposals.settle(propID)
	if !ok {
		return
	}

	var approved bool
	switch {
	case yes >= s.quorum:
		approved = true
	case total >= s.totalSeeds:
		approved = false
	case s.strict:
		approved = false
	default:
		approved = yes >= 1
	}

	if approved {
		s.membership.Insert(p.peerID, wire.PeerEntry{
			Host:   p.peerHost,
			Port:   p.peerPort,
			Joined: wire.Now(),
		})
		s.log.Infof("CONSENSUS OUTCOME — APPROVED: Peer %s  [votes=%d/%d, quorum=%d]",
			p.peerID, yes, total, s.quorum)
		s.log.Infof("Current Peer List: %v", s.membership.IDs())
		if conn, held := s.pending.take(propID); held {
			s.reply(conn, wire.TypeRegisterAck, &wire.RegisterReply{
				PeerID:  p.peerID,
				Message: yesVotesMessage(yes),
			})
		}
		return
	}

	s.log.Infof("CONSENSUS OUTCOME — REJECTED: Peer %s  [votes=%d/%d, quorum=%d]",
		p.peerID, yes, total, s.quorum)
	if conn, held := s.pending.take(propID); held {
		s.reply(conn, wire.TypeRegisterNack, &wire.RegisterReply{
			PeerID:  p.peerID,
			Message: "Registration rejected — quorum not met",
		})
	}
}

// handleProposeRegister votes on another seed's registration proposal.
// Registration is permissive: the vote is YES, and an already-present
// subject is idempotent YES.
func (s *Seed) handleProposeRegister(p wire.ProposeRegister, conn net.Conn) {
	s.log.Infof("Received registration proposal %s for %s from %s",
		p.ProposalID, p.PeerID, p.Proposer)

	vote := true
	s.proposals.create(&proposal{
		id:       p.ProposalID,
		kind:     kindRegister,
		peerID:   p.PeerID,
		peerHost: p.PeerHost,
		peerPort: p.PeerPort,
		proposer: p.Proposer,
		votes:    map[string]bool{s.id: vote},
	})

	s.log.Infof("Voting %s on proposal %s", yesNo(vote), p.ProposalID)
	s.replyVote(conn, wire.TypeVoteRegister, p.ProposalID, vote)
}

// ── Dead-node removal consensus ──

// handleDeadNodeReport starts seed-level consensus for a peer-reported
// failure. Reports for unknown peers are ignored without opening a round.
func (s *Seed) handleDeadNodeReport(rep wire.DeadNodeReport) {
	s.log.Infof("Dead-node report received: %s", rep.ReportString)
	s.log.Infof("Reporter=%s, peer-level votes=%d", rep.ReporterID, rep.PeerVotes)

	if !s.membership.Contains(rep.DeadPeerID) {
		s.log.Warnf("Dead node %s not in Peer List — ignoring", rep.DeadPeerID)
		return
	}

	propID := newProposalID()
	s.proposals.create(&proposal{
		id:        propID,
		kind:      kindRemove,
		peerID:    rep.DeadPeerID,
		reporter:  rep.ReporterID,
		peerVotes: rep.PeerVotes,
		proposer:  s.id,
		votes:     map[string]bool{s.id: true},
	})

	s.log.Infof("PROPOSAL: Remove dead peer %s  [id=%s, reporter=%s]",
		rep.DeadPeerID, propID, rep.ReporterID)

	propose, err := wire.New(wire.TypeProposeRemove, &wire.ProposeRemove{
		ProposalID: propID,
		PeerID:     rep.DeadPeerID,
		Reporter:   rep.ReporterID,
		PeerVotes:  rep.PeerVotes,
		Proposer:   s.id,
	})
	if err != nil {
		s.decideRemoval(propID)
		return
	}
	s.collectVotes(propID, wire.TypeVoteRemove, propose, "Removal vote")
	s.decideRemoval(propID)
}

// decideRemoval settles a removal proposal. Removal always requires the full
// quorum; there is no degraded mode for taking a peer out.
func (s *Seed) decideRemoval(propID string) {
	p, yes, _, ok := s.proposals.settle(propID)
	if !ok {
		return
	}

	if yes < s.quorum {
		s.log.Infof("Removal REJECTED for %s — only %d/%d seed votes",
			p.peerID, yes, s.quorum)
		return
	}

	if _, removed := s.membership.Remove(p.peerID); removed {
		s.log.Infof("CONFIRMED REMOVAL: Peer %s removed from Peer List  [seed votes=%d/%d]",
			p.peerID, yes, s.quorum)
		s.log.Infof("Current Peer List: %v", s.membership.IDs())
	} else {
		s.log.Infof("Peer %s already removed", p.peerID)
	}
}

// handleProposeRemove votes on another seed's removal proposal: YES only if
// the subject is currently in the local membership.
func (s *Seed) handleProposeRemove(p wire.ProposeRemove, conn net.Conn) {
	s.log.Infof("Received removal proposal %s for %s from %s",
		p.ProposalID, p.PeerID, p.Proposer)

	vote := s.membership.Contains(p.PeerID)
	if !vote {
		s.log.Warnf("Peer %s not in our list — voting NO", p.PeerID)
	}

	s.proposals.create(&proposal{
		id:        p.ProposalID,
		kind:      kindRemove,
		peerID:    p.PeerID,
		reporter:  p.Reporter,
		peerVotes: p.PeerVotes,
		proposer:  p.Proposer,
		votes:     map[string]bool{s.id: vote},
	})

	s.log.Infof("Voting %s on removal %s", yesNo(vote), p.ProposalID)
	s.replyVote(conn, wire.TypeVoteRemove, p.ProposalID, vote)
}

// ── Peer list service ──

func (s *Seed) handleGetPeerList(conn net.Conn) {
	snapshot := s.membership.Snapshot()
	s.log.Infof("Sending Peer List (%d peers) to %s", len(snapshot), conn.RemoteAddr())
	s.reply(conn, wire.TypePeerList, &wire.PeerList{Peers: snapshot, SeedID: s.id})
}

// ── Seed-to-seed synchronisation ──

// handleSeedSync merges a remote snapshot (union semantics, never deletes)
// and answers with the local snapshot so one round syncs both directions.
func (s *Seed) handleSeedSync(p wire.SeedSync, conn net.Conn) {
	for _, id := range s.membership.Merge(p.Peers) {
		s.log.Infof("Merged peer %s from seed sync", id)
	}
	s.reply(conn, wire.TypeSeedSync, &wire.SeedSync{
		Peers:  s.membership.Snapshot(),
		Sender: s.id,
	})
}

func (s *Seed) syncLoop() {
	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.syncWithSeeds()
		}
	}
}

func (s *Seed) syncWithSeeds() {
	msg, err := wire.New(wire.TypeSeedSync, &wire.SeedSync{
		Peers:  s.membership.Snapshot(),
		Sender: s.id,
	})
	if err != nil {
		return
	}
	for _, other := range s.others {
		reply, err := transport.SendReceive(other.ID(), msg, 3*time.Second)
		if err != nil {
			s.log.Warnf("Cannot reach seed %s: %v", other.ID(), err)
			continue
		}
		if reply.Type != wire.TypeSeedSync {
			continue
		}
		var remote wire.SeedSync
		if reply.Decode(&remote) != nil {
			continue
		}
		for _, id := range s.membership.Merge(remote.Peers) {
			s.log.Infof("Merged peer %s from seed sync", id)
		}
	}
}

// ── Reply helpers ──

func (s *Seed) reply(conn net.Conn, t wire.Type, payload interface{}) {
	msg, err := wire.New(t, payload)
	if err != nil {
		return
	}
	if err := transport.Write(conn, msg, s.voteTimeout); err != nil {
		s.log.Warnf("Failed to send %s: %v", t, err)
	}
}

func (s *Seed) replyVote(conn net.Conn, t wire.Type, propID string, vote bool) {
	msg, err := wire.NewVote(t, propID, s.id, vote)
	if err != nil {
		return
	}
	if err := transport.Write(conn, msg, s.voteTimeout); err != nil {
		s.log.Warnf("Failed to send vote: %v", err)
	}
}

func yesNo(v bool) string {
	if v {
		return "YES"
	}
	return "NO"
}
