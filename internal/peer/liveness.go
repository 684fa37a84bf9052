package peer

import (
	"net"
	"sort"
	"time"

	"gossipnet/pkg/identity"
	"gossipnet/pkg/transport"
	"gossipnet/pkg/wire"
)

// Failure detector defaults.
const (
	DefaultPingInterval       = 3 * time.Second
	DefaultPingTimeout        = 2 * time.Second
	DefaultSuspicionThreshold = 3

	livenessSettleDelay = 5 * time.Second
	suspectQueryTimeout = 3 * time.Second
	reportTimeout       = 5 * time.Second
)

// livenessLoop pings every neighbor each interval and evaluates suspicions
// between rounds. Ping traffic itself is never logged; only declarations
// are.
func (p *Peer) livenessLoop() {
	select {
	case <-p.done:
		return
	case <-time.After(livenessSettleDelay):
	}
	for {
		p.pingNeighbors()
		select {
		case <-p.done:
			return
		case <-time.After(p.pingInterval):
		}
		p.checkSuspicions()
	}
}

// pingNeighbors probes every current neighbor once. A pong resets the miss
// count and clears any in-progress suspicion; a miss increments it.
func (p *Peer) pingNeighbors() {
	for _, id := range p.neighborIDs() {
		ping, err := wire.NewPing(p.id)
		if err != nil {
			continue
		}
		reply, err := transport.SendReceive(id, ping, p.pingTimeout)
		if err == nil && reply.Type == wire.TypePong {
			p.pingMu.Lock()
			p.pingResponses[id] = wire.Now()
			p.pingMu.Unlock()
			p.suspectMu.Lock()
			delete(p.suspicionCounts, id)
			p.suspectMu.Unlock()
			p.suspected.Remove(id)
		} else {
			p.suspectMu.Lock()
			p.suspicionCounts[id]++
			p.suspectMu.Unlock()
		}
	}
}

// checkSuspicions starts a corroboration round for every neighbor whose miss
// count crossed the threshold and is not already under evaluation.
func (p *Peer) checkSuspicions() {
	p.suspectMu.Lock()
	var suspects []string
	for id, cnt := range p.suspicionCounts {
		if cnt >= p.suspicionThreshold && !p.suspected.Contains(id) {
			suspects = append(suspects, id)
		}
	}
	p.suspectMu.Unlock()

	sort.Strings(suspects)
	for _, suspect := range suspects {
		p.runSuspicionRound(suspect)
	}
}

// runSuspicionRound queries every other neighbor about the suspect and
// declares it dead on a strict majority of samples (self included). A failed
// round resets the suspect's state so it gets another chance.
func (p *Peer) runSuspicionRound(suspect string) {
	p.log.Infof("Initiating peer-level consensus for %s", suspect)
	p.suspected.Add(suspect)

	confirm, total := 1, 1 // our own suspicion is the first sample

	query, err := wire.New(wire.TypeSuspectQuery, &wire.SuspectQuery{
		Sender:  p.id,
		Suspect: suspect,
	})
	if err != nil {
		return
	}
	for _, id := range p.neighborIDs() {
		if id == suspect {
			continue
		}
		total++
		reply, err := transport.SendReceive(id, query, suspectQueryTimeout)
		if err != nil || reply.Type != wire.TypeSuspectResponse {
			continue
		}
		var resp wire.SuspectResponse
		if reply.Decode(&resp) == nil && resp.Confirmed {
			confirm++
		}
	}

	quorum := total/2 + 1
	p.log.Infof("Peer-level consensus for %s: %d/%d (need %d)", suspect, confirm, total, quorum)

	if confirm >= quorum {
		p.log.Infof("PEER CONSENSUS REACHED: %s confirmed dead (%d/%d)", suspect, confirm, total)
		p.reportDeadNode(suspect, confirm)
		p.neighborsMu.Lock()
		delete(p.neighbors, suspect)
		p.neighborsMu.Unlock()
	} else {
		p.log.Infof("Suspicion cancelled for %s", suspect)
		p.suspected.Remove(suspect)
		p.suspectMu.Lock()
		delete(p.suspicionCounts, suspect)
		p.suspectMu.Unlock()
	}
}

// handlePing answers a liveness probe on the same connection. Not logged.
func (p *Peer) handlePing(conn net.Conn) {
	pong, err := wire.NewPong(p.id)
	if err != nil {
		return
	}
	transport.Write(conn, pong, p.pingTimeout)
}

// handlePong records an unsolicited pong; solicited ones are read inline by
// the pinger.
func (p *Peer) handlePong(pong wire.Pong) {
	if pong.Sender == "" {
		return
	}
	p.pingMu.Lock()
	p.pingResponses[pong.Sender] = wire.Now()
	p.pingMu.Unlock()
}

// handleSuspectQuery answers a neighbor's corroboration request: confirmed
// if we have our own misses against the suspect, otherwise, when the suspect
// is one of our neighbors, after a live probe of it also fails. A suspect
// that is not our neighbor is not probed and is denied.
func (p *Peer) handleSuspectQuery(q wire.SuspectQuery, conn net.Conn) {
	p.suspectMu.Lock()
	confirmed := p.suspicionCounts[q.Suspect] >= 1
	p.suspectMu.Unlock()

	if !confirmed && p.isNeighbor(q.Suspect) {
		if ping, err := wire.NewPing(p.id); err == nil {
			reply, err := transport.SendReceive(q.Suspect, ping, p.pingTimeout)
			if err != nil || reply.Type != wire.TypePong {
				confirmed = true
			}
		}
	}

	resp, err := wire.New(wire.TypeSuspectResponse, &wire.SuspectResponse{
		Sender:    p.id,
		Suspect:   q.Suspect,
		Confirmed: confirmed,
	})
	if err != nil {
		return
	}
	transport.Write(conn, resp, suspectQueryTimeout)
}

// reportDeadNode emits the canonical report to every configured seed for
// seed-level removal consensus.
func (p *Peer) reportDeadNode(deadID string, peerVotes int) {
	deadHost, deadPort, err := identity.Split(deadID)
	if err != nil {
		return
	}
	ts := wire.Now()
	report := identity.DeadNodeReport(deadHost, deadPort, ts, p.host)

	p.log.Infof("DEAD NODE REPORT: %s", report)

	msg, err := wire.New(wire.TypeDeadNodeReport, &wire.DeadNodeReport{
		DeadPeerID:   deadID,
		ReporterID:   p.id,
		PeerVotes:    peerVotes,
		Timestamp:    ts,
		ReportString: report,
	})
	if err != nil {
		return
	}
	for _, s := range p.seeds {
		if err := transport.Send(s.ID(), msg, reportTimeout); err != nil {
			p.log.Warnf("Failed to report to seed %s: %v", s.ID(), err)
		}
	}
}
