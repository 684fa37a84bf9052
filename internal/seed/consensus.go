package seed

import (
	"sync"

	"github.com/google/uuid"

	"gossipnet/pkg/wire"
)

type proposalKind string

const (
	kindRegister proposalKind = "register"
	kindRemove   proposalKind = "remove"
)

// proposal is one pending consensus decision. Votes accumulate until the
// proposer settles it; settling is terminal and happens at most once.
type proposal struct {
	id       string
	kind     proposalKind
	peerID   string
	peerHost string
	peerPort int
	proposer string

	// removal-only context from the reporting peer
	reporter  string
	peerVotes int

	created float64

	votes   map[string]bool
	decided bool
}

// newProposalID returns a short process-unique token, 8 hex-ish chars of a
// random UUID.
func newProposalID() string {
	return uuid.NewString()[:8]
}

// proposalTable tracks proposals by id for one seed process.
type proposalTable struct {
	mu    sync.Mutex
	props map[string]*proposal
}

func newProposalTable() *proposalTable {
	return &proposalTable{props: make(map[string]*proposal)}
}

// create records a proposal unless one with the same id already exists.
// Both the proposer and the voting side record proposals before replying,
// so a later sync sees consistent state.
func (t *proposalTable) create(p *proposal) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.props[p.id]; ok {
		return false
	}
	if p.votes == nil {
		p.votes = make(map[string]bool)
	}
	if p.created == 0 {
		p.created = wire.Now()
	}
	t.props[p.id] = p
	return true
}

// recordVote stores one seed's vote on a known proposal. Votes for unknown
// or already-decided proposals are dropped.
func (t *proposalTable) recordVote(id, voter string, vote bool) (yes int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, exists := t.props[id]
	if !exists || p.decided {
		return 0, false
	}
	p.votes[voter] = vote
	return countYes(p.votes), true
}

// settle marks the proposal decided exactly once and returns its final
// tally. ok is false when the proposal is unknown or already settled.
func (t *proposalTable) settle(id string) (p *proposal, yes, total int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, exists := t.props[id]
	if !exists || p.decided {
		return nil, 0, 0, false
	}
	p.decided = true
	return p, countYes(p.votes), len(p.votes), true
}

// count returns the number of proposals ever recorded by this process.
func (t *proposalTable) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.props)
}

func countYes(votes map[string]bool) int {
	n := 0
	for _, v := range votes {
		if v {
			n++
		}
	}
	return n
}
