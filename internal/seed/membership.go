package seed

import (
	"sort"
	"sync"

	"gossipnet/pkg/wire"
)

// Membership is the authoritative peer list held by one seed. Entries enter
// only through an approved register decision (local or merged from another
// seed via sync) and leave only through an approved remove decision. All
// operations are atomic with respect to concurrent consensus decisions and
// peer-list reads.
type Membership struct {
	mu    sync.Mutex
	peers map[string]wire.PeerEntry
}

// NewMembership returns an empty membership store.
func NewMembership() *Membership {
	return &Membership{peers: make(map[string]wire.PeerEntry)}
}

// Contains reports whether peerID is a current member.
func (m *Membership) Contains(peerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.peers[peerID]
	return ok
}

// Insert adds an entry unless the peer is already present. The duplicate
// case is idempotent success, not an error.
func (m *Membership) Insert(peerID string, entry wire.PeerEntry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.peers[peerID]; ok {
		return false
	}
	m.peers[peerID] = entry
	return true
}

// Remove deletes a member and returns the prior entry, or ok=false when the
// peer was already absent.
func (m *Membership) Remove(peerID string) (wire.PeerEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.peers[peerID]
	if ok {
		delete(m.peers, peerID)
	}
	return entry, ok
}

// Snapshot returns a copy of the current membership, used for PEER_LIST
// replies and seed-to-seed sync.
func (m *Membership) Snapshot() map[string]wire.PeerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]wire.PeerEntry, len(m.peers))
	for id, entry := range m.peers {
		out[id] = entry
	}
	return out
}

// Merge unions previously-unknown peers from another seed's snapshot into
// the local membership and returns their ids. Sync never deletes.
func (m *Membership) Merge(remote map[string]wire.PeerEntry) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var merged []string
	for id, entry := range remote {
		if _, ok := m.peers[id]; !ok {
			m.peers[id] = entry
			merged = append(merged, id)
		}
	}
	sort.Strings(merged)
	return merged
}

// IDs returns the sorted member identifiers, for log lines.
func (m *Membership) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.peers))
	for id := range m.peers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the member count.
func (m *Membership) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.peers)
}
