package seed

import (
	"testing"

	"gossipnet/pkg/wire"
)

func entry(host string, port int) wire.PeerEntry {
	return wire.PeerEntry{Host: host, Port: port, Joined: wire.Now()}
}

func TestInsertIsIdempotent(t *testing.T) {
	m := NewMembership()

	if !m.Insert("127.0.0.1:7000", entry("127.0.0.1", 7000)) {
		t.Fatal("first insert should succeed")
	}
	if m.Insert("127.0.0.1:7000", entry("127.0.0.1", 7000)) {
		t.Error("duplicate insert should be a no-op")
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 member, got %d", m.Len())
	}
	if !m.Contains("127.0.0.1:7000") {
		t.Error("member should be present")
	}
}

func TestRemoveAbsentIsNoOp(t *testing.T) {
	m := NewMembership()
	m.Insert("127.0.0.1:7000", entry("127.0.0.1", 7000))

	if _, ok := m.Remove("127.0.0.1:9999"); ok {
		t.Error("removing an absent peer should report absent")
	}
	if m.Len() != 1 {
		t.Errorf("membership should be untouched, got %d members", m.Len())
	}

	prior, ok := m.Remove("127.0.0.1:7000")
	if !ok || prior.Port != 7000 {
		t.Errorf("remove should return the prior entry, got %+v ok=%v", prior, ok)
	}
	if m.Contains("127.0.0.1:7000") {
		t.Error("member should be gone")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	m := NewMembership()
	m.Insert("127.0.0.1:7000", entry("127.0.0.1", 7000))

	snap := m.Snapshot()
	delete(snap, "127.0.0.1:7000")

	if !m.Contains("127.0.0.1:7000") {
		t.Error("mutating a snapshot must not touch the store")
	}
}

func TestMergeIsUnionOnly(t *testing.T) {
	m := NewMembership()
	m.Insert("127.0.0.1:7000", entry("127.0.0.1", 7000))

	merged := m.Merge(map[string]wire.PeerEntry{
		"127.0.0.1:7000": entry("127.0.0.1", 7000), // already known
		"127.0.0.1:7001": entry("127.0.0.1", 7001),
	})
	if len(merged) != 1 || merged[0] != "127.0.0.1:7001" {
		t.Errorf("expected only the new peer to merge, got %v", merged)
	}

	// A smaller remote snapshot never deletes local members.
	m.Merge(map[string]wire.PeerEntry{})
	if m.Len() != 2 {
		t.Errorf("merge must never remove members, got %d", m.Len())
	}
}
