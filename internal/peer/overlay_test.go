package peer

import (
	"math/rand"
	"testing"
)

func TestTargetDegree(t *testing.T) {
	cases := []struct {
		n, want int
	}{
		{0, 0},   // no candidates, no overlay
		{1, 1},   // capped at the candidate count
		{2, 2},   // log₂(3)+1 = 2
		{3, 3},   // log₂(4)+1 = 3, capped at n
		{7, 4},   // log₂(8)+1 = 4
		{31, 5},  // log₂(32)+1 = 6, clamped to max
		{100, 5}, // clamped to max
	}
	for _, c := range cases {
		if got := targetDegree(c.n); got != c.want {
			t.Errorf("targetDegree(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestSelectNeighborsBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	candidates := []string{
		"127.0.0.1:7000", "127.0.0.1:7001", "127.0.0.1:7002", "127.0.0.1:7003",
		"127.0.0.1:7004", "127.0.0.1:7005", "127.0.0.1:7006", "127.0.0.1:7007",
		"127.0.0.1:7008", "127.0.0.1:7009",
	}

	selected := selectNeighbors(candidates, 3, rng)
	if len(selected) == 0 || len(selected) > 3 {
		t.Fatalf("expected between 1 and 3 neighbors, got %d", len(selected))
	}

	valid := make(map[string]bool)
	for _, c := range candidates {
		valid[c] = true
	}
	seen := make(map[string]bool)
	for _, id := range selected {
		if !valid[id] {
			t.Errorf("selected %q is not a candidate", id)
		}
		if seen[id] {
			t.Errorf("selected %q twice", id)
		}
		seen[id] = true
	}
}

func TestSelectNeighborsSingleCandidate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	selected := selectNeighbors([]string{"127.0.0.1:7000"}, 1, rng)
	if len(selected) != 1 || selected[0] != "127.0.0.1:7000" {
		t.Errorf("expected the only candidate, got %v", selected)
	}
}

func TestSelectNeighborsEmpty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if got := selectNeighbors(nil, 3, rng); got != nil {
		t.Errorf("expected nil for zero candidates, got %v", got)
	}
	if got := selectNeighbors([]string{"127.0.0.1:7000"}, 0, rng); got != nil {
		t.Errorf("expected nil for zero target, got %v", got)
	}
}
