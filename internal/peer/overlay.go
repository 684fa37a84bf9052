package peer

import (
	"math"
	"math/rand"
	"sort"
)

// Overlay degree bounds and the Zipf exponent.
const (
	minDegree = 1
	maxDegree = 5
	zipfAlpha = 1.0
)

// targetDegree computes the overlay degree for n candidates:
// clamp(⌊log₂(n+1)⌋+1, minDegree, maxDegree), further capped at n.
func targetDegree(n int) int {
	if n == 0 {
		return 0
	}
	d := int(math.Log2(float64(n+1))) + 1
	if d < minDegree {
		d = minDegree
	}
	if d > maxDegree {
		d = maxDegree
	}
	if d > n {
		d = n
	}
	return d
}

// selectNeighbors draws target distinct candidates by Zipf-weighted sampling
// without replacement: after a shuffle, the k-th candidate carries weight
// 1/(k+1)^α, and draws invert the normalised CDF until the target is met or
// the attempt budget runs out.
func selectNeighbors(candidates []string, target int, rng *rand.Rand) []string {
	if target <= 0 || len(candidates) == 0 {
		return nil
	}

	ids := append([]string(nil), candidates...)
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	probs := make([]float64, len(ids))
	total := 0.0
	for i := range ids {
		w := 1.0 / math.Pow(float64(i+1), zipfAlpha)
		probs[i] = w
		total += w
	}
	for i := range probs {
		probs[i] /= total
	}

	selected := make(map[string]struct{}, target)
	for attempts := 0; len(selected) < target && attempts < target*10; attempts++ {
		r := rng.Float64()
		cum := 0.0
		for i, p := range probs {
			cum += p
			if r <= cum {
				selected[ids[i]] = struct{}{}
				break
			}
		}
	}

	out := make([]string, 0, len(selected))
	for id := range selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// buildOverlay selects this peer's neighbor set from the known-peer union.
func (p *Peer) buildOverlay() {
	p.knownMu.Lock()
	available := make(map[string]struct{}, len(p.knownPeers))
	for id := range p.knownPeers {
		available[id] = struct{}{}
	}
	p.knownMu.Unlock()

	if len(available) == 0 {
		p.log.Info("No other peers — overlay is empty")
		return
	}

	n := len(available)
	target := targetDegree(n)
	p.log.Infof("Building overlay: target degree=%d  (from %d available peers)", target, n)

	ids := make([]string, 0, n)
	for id := range available {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	p.rngMu.Lock()
	selected := selectNeighbors(ids, target, p.rng)
	p.rngMu.Unlock()

	p.neighborsMu.Lock()
	for _, id := range selected {
		p.neighbors[id] = struct{}{}
	}
	p.neighborsMu.Unlock()

	p.log.Infof("Overlay built: degree=%d  neighbors=%v", len(selected), selected)
}
