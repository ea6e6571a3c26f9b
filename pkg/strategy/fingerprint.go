package strategy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/XiaoConstantine/bouncer-go/pkg/game"
)

// Fingerprint creates a deterministic cache key from a normalized game state.
// Two snapshots with the same person index, accepted count, quota progress,
// and observed frequencies always produce the same key.
func Fingerprint(snap game.Snapshot) string {
	var parts []string
	for _, c := range snap.SortedConstraints() {
		parts = append(parts, fmt.Sprintf("%s:%d:%d", c.Attribute, c.Target, c.Admitted))
	}

	attrs := make([]string, 0, len(snap.ObservedFrequencies))
	for attr := range snap.ObservedFrequencies {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	var freqs []string
	for _, attr := range attrs {
		freqs = append(freqs, fmt.Sprintf("%s:%.4f", attr, snap.ObservedFrequencies[attr]))
	}

	keyData := fmt.Sprintf("person:%d|accepted:%d|constraints:%s|freqs:%s",
		snap.PersonIndex,
		snap.AcceptedCount,
		strings.Join(parts, ","),
		strings.Join(freqs, ","),
	)

	h := sha256.New()
	h.Write([]byte(keyData))
	hash := hex.EncodeToString(h.Sum(nil))

	return "strat_" + hash[:16]
}

// Similarity scores how comparable two game states are, in [0, 1]. It is
// reflexive: Similarity(s, s) == 1.0. A cached strategy is only reused when
// the score clears the cache's similarity threshold; returning a stale
// strategy for a dissimilar state would be worse than a fresh fetch.
func Similarity(a, b game.Snapshot) float64 {
	personSim := linearSim(a.PersonIndex, b.PersonIndex, 100)
	acceptSim := linearSim(a.AcceptedCount, b.AcceptedCount, 50)

	deficitsA := deficitsByAttr(a)
	deficitsB := deficitsByAttr(b)
	constraintSim := 1.0
	for attr := range union(deficitsA, deficitsB) {
		constraintSim *= linearSim(deficitsA[attr], deficitsB[attr], 200)
	}

	return 0.4*personSim + 0.3*acceptSim + 0.3*constraintSim
}

// linearSim is 1 at zero distance, falling linearly to 0 at scale.
func linearSim(x, y, scale int) float64 {
	diff := x - y
	if diff < 0 {
		diff = -diff
	}
	sim := 1 - float64(diff)/float64(scale)
	if sim < 0 {
		return 0
	}
	return sim
}

func deficitsByAttr(snap game.Snapshot) map[string]int {
	out := make(map[string]int, len(snap.Constraints))
	for _, c := range snap.Constraints {
		out[c.Attribute] = c.Deficit()
	}
	return out
}

func union(a, b map[string]int) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}
