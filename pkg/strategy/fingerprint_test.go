package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/XiaoConstantine/bouncer-go/pkg/game"
)

func snapshotAt(personIndex, accepted int, constraints []game.ConstraintStatus, freqs map[string]float64) game.Snapshot {
	return game.Snapshot{
		PersonIndex:         personIndex,
		AcceptedCount:       accepted,
		SlotsRemaining:      1000 - accepted,
		Constraints:         constraints,
		ObservedFrequencies: freqs,
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := snapshotAt(100, 50,
		[]game.ConstraintStatus{{Attribute: "young", Target: 600, Admitted: 40}},
		map[string]float64{"young": 0.31})
	b := snapshotAt(100, 50,
		[]game.ConstraintStatus{{Attribute: "young", Target: 600, Admitted: 40}},
		map[string]float64{"young": 0.31})

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := snapshotAt(100, 50, []game.ConstraintStatus{
		{Attribute: "young", Target: 600, Admitted: 40},
		{Attribute: "creative", Target: 300, Admitted: 20},
	}, map[string]float64{"young": 0.3, "creative": 0.2})
	b := snapshotAt(100, 50, []game.ConstraintStatus{
		{Attribute: "creative", Target: 300, Admitted: 20},
		{Attribute: "young", Target: 600, Admitted: 40},
	}, map[string]float64{"creative": 0.2, "young": 0.3})

	assert.Equal(t, Fingerprint(a), Fingerprint(b),
		"constraint and frequency ordering must not affect the fingerprint")
}

func TestFingerprint_SensitiveToState(t *testing.T) {
	base := snapshotAt(100, 50,
		[]game.ConstraintStatus{{Attribute: "young", Target: 600, Admitted: 40}},
		map[string]float64{"young": 0.31})

	changed := base
	changed.PersonIndex = 101
	assert.NotEqual(t, Fingerprint(base), Fingerprint(changed))

	changed = base
	changed.AcceptedCount = 51
	assert.NotEqual(t, Fingerprint(base), Fingerprint(changed))

	changed = snapshotAt(100, 50,
		[]game.ConstraintStatus{{Attribute: "young", Target: 600, Admitted: 41}},
		map[string]float64{"young": 0.31})
	assert.NotEqual(t, Fingerprint(base), Fingerprint(changed))
}

func TestSimilarity_ReflexiveAndBounded(t *testing.T) {
	snaps := []game.Snapshot{
		snapshotAt(0, 0, nil, nil),
		snapshotAt(100, 50,
			[]game.ConstraintStatus{{Attribute: "young", Target: 600, Admitted: 40}},
			map[string]float64{"young": 0.31}),
		snapshotAt(999, 999, []game.ConstraintStatus{
			{Attribute: "young", Target: 600, Admitted: 0},
			{Attribute: "creative", Target: 300, Admitted: 300},
		}, nil),
	}

	for _, s := range snaps {
		assert.Equal(t, 1.0, Similarity(s, s), "similarity must be reflexive")
	}

	for _, a := range snaps {
		for _, b := range snaps {
			score := Similarity(a, b)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}

func TestSimilarity_WeightedComponents(t *testing.T) {
	a := snapshotAt(100, 50,
		[]game.ConstraintStatus{{Attribute: "young", Target: 600, Admitted: 100}}, nil)

	// 10 people apart, otherwise identical:
	// 0.4*0.9 + 0.3*1.0 + 0.3*1.0 = 0.96
	b := a
	b.PersonIndex = 110
	assert.InDelta(t, 0.96, Similarity(a, b), 1e-9)

	// 10 accepts apart: 0.4*1.0 + 0.3*0.8 + 0.3*1.0 = 0.94
	b = a
	b.AcceptedCount = 60
	assert.InDelta(t, 0.94, Similarity(a, b), 1e-9)

	// 20 deficit apart: 0.4 + 0.3 + 0.3*0.9 = 0.97
	b = snapshotAt(100, 50,
		[]game.ConstraintStatus{{Attribute: "young", Target: 600, Admitted: 120}}, nil)
	assert.InDelta(t, 0.97, Similarity(a, b), 1e-9)
}

func TestSimilarity_DistantStatesScoreZeroComponents(t *testing.T) {
	a := snapshotAt(0, 0, nil, nil)
	b := snapshotAt(500, 400, nil, nil)

	// Person and accept components both bottom out; constraint component is
	// 1.0 with no constraints.
	assert.InDelta(t, 0.3, Similarity(a, b), 1e-9)
}

func TestSimilarity_ConstraintMismatchPenalized(t *testing.T) {
	a := snapshotAt(100, 50,
		[]game.ConstraintStatus{{Attribute: "young", Target: 600, Admitted: 0}}, nil)
	b := snapshotAt(100, 50, nil, nil)

	// The union of attributes includes "young" with deficit 600 vs 0, which
	// zeroes the constraint product.
	assert.InDelta(t, 0.7, Similarity(a, b), 1e-9)
}
