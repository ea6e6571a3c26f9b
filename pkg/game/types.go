package game

import "sort"

// Candidate is the set of boolean attribute flags describing one arrival.
// It is produced by the remote game server and consumed exactly once.
type Candidate map[string]bool

// Has reports whether the candidate carries the given attribute.
func (c Candidate) Has(attr string) bool {
	return c[attr]
}

// ConstraintSpec is a quota as issued by the game server at session start:
// a minimum number of admissions that must carry the attribute.
type ConstraintSpec struct {
	Attribute string `json:"attribute"`
	MinCount  int    `json:"minCount"`
}

// ConstraintStatus is the live progress of one quota.
type ConstraintStatus struct {
	Attribute string `json:"attribute"`
	Target    int    `json:"minCount"`
	Admitted  int    `json:"admitted"`
}

// Deficit is the number of admissions still required for the quota.
func (c ConstraintStatus) Deficit() int {
	if d := c.Target - c.Admitted; d > 0 {
		return d
	}
	return 0
}

// Snapshot is a point-in-time view of a game session, used as input to
// strategy reviews and as the key space for the strategy cache.
type Snapshot struct {
	PersonIndex         int                `json:"current_person"`
	AcceptedCount       int                `json:"accepted_count"`
	SlotsRemaining      int                `json:"slots_remaining"`
	Constraints         []ConstraintStatus `json:"constraints"`
	ObservedFrequencies map[string]float64 `json:"observed_frequencies"`
}

// SortedConstraints returns the snapshot's constraints ordered by attribute
// name. Normalized ordering keeps fingerprints deterministic.
func (s Snapshot) SortedConstraints() []ConstraintStatus {
	out := make([]ConstraintStatus, len(s.Constraints))
	copy(out, s.Constraints)
	sort.Slice(out, func(i, j int) bool { return out[i].Attribute < out[j].Attribute })
	return out
}
