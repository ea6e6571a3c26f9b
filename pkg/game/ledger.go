package game

import "sort"

// Ledger tracks quota progress and slot usage for one game session. It is
// not safe for concurrent use; a session makes strictly sequential decisions
// so none is needed.
type Ledger struct {
	capacity    int
	accepted    int
	rejected    int
	attrs       []string // sorted tracked attribute names
	constraints map[string]*constraintCounts
}

type constraintCounts struct {
	target   int
	admitted int
}

// NewLedger creates a ledger for a venue with the given capacity and quotas.
func NewLedger(capacity int, specs []ConstraintSpec) *Ledger {
	l := &Ledger{
		capacity:    capacity,
		constraints: make(map[string]*constraintCounts, len(specs)),
	}
	for _, spec := range specs {
		l.constraints[spec.Attribute] = &constraintCounts{target: spec.MinCount}
		l.attrs = append(l.attrs, spec.Attribute)
	}
	sort.Strings(l.attrs)
	return l
}

// Capacity returns the fixed venue capacity.
func (l *Ledger) Capacity() int { return l.capacity }

// AcceptedCount returns the number of admissions so far.
func (l *Ledger) AcceptedCount() int { return l.accepted }

// RejectedCount returns the number of rejections so far.
func (l *Ledger) RejectedCount() int { return l.rejected }

// SlotsRemaining is always capacity minus accepted count.
func (l *Ledger) SlotsRemaining() int { return l.capacity - l.accepted }

// Attributes returns the tracked attribute names in sorted order.
func (l *Ledger) Attributes() []string { return l.attrs }

// Tracked reports whether the attribute has a quota.
func (l *Ledger) Tracked(attr string) bool {
	_, ok := l.constraints[attr]
	return ok
}

// Deficit is the number of admissions still required for the attribute's
// quota, floored at zero. Untracked attributes have no deficit.
func (l *Ledger) Deficit(attr string) int {
	c, ok := l.constraints[attr]
	if !ok {
		return 0
	}
	if d := c.target - c.admitted; d > 0 {
		return d
	}
	return 0
}

// Record applies one decision. An admission increments the admitted count of
// every tracked attribute the candidate carries and consumes one slot; a
// rejection only increments the rejection count.
func (l *Ledger) Record(c Candidate, admitted bool) {
	if !admitted {
		l.rejected++
		return
	}
	l.accepted++
	for attr, has := range c {
		if !has {
			continue
		}
		if counts, ok := l.constraints[attr]; ok {
			counts.admitted++
		}
	}
}

// Constraints returns the live quota progress, sorted by attribute name.
func (l *Ledger) Constraints() []ConstraintStatus {
	out := make([]ConstraintStatus, 0, len(l.attrs))
	for _, attr := range l.attrs {
		c := l.constraints[attr]
		out = append(out, ConstraintStatus{
			Attribute: attr,
			Target:    c.target,
			Admitted:  c.admitted,
		})
	}
	return out
}

// Snapshot captures the session state at the given arrival index for
// strategy reviews and cache lookups.
func (l *Ledger) Snapshot(personIndex int, observedFrequencies map[string]float64) Snapshot {
	freqs := make(map[string]float64, len(observedFrequencies))
	for attr, f := range observedFrequencies {
		freqs[attr] = f
	}
	return Snapshot{
		PersonIndex:         personIndex,
		AcceptedCount:       l.accepted,
		SlotsRemaining:      l.SlotsRemaining(),
		Constraints:         l.Constraints(),
		ObservedFrequencies: freqs,
	}
}
