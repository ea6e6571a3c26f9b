package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ledgerAt builds a ledger in an arbitrary mid-session state. Some of the
// states exercised here (heavily over-admitted quotas) take hundreds of
// Record calls to reach organically, so the counters are set directly.
func ledgerAt(capacity, accepted int, constraints []ConstraintStatus) *Ledger {
	specs := make([]ConstraintSpec, len(constraints))
	for i, c := range constraints {
		specs[i] = ConstraintSpec{Attribute: c.Attribute, MinCount: c.Target}
	}
	l := NewLedger(capacity, specs)
	l.accepted = accepted
	for _, c := range constraints {
		l.constraints[c.Attribute].admitted = c.Admitted
	}
	return l
}

func TestDecide_PanicModeForcesAdmit(t *testing.T) {
	// deficit(young) = 10 >= slotsRemaining = 6, candidate carries "young":
	// forced admit regardless of strategy parameters.
	l := ledgerAt(1000, 994, []ConstraintStatus{
		{Attribute: "young", Target: 600, Admitted: 590},
	})

	strategies := []Strategy{
		DefaultStrategy(),
		{PolicyType: PolicyMaxUrgency, EarlyGame: EarlyGameParams{BaseLeniency: 0.99, ScalingFactor: 2}},
		{PolicyType: PolicyCombinedValue, LateGame: LateGameParams{BaseThreshold: 2, BufferPercent: 1}},
	}

	for _, strat := range strategies {
		d := Decide(l, 995, Candidate{"young": true}, strat)
		assert.True(t, d.Admit, "panic mode must override strategy %v", strat.PolicyType)
		assert.Equal(t, RulePanic, d.Rule)
	}
}

func TestDecide_PanicModeRequiresAttribute(t *testing.T) {
	l := ledgerAt(1000, 994, []ConstraintStatus{
		{Attribute: "young", Target: 600, Admitted: 590},
	})

	d := Decide(l, 995, Candidate{"creative": true}, DefaultStrategy())
	assert.False(t, d.Admit, "panic mode only fires for carriers of the critical attribute")
}

func TestDecide_PanicModeDoesNotFireWithSlack(t *testing.T) {
	// Scenario from the session at person 399: deficit 10 < 610 slots left,
	// urgency 10/610 ≈ 0.016 is far below the early-phase bar, so a candidate
	// offering only "young" is rejected.
	l := ledgerAt(1000, 390, []ConstraintStatus{
		{Attribute: "young", Target: 600, Admitted: 590},
	})

	d := Decide(l, 399, Candidate{"young": true}, DefaultStrategy())
	assert.False(t, d.Admit)
	assert.Equal(t, RuleEarlyPhase, d.Rule)
	assert.InDelta(t, 10.0/610.0, d.Urgency, 1e-9)
}

func TestDecide_EarlyPhaseNearCriticalUrgency(t *testing.T) {
	// deficit 499 < slots 500, so panic mode stays quiet; urgency 0.998 is
	// above the dynamic bar 0.55 + 0.4*0.5 = 0.75 and admits.
	l := ledgerAt(1000, 500, []ConstraintStatus{
		{Attribute: "young", Target: 999, Admitted: 500},
	})

	d := Decide(l, 10, Candidate{"young": true}, DefaultStrategy())
	assert.True(t, d.Admit)
	assert.Equal(t, RuleEarlyPhase, d.Rule)
	assert.InDelta(t, 499.0/500.0, d.Urgency, 1e-9)
}

func TestDecide_EarlyPhaseDynamicBarTightens(t *testing.T) {
	strat := DefaultStrategy()

	// Session start: bar = 0.55. Urgency 0.6 admits.
	l := ledgerAt(1000, 0, []ConstraintStatus{
		{Attribute: "young", Target: 600, Admitted: 0},
	})
	d := Decide(l, 10, Candidate{"young": true}, strat)
	assert.True(t, d.Admit)

	// Mid-session: bar = 0.55 + 0.4*(300/1000) = 0.67. The same urgency is
	// computed against fewer slots; pick counts that land between the bars.
	l = ledgerAt(1000, 300, []ConstraintStatus{
		{Attribute: "young", Target: 600, Admitted: 180},
	})
	// deficit 420, slots 700, urgency 0.6 < 0.67 -> reject now.
	d = Decide(l, 350, Candidate{"young": true}, strat)
	assert.False(t, d.Admit)
	assert.InDelta(t, 0.6, d.Urgency, 1e-9)
}

func TestDecide_NoTrackedAttributesRejects(t *testing.T) {
	l := ledgerAt(1000, 100, []ConstraintStatus{
		{Attribute: "young", Target: 600, Admitted: 50},
	})

	tests := []struct {
		name string
		cand Candidate
	}{
		{"Empty candidate", Candidate{}},
		{"Only untracked attributes", Candidate{"wears_black": true}},
		{"Tracked attribute set to false", Candidate{"young": false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(l, 10, tt.cand, DefaultStrategy())
			assert.False(t, d.Admit)
			assert.Equal(t, RuleNoAttributes, d.Rule)

			d = Decide(l, 900, tt.cand, DefaultStrategy())
			assert.False(t, d.Admit, "late phase rejects attribute-free candidates too")
		})
	}
}

func TestDecide_LatePhaseSumsUrgency(t *testing.T) {
	strat := DefaultStrategy() // base threshold 0.75, buffer 0.1

	l := ledgerAt(1000, 500, []ConstraintStatus{
		{Attribute: "young", Target: 700, Admitted: 500},    // deficit 200, urgency 0.4
		{Attribute: "creative", Target: 450, Admitted: 250}, // deficit 200, urgency 0.4
	})

	// Each attribute alone is below the 0.75 threshold.
	d := Decide(l, 600, Candidate{"young": true}, strat)
	assert.False(t, d.Admit)
	assert.Equal(t, RuleLatePhase, d.Rule)

	// Both together sum to 0.8 >= 0.75.
	d = Decide(l, 600, Candidate{"young": true, "creative": true}, strat)
	assert.True(t, d.Admit)
	assert.InDelta(t, 0.8, d.Urgency, 1e-9)
}

func TestDecide_LatePhaseBufferShortCircuit(t *testing.T) {
	// Sum 1.2 >= 1.0 + buffer(0.1) admits even with an absurd base threshold.
	strat := DefaultStrategy()
	strat.LateGame.BaseThreshold = 1.9

	l := ledgerAt(1000, 500, []ConstraintStatus{
		{Attribute: "young", Target: 800, Admitted: 500},    // urgency 0.6
		{Attribute: "creative", Target: 550, Admitted: 250}, // urgency 0.6
	})

	d := Decide(l, 600, Candidate{"young": true, "creative": true}, strat)
	assert.True(t, d.Admit)
}

func TestDecide_PolicyTypeDispatch(t *testing.T) {
	// deficit 420, slots 700, urgency 0.6. Early bar at this point is 0.67
	// (reject); the late-phase threshold 0.55 admits.
	l := ledgerAt(1000, 300, []ConstraintStatus{
		{Attribute: "young", Target: 600, Admitted: 180},
	})
	cand := Candidate{"young": true}

	base := DefaultStrategy()
	base.LateGame.BaseThreshold = 0.55

	tests := []struct {
		name        string
		policyType  PolicyType
		personIndex int
		admit       bool
		rule        Rule
	}{
		{"Hybrid before switch uses early logic", PolicyHybrid, 350, false, RuleEarlyPhase},
		{"Hybrid after switch uses late logic", PolicyHybrid, 450, true, RuleLatePhase},
		{"MaxUrgency ignores the switch point", PolicyMaxUrgency, 450, false, RuleEarlyPhase},
		{"CombinedValue ignores the switch point", PolicyCombinedValue, 350, true, RuleLatePhase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strat := base
			strat.PolicyType = tt.policyType
			d := Decide(l, tt.personIndex, cand, strat)
			assert.Equal(t, tt.admit, d.Admit)
			assert.Equal(t, tt.rule, d.Rule)
		})
	}
}

func TestDecide_DoesNotMutateLedger(t *testing.T) {
	l := ledgerAt(1000, 300, []ConstraintStatus{
		{Attribute: "young", Target: 600, Admitted: 180},
	})

	before := l.Snapshot(350, nil)
	_ = Decide(l, 350, Candidate{"young": true}, DefaultStrategy())
	after := l.Snapshot(350, nil)

	require.Equal(t, before, after)
}

func TestUrgency_DenominatorFlooredAtOne(t *testing.T) {
	assert.Equal(t, 5.0, urgency(5, 0))
	assert.Equal(t, 5.0, urgency(5, 1))
	assert.Equal(t, 2.5, urgency(5, 2))
}
