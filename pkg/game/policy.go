package game

// Rule identifies which part of the decision sequence produced a verdict.
type Rule int

const (
	// RuleNoAttributes rejects a candidate carrying no tracked attribute.
	RuleNoAttributes Rule = iota
	// RulePanic is the forced-admit safety net: a quota can no longer be met
	// unless every remaining holder of its attribute is admitted.
	RulePanic
	// RuleEarlyPhase is the Max-Urgency admission bar.
	RuleEarlyPhase
	// RuleLatePhase is the Combined-Value admission bar.
	RuleLatePhase
)

func (r Rule) String() string {
	switch r {
	case RulePanic:
		return "panic"
	case RuleEarlyPhase:
		return "early-phase"
	case RuleLatePhase:
		return "late-phase"
	default:
		return "no-attributes"
	}
}

// Decision is the outcome of one admission check.
type Decision struct {
	Admit bool
	Rule  Rule
	// Urgency is the value that was compared against the admission bar:
	// the max urgency in the early phase, the summed urgency in the late one.
	Urgency float64
}

// Decide applies the two-phase admission policy with the panic-mode override.
// It is a pure function of the ledger's read-only view, the candidate, and
// the strategy; it never mutates the ledger.
func Decide(l *Ledger, personIndex int, cand Candidate, strat Strategy) Decision {
	slots := l.SlotsRemaining()

	// Panic mode runs first and overrides everything else. If the deficit of
	// a quota has reached the number of slots left, every future holder of
	// that attribute must be taken or the quota is mathematically unreachable.
	for _, attr := range l.attrs {
		deficit := l.Deficit(attr)
		if deficit > 0 && deficit >= slots && cand.Has(attr) {
			return Decision{Admit: true, Rule: RulePanic, Urgency: urgency(deficit, slots)}
		}
	}

	if earlyPhase(strat, personIndex) {
		return maxUrgencyDecision(l, cand, strat, slots)
	}
	return combinedValueDecision(l, cand, strat, slots)
}

// earlyPhase selects the Max-Urgency logic. The switch is exhaustive over the
// closed PolicyType enum.
func earlyPhase(strat Strategy, personIndex int) bool {
	switch strat.PolicyType {
	case PolicyMaxUrgency:
		return true
	case PolicyCombinedValue:
		return false
	case PolicyHybrid:
		return personIndex < strat.PhaseSwitchPoint
	}
	return personIndex < strat.PhaseSwitchPoint
}

// urgency is the deficit normalized by slots remaining. The denominator is
// floored at 1 to guard the division.
func urgency(deficit, slotsRemaining int) float64 {
	denom := slotsRemaining
	if denom < 1 {
		denom = 1
	}
	return float64(deficit) / float64(denom)
}

func maxUrgencyDecision(l *Ledger, cand Candidate, strat Strategy, slots int) Decision {
	maxUrgency := 0.0
	carries := false
	for _, attr := range l.attrs {
		if !cand.Has(attr) {
			continue
		}
		carries = true
		if u := urgency(l.Deficit(attr), slots); u > maxUrgency {
			maxUrgency = u
		}
	}
	if !carries {
		return Decision{Admit: false, Rule: RuleNoAttributes}
	}

	if maxUrgency >= 1.0 {
		return Decision{Admit: true, Rule: RuleEarlyPhase, Urgency: maxUrgency}
	}

	// The admission bar rises as slots fill, tightening acceptance over time.
	progress := float64(l.accepted) / float64(l.capacity)
	bar := strat.EarlyGame.BaseLeniency + strat.EarlyGame.ScalingFactor*progress
	return Decision{Admit: maxUrgency >= bar, Rule: RuleEarlyPhase, Urgency: maxUrgency}
}

func combinedValueDecision(l *Ledger, cand Candidate, strat Strategy, slots int) Decision {
	sum := 0.0
	carries := false
	for _, attr := range l.attrs {
		if !cand.Has(attr) {
			continue
		}
		carries = true
		// Double-counting is intended: a candidate satisfying multiple
		// deficits is more valuable.
		sum += urgency(l.Deficit(attr), slots)
	}
	if !carries || sum == 0 {
		return Decision{Admit: false, Rule: RuleNoAttributes}
	}

	if sum >= 1.0+strat.LateGame.BufferPercent {
		return Decision{Admit: true, Rule: RuleLatePhase, Urgency: sum}
	}
	return Decision{Admit: sum >= strat.LateGame.BaseThreshold, Rule: RuleLatePhase, Urgency: sum}
}
