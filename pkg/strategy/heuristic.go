package strategy

import (
	"context"

	"github.com/XiaoConstantine/bouncer-go/pkg/game"
)

// HeuristicAdvisor derives strategy parameters deterministically from the
// quota pressure visible in the snapshot. It is the default advisor: cheap,
// offline, and fully testable.
type HeuristicAdvisor struct{}

// NewHeuristicAdvisor creates the deterministic advisor.
func NewHeuristicAdvisor() *HeuristicAdvisor {
	return &HeuristicAdvisor{}
}

// Strategize tunes the default parameter set around attribute scarcity: when
// a quota needs a larger share of the remaining slots than the attribute's
// observed frequency supplies, the admission bars drop so fewer carriers are
// turned away.
func (a *HeuristicAdvisor) Strategize(ctx context.Context, snap game.Snapshot, current *game.Strategy) (*game.Strategy, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	strat := game.DefaultStrategy()
	if current != nil {
		strat = *current
		strat.PolicyType = game.PolicyHybrid
	}

	scarcity := a.scarcity(snap)

	// scarcity 1.0 means supply exactly matches demand; above that the
	// attribute arrives too rarely and the bars loosen proportionally.
	if scarcity > 1 {
		strat.EarlyGame.BaseLeniency = clamp(0.55-0.2*(scarcity-1), 0.3, 0.7)
		strat.LateGame.BaseThreshold = clamp(0.75-0.25*(scarcity-1), 0.4, 0.9)
	} else {
		strat.EarlyGame.BaseLeniency = 0.55
		strat.LateGame.BaseThreshold = 0.75
	}
	strat.EarlyGame.ScalingFactor = 0.4
	strat.LateGame.BufferPercent = 0.1

	// Under heavy overall pressure the combined-value logic, which rewards
	// multi-attribute candidates, should take over earlier.
	if a.pressure(snap) >= 0.9 {
		strat.PhaseSwitchPoint = 300
	} else {
		strat.PhaseSwitchPoint = 400
	}

	return &strat, nil
}

// scarcity is the worst ratio of required admission rate to observed arrival
// frequency across constraints.
func (a *HeuristicAdvisor) scarcity(snap game.Snapshot) float64 {
	slots := snap.SlotsRemaining
	if slots < 1 {
		slots = 1
	}

	worst := 0.0
	for _, c := range snap.Constraints {
		deficit := c.Deficit()
		if deficit == 0 {
			continue
		}
		requiredRate := float64(deficit) / float64(slots)
		freq := snap.ObservedFrequencies[c.Attribute]
		if freq < 0.01 {
			freq = 0.01
		}
		if ratio := requiredRate / freq; ratio > worst {
			worst = ratio
		}
	}
	return worst
}

// pressure is the total deficit relative to the remaining slots.
func (a *HeuristicAdvisor) pressure(snap game.Snapshot) float64 {
	slots := snap.SlotsRemaining
	if slots < 1 {
		slots = 1
	}
	total := 0
	for _, c := range snap.Constraints {
		total += c.Deficit()
	}
	return float64(total) / float64(slots)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
