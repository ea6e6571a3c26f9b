package game

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/XiaoConstantine/bouncer-go/pkg/errors"
)

// PolicyType selects which admission logic a strategy uses. It is a closed
// enum: unmarshaling an unknown name fails instead of silently falling back.
type PolicyType int

const (
	// PolicyHybrid uses Max-Urgency logic before the phase-switch point and
	// Combined-Value logic after it.
	PolicyHybrid PolicyType = iota
	// PolicyMaxUrgency always admits on the single most urgent constraint.
	PolicyMaxUrgency
	// PolicyCombinedValue always admits on summed urgency across constraints.
	PolicyCombinedValue
)

var policyTypeNames = map[PolicyType]string{
	PolicyHybrid:        "Hybrid",
	PolicyMaxUrgency:    "MaxUrgency",
	PolicyCombinedValue: "CombinedValue",
}

func (p PolicyType) String() string {
	if name, ok := policyTypeNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PolicyType(%d)", int(p))
}

// ParsePolicyType converts a wire name to a PolicyType.
func ParsePolicyType(name string) (PolicyType, error) {
	for pt, n := range policyTypeNames {
		if n == name {
			return pt, nil
		}
	}
	return PolicyHybrid, errors.WithFields(
		errors.New(errors.InvalidInput, "unknown policy type"),
		errors.Fields{"policy_type": name})
}

func (p PolicyType) MarshalJSON() ([]byte, error) {
	name, ok := policyTypeNames[p]
	if !ok {
		return nil, errors.New(errors.InvalidInput, "unknown policy type")
	}
	return json.Marshal(name)
}

func (p *PolicyType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return errors.Wrap(err, errors.InvalidInput, "policy type must be a string")
	}
	parsed, err := ParsePolicyType(name)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// EarlyGameParams tune the Max-Urgency phase. The admission bar starts at
// BaseLeniency and rises by ScalingFactor as slots fill.
type EarlyGameParams struct {
	BaseLeniency  float64 `json:"base_leniency" validate:"gte=0,lte=1"`
	ScalingFactor float64 `json:"scaling_factor" validate:"gte=0,lte=2"`
}

// LateGameParams tune the Combined-Value phase.
type LateGameParams struct {
	BaseThreshold float64 `json:"base_threshold" validate:"gte=0,lte=2"`
	BufferPercent float64 `json:"buffer_percent" validate:"gte=0,lte=1"`
}

// Strategy is the full parameter set for the admission policy. A strategy is
// immutable once issued; each successful review replaces it wholesale.
type Strategy struct {
	PolicyType       PolicyType      `json:"policy_type"`
	PhaseSwitchPoint int             `json:"phase_switch_point" validate:"gte=0"`
	EarlyGame        EarlyGameParams `json:"early_game_params"`
	LateGame         LateGameParams  `json:"late_game_params"`
}

var validate = validator.New()

// Validate checks the strategy's numeric ranges. Advisor responses must pass
// this before they are trusted.
func (s Strategy) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(err, errors.ValidationFailed, "invalid strategy parameters")
	}
	return nil
}

// DefaultStrategy is the hardcoded safe fallback used before any strategy has
// been obtained or when every advisor call has failed.
func DefaultStrategy() Strategy {
	return Strategy{
		PolicyType:       PolicyHybrid,
		PhaseSwitchPoint: 400,
		EarlyGame: EarlyGameParams{
			BaseLeniency:  0.55,
			ScalingFactor: 0.4,
		},
		LateGame: LateGameParams{
			BaseThreshold: 0.75,
			BufferPercent: 0.1,
		},
	}
}
