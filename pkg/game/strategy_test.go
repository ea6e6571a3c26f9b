package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyType_UnmarshalRejectsUnknownNames(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		want    PolicyType
	}{
		{"Hybrid", `"Hybrid"`, false, PolicyHybrid},
		{"MaxUrgency", `"MaxUrgency"`, false, PolicyMaxUrgency},
		{"CombinedValue", `"CombinedValue"`, false, PolicyCombinedValue},
		{"Unknown name", `"Aggressive"`, true, 0},
		{"Wrong type", `42`, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pt PolicyType
			err := json.Unmarshal([]byte(tt.payload), &pt)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, pt)
		})
	}
}

func TestStrategy_JSONRoundTrip(t *testing.T) {
	strat := DefaultStrategy()

	data, err := json.Marshal(strat)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"policy_type":"Hybrid"`)

	var decoded Strategy
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, strat, decoded)
}

func TestStrategy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Strategy)
		wantErr bool
	}{
		{"Default is valid", func(s *Strategy) {}, false},
		{"Negative switch point", func(s *Strategy) { s.PhaseSwitchPoint = -1 }, true},
		{"Leniency above one", func(s *Strategy) { s.EarlyGame.BaseLeniency = 1.5 }, true},
		{"Negative scaling", func(s *Strategy) { s.EarlyGame.ScalingFactor = -0.1 }, true},
		{"Threshold out of range", func(s *Strategy) { s.LateGame.BaseThreshold = 3 }, true},
		{"Negative buffer", func(s *Strategy) { s.LateGame.BufferPercent = -0.2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strat := DefaultStrategy()
			tt.mutate(&strat)
			err := strat.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultStrategy(t *testing.T) {
	strat := DefaultStrategy()
	assert.Equal(t, PolicyHybrid, strat.PolicyType)
	assert.Equal(t, 400, strat.PhaseSwitchPoint)
	assert.Equal(t, 0.55, strat.EarlyGame.BaseLeniency)
	assert.Equal(t, 0.4, strat.EarlyGame.ScalingFactor)
	assert.Equal(t, 0.75, strat.LateGame.BaseThreshold)
	assert.Equal(t, 0.1, strat.LateGame.BufferPercent)
}
