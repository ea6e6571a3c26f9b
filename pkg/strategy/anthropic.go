package strategy

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	errs "github.com/XiaoConstantine/bouncer-go/pkg/errors"
	"github.com/XiaoConstantine/bouncer-go/pkg/game"
	"github.com/XiaoConstantine/bouncer-go/pkg/logging"
)

// AnthropicAdvisor asks a Claude model to design strategy parameters from a
// serialized game state. Responses are parsed and validated strictly; a
// malformed or incomplete reply is an error, never partially trusted.
type AnthropicAdvisor struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicAdvisor creates an advisor backed by the Anthropic Messages
// API. The API key falls back to ANTHROPIC_API_KEY.
func NewAnthropicAdvisor(apiKey string, model anthropic.Model) (*AnthropicAdvisor, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errs.New(errs.InvalidInput, "API key is required")
	}
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_5_20250929
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicAdvisor{
		client:    &client,
		model:     model,
		maxTokens: 1024,
	}, nil
}

// Strategize implements the Advisor interface.
func (a *AnthropicAdvisor) Strategize(ctx context.Context, snap game.Snapshot, current *game.Strategy) (*game.Strategy, error) {
	logger := logging.GetLogger()

	prompt, err := a.buildPrompt(snap, current)
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidInput, "failed to build advisor prompt")
	}

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model: a.model,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
		MaxTokens:   a.maxTokens,
		Temperature: anthropic.Float(0.2),
	})
	if err != nil {
		return nil, errs.WithFields(
			errs.Wrap(err, errs.AdvisorFailed, "failed to get strategy from advisor"),
			errs.Fields{"model": string(a.model)})
	}

	if message == nil || len(message.Content) == 0 {
		return nil, errs.New(errs.InvalidResponse, "received empty content from advisor")
	}

	var responseText string
	if block := message.Content[0]; block.Type == "text" {
		responseText = block.Text
	}

	logger.Debug(ctx, "advisor response: %d prompt tokens, %d completion tokens",
		message.Usage.InputTokens, message.Usage.OutputTokens)

	return parseStrategyResponse(responseText)
}

func (a *AnthropicAdvisor) buildPrompt(snap game.Snapshot, current *game.Strategy) (string, error) {
	state, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are tuning an admission policy for a fixed-capacity venue. ")
	b.WriteString("Arrivals are admitted or rejected one at a time; per-attribute minimum ")
	b.WriteString("quotas must be satisfied by the time capacity is exhausted.\n\n")
	b.WriteString("Current game state:\n")
	b.Write(state)
	b.WriteString("\n\n")
	if current != nil {
		currentJSON, err := json.Marshal(current)
		if err != nil {
			return "", err
		}
		b.WriteString("Currently active strategy:\n")
		b.Write(currentJSON)
		b.WriteString("\n\n")
	}
	b.WriteString("Respond with a single JSON object and nothing else, shaped exactly like:\n")
	b.WriteString(`{"policy_type": "Hybrid", "phase_switch_point": 400, ` +
		`"early_game_params": {"base_leniency": 0.55, "scaling_factor": 0.4}, ` +
		`"late_game_params": {"base_threshold": 0.75, "buffer_percent": 0.1}}`)
	b.WriteString("\npolicy_type must be one of Hybrid, MaxUrgency, CombinedValue.")

	return b.String(), nil
}

// strategyWire mirrors the Strategy shape with pointer fields so missing
// keys are detectable instead of silently zero-valued.
type strategyWire struct {
	PolicyType       *string `json:"policy_type"`
	PhaseSwitchPoint *int    `json:"phase_switch_point"`
	EarlyGameParams  *struct {
		BaseLeniency  *float64 `json:"base_leniency"`
		ScalingFactor *float64 `json:"scaling_factor"`
	} `json:"early_game_params"`
	LateGameParams *struct {
		BaseThreshold *float64 `json:"base_threshold"`
		BufferPercent *float64 `json:"buffer_percent"`
	} `json:"late_game_params"`
}

// parseStrategyResponse extracts and validates the JSON strategy object from
// an advisor reply.
func parseStrategyResponse(text string) (*game.Strategy, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, errs.New(errs.InvalidResponse, "advisor reply contains no JSON object")
	}

	var wire strategyWire
	if err := json.Unmarshal([]byte(text[start:end+1]), &wire); err != nil {
		return nil, errs.Wrap(err, errs.InvalidResponse, "failed to parse advisor reply")
	}

	missing := func(field string) error {
		return errs.WithFields(
			errs.New(errs.InvalidResponse, "advisor reply missing required field"),
			errs.Fields{"field": field})
	}
	switch {
	case wire.PolicyType == nil:
		return nil, missing("policy_type")
	case wire.PhaseSwitchPoint == nil:
		return nil, missing("phase_switch_point")
	case wire.EarlyGameParams == nil:
		return nil, missing("early_game_params")
	case wire.EarlyGameParams.BaseLeniency == nil:
		return nil, missing("early_game_params.base_leniency")
	case wire.EarlyGameParams.ScalingFactor == nil:
		return nil, missing("early_game_params.scaling_factor")
	case wire.LateGameParams == nil:
		return nil, missing("late_game_params")
	case wire.LateGameParams.BaseThreshold == nil:
		return nil, missing("late_game_params.base_threshold")
	}

	policyType, err := game.ParsePolicyType(*wire.PolicyType)
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidResponse, "advisor reply has unknown policy type")
	}

	// buffer_percent is the one field the reference advisor sometimes omits;
	// it defaults rather than failing the whole response.
	buffer := 0.1
	if wire.LateGameParams.BufferPercent != nil {
		buffer = *wire.LateGameParams.BufferPercent
	}

	strat := &game.Strategy{
		PolicyType:       policyType,
		PhaseSwitchPoint: *wire.PhaseSwitchPoint,
		EarlyGame: game.EarlyGameParams{
			BaseLeniency:  *wire.EarlyGameParams.BaseLeniency,
			ScalingFactor: *wire.EarlyGameParams.ScalingFactor,
		},
		LateGame: game.LateGameParams{
			BaseThreshold: *wire.LateGameParams.BaseThreshold,
			BufferPercent: buffer,
		},
	}
	if err := strat.Validate(); err != nil {
		return nil, errs.Wrap(err, errs.InvalidResponse, "advisor returned out-of-range parameters")
	}
	return strat, nil
}
