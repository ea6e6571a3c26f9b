// Package driver runs game sessions end to end: it owns the per-candidate
// decision loop, quota bookkeeping, and strategy review scheduling.
package driver

import (
	"context"

	"github.com/XiaoConstantine/bouncer-go/pkg/client"
	"github.com/XiaoConstantine/bouncer-go/pkg/errors"
	"github.com/XiaoConstantine/bouncer-go/pkg/game"
	"github.com/XiaoConstantine/bouncer-go/pkg/logging"
	"github.com/XiaoConstantine/bouncer-go/pkg/strategy"
)

// GameClient is the game server surface the driver needs.
type GameClient interface {
	NewGame(ctx context.Context, scenario int) (*client.NewGameResponse, error)
	DecideAndNext(ctx context.Context, gameID string, personIndex int, accept *bool) (*client.StepResponse, error)
}

// Config tunes a session driver. Zero fields fall back to defaults.
type Config struct {
	// Capacity is the number of admission slots per game.
	Capacity int
	// ObservationWindow is how many recent arrivals feed the observed
	// attribute frequencies.
	ObservationWindow int
	Scheduler         game.SchedulerConfig
}

const (
	defaultCapacity          = 1000
	defaultObservationWindow = 100
)

func (c Config) withDefaults() Config {
	if c.Capacity <= 0 {
		c.Capacity = defaultCapacity
	}
	if c.ObservationWindow <= 0 {
		c.ObservationWindow = defaultObservationWindow
	}
	return c
}

// Result summarizes one finished session.
type Result struct {
	Scenario int
	GameID   string
	Status   client.Status
	Accepted int
	Rejected int
	Reason   string
}

// Driver plays one game at a time against the game server.
type Driver struct {
	client   GameClient
	provider *strategy.Provider
	config   Config
	logger   *logging.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger overrides the global logger.
func WithLogger(logger *logging.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// New creates a session driver.
func New(gc GameClient, provider *strategy.Provider, config Config, opts ...Option) *Driver {
	d := &Driver{
		client:   gc,
		provider: provider,
		config:   config.withDefaults(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logging.GetLogger()
	}
	return d
}

// Run plays the scenario to a terminal state. A non-nil error means the
// session could not be played out (transport failure, malformed server
// response, cancellation); a server-reported loss comes back as a Result with
// StatusFailed and a nil error.
func (d *Driver) Run(ctx context.Context, scenario int) (*Result, error) {
	handshake, err := d.client.NewGame(ctx, scenario)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithGameID(ctx, handshake.GameID)
	d.logger.Info(ctx, "game started: scenario %d, %d constraints",
		scenario, len(handshake.Constraints))

	ledger := game.NewLedger(d.config.Capacity, handshake.Constraints)
	scheduler := game.NewScheduler(d.config.Scheduler)
	window := newObservationWindow(d.config.ObservationWindow,
		handshake.AttributeStatistics.RelativeFrequencies)

	strat := d.provider.GetStrategy(ctx, ledger.Snapshot(0, window.frequencies(ledger.Attributes())))

	step, err := d.client.DecideAndNext(ctx, handshake.GameID, 0, nil)
	if err != nil {
		return nil, err
	}

	for step.Status == client.StatusRunning {
		if err := errors.CheckContext(ctx, "decision loop"); err != nil {
			return nil, err
		}

		person := step.NextPerson
		pctx := logging.WithPersonIndex(ctx, person.PersonIndex)
		window.observe(person.Attributes)

		if reason := scheduler.ShouldReview(person.PersonIndex); reason != game.ReviewNone {
			d.logger.Debug(pctx, "strategy review (%s)", reason)
			snap := ledger.Snapshot(person.PersonIndex, window.frequencies(ledger.Attributes()))
			strat = d.provider.GetStrategy(pctx, snap)
			d.logProgress(pctx, ledger)
		}

		decision := game.Decide(ledger, person.PersonIndex, person.Attributes, strat)

		next, err := d.client.DecideAndNext(ctx, handshake.GameID, person.PersonIndex, &decision.Admit)
		if err != nil {
			return nil, err
		}

		// The ledger only moves once the server has acknowledged the decision.
		ledger.Record(person.Attributes, decision.Admit)
		scheduler.Observe(decision.Admit)
		step = next
	}

	result := &Result{
		Scenario: scenario,
		GameID:   handshake.GameID,
		Status:   step.Status,
		Accepted: ledger.AcceptedCount(),
		Rejected: step.RejectedCount,
		Reason:   step.Reason,
	}

	switch step.Status {
	case client.StatusCompleted:
		d.logger.Info(ctx, "game completed: %d accepted, %d rejected",
			result.Accepted, result.Rejected)
	case client.StatusFailed:
		result.Rejected = ledger.RejectedCount()
		d.logger.Warn(ctx, "game failed: %s", result.Reason)
	}
	return result, nil
}

func (d *Driver) logProgress(ctx context.Context, ledger *game.Ledger) {
	for _, c := range ledger.Constraints() {
		d.logger.Debug(ctx, "quota %s: %d/%d (slots left %d)",
			c.Attribute, c.Admitted, c.Target, ledger.SlotsRemaining())
	}
}

// observationWindow tracks attribute occurrence over the most recent
// arrivals. Before the window fills, the server-published relative
// frequencies stand in for attributes not yet observed often enough to trust.
type observationWindow struct {
	capacity int
	arrivals []game.Candidate
	baseline map[string]float64
}

func newObservationWindow(capacity int, baseline map[string]float64) *observationWindow {
	return &observationWindow{
		capacity: capacity,
		arrivals: make([]game.Candidate, 0, capacity),
		baseline: baseline,
	}
}

func (w *observationWindow) observe(c game.Candidate) {
	w.arrivals = append(w.arrivals, c)
	if len(w.arrivals) > w.capacity {
		w.arrivals = w.arrivals[1:]
	}
}

func (w *observationWindow) frequencies(attrs []string) map[string]float64 {
	freqs := make(map[string]float64, len(attrs))
	for _, attr := range attrs {
		freqs[attr] = w.frequency(attr)
	}
	return freqs
}

func (w *observationWindow) frequency(attr string) float64 {
	if len(w.arrivals) < w.capacity {
		if f, ok := w.baseline[attr]; ok {
			return f
		}
	}
	if len(w.arrivals) == 0 {
		return 0
	}
	count := 0
	for _, c := range w.arrivals {
		if c.Has(attr) {
			count++
		}
	}
	return float64(count) / float64(len(w.arrivals))
}
