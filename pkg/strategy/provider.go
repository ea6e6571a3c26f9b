package strategy

import (
	"context"
	"sync"
	"time"

	"github.com/XiaoConstantine/bouncer-go/pkg/errors"
	"github.com/XiaoConstantine/bouncer-go/pkg/game"
	"github.com/XiaoConstantine/bouncer-go/pkg/logging"
)

// Advisor computes strategy parameters for a game state. Implementations may
// be a local heuristic or a remote (possibly model-backed) service; the
// provider treats them as an opaque slow path.
type Advisor interface {
	Strategize(ctx context.Context, snap game.Snapshot, current *game.Strategy) (*game.Strategy, error)
}

// AdvisorFunc adapts a function to the Advisor interface.
type AdvisorFunc func(ctx context.Context, snap game.Snapshot, current *game.Strategy) (*game.Strategy, error)

func (f AdvisorFunc) Strategize(ctx context.Context, snap game.Snapshot, current *game.Strategy) (*game.Strategy, error) {
	return f(ctx, snap, current)
}

const defaultAdvisorTimeout = 5 * time.Second

// Provider obtains strategy parameters: cache fast path, advisor slow path,
// and a fallback chain that never lets a failed review escape into the
// decision loop. A failed review degrades gracefully; it never aborts the
// game.
type Provider struct {
	advisor Advisor
	cache   Cache
	timeout time.Duration
	logger  *logging.Logger

	mu       sync.Mutex
	lastGood *game.Strategy
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithCache gives the provider a (possibly shared) strategy cache.
func WithCache(cache Cache) ProviderOption {
	return func(p *Provider) {
		p.cache = cache
	}
}

// WithTimeout bounds each advisor call. A slow or hung advisor must never
// stall the per-candidate decision loop indefinitely.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(p *Provider) {
		p.timeout = timeout
	}
}

// WithLogger overrides the global logger.
func WithLogger(logger *logging.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates a strategy provider around an advisor.
func NewProvider(advisor Advisor, opts ...ProviderOption) *Provider {
	p := &Provider{
		advisor: advisor,
		timeout: defaultAdvisorTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.GetLogger()
	}
	return p
}

// GetStrategy returns strategy parameters for the state. It never fails:
// on advisor timeout, transport error, or schema-invalid response it falls
// back to the last-known-good strategy, or the hardcoded default before any
// strategy has ever been obtained.
func (p *Provider) GetStrategy(ctx context.Context, snap game.Snapshot) game.Strategy {
	if p.cache != nil {
		cached, ok, err := p.cache.Lookup(ctx, snap)
		if err != nil {
			// Cache trouble is degraded service, not a provider error.
			p.logger.Warn(ctx, "strategy cache lookup failed: %v", err)
		} else if ok {
			p.logger.Debug(ctx, "strategy served from cache")
			p.remember(*cached)
			return *cached
		}
	}

	fresh, err := p.consult(ctx, snap)
	if err != nil {
		fallback := p.fallback()
		p.logger.Warn(ctx, "strategy review failed, using %s: %v", p.fallbackName(), err)
		return fallback
	}

	if p.cache != nil {
		if err := p.cache.Store(ctx, snap, *fresh); err != nil {
			p.logger.Warn(ctx, "failed to cache strategy: %v", err)
		}
	}
	p.remember(*fresh)
	p.logger.Info(ctx, "strategy updated: %s (switch@%d)", fresh.PolicyType, fresh.PhaseSwitchPoint)
	return *fresh
}

func (p *Provider) consult(ctx context.Context, snap game.Snapshot) (*game.Strategy, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	current := p.lastGood
	p.mu.Unlock()

	strat, err := p.advisor.Strategize(ctx, snap, current)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrap(err, errors.Timeout, "advisor timed out")
		}
		return nil, errors.Wrap(err, errors.AdvisorFailed, "advisor call failed")
	}
	if strat == nil {
		return nil, errors.New(errors.InvalidResponse, "advisor returned no strategy")
	}
	if err := strat.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.InvalidResponse, "advisor returned invalid strategy")
	}
	return strat, nil
}

func (p *Provider) remember(strat game.Strategy) {
	p.mu.Lock()
	p.lastGood = &strat
	p.mu.Unlock()
}

func (p *Provider) fallback() game.Strategy {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastGood != nil {
		return *p.lastGood
	}
	return game.DefaultStrategy()
}

func (p *Provider) fallbackName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastGood != nil {
		return "last known strategy"
	}
	return "default strategy"
}
