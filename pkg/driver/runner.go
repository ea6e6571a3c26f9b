package driver

import (
	"context"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/XiaoConstantine/bouncer-go/pkg/client"
	"github.com/XiaoConstantine/bouncer-go/pkg/errors"
	"github.com/XiaoConstantine/bouncer-go/pkg/logging"
)

// RunnerConfig tunes a batch run over several scenarios.
type RunnerConfig struct {
	// ContinueOnFailure keeps the batch going after a lost or aborted
	// scenario instead of stopping at the first one.
	ContinueOnFailure bool
	// Concurrency is the number of scenarios played at once. Values below 2
	// mean strictly sequential play.
	Concurrency int
}

// Runner plays a batch of scenarios with one driver per scenario, sharing the
// strategy provider (and through it the cache) across all of them.
type Runner struct {
	driver *Driver
	config RunnerConfig
	logger *logging.Logger
}

// NewRunner creates a batch runner around a session driver.
func NewRunner(d *Driver, config RunnerConfig) *Runner {
	return &Runner{
		driver: d,
		config: config,
		logger: d.logger,
	}
}

// RunAll plays every scenario and returns the results in scenario order.
// Results for scenarios that finished before a stop are always returned,
// alongside the error that stopped the batch.
func (r *Runner) RunAll(ctx context.Context, scenarios []int) ([]Result, error) {
	if r.config.Concurrency > 1 {
		return r.runConcurrent(ctx, scenarios)
	}
	return r.runSequential(ctx, scenarios)
}

func (r *Runner) runSequential(ctx context.Context, scenarios []int) ([]Result, error) {
	var results []Result
	for _, scenario := range scenarios {
		result, err := r.driver.Run(ctx, scenario)
		if err != nil {
			if r.config.ContinueOnFailure && ctx.Err() == nil {
				r.logger.Error(ctx, "scenario %d aborted: %v", scenario, err)
				results = append(results, Result{
					Scenario: scenario,
					Status:   client.StatusFailed,
					Reason:   err.Error(),
				})
				continue
			}
			return results, err
		}
		results = append(results, *result)
		if result.Status == client.StatusFailed && !r.config.ContinueOnFailure {
			return results, errors.WithFields(
				errors.New(errors.GameFailed, "scenario lost, stopping batch"),
				errors.Fields{"scenario": scenario, "reason": result.Reason})
		}
	}
	return results, nil
}

func (r *Runner) runConcurrent(ctx context.Context, scenarios []int) ([]Result, error) {
	var mu sync.Mutex
	var results []Result

	p := pool.New().WithContext(ctx).WithMaxGoroutines(r.config.Concurrency)
	if !r.config.ContinueOnFailure {
		p = p.WithCancelOnError()
	}

	for _, scenario := range scenarios {
		sc := scenario
		p.Go(func(ctx context.Context) error {
			result, err := r.driver.Run(ctx, sc)
			if err != nil {
				if !r.config.ContinueOnFailure {
					return err
				}
				r.logger.Error(ctx, "scenario %d aborted: %v", sc, err)
				result = &Result{Scenario: sc, Status: client.StatusFailed, Reason: err.Error()}
			}
			mu.Lock()
			results = append(results, *result)
			mu.Unlock()
			if result.Status == client.StatusFailed && !r.config.ContinueOnFailure {
				return errors.WithFields(
					errors.New(errors.GameFailed, "scenario lost, stopping batch"),
					errors.Fields{"scenario": sc, "reason": result.Reason})
			}
			return nil
		})
	}

	err := p.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Scenario < results[j].Scenario })
	return results, err
}
