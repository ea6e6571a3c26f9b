package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/bouncer-go/pkg/client"
	"github.com/XiaoConstantine/bouncer-go/pkg/config"
	"github.com/XiaoConstantine/bouncer-go/pkg/driver"
	"github.com/XiaoConstantine/bouncer-go/pkg/game"
	"github.com/XiaoConstantine/bouncer-go/pkg/logging"
	"github.com/XiaoConstantine/bouncer-go/pkg/strategy"
)

func newPlayCommand() *cobra.Command {
	var configPath string
	var continueOnFailure bool
	var concurrency int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "play [scenario...]",
		Short: "Play one or more scenarios",
		Long: `Play the given scenario numbers in order. With no arguments the standard
set (1, 2, 3) is played. Each scenario runs as its own game session; the
strategy cache is shared across the whole batch.`,
		Example: `  # Play the standard scenario set
  bouncer play

  # Play scenario 2 only, with debug logging
  bouncer play 2 --verbose

  # Keep going after a lost scenario, two games at a time
  bouncer play 1 2 3 --continue-on-failure --concurrency 2`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios, err := parseScenarios(args)
			if err != nil {
				return err
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if continueOnFailure {
				cfg.Runner.ContinueOnFailure = true
			}
			if concurrency > 0 {
				cfg.Runner.Concurrency = concurrency
			}
			if verbose {
				cfg.Logging.Level = "debug"
			}

			setupLogging(cfg)
			return play(cmd.Context(), cfg, scenarios)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().BoolVar(&continueOnFailure, "continue-on-failure", false,
		"keep playing remaining scenarios after a loss")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0,
		"number of scenarios to play at once (default 1)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func parseScenarios(args []string) ([]int, error) {
	if len(args) == 0 {
		return []int{1, 2, 3}, nil
	}
	scenarios := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid scenario %q: expected a positive number", arg)
		}
		scenarios = append(scenarios, n)
	}
	return scenarios, nil
}

func setupLogging(cfg *config.Config) {
	logging.SetLogger(logging.NewLogger(logging.Config{
		Severity: logging.ParseSeverity(strings.ToUpper(cfg.Logging.Level)),
		Outputs:  []logging.Output{logging.NewConsoleOutput(true)},
	}))
}

func play(ctx context.Context, cfg *config.Config, scenarios []int) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, err := strategy.NewCache(strategy.CacheConfig{
		Type:                cfg.Cache.Type,
		MaxEntries:          cfg.Cache.MaxEntries,
		TTL:                 cfg.Cache.TTL,
		SimilarityThreshold: cfg.Cache.SimilarityThreshold,
		Path:                cfg.Cache.Path,
	})
	if err != nil {
		return err
	}
	defer cache.Close()

	advisor, err := buildAdvisor(cfg)
	if err != nil {
		return err
	}

	providerOpts := []strategy.ProviderOption{strategy.WithCache(cache)}
	if cfg.Advisor.Timeout > 0 {
		providerOpts = append(providerOpts, strategy.WithTimeout(cfg.Advisor.Timeout))
	}
	provider := strategy.NewProvider(advisor, providerOpts...)

	gameClient := client.New(cfg.Server.BaseURL, cfg.Server.PlayerID,
		client.WithTimeout(cfg.Server.Timeout))

	d := driver.New(gameClient, provider, driver.Config{
		Capacity: cfg.Server.Capacity,
		Scheduler: game.SchedulerConfig{
			Interval:        cfg.Scheduler.Interval,
			EmergencyAfter:  cfg.Scheduler.EmergencyAfter,
			EmergencyWindow: cfg.Scheduler.EmergencyWindow,
		},
	})

	runner := driver.NewRunner(d, driver.RunnerConfig{
		ContinueOnFailure: cfg.Runner.ContinueOnFailure,
		Concurrency:       cfg.Runner.Concurrency,
	})

	results, runErr := runner.RunAll(ctx, scenarios)
	printResults(results, cache.Stats())
	return runErr
}

func buildAdvisor(cfg *config.Config) (strategy.Advisor, error) {
	switch cfg.Advisor.Mode {
	case "anthropic":
		return strategy.NewAnthropicAdvisor(cfg.Advisor.APIKey, anthropic.Model(cfg.Advisor.Model))
	default:
		return strategy.NewHeuristicAdvisor(), nil
	}
}

func printResults(results []driver.Result, stats strategy.Stats) {
	total := 0
	for _, r := range results {
		switch r.Status {
		case client.StatusCompleted:
			fmt.Printf("scenario %d: completed with %d rejections (%d admitted)\n",
				r.Scenario, r.Rejected, r.Accepted)
			total += r.Rejected
		default:
			fmt.Printf("scenario %d: failed (%s)\n", r.Scenario, r.Reason)
		}
	}
	fmt.Printf("total rejections across completed scenarios: %d\n", total)
	fmt.Printf("strategy cache: %d entries, %.0f%% hit rate (%d exact, %d similar, %d misses)\n",
		stats.Size, stats.HitRate()*100, stats.ExactHits, stats.SimilarityHits, stats.Misses)
}
