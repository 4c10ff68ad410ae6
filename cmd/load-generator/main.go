package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accrualworks/reward-ledger-go/journal/memoryjournal"
	"github.com/accrualworks/reward-ledger-go/journal/postgresjournal"
	"github.com/accrualworks/reward-ledger-go/shell/config"
)

const (
	defaultRate            = 30
	defaultInitialAccounts = 100
	defaultScenarioWeights = "10,70,20" // register, accumulate, claim
	defaultReplayPercent   = 10
)

type Config struct {
	Rate                 int
	InitialAccounts      int
	ScenarioWeights      []int
	ReplayPercent        int
	UseMemoryJournal     bool
	Verbose              bool
	StateSyncIntervalSec int
}

func main() {
	cfg := parseFlags()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var logger *slog.Logger
	if cfg.Verbose {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		log.Printf("Contextual logging enabled for the journal and the handlers")
	}

	j, closeJournal, err := buildJournal(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create journal: %v", err)
	}
	defer closeJournal()

	// Initialize load generator (journal observability is configured above)
	loadGen := NewLoadGenerator(j, cfg, logger)

	// Start load generation in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := loadGen.Start(ctx); err != nil {
			errChan <- fmt.Errorf("load generator failed: %w", err)
		}
	}()

	log.Printf("Reward Ledger Load Generator started")
	log.Printf("Configuration: rate=%d req/s, initial_accounts=%d, scenario_weights=%v, replay_percent=%d",
		cfg.Rate, cfg.InitialAccounts, cfg.ScenarioWeights, cfg.ReplayPercent)
	log.Printf("Press Ctrl+C to stop...")

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()
	case err := <-errChan:
		log.Printf("Error occurred: %v", err)
		cancel()
	}

	// Give some time for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := loadGen.Stop(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Printf("Load generator stopped")
}

// buildJournal selects the journal engine: in-memory when -memory is set,
// otherwise Postgres via the benchmark pool config (port 5433).
func buildJournal(ctx context.Context, cfg Config, logger *slog.Logger) (Journal, func(), error) {
	if cfg.UseMemoryJournal {
		return memoryjournal.New(), func() {}, nil
	}

	pgxPool, err := pgxpool.NewWithConfig(ctx, config.PostgresPGXPoolBenchmarkConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	// Test database connection
	if err = pgxPool.Ping(ctx); err != nil {
		pgxPool.Close()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var journalOptions []postgresjournal.Option
	if logger != nil {
		journalOptions = append(journalOptions, postgresjournal.WithContextualLogger(logger))
	}

	j, err := postgresjournal.NewJournalFromPGXPool(pgxPool, journalOptions...)
	if err != nil {
		pgxPool.Close()
		return nil, nil, fmt.Errorf("failed to create journal: %w", err)
	}

	return j, pgxPool.Close, nil
}

func parseFlags() Config {
	var (
		rate              = flag.Int("rate", defaultRate, "Requests per second")
		initialAccounts   = flag.Int("initial-accounts", defaultInitialAccounts, "Number of accounts to register initially")
		scenarioWeights   = flag.String("scenario-weights", defaultScenarioWeights, "Comma-separated weights for register,accumulate,claim scenarios")
		replayPercent     = flag.Int("replay-percent", defaultReplayPercent, "Percentage of accumulations replaying an already processed submission id")
		useMemory         = flag.Bool("memory", false, "Use the in-memory journal instead of Postgres")
		verbose           = flag.Bool("verbose", false, "Enable contextual logging for the journal and the handlers")
		stateSyncInterval = flag.Int("state-sync-interval", 30, "Read model rebuild interval in seconds")
	)

	flag.Parse()

	// Parse scenario weights
	weights, err := parseScenarioWeights(*scenarioWeights)
	if err != nil {
		log.Fatalf("Invalid scenario weights '%s': %v", *scenarioWeights, err)
	}

	if *replayPercent < 0 || *replayPercent > 100 {
		log.Fatalf("Invalid replay percent %d: must be in range [0, 100]", *replayPercent)
	}

	if *initialAccounts < 1 {
		log.Fatalf("Invalid initial accounts %d: the scenarios need at least one account to draw from", *initialAccounts)
	}

	return Config{
		Rate:                 *rate,
		InitialAccounts:      *initialAccounts,
		ScenarioWeights:      weights,
		ReplayPercent:        *replayPercent,
		UseMemoryJournal:     *useMemory,
		Verbose:              *verbose,
		StateSyncIntervalSec: *stateSyncInterval,
	}
}

func parseScenarioWeights(weightsStr string) ([]int, error) {
	parts := strings.Split(weightsStr, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("expected 3 weights, got %d", len(parts))
	}

	weights := make([]int, 3)
	total := 0
	for i, part := range parts {
		weight, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid weight '%s': %w", part, err)
		}
		if weight < 0 || weight > 100 {
			return nil, fmt.Errorf("weight %d out of range [0, 100]", weight)
		}
		weights[i] = weight
		total += weight
	}

	if total != 100 {
		return nil, fmt.Errorf("weights must sum to 100, got %d", total)
	}

	return weights, nil
}
