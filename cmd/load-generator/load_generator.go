// Package main implements a load generator for testing the rewards ledger
// with configurable request rates and realistic accrual scenarios.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/accrualworks/reward-ledger-go/features/command/accumulatedistribution"
	"github.com/accrualworks/reward-ledger-go/features/command/claimaccumulated"
	"github.com/accrualworks/reward-ledger-go/features/command/registeraccount"
	"github.com/accrualworks/reward-ledger-go/features/query/getallaccounts"
	"github.com/accrualworks/reward-ledger-go/features/query/getprocessedsubmissions"
	"github.com/accrualworks/reward-ledger-go/journal"
	"github.com/accrualworks/reward-ledger-go/ledger"
	"github.com/accrualworks/reward-ledger-go/shell"
	"github.com/accrualworks/reward-ledger-go/shell/observable"
)

// submissionHistorySize bounds the ring of recently accepted submission ids
// kept around for replay.
const submissionHistorySize = 64

// Journal is the journal surface the load generator drives.
// Both the Postgres engine and the in-memory engine satisfy it.
type Journal interface {
	Query(ctx context.Context, filter journal.Filter) (
		journal.Entries,
		journal.MaxSequenceNumberUint,
		error,
	)
	Append(
		ctx context.Context,
		filter journal.Filter,
		expectedMaxSequenceNumber journal.MaxSequenceNumberUint,
		entry journal.Entry,
		additionalEntries ...journal.Entry,
	) error
}

// LoadGenerator orchestrates realistic load generation against the journal
// with configurable request rates and accrual scenarios.
type LoadGenerator struct {
	journal Journal
	config  Config

	// Command handlers for proper domain operations
	registerAccountHandler shell.CoreCommandHandler[registeraccount.Command]
	accumulateHandler      shell.CoreCommandHandler[accumulatedistribution.Command]
	claimHandler           shell.CoreCommandHandler[claimaccumulated.Command]

	// Query handlers for the read models
	allAccountsHandler          shell.CoreQueryHandler[getallaccounts.Query, getallaccounts.AllAccounts]
	processedSubmissionsHandler shell.CoreQueryHandler[getprocessedsubmissions.Query, getprocessedsubmissions.ProcessedSubmissions]

	// Rate limiting
	ticker   *time.Ticker
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Recently accepted submission ids, replayed to hit the duplicate rejection
	recentSubmissions []ledger.SubmissionID
	submissionMu      sync.Mutex

	// Metrics and state
	accountCount   int64
	requestCount   int64
	errorCount     int64
	duplicateCount int64
	startTime      time.Time
	mu             sync.RWMutex
}

// NewLoadGenerator creates a new LoadGenerator instance with the provided journal and configuration.
// A non-nil logger wires contextual logging into the command and query handlers.
func NewLoadGenerator(j Journal, config Config, logger *slog.Logger) *LoadGenerator {
	lg := &LoadGenerator{
		journal:      j,
		config:       config,
		stopChan:     make(chan struct{}),
		accountCount: int64(config.InitialAccounts),
	}

	if logger != nil {
		lg.registerAccountHandler = mustCreateHandler(observable.NewCommandWrapper[registeraccount.Command](
			registeraccount.NewCommandHandler(j),
			observable.WithCommandContextualLogging[registeraccount.Command](logger)))
		lg.accumulateHandler = mustCreateHandler(observable.NewCommandWrapper[accumulatedistribution.Command](
			accumulatedistribution.NewCommandHandler(j),
			observable.WithCommandContextualLogging[accumulatedistribution.Command](logger)))
		lg.claimHandler = mustCreateHandler(observable.NewCommandWrapper[claimaccumulated.Command](
			claimaccumulated.NewCommandHandler(j),
			observable.WithCommandContextualLogging[claimaccumulated.Command](logger)))
		lg.allAccountsHandler = mustCreateHandler(observable.NewQueryWrapper[getallaccounts.Query, getallaccounts.AllAccounts](
			mustCreateHandler(getallaccounts.NewQueryHandler(j)),
			observable.WithQueryContextualLogging[getallaccounts.Query, getallaccounts.AllAccounts](logger)))
		lg.processedSubmissionsHandler = mustCreateHandler(observable.NewQueryWrapper[getprocessedsubmissions.Query, getprocessedsubmissions.ProcessedSubmissions](
			mustCreateHandler(getprocessedsubmissions.NewQueryHandler(j)),
			observable.WithQueryContextualLogging[getprocessedsubmissions.Query, getprocessedsubmissions.ProcessedSubmissions](logger)))

		return lg
	}

	lg.registerAccountHandler = registeraccount.NewCommandHandler(j)
	lg.accumulateHandler = accumulatedistribution.NewCommandHandler(j)
	lg.claimHandler = claimaccumulated.NewCommandHandler(j)
	lg.allAccountsHandler = mustCreateHandler(getallaccounts.NewQueryHandler(j))
	lg.processedSubmissionsHandler = mustCreateHandler(getprocessedsubmissions.NewQueryHandler(j))

	return lg
}

// Start begins load generation with the configured request rate.
// It registers the initial account pool first and runs until the context
// is cancelled or Stop() is called.
func (lg *LoadGenerator) Start(ctx context.Context) error {
	lg.mu.Lock()
	lg.startTime = time.Now()
	lg.requestCount = 0
	lg.errorCount = 0
	lg.duplicateCount = 0
	lg.mu.Unlock()

	if err := lg.seedInitialAccounts(ctx); err != nil {
		return err
	}

	// Calculate an interval between requests based on the target rate
	interval := time.Second / time.Duration(lg.config.Rate)
	lg.ticker = time.NewTicker(interval)
	defer lg.ticker.Stop()

	log.Printf("Load generator starting with %d requests/second (interval: %v), initial goroutines: %d",
		lg.config.Rate, interval, runtime.NumGoroutine())

	// Start the reporting goroutines
	lg.wg.Add(2)
	go lg.metricsReporter(ctx)
	go lg.readModelReporter(ctx)

	// Main load generation loop
	for {
		select {
		case <-ctx.Done():
			log.Printf("Load generator stopping due to context cancellation")
			return ctx.Err()

		case <-lg.stopChan:
			log.Printf("Load generator stopping due to stop signal")
			return nil

		case <-lg.ticker.C:
			lg.wg.Add(1)
			go lg.executeScenario(ctx)
		}
	}
}

// Stop gracefully shuts down the load generator.
func (lg *LoadGenerator) Stop(ctx context.Context) error {
	close(lg.stopChan)

	// Wait for all goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		lg.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		lg.logFinalStats()
		return nil
	case <-ctx.Done():
		lg.logFinalStats()
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// seedInitialAccounts registers the deterministic account pool the scenarios
// draw from. Accounts surviving from a previous run against the same database
// are fine, their registrations are simply skipped.
func (lg *LoadGenerator) seedInitialAccounts(ctx context.Context) error {
	for n := int64(1); n <= int64(lg.config.InitialAccounts); n++ {
		worked := ledger.WorkCounter(rand.Int63n(100)) //nolint:gosec // Test code - weak random is acceptable

		command, err := registeraccount.BuildCommand(accountIDFor(n), worked, time.Now())
		if err != nil {
			return fmt.Errorf("building seed command for account %d: %w", n, err)
		}

		if _, err = lg.registerAccountHandler.Handle(ctx, command); err != nil && !errors.Is(err, ledger.ErrAccountAlreadyExists) {
			return fmt.Errorf("seeding account %d: %w", n, err)
		}
	}

	log.Printf("Seeded %d initial accounts", lg.config.InitialAccounts)

	return nil
}

// executeScenario runs a single load generation scenario based on configured weights.
func (lg *LoadGenerator) executeScenario(ctx context.Context) {
	defer lg.wg.Done()

	scenarioType := lg.selectScenario()

	var err error
	switch scenarioType {
	case "register":
		err = lg.runRegisterScenario(ctx)
	case "accumulate":
		err = lg.runAccumulateScenario(ctx)
	case "claim":
		err = lg.runClaimScenario(ctx)
	default:
		err = fmt.Errorf("unknown scenario type: %s", scenarioType)
	}

	// Update internal counters, keeping replayed submissions out of the
	// error count since their rejection is the expected outcome
	lg.mu.Lock()
	lg.requestCount++
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrDuplicateSubmission):
		lg.duplicateCount++
	default:
		lg.errorCount++
		log.Printf("Scenario error (%s): %v", scenarioType, err)
	}
	lg.mu.Unlock()
}

// selectScenario chooses a scenario type based on configured weights.
func (lg *LoadGenerator) selectScenario() string {
	// Generate random number 0-99
	r := rand.Intn(100) //nolint:gosec // Test code - weak random is acceptable

	// Apply weights: [register, accumulate, claim]
	// Example: [10, 70, 20] -> register: 0-9, accumulate: 10-79, claim: 80-99
	if r < lg.config.ScenarioWeights[0] {
		return "register"
	}
	if r < lg.config.ScenarioWeights[0]+lg.config.ScenarioWeights[1] {
		return "accumulate"
	}

	return "claim"
}

// runRegisterScenario registers a fresh synthetic account, growing the pool
// the other scenarios draw from.
func (lg *LoadGenerator) runRegisterScenario(ctx context.Context) error {
	// Create timeout context for this operation (like benchmark tests)
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	worked := ledger.WorkCounter(rand.Int63n(100)) //nolint:gosec // Test code - weak random is acceptable

	command, err := registeraccount.BuildCommand(accountIDFor(lg.nextAccountNumber()), worked, time.Now())
	if err != nil {
		return err
	}

	_, err = lg.registerAccountHandler.Handle(opCtx, command)

	return err
}

// runAccumulateScenario credits a random distribution under a fresh submission
// id, or replays a recently accepted one to exercise the duplicate rejection.
func (lg *LoadGenerator) runAccumulateScenario(ctx context.Context) error {
	// Create timeout context for this operation (like benchmark tests)
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	submission, replayed := lg.nextSubmissionID()

	command, err := accumulatedistribution.BuildCommand(submission, lg.randomDistribution(), time.Now())
	if err != nil {
		return err
	}

	if _, err = lg.accumulateHandler.Handle(opCtx, command); err != nil {
		return err
	}

	if !replayed {
		lg.rememberSubmission(submission)
	}

	return nil
}

// runClaimScenario claims the accumulated balance of a random pool account.
func (lg *LoadGenerator) runClaimScenario(ctx context.Context) error {
	// Create timeout context for this operation (like benchmark tests)
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	command, err := claimaccumulated.BuildCommand(lg.randomAccountID(), time.Now())
	if err != nil {
		return err
	}

	_, err = lg.claimHandler.Handle(opCtx, command)

	return err
}

// accountIDFor derives the deterministic account id for one pool slot.
func accountIDFor(accountNum int64) ledger.AccountID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("account-%d", accountNum))).String()
}

// nextAccountNumber grows the account pool by one slot.
func (lg *LoadGenerator) nextAccountNumber() int64 {
	lg.mu.Lock()
	lg.accountCount++
	n := lg.accountCount
	lg.mu.Unlock()

	return n
}

// randomAccountID picks a random account from the current pool.
func (lg *LoadGenerator) randomAccountID() ledger.AccountID {
	lg.mu.RLock()
	count := lg.accountCount
	lg.mu.RUnlock()

	accountNum := rand.Int63n(count) + 1 //nolint:gosec // Test code - weak random is acceptable

	return accountIDFor(accountNum)
}

// randomDistribution builds a distribution crediting one to three pool accounts.
func (lg *LoadGenerator) randomDistribution() ledger.Distribution {
	numAccounts := rand.Intn(3) + 1 //nolint:gosec // Test code - weak random is acceptable

	distribution := make(ledger.Distribution, numAccounts)
	for i := 0; i < numAccounts; i++ {
		amount := ledger.Amount(rand.Int63n(500) + 1) //nolint:gosec // Test code - weak random is acceptable
		distribution[lg.randomAccountID()] = amount
	}

	return distribution
}

// nextSubmissionID returns a fresh submission id, or with the configured
// probability a recently accepted one to trigger the duplicate rejection.
func (lg *LoadGenerator) nextSubmissionID() (ledger.SubmissionID, bool) {
	if rand.Intn(100) < lg.config.ReplayPercent { //nolint:gosec // Test code - weak random is acceptable
		if submission, ok := lg.pickRecentSubmission(); ok {
			return submission, true
		}
	}

	freshID := uuid.New()

	return ledger.SubmissionID(freshID[:]), false
}

// rememberSubmission records an accepted submission id for later replay.
func (lg *LoadGenerator) rememberSubmission(submission ledger.SubmissionID) {
	lg.submissionMu.Lock()
	lg.recentSubmissions = append(lg.recentSubmissions, submission)
	if len(lg.recentSubmissions) > submissionHistorySize {
		lg.recentSubmissions = lg.recentSubmissions[1:]
	}
	lg.submissionMu.Unlock()
}

func (lg *LoadGenerator) pickRecentSubmission() (ledger.SubmissionID, bool) {
	lg.submissionMu.Lock()
	defer lg.submissionMu.Unlock()

	if len(lg.recentSubmissions) == 0 {
		return nil, false
	}

	idx := rand.Intn(len(lg.recentSubmissions)) //nolint:gosec // Test code - weak random is acceptable

	return lg.recentSubmissions[idx], true
}

// metricsReporter logs metrics periodically.
func (lg *LoadGenerator) metricsReporter(ctx context.Context) {
	defer lg.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-lg.stopChan:
			return
		case <-ticker.C:
			lg.logCurrentStats()
		}
	}
}

// readModelReporter periodically rebuilds the read models from the live
// event history and logs their size.
func (lg *LoadGenerator) readModelReporter(ctx context.Context) {
	defer lg.wg.Done()

	ticker := time.NewTicker(time.Duration(lg.config.StateSyncIntervalSec) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-lg.stopChan:
			return
		case <-ticker.C:
			lg.syncReadModels(ctx)
		}
	}
}

func (lg *LoadGenerator) syncReadModels(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	accounts, err := lg.allAccountsHandler.Handle(opCtx, getallaccounts.BuildQuery())
	if err != nil {
		log.Printf("Read model error (all accounts): %v", err)
		return
	}

	submissions, err := lg.processedSubmissionsHandler.Handle(opCtx, getprocessedsubmissions.BuildQuery())
	if err != nil {
		log.Printf("Read model error (processed submissions): %v", err)
		return
	}

	log.Printf("Read models: %d accounts, %d processed submissions (sequence %d)",
		accounts.Count, submissions.Count, submissions.SequenceNumber)
}

// logCurrentStats logs current performance statistics.
func (lg *LoadGenerator) logCurrentStats() {
	lg.mu.RLock()
	duration := time.Since(lg.startTime)
	requests := lg.requestCount
	errors := lg.errorCount
	duplicates := lg.duplicateCount
	lg.mu.RUnlock()

	goroutineCount := runtime.NumGoroutine()

	if duration > 0 {
		rps := float64(requests) / duration.Seconds()
		errorRate := float64(errors) / float64(requests) * 100
		log.Printf("Stats: %d requests in %v (%.1f req/s), %d errors (%.1f%%), %d duplicate submissions, %d goroutines",
			requests, duration.Truncate(time.Second), rps, errors, errorRate, duplicates, goroutineCount)
	}
}

// logFinalStats logs final performance statistics.
func (lg *LoadGenerator) logFinalStats() {
	lg.mu.RLock()
	duration := time.Since(lg.startTime)
	requests := lg.requestCount
	errors := lg.errorCount
	duplicates := lg.duplicateCount
	lg.mu.RUnlock()

	goroutineCount := runtime.NumGoroutine()

	if duration > 0 {
		rps := float64(requests) / duration.Seconds()
		errorRate := float64(errors) / float64(requests) * 100
		log.Printf("Final Stats: %d requests in %v (%.1f req/s), %d errors (%.1f%%), %d duplicate submissions, %d goroutines",
			requests, duration.Truncate(time.Second), rps, errors, errorRate, duplicates, goroutineCount)
	}
}

// mustCreateHandler is a helper function that panics if handler creation fails.
// This is appropriate for the load generator since it cannot run without its handlers.
func mustCreateHandler[T any](handler T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("Failed to create handler: %v", err))
	}
	return handler
}
