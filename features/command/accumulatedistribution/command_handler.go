package accumulatedistribution

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/accrualworks/reward-ledger-go/journal"
	"github.com/accrualworks/reward-ledger-go/ledger"
	"github.com/accrualworks/reward-ledger-go/shell"
)

// Journal defines the interface needed by the CommandHandler for journal operations.
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

// CommandHandler orchestrates the complete command processing workflow with pure business logic and retry.
// It handles the core event sourcing workflow: Query -> Unmarshal -> Replay -> Decide -> Append.
// External wrappers handle all observability concerns.
type CommandHandler struct {
	journal      Journal
	retryOptions []shell.RetryOption
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithRetryOptions sets a custom retry configuration for the handler.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(h *CommandHandler) {
		h.retryOptions = opts
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(j Journal, opts ...Option) CommandHandler {
	handler := CommandHandler{
		journal: j,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle executes the complete command processing workflow with retry logic.
// It delegates the workflow to executeCommand and retries concurrency conflicts
// with exponential backoff. Domain rejections (duplicate submission, overflow)
// are terminal and surface unchanged, to be matched with errors.Is against the
// ledger sentinels.
// Returns HandlerResult containing execution metadata for observability.
func (h CommandHandler) Handle(ctx context.Context, command Command) (shell.HandlerResult, error) {
	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		return h.executeCommand(retryCtx, command)
	}, h.retryOptions...)

	if err != nil {
		return shell.NewErrorResult(retryMetrics), err
	}

	return shell.NewSuccessResult(retryMetrics), nil
}

// executeCommand contains the core command processing logic that can be retried.
// The filter scope covers the complete streams of every distribution account
// plus any prior event carrying this submission id, so the scoped replay holds
// exactly the processed-set and balance knowledge the core validation needs.
// A concurrent conflicting write moves the scope's max sequence number and
// forces a revalidating retry.
func (h CommandHandler) executeCommand(ctx context.Context, command Command) error {
	filter := BuildEventFilter(command.SubmissionID, command.Distribution)

	// Command handlers must see their own writes in the read-check-write
	// pattern to avoid concurrency conflicts from replica lag
	ctx = journal.WithStrongConsistency(ctx)

	// Query phase
	entries, maxSequenceNumber, err := h.journal.Query(ctx, filter)
	if err != nil {
		return err
	}

	// Unmarshal phase
	history, err := shell.EventsFrom(entries)
	if err != nil {
		return err
	}

	// Business logic phase - scoped replay, then delegate to the pure core command
	led, err := ledger.ReplayFor(history, distributionAccounts(command.Distribution)...)
	if err != nil {
		return err
	}

	event, err := led.Accumulate(command.SubmissionID, command.Distribution, command.OccurredAt)
	if err != nil {
		return err
	}

	// Append phase - single entry to append
	uid := uuid.New()
	eventMetadata := shell.BuildEventMetadata(uid, uid, uid)

	entry, marshalErr := shell.EntryFrom(event, eventMetadata)
	if marshalErr != nil {
		return marshalErr
	}

	return h.journal.Append(ctx, filter, maxSequenceNumber, entry)
}

// BuildEventFilter creates the filter for querying all events which are relevant
// for crediting this submission: any AmountsAccumulated event carrying the same
// submission id or touching any distribution account, plus the full lifecycle
// of every distribution account.
func BuildEventFilter(submissionID ledger.SubmissionID, distribution ledger.Distribution) journal.Filter {
	accountIDs := distributionAccounts(distribution)

	accumulationPredicates := make([]journal.FilterPredicate, 0, len(accountIDs)+1)
	accumulationPredicates = append(accumulationPredicates, journal.P("SubmissionID", submissionID.Key()))
	for _, accountID := range accountIDs {
		accumulationPredicates = append(accumulationPredicates, journal.PAnyElement("AccountIDs", accountID))
	}

	builder := journal.BuildEventFilter().
		Matching().
		AnyEventTypeOf(
			ledger.AmountsAccumulatedEventType,
		).
		AndAnyPredicateOf(accumulationPredicates[0], accumulationPredicates[1:]...)

	for _, accountID := range accountIDs {
		builder = builder.
			OrMatching().
			AnyEventTypeOf(
				ledger.AccountAddedEventType,
				ledger.AccumulatedClaimedEventType,
			).
			AndAnyPredicateOf(
				journal.P("AccountID", accountID),
			)
	}

	return builder.Finalize()
}

// distributionAccounts returns the distribution's account ids in sorted order,
// so filters and replays are deterministic for the same distribution.
func distributionAccounts(distribution ledger.Distribution) []ledger.AccountID {
	accountIDs := make([]ledger.AccountID, 0, len(distribution))
	for accountID := range distribution {
		accountIDs = append(accountIDs, accountID)
	}
	slices.Sort(accountIDs)

	return accountIDs
}
