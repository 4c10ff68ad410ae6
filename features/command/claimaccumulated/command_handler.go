package claimaccumulated

import (
	"context"

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
// with exponential backoff. Domain rejections are terminal and surface unchanged,
// to be matched with errors.Is against the ledger sentinels.
// Returns HandlerResult containing execution metadata for observability.
//
// The claimed record travels in the appended event itself. A concurrent
// accumulation into the same account moves the scope's max sequence number,
// so a conflicting claim retries and re-reads the grown balance instead of
// withdrawing a stale one.
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
func (h CommandHandler) executeCommand(ctx context.Context, command Command) error {
	filter := BuildEventFilter(command.AccountID)

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
	led, err := ledger.ReplayFor(history, command.AccountID)
	if err != nil {
		return err
	}

	event, err := led.Claim(command.AccountID, command.OccurredAt)
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
// for this account's lifecycle, the same scope the register account use case
// reads: the claimed balance must include every distribution that touched the
// account, so the scope matches AmountsAccumulated on array membership.
func BuildEventFilter(accountID ledger.AccountID) journal.Filter {
	return journal.BuildEventFilter().
		Matching().
		AnyEventTypeOf(
			ledger.AccountAddedEventType,
			ledger.AccumulatedClaimedEventType,
		).
		AndAnyPredicateOf(
			journal.P("AccountID", accountID),
		).
		OrMatching().
		AnyEventTypeOf(
			ledger.AmountsAccumulatedEventType,
		).
		AndAnyPredicateOf(
			journal.PAnyElement("AccountIDs", accountID),
		).
		Finalize()
}
