package getprocessedsubmissions

import (
	"slices"

	"github.com/accrualworks/reward-ledger-go/journal"
	"github.com/accrualworks/reward-ledger-go/ledger"
)

// Project processes events and returns the ids of all processed submissions.
//
// Query Logic:
// GIVEN: All AmountsAccumulated events
// WHEN: The projection folds them in stream order
// THEN: Returns the submission ids (hex keys) in first-processed order
// INCLUDES: Every accumulated submission, also when its accounts were claimed later
// EXCLUDES: Repeated appearances of the same submission id
func Project(history ledger.Events, _ Query, maxSequence uint, base ...ProcessedSubmissions) ProcessedSubmissions {
	var submissionIDs []string
	seen := make(map[string]struct{})

	if len(base) > 0 {
		// Start from an existing projection (incremental update)
		submissionIDs = slices.Clone(base[0].SubmissionIDs)
		for _, submissionID := range submissionIDs {
			seen[submissionID] = struct{}{}
		}
	}

	for _, event := range history {
		accumulated, ok := event.(ledger.AmountsAccumulated)
		if !ok {
			continue
		}

		if _, alreadySeen := seen[accumulated.SubmissionID]; alreadySeen {
			continue
		}

		seen[accumulated.SubmissionID] = struct{}{}
		submissionIDs = append(submissionIDs, accumulated.SubmissionID)
	}

	return ProcessedSubmissions{
		SubmissionIDs:  submissionIDs,
		Count:          len(submissionIDs),
		SequenceNumber: maxSequence,
	}
}

// BuildEventFilter creates the event filter for the GetProcessedSubmissions query.
// Only AmountsAccumulated events carry submission ids, nothing else is queried.
func BuildEventFilter() journal.Filter {
	return journal.BuildEventFilter().
		Matching().
		AnyEventTypeOf(ledger.AmountsAccumulatedEventType).
		Finalize()
}
