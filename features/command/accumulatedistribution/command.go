package accumulatedistribution

import (
	"errors"
	"time"

	"github.com/accrualworks/reward-ledger-go/ledger"
)

const (
	commandType = "AccumulateDistribution"
)

// ErrEmptySubmissionID is returned by BuildCommand when the submission id is empty.
var ErrEmptySubmissionID = errors.New("submission id must not be empty")

// ErrEmptyDistribution is returned by BuildCommand when the distribution has no accounts.
// The core accepts empty distributions when replaying history; accepting new
// ones would burn a submission id on a no-op.
var ErrEmptyDistribution = errors.New("distribution must contain at least one account")

// ErrEmptyDistributionAccount is returned by BuildCommand when a distribution
// account id is empty.
var ErrEmptyDistributionAccount = errors.New("distribution account ids must not be empty")

// Command represents the intent to credit the rewards of one submission to
// the receiving accounts. It encapsulates all the necessary information
// required to execute the accumulate distribution use case.
type Command struct {
	SubmissionID ledger.SubmissionID
	Distribution ledger.Distribution
	OccurredAt   ledger.OccurredAtTS
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
// The distribution is copied, so later mutations by the caller do not reach
// the handler.
func BuildCommand(
	submissionID ledger.SubmissionID,
	distribution ledger.Distribution,
	occurredAt time.Time,
) (Command, error) {

	if len(submissionID) == 0 {
		return Command{}, ErrEmptySubmissionID
	}

	if len(distribution) == 0 {
		return Command{}, ErrEmptyDistribution
	}

	copied := make(ledger.Distribution, len(distribution))
	for accountID, delta := range distribution {
		if accountID == "" {
			return Command{}, ErrEmptyDistributionAccount
		}

		copied[accountID] = delta
	}

	return Command{
		SubmissionID: submissionID,
		Distribution: copied,
		OccurredAt:   ledger.ToOccurredAt(occurredAt),
	}, nil
}
