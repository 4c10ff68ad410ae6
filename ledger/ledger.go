package ledger

import (
	"encoding/hex"
	"fmt"
	"slices"
	"time"
)

// Ledger is the in-memory reward state: the set of processed submission ids
// plus the live account records. Commands (RegisterAccount, Accumulate,
// Claim) only validate and return events; Apply is the sole mutation path.
type Ledger struct {
	processed map[string]struct{}
	accounts  map[AccountID]AccountRecord
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		processed: make(map[string]struct{}),
		accounts:  make(map[AccountID]AccountRecord),
	}
}

// RestoreLedger creates a ledger from previously captured state, copying
// both tables. This is the snapshot restore path.
func RestoreLedger(processed []SubmissionID, accounts map[AccountID]AccountRecord) *Ledger {
	led := NewLedger()

	for _, submission := range processed {
		led.processed[submission.Key()] = struct{}{}
	}
	for accountID, record := range accounts {
		led.accounts[accountID] = record
	}

	return led
}

// Replay folds a history of events into a fresh ledger.
func Replay(history Events) *Ledger {
	led := NewLedger()
	for _, event := range history {
		led.Apply(event)
	}

	return led
}

// ReplayFor folds a partial history into a ledger restricted to the given
// accounts. A history scoped to some accounts carries foreign accounts
// incompletely: a shared AmountsAccumulated event is in scope while the
// foreign account's claims are not, so folding it through Apply could trip
// the applier's completeness assertion. ReplayFor folds the processed set
// fully, folds balances only for the given accounts, and returns an error
// when a tracked account's own stream does not accrue.
func ReplayFor(history Events, accountIDs ...AccountID) (*Ledger, error) {
	tracked := make(map[AccountID]struct{}, len(accountIDs))
	for _, accountID := range accountIDs {
		tracked[accountID] = struct{}{}
	}

	led := NewLedger()

	for _, event := range history {
		switch e := event.(type) {
		case AccountAdded:
			if _, ok := tracked[e.AccountID]; ok {
				led.accounts[e.AccountID] = AccountRecord{Balance: 0, Worked: e.Worked}
			}

		case AmountsAccumulated:
			for accountID, delta := range e.Distribution {
				if _, ok := tracked[accountID]; !ok {
					continue
				}

				record := led.accounts[accountID]

				balance, err := record.Balance.Add(delta)
				if err != nil {
					return nil, fmt.Errorf(
						"replaying submission %q for account %q: %w", e.SubmissionID, accountID, err,
					)
				}

				record.Balance = balance
				led.accounts[accountID] = record
			}

			led.processed[e.SubmissionID] = struct{}{}

		case AccumulatedClaimed:
			if _, ok := tracked[e.AccountID]; ok {
				delete(led.accounts, e.AccountID)
			}
		}
	}

	return led, nil
}

// Apply folds one event into the ledger. It trusts the event: every event
// reaching Apply was validated by the matching command before.
func (l *Ledger) Apply(event Event) {
	event.apply(l)
}

// RegisterAccount validates registering a new account and returns the
// AccountAdded event, without mutating state.
func (l *Ledger) RegisterAccount(
	accountID AccountID,
	worked WorkCounter,
	occurredAt time.Time,
) (AccountAdded, error) {

	if _, exists := l.accounts[accountID]; exists {
		return AccountAdded{}, ErrAccountAlreadyExists
	}

	return BuildAccountAdded(accountID, worked, occurredAt), nil
}

// Accumulate validates crediting one submission's distribution and returns
// the AmountsAccumulated event, without mutating state. The dry run goes
// through the same checked accrual as apply; accounts absent from state are
// validated against a zero baseline.
func (l *Ledger) Accumulate(
	submission SubmissionID,
	distribution Distribution,
	occurredAt time.Time,
) (AmountsAccumulated, error) {

	if _, processed := l.processed[submission.Key()]; processed {
		return AmountsAccumulated{}, ErrDuplicateSubmission
	}

	if _, err := accrueDistribution(l.accounts, distribution); err != nil {
		return AmountsAccumulated{}, err
	}

	return BuildAmountsAccumulated(submission, distribution, occurredAt), nil
}

// Claim validates withdrawing an account's accumulated rewards and returns
// the AccumulatedClaimed event carrying the current record, without
// mutating state.
func (l *Ledger) Claim(accountID AccountID, occurredAt time.Time) (AccumulatedClaimed, error) {
	record, exists := l.accounts[accountID]
	if !exists {
		return AccumulatedClaimed{}, ErrNoSuchAccount
	}

	return BuildAccumulatedClaimed(accountID, record, occurredAt), nil
}

// Get returns the record for one account.
func (l *Ledger) Get(accountID AccountID) (AccountRecord, bool) {
	record, exists := l.accounts[accountID]
	return record, exists
}

// GetAll returns a copy of all account records. Mutating the returned map
// never touches ledger state.
func (l *Ledger) GetAll() map[AccountID]AccountRecord {
	accounts := make(map[AccountID]AccountRecord, len(l.accounts))
	for accountID, record := range l.accounts {
		accounts[accountID] = record
	}

	return accounts
}

// Processed returns all processed submission ids, ordered by canonical key.
func (l *Ledger) Processed() []SubmissionID {
	keys := make([]string, 0, len(l.processed))
	for key := range l.processed {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	submissions := make([]SubmissionID, 0, len(keys))
	for _, key := range keys {
		raw, err := hex.DecodeString(key)
		if err != nil {
			continue // keys only enter through SubmissionID.Key, they always decode
		}
		submissions = append(submissions, raw)
	}

	return submissions
}

// accrueDistribution is the single checked-accumulation routine shared by
// command validation and the applier. It returns updated records for
// exactly the accounts in the distribution, reading absent accounts as the
// zero record, and fails on the first overflowing addition.
func accrueDistribution(
	accounts map[AccountID]AccountRecord,
	distribution Distribution,
) (map[AccountID]AccountRecord, error) {

	updated := make(map[AccountID]AccountRecord, len(distribution))

	for accountID, delta := range distribution {
		record := accounts[accountID]

		balance, err := record.Balance.Add(delta)
		if err != nil {
			return nil, err
		}

		record.Balance = balance
		updated[accountID] = record
	}

	return updated, nil
}
