package ledger

import (
	"errors"
)

var (
	// ErrAccountAlreadyExists is returned when registering an account id that is already present.
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrDuplicateSubmission is returned when accumulating a submission id that was already processed.
	ErrDuplicateSubmission = errors.New("duplicate submission")

	// ErrExcessiveValue is returned when an accumulation would overflow an account balance.
	ErrExcessiveValue = errors.New("excessive value, balance addition overflows")

	// ErrNoSuchAccount is returned when claiming an account id that is not present.
	ErrNoSuchAccount = errors.New("no such account")
)
