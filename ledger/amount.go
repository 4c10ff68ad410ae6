package ledger

import (
	"math"
)

// Amount is a reward balance or balance delta in nano units. Amounts are
// never negative; addition is checked.
type Amount uint64

// Add returns the sum of both amounts, failing with ErrExcessiveValue when
// the result would not fit. This is the one checked addition used by both
// command validation and the event applier.
func (a Amount) Add(other Amount) (Amount, error) {
	if other > math.MaxUint64-a {
		return 0, ErrExcessiveValue
	}

	return a + other, nil
}
