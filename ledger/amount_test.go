package ledger_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/accrualworks/reward-ledger-go/ledger"
)

func Test_Amount_Add_Success(t *testing.T) {
	sum, err := ledger.Amount(10).Add(5)

	assert.NoError(t, err)
	assert.Equal(t, ledger.Amount(15), sum)
}

func Test_Amount_Add_Success_UpToTheLimit(t *testing.T) {
	sum, err := ledger.Amount(math.MaxUint64 - 1).Add(1)

	assert.NoError(t, err)
	assert.Equal(t, ledger.Amount(math.MaxUint64), sum)
}

func Test_Amount_Add_Fails_WhenSumOverflows(t *testing.T) {
	cases := []struct {
		name  string
		base  ledger.Amount
		delta ledger.Amount
	}{
		{name: "max plus one", base: math.MaxUint64, delta: 1},
		{name: "one plus max", base: 1, delta: math.MaxUint64},
		{name: "max plus max", base: math.MaxUint64, delta: math.MaxUint64},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.base.Add(tc.delta)
			assert.ErrorIs(t, err, ledger.ErrExcessiveValue)
		})
	}
}

func Test_SubmissionID_Key_IsCanonicalLowercaseHex(t *testing.T) {
	assert.Equal(t, "00abff", ledger.SubmissionID{0x00, 0xAB, 0xFF}.Key())
	assert.Equal(t, "", ledger.SubmissionID{}.Key())
}
