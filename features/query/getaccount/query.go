package getaccount

import (
	"github.com/accrualworks/reward-ledger-go/ledger"
)

const (
	queryType = "GetAccount"
)

// Query represents the intent to query one account's current accumulation.
type Query struct {
	AccountID ledger.AccountID
}

// BuildQuery creates a new Query with the provided account ID.
func BuildQuery(accountID ledger.AccountID) Query {
	return Query{
		AccountID: accountID,
	}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}

// SnapshotType returns the unique snapshot type identifier that includes query parameters.
func (q Query) SnapshotType() string {
	return queryType + ":" + q.AccountID
}
