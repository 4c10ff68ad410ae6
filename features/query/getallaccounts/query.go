package getallaccounts

const (
	queryType = "GetAllAccounts"
)

// Query represents the input for querying every account currently holding a record.
// This query uses an empty struct since it doesn't require any input parameters - it returns the whole ledger view.
type Query struct{}

// BuildQuery creates a new Query for retrieving every account currently holding a record.
func BuildQuery() Query {
	return Query{}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}

// SnapshotType returns the unique snapshot type identifier that includes query parameters.
func (q Query) SnapshotType() string {
	return queryType
}
