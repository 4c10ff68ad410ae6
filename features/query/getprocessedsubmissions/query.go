package getprocessedsubmissions

const queryType = "GetProcessedSubmissions"

// Query carries no parameters, the view always spans every processed submission.
type Query struct{}

// BuildQuery creates a new Query.
func BuildQuery() Query {
	return Query{}
}

// QueryType returns the query type identifier for observability.
func (q Query) QueryType() string {
	return queryType
}

// SnapshotType returns the snapshot type identifier for snapshot storage.
func (q Query) SnapshotType() string {
	return queryType
}
