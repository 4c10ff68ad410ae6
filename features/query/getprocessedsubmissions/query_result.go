package getprocessedsubmissions

// ProcessedSubmissions is the result of the GetProcessedSubmissions query.
// SubmissionIDs holds the hex keys of every accumulated submission in
// first-processed order. Claims never remove entries from this list, the
// processed set only ever grows.
type ProcessedSubmissions struct {
	SubmissionIDs  []string
	Count          int
	SequenceNumber uint
}

// GetSequenceNumber returns the sequence number of the last event in the event history
// that was used to build the projection.
func (p ProcessedSubmissions) GetSequenceNumber() uint {
	return p.SequenceNumber
}
