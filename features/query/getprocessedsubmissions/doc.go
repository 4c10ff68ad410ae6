// Package getprocessedsubmissions implements the Get Processed Submissions query use case.
//
// This feature provides a pure query operation that returns the ids of all submissions
// whose distributions have been accumulated. It follows the Query-Project pattern
// without any command processing or event generation.
//
// The query returns a ProcessedSubmissions struct containing the submission ids in
// first-processed order and the total count. The processed set only ever grows, a
// claim never removes submissions from it, which is what makes duplicate detection
// stable across the full history.
//
// This is a read-only operation that projects the current state from the event history
// without modifying any data or generating new events.
package getprocessedsubmissions
