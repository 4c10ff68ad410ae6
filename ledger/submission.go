package ledger

import (
	"encoding/hex"
)

// SubmissionID is the opaque identifier of one submission of completed work.
// The ledger never parses it; it serves purely as a de-duplication key.
type SubmissionID []byte

// Key returns the canonical lowercase-hex form of the id, used for set
// membership, event payloads and journal filters.
func (id SubmissionID) Key() string {
	return hex.EncodeToString(id)
}
