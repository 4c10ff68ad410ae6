package ledger

import (
	"time"
)

// Instead of implementing full value objects, I'm using some alias types and helper methods here ...

// AccountID identifies the account a reward accrues to. It is issued outside
// this module (the originating system hands out public keys) and is never
// interpreted, only compared.
type AccountID = string

// WorkCounter is an externally supplied measure of completed work. The
// ledger stores it verbatim and never interprets it.
type WorkCounter = uint64

// EventTypeString represents an event type identifier.
type EventTypeString = string

// OccurredAtTS represents when an event occurred.
type OccurredAtTS = time.Time

// ToOccurredAt converts a time to OccurredAtTS with UTC normalization and microsecond precision.
func ToOccurredAt(t time.Time) OccurredAtTS {
	return t.UTC().Truncate(time.Microsecond)
}
