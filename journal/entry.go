package journal

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidPayloadJSON = errors.New("payload json is not valid")
var ErrInvalidMetadataJSON = errors.New("metadata json is not valid")
var ErrEmptyEventTypeSupplied = errors.New("empty event type supplied")

// Entries is an alias type for a slice of Entry
type Entries = []Entry

// Entry is a DTO (data transfer object) used by the journal to append ledger
// events and query them back.
//
// It is built on scalars to be completely agnostic of the implementation of
// the ledger's events in the client code.
//
// While its properties are exported, it should only be constructed with the
// supplied factory methods:
//   - BuildEntry
//   - BuildEntryWithEmptyMetadata
type Entry struct {
	EventType    string
	OccurredAt   time.Time
	PayloadJSON  []byte
	MetadataJSON []byte
}

// BuildEntry is a factory method for Entry.
//
// It populates the Entry with the given scalar input.
// Returns an error if the event type is empty or payloadJSON or metadataJSON are not valid JSON.
func BuildEntry(eventType string, occurredAt time.Time, payloadJSON []byte, metadataJSON []byte) (Entry, error) {
	if eventType == "" {
		return Entry{}, ErrEmptyEventTypeSupplied
	}

	if !json.Valid(payloadJSON) {
		return Entry{}, ErrInvalidPayloadJSON
	}

	if !json.Valid(metadataJSON) {
		return Entry{}, ErrInvalidMetadataJSON
	}

	return Entry{
		EventType:    eventType,
		OccurredAt:   occurredAt,
		PayloadJSON:  payloadJSON,
		MetadataJSON: metadataJSON,
	}, nil
}

// BuildEntryWithEmptyMetadata is a factory method for Entry.
//
// It populates the Entry with the given scalar input and creates valid empty JSON for MetadataJSON.
// Returns an error if the event type is empty or payloadJSON is not valid JSON.
func BuildEntryWithEmptyMetadata(eventType string, occurredAt time.Time, payloadJSON []byte) (Entry, error) {
	return BuildEntry(eventType, occurredAt, payloadJSON, []byte("{}"))
}
