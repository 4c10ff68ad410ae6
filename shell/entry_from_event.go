package shell

import (
	"encoding/json"
	"errors"

	"github.com/accrualworks/reward-ledger-go/journal"
	"github.com/accrualworks/reward-ledger-go/ledger"
)

// ErrMappingToEntryFailedForEvent is returned when ledger event serialization fails
var ErrMappingToEntryFailedForEvent = errors.New("mapping to journal entry failed for ledger event")

// ErrMappingToEntryFailedForMetadata is returned when metadata serialization fails
var ErrMappingToEntryFailedForMetadata = errors.New("mapping to journal entry failed for metadata")

// EntryFrom converts a ledger Event and EventMetadata to a journal Entry
func EntryFrom(event ledger.Event, metadata EventMetadata) (journal.Entry, error) {
	payloadJSON, err := json.Marshal(event)
	if err != nil {
		return journal.Entry{}, errors.Join(ErrMappingToEntryFailedForEvent, err)
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return journal.Entry{}, errors.Join(ErrMappingToEntryFailedForMetadata, err)
	}

	entry, err := journal.BuildEntry(
		event.IsEventType(),
		event.HasOccurredAt(),
		payloadJSON,
		metadataJSON,
	)

	if err != nil {
		return journal.Entry{}, errors.Join(ErrMappingToEntryFailedForEvent, err)
	}

	return entry, nil
}

// EntryWithEmptyMetadataFrom converts a ledger Event to a journal Entry with empty metadata
func EntryWithEmptyMetadataFrom(event ledger.Event) (journal.Entry, error) {
	payloadJSON, err := json.Marshal(event)
	if err != nil {
		return journal.Entry{}, errors.Join(ErrMappingToEntryFailedForEvent, err)
	}

	entry, err := journal.BuildEntryWithEmptyMetadata(
		event.IsEventType(),
		event.HasOccurredAt(),
		payloadJSON,
	)

	if err != nil {
		return journal.Entry{}, errors.Join(ErrMappingToEntryFailedForEvent, err)
	}

	return entry, nil
}
