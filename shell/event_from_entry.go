package shell

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/accrualworks/reward-ledger-go/journal"
	"github.com/accrualworks/reward-ledger-go/ledger"
)

var (
	// ErrMappingToLedgerEventFailed is returned when ledger event conversion fails.
	ErrMappingToLedgerEventFailed = errors.New("mapping to ledger event failed")

	// ErrMappingToLedgerEventUnknownEventType is returned for unrecognized event types.
	ErrMappingToLedgerEventUnknownEventType = errors.New("unknown event type")
)

// EventsFrom converts multiple journal Entries to ledger Events.
func EventsFrom(entries journal.Entries) (ledger.Events, error) {
	events := make(ledger.Events, 0)

	for _, entry := range entries {
		event, err := EventFrom(entry)
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	return events, nil
}

// EventFrom converts a journal Entry to its corresponding ledger Event.
func EventFrom(entry journal.Entry) (ledger.Event, error) {
	switch entry.EventType {
	case ledger.AccountAddedEventType:
		return unmarshalAccountAdded(entry.PayloadJSON)

	case ledger.AmountsAccumulatedEventType:
		return unmarshalAmountsAccumulated(entry.PayloadJSON)

	case ledger.AccumulatedClaimedEventType:
		return unmarshalAccumulatedClaimed(entry.PayloadJSON)

	default:
		return nil, errors.Join(ErrMappingToLedgerEventFailed, ErrMappingToLedgerEventUnknownEventType)
	}
}

func unmarshalAccountAdded(payloadJSON []byte) (ledger.Event, error) {
	payload := new(ledger.AccountAdded)

	err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, &payload)
	if err != nil {
		return ledger.AccountAdded{}, errors.Join(ErrMappingToLedgerEventFailed, err)
	}

	return ledger.AccountAdded{
		EventType:  payload.EventType,
		AccountID:  payload.AccountID,
		Worked:     payload.Worked,
		OccurredAt: payload.OccurredAt,
	}, nil
}

func unmarshalAmountsAccumulated(payloadJSON []byte) (ledger.Event, error) {
	payload := new(ledger.AmountsAccumulated)

	err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, &payload)
	if err != nil {
		return ledger.AmountsAccumulated{}, errors.Join(ErrMappingToLedgerEventFailed, err)
	}

	return ledger.AmountsAccumulated{
		EventType:    payload.EventType,
		SubmissionID: payload.SubmissionID,
		AccountIDs:   payload.AccountIDs,
		Distribution: payload.Distribution,
		OccurredAt:   payload.OccurredAt,
	}, nil
}

func unmarshalAccumulatedClaimed(payloadJSON []byte) (ledger.Event, error) {
	payload := new(ledger.AccumulatedClaimed)

	err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, &payload)
	if err != nil {
		return ledger.AccumulatedClaimed{}, errors.Join(ErrMappingToLedgerEventFailed, err)
	}

	return ledger.AccumulatedClaimed{
		EventType:   payload.EventType,
		AccountID:   payload.AccountID,
		Accumulated: payload.Accumulated,
		OccurredAt:  payload.OccurredAt,
	}, nil
}
