// Package memoryjournal provides an in-memory implementation of the journal interface.
//
// It mirrors the semantics of the PostgreSQL journal, including dynamic scope
// filtering, optimistic concurrency on append, and projection snapshot storage,
// while keeping everything in process memory behind a mutex.
//
// It is intended for unit tests of command and query handlers, where spinning up
// a database would slow things down without adding coverage.
package memoryjournal

import (
	"context"
	"errors"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/accrualworks/reward-ledger-go/journal"
)

var marshaler = jsoniter.ConfigFastest

type storedEntry struct {
	sequenceNumber journal.MaxSequenceNumberUint
	entry          journal.Entry
}

type snapshotKey struct {
	projectionType string
	filterHash     string
}

// Journal is an in-memory journal guarded by a read-write mutex.
// The zero value is not usable, construct it with New.
type Journal struct {
	mu           sync.RWMutex
	entries      []storedEntry
	nextSequence journal.MaxSequenceNumberUint
	snapshots    map[snapshotKey]journal.Snapshot
}

// New creates an empty in-memory journal.
func New() *Journal {
	return &Journal{
		nextSequence: 1,
		snapshots:    make(map[snapshotKey]journal.Snapshot),
	}
}

// Query retrieves entries matching the filter in sequence order and returns them
// together with the maximum sequence number of the matched scope.
func (j *Journal) Query(_ context.Context, filter journal.Filter) (
	journal.Entries,
	journal.MaxSequenceNumberUint,
	error,
) {

	j.mu.RLock()
	defer j.mu.RUnlock()

	entries := make(journal.Entries, 0)
	maxSequenceNumber := journal.MaxSequenceNumberUint(0)

	for _, stored := range j.entries {
		matches, matchErr := matchesFilter(filter, stored)
		if matchErr != nil {
			return nil, 0, matchErr
		}

		if matches {
			entries = append(entries, stored.entry)
			maxSequenceNumber = stored.sequenceNumber
		}
	}

	return entries, maxSequenceNumber, nil
}

// Append appends one or multiple entries if the maximum sequence number of the
// filtered scope still equals expectedMaxSequenceNumber, and returns
// journal.ErrConcurrencyConflict otherwise.
func (j *Journal) Append(
	_ context.Context,
	filter journal.Filter,
	expectedMaxSequenceNumber journal.MaxSequenceNumberUint,
	entry journal.Entry,
	additionalEntries ...journal.Entry,
) error {

	j.mu.Lock()
	defer j.mu.Unlock()

	currentMax := journal.MaxSequenceNumberUint(0)

	for _, stored := range j.entries {
		matches, matchErr := matchesFilter(filter, stored)
		if matchErr != nil {
			return matchErr
		}

		if matches {
			currentMax = stored.sequenceNumber
		}
	}

	if currentMax != expectedMaxSequenceNumber {
		return journal.ErrConcurrencyConflict
	}

	allEntries := journal.Entries{entry}
	allEntries = append(allEntries, additionalEntries...)

	for _, toAppend := range allEntries {
		j.entries = append(j.entries, storedEntry{
			sequenceNumber: j.nextSequence,
			entry:          toAppend,
		})
		j.nextSequence++
	}

	return nil
}

// SaveSnapshot stores a projection snapshot, replacing an existing one only when
// the new snapshot covers a higher sequence number.
func (j *Journal) SaveSnapshot(_ context.Context, snapshot journal.Snapshot) error {
	if validateErr := snapshot.Validate(); validateErr != nil {
		return errors.Join(journal.ErrSavingSnapshotFailed, validateErr)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	key := snapshotKey{projectionType: snapshot.ProjectionType, filterHash: snapshot.FilterHash}

	if existing, ok := j.snapshots[key]; ok && existing.SequenceNumber >= snapshot.SequenceNumber {
		return nil
	}

	j.snapshots[key] = snapshot

	return nil
}

// LoadSnapshot retrieves the stored snapshot for the given projection type and
// filter scope, or (nil, nil) when no snapshot exists.
func (j *Journal) LoadSnapshot(_ context.Context, projectionType string, filter journal.Filter) (
	*journal.Snapshot,
	error,
) {

	if projectionType == "" {
		return nil, errors.Join(journal.ErrLoadingSnapshotFailed, journal.ErrEmptyProjectionTypeSupplied)
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	key := snapshotKey{projectionType: projectionType, filterHash: filter.Hash()}

	snapshot, ok := j.snapshots[key]
	if !ok {
		return nil, nil //nolint:nilnil // a missing snapshot is not an error, callers fall back to a full query
	}

	return &snapshot, nil
}

// DeleteSnapshot removes the stored snapshot for the given projection type and
// filter scope. Deleting a snapshot that does not exist is not an error.
func (j *Journal) DeleteSnapshot(_ context.Context, projectionType string, filter journal.Filter) error {
	if projectionType == "" {
		return errors.Join(journal.ErrDeletingSnapshotFailed, journal.ErrEmptyProjectionTypeSupplied)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	delete(j.snapshots, snapshotKey{projectionType: projectionType, filterHash: filter.Hash()})

	return nil
}

// matchesFilter reports whether a stored entry falls into the scope described by
// the filter, using the same semantics the PostgreSQL journal renders into SQL:
// filter items are combined with OR, event types within an item with OR,
// predicates with OR or AND depending on the item, and time or sequence
// boundaries restrict every item.
func matchesFilter(filter journal.Filter, stored storedEntry) (bool, error) {
	if !filter.OccurredFrom().IsZero() && stored.entry.OccurredAt.Before(filter.OccurredFrom()) {
		return false, nil
	}

	if !filter.OccurredUntil().IsZero() && stored.entry.OccurredAt.After(filter.OccurredUntil()) {
		return false, nil
	}

	if filter.SequenceNumberHigherThan() > 0 && stored.sequenceNumber <= filter.SequenceNumberHigherThan() {
		return false, nil
	}

	if len(filter.Items()) == 0 {
		return true, nil
	}

	for _, item := range filter.Items() {
		matches, matchErr := matchesFilterItem(item, stored.entry)
		if matchErr != nil {
			return false, matchErr
		}

		if matches {
			return true, nil
		}
	}

	return false, nil
}

func matchesFilterItem(item journal.FilterItem, entry journal.Entry) (bool, error) {
	if len(item.EventTypes()) > 0 {
		matchesType := false

		for _, eventType := range item.EventTypes() {
			if entry.EventType == eventType {
				matchesType = true
				break
			}
		}

		if !matchesType {
			return false, nil
		}
	}

	if len(item.Predicates()) == 0 {
		return true, nil
	}

	payload := make(map[string]any)
	if unmarshalErr := marshaler.Unmarshal(entry.PayloadJSON, &payload); unmarshalErr != nil {
		return false, errors.Join(journal.ErrQueryingEntriesFailed, unmarshalErr)
	}

	matchedCount := 0

	for _, predicate := range item.Predicates() {
		if matchesPredicate(predicate, payload) {
			if !item.AllPredicatesMustMatch() {
				return true, nil
			}

			matchedCount++
		}
	}

	if item.AllPredicatesMustMatch() {
		return matchedCount == len(item.Predicates()), nil
	}

	return false, nil
}

// matchesPredicate mirrors jsonb containment on a decoded payload:
// scalar predicates require a matching top-level string property,
// array-element predicates require membership in a top-level string array.
func matchesPredicate(predicate journal.FilterPredicate, payload map[string]any) bool {
	value, ok := payload[string(predicate.Key())]
	if !ok {
		return false
	}

	if predicate.MatchesAnyElement() {
		elements, isSlice := value.([]any)
		if !isSlice {
			return false
		}

		for _, element := range elements {
			if stringElement, isString := element.(string); isString && stringElement == string(predicate.Val()) {
				return true
			}
		}

		return false
	}

	stringValue, isString := value.(string)

	return isString && stringValue == string(predicate.Val())
}
