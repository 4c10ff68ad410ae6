package journal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"
)

type FilterEventTypeString = string
type FilterKeyString = string
type FilterValString = string

/***** Filter *****/

type Filter struct {
	items                    []FilterItem
	occurredFrom             time.Time
	occurredUntil            time.Time
	sequenceNumberHigherThan MaxSequenceNumberUint
}

func (f Filter) Items() []FilterItem {
	return f.items
}

func (f Filter) OccurredFrom() time.Time {
	return f.occurredFrom
}

func (f Filter) OccurredUntil() time.Time {
	return f.occurredUntil
}

// SequenceNumberHigherThan returns the exclusive lower sequence bound of
// this filter; zero means the filter starts at the beginning of the journal.
func (f Filter) SequenceNumberHigherThan() MaxSequenceNumberUint {
	return f.sequenceNumberHigherThan
}

// Serialize returns a canonical string representation of all filter components.
// Because the builder sanitizes (sorts, dedupes) its input, two filters selecting
// the same scope always serialize identically.
func (f Filter) Serialize() string {
	var b strings.Builder

	for idx, item := range f.items {
		fmt.Fprintf(&b, "item:%d{", idx)

		if len(item.eventTypes) > 0 {
			b.WriteString("event_types:")
			b.WriteString(strings.Join(item.eventTypes, ","))
			b.WriteString(";")
		}

		if len(item.predicates) > 0 {
			b.WriteString("predicates:")

			predicateParts := make([]string, 0, len(item.predicates))
			for _, predicate := range item.predicates {
				if predicate.anyElement {
					predicateParts = append(predicateParts, fmt.Sprintf("%s[]=%s", predicate.key, predicate.val))
				} else {
					predicateParts = append(predicateParts, fmt.Sprintf("%s=%s", predicate.key, predicate.val))
				}
			}

			b.WriteString(strings.Join(predicateParts, ","))
			b.WriteString(";")
		}

		if item.allPredicatesMustMatch {
			b.WriteString("predicate_logic:AND")
		} else {
			b.WriteString("predicate_logic:OR")
		}

		b.WriteString("}")
	}

	if !f.occurredFrom.IsZero() {
		fmt.Fprintf(&b, "occurred_from:%d;", f.occurredFrom.UnixNano())
	}

	if !f.occurredUntil.IsZero() {
		fmt.Fprintf(&b, "occurred_until:%d;", f.occurredUntil.UnixNano())
	}

	if f.sequenceNumberHigherThan != 0 {
		fmt.Fprintf(&b, "sequence_higher_than:%d;", f.sequenceNumberHigherThan)
	}

	return b.String()
}

// Hash returns a stable identifier for this filter, used to key snapshots.
func (f Filter) Hash() string {
	sum := sha256.Sum256([]byte(f.Serialize()))

	return "sha256:" + hex.EncodeToString(sum[:])
}

// ReopenForSequenceFiltering reopens a finalized filter so that a sequence
// bound can be added or replaced, for incremental queries on top of a snapshot.
// The result is either a SequenceFilteringCapable builder or a
// SequenceFilteringIncompatible explanation, to be checked with a type assertion.
func (f Filter) ReopenForSequenceFiltering() any {
	if !f.occurredFrom.IsZero() || !f.occurredUntil.IsZero() {
		return sequenceFilteringBlocked{reason: "cannot add sequence filtering: time boundaries already present"}
	}

	return sequenceFilterBuilder{filter: f}
}

// SequenceFilteringCapable is implemented by the builder returned from
// ReopenForSequenceFiltering when a sequence bound can be added.
type SequenceFilteringCapable interface {
	WithSequenceNumberHigherThan(sequenceNumber MaxSequenceNumberUint) CompletedSequenceFilterBuilder
}

// CompletedSequenceFilterBuilder finalizes a reopened filter.
type CompletedSequenceFilterBuilder interface {
	Finalize() Filter
}

// SequenceFilteringIncompatible is implemented by the result of
// ReopenForSequenceFiltering when the filter cannot take a sequence bound.
type SequenceFilteringIncompatible interface {
	CannotAddSequenceFiltering() string
}

type sequenceFilterBuilder struct {
	filter Filter
}

func (b sequenceFilterBuilder) WithSequenceNumberHigherThan(
	sequenceNumber MaxSequenceNumberUint,
) CompletedSequenceFilterBuilder {

	b.filter.sequenceNumberHigherThan = sequenceNumber

	return b
}

func (b sequenceFilterBuilder) Finalize() Filter {
	return b.filter
}

type sequenceFilteringBlocked struct {
	reason string
}

func (b sequenceFilteringBlocked) CannotAddSequenceFiltering() string {
	return b.reason
}

/***** FilterItem *****/

type FilterItem struct {
	eventTypes             []FilterEventTypeString
	predicates             []FilterPredicate
	allPredicatesMustMatch bool
}

func (fi FilterItem) EventTypes() []FilterEventTypeString {
	return fi.eventTypes
}

func (fi FilterItem) Predicates() []FilterPredicate {
	return fi.predicates
}

func (fi FilterItem) AllPredicatesMustMatch() bool {
	return fi.allPredicatesMustMatch
}

/***** FilterPredicate *****/

type FilterPredicate struct {
	key        FilterKeyString
	val        FilterValString
	anyElement bool
}

// P creates a predicate matching a top-level scalar string field of the payload.
func P(key FilterKeyString, val FilterValString) FilterPredicate {
	return FilterPredicate{key: key, val: val}
}

// PAnyElement creates a predicate matching membership in a top-level string
// array field of the payload, e.g. one account id inside "AccountIDs".
func PAnyElement(key FilterKeyString, val FilterValString) FilterPredicate {
	return FilterPredicate{key: key, val: val, anyElement: true}
}

func (fp FilterPredicate) Key() FilterKeyString {
	return fp.key
}

func (fp FilterPredicate) Val() FilterValString {
	return fp.val
}

// MatchesAnyElement reports whether this predicate matches an array element
// rather than a scalar field.
func (fp FilterPredicate) MatchesAnyElement() bool {
	return fp.anyElement
}

/***** FilterBuilder *****/

// FilterBuilder builds a generic entry filter to be used in DB type-specific journal implementations to build queries for
// the specific query language, e.g.: Postgres, Mysql, MongoDB, ...
// It is designed with the idea to only allow "useful" filter combinations for event-sourced workflows:
//
//   - empty filter
//   - (eventType)
//   - (eventType OR eventType...)
//   - (predicate)
//   - (predicate OR predicate...)
//   - (predicate AND predicate...)
//   - (eventType AND predicate)
//   - (eventType AND (predicate OR predicate...))
//   - (eventType AND (predicate AND predicate...))
//   - ((eventType OR eventType...) AND (predicate OR predicate...))
//   - ((eventType OR eventType...) AND (predicate AND predicate...))
//   - ((eventType AND predicate) OR (eventType AND predicate)...) -> multiple FilterItem(s)
//
// Each combination can be limited with either occurred-at time boundaries or
// an exclusive lower sequence bound, but never with both at once.
type FilterBuilder interface {
	// Matching starts a new FilterItem.
	Matching() EmptyFilterItemBuilder

	// MatchingAnyEvent directly creates an empty Filter.
	MatchingAnyEvent() Filter

	// WithSequenceNumberHigherThan restricts the whole Filter to entries with a higher sequence number.
	WithSequenceNumberHigherThan(sequenceNumber MaxSequenceNumberUint) CompletedFilterItemBuilderWithSequenceNumber

	// OccurredFrom restricts the whole Filter to entries at or after the given time.
	OccurredFrom(from time.Time) CompletedFilterItemBuilderWithOccurredFrom

	// OccurredUntil restricts the whole Filter to entries at or before the given time.
	OccurredUntil(until time.Time) CompletedFilterItemBuilderWithOccurredUntil
}

type EmptyFilterItemBuilder interface {
	// AnyEventTypeOf adds one or multiple EventTypes to the current FilterItem.
	//
	// It sanitizes the input:
	//	- removing empty EventTypes ("")
	//	- sorting the EventTypes
	//	- removing duplicate EventTypes
	AnyEventTypeOf(eventType FilterEventTypeString, eventTypes ...FilterEventTypeString) FilterItemBuilderLackingPredicates

	// AnyPredicateOf adds one or multiple FilterPredicate(s) to the current FilterItem.
	//
	// It sanitizes the input:
	//	- removing empty/partial FilterPredicate(s) (key or val is "")
	//	- sorting the FilterPredicate(s)
	//	- removing duplicate FilterPredicate(s)
	AnyPredicateOf(predicate FilterPredicate, predicates ...FilterPredicate) FilterItemBuilderLackingEventTypes

	AllPredicatesOf(predicate FilterPredicate, predicates ...FilterPredicate) FilterItemBuilderLackingEventTypes
}

type FilterItemBuilderLackingPredicates interface {
	// AndAnyPredicateOf adds one or multiple FilterPredicate(s) to the current FilterItem.
	//
	// It sanitizes the input:
	//	- removing empty/partial FilterPredicate(s) (key or val is "")
	//	- sorting the FilterPredicate(s)
	//	- removing duplicate FilterPredicate(s)
	AndAnyPredicateOf(predicate FilterPredicate, predicates ...FilterPredicate) CompletedFilterItemBuilder

	AndAllPredicatesOf(predicate FilterPredicate, predicates ...FilterPredicate) CompletedFilterItemBuilder

	// OrMatching finalizes the current FilterItem and starts a new one.
	OrMatching() EmptyFilterItemBuilder

	// WithSequenceNumberHigherThan restricts the whole Filter to entries with a higher sequence number.
	WithSequenceNumberHigherThan(sequenceNumber MaxSequenceNumberUint) CompletedFilterItemBuilderWithSequenceNumber

	// OccurredFrom restricts the whole Filter to entries at or after the given time.
	OccurredFrom(from time.Time) CompletedFilterItemBuilderWithOccurredFrom

	// OccurredUntil restricts the whole Filter to entries at or before the given time.
	OccurredUntil(until time.Time) CompletedFilterItemBuilderWithOccurredUntil

	// Finalize returns the Filter once it has at least one FilterItem with at least one EventType OR one Predicate.
	Finalize() Filter
}

type FilterItemBuilderLackingEventTypes interface {
	// AndAnyEventTypeOf adds one or multiple EventTypes to the current FilterItem.
	//
	// It sanitizes the input:
	//	- removing empty EventTypes ("")
	//	- sorting the EventTypes
	//	- removing duplicate EventTypes
	AndAnyEventTypeOf(eventType FilterEventTypeString, eventTypes ...FilterEventTypeString) CompletedFilterItemBuilder

	// OrMatching finalizes the current FilterItem and starts a new one.
	OrMatching() EmptyFilterItemBuilder

	// WithSequenceNumberHigherThan restricts the whole Filter to entries with a higher sequence number.
	WithSequenceNumberHigherThan(sequenceNumber MaxSequenceNumberUint) CompletedFilterItemBuilderWithSequenceNumber

	// OccurredFrom restricts the whole Filter to entries at or after the given time.
	OccurredFrom(from time.Time) CompletedFilterItemBuilderWithOccurredFrom

	// OccurredUntil restricts the whole Filter to entries at or before the given time.
	OccurredUntil(until time.Time) CompletedFilterItemBuilderWithOccurredUntil

	// Finalize returns the Filter once it has at least one FilterItem with at least one EventType OR one Predicate.
	Finalize() Filter
}

type CompletedFilterItemBuilder interface {
	// OrMatching finalizes the current FilterItem and starts a new one.
	OrMatching() EmptyFilterItemBuilder

	// WithSequenceNumberHigherThan restricts the whole Filter to entries with a higher sequence number.
	WithSequenceNumberHigherThan(sequenceNumber MaxSequenceNumberUint) CompletedFilterItemBuilderWithSequenceNumber

	// OccurredFrom restricts the whole Filter to entries at or after the given time.
	OccurredFrom(from time.Time) CompletedFilterItemBuilderWithOccurredFrom

	// OccurredUntil restricts the whole Filter to entries at or before the given time.
	OccurredUntil(until time.Time) CompletedFilterItemBuilderWithOccurredUntil

	// Finalize returns the Filter once it has at least one FilterItem with at least one EventType OR one Predicate.
	Finalize() Filter
}

// CompletedFilterItemBuilderWithSequenceNumber only allows finalizing, a sequence bound excludes time boundaries.
type CompletedFilterItemBuilderWithSequenceNumber interface {
	Finalize() Filter
}

// CompletedFilterItemBuilderWithOccurredFrom allows setting the upper time boundary or finalizing.
type CompletedFilterItemBuilderWithOccurredFrom interface {
	// AndOccurredUntil restricts the whole Filter to entries at or before the given time.
	AndOccurredUntil(until time.Time) CompletedFilterItemBuilderWithOccurredFromToUntil

	Finalize() Filter
}

// CompletedFilterItemBuilderWithOccurredUntil only allows finalizing.
type CompletedFilterItemBuilderWithOccurredUntil interface {
	Finalize() Filter
}

// CompletedFilterItemBuilderWithOccurredFromToUntil only allows finalizing.
type CompletedFilterItemBuilderWithOccurredFromToUntil interface {
	Finalize() Filter
}

// filterBuilder implements all the interfaces of FilterBuilder
type filterBuilder struct {
	filter            Filter
	currentFilterItem FilterItem
}

// BuildEventFilter creates a FilterBuilder which must eventually be finalized with Finalize() or MatchingAnyEvent().
func BuildEventFilter() FilterBuilder {
	return filterBuilder{}
}

// Matching starts a new FilterItem.
func (fb filterBuilder) Matching() EmptyFilterItemBuilder {
	fb.currentFilterItem = FilterItem{}

	return fb
}

// AnyEventTypeOf adds one or multiple EventTypes to the current FilterItem expecting ANY EventType to match.
//
// It sanitizes the input:
//   - removing empty EventTypes ("")
//   - sorting the EventTypes
//   - removing duplicate EventTypes
func (fb filterBuilder) AnyEventTypeOf(
	eventType FilterEventTypeString,
	eventTypes ...FilterEventTypeString,
) FilterItemBuilderLackingPredicates {

	fb.currentFilterItem.eventTypes = append(
		fb.currentFilterItem.eventTypes,
		fb.sanitizeEventTypes(eventType, eventTypes...)...,
	)

	return fb
}

// AndAnyEventTypeOf adds one or multiple EventTypes to the current FilterItem expecting ANY EventType to match.
//
// It sanitizes the input:
//   - removing empty EventTypes ("")
//   - sorting the EventTypes
//   - removing duplicate EventTypes
func (fb filterBuilder) AndAnyEventTypeOf(
	eventType FilterEventTypeString,
	eventTypes ...FilterEventTypeString,
) CompletedFilterItemBuilder {

	fb.currentFilterItem.eventTypes = append(
		fb.currentFilterItem.eventTypes,
		fb.sanitizeEventTypes(eventType, eventTypes...)...,
	)

	return fb
}

func (fb filterBuilder) sanitizeEventTypes(
	eventType FilterEventTypeString,
	eventTypes ...FilterEventTypeString,
) []FilterEventTypeString {

	allEventTypes := append([]FilterEventTypeString{eventType}, eventTypes...)
	allEventTypes = slices.DeleteFunc(
		allEventTypes,
		func(e FilterEventTypeString) bool {
			return e == ""
		})
	slices.Sort(allEventTypes)
	allEventTypes = slices.Compact(allEventTypes)
	allEventTypes = slices.Clip(allEventTypes)

	return allEventTypes
}

// AnyPredicateOf adds one or multiple FilterPredicate(s) to the current FilterItem expecting ANY predicate to match.
//
// It sanitizes the input:
//   - removing empty/partial FilterPredicate(s) (key or val is "")
//   - sorting the FilterPredicate(s)
//   - removing duplicate FilterPredicate(s)
func (fb filterBuilder) AnyPredicateOf(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) FilterItemBuilderLackingEventTypes {

	fb.currentFilterItem.predicates = append(
		fb.currentFilterItem.predicates,
		fb.sanitizePredicates(predicate, predicates...)...,
	)

	return fb
}

// AndAnyPredicateOf adds one or multiple FilterPredicate(s) to the current FilterItem expecting ANY predicate to match.
//
// It sanitizes the input:
//   - removing empty/partial FilterPredicate(s) (key or val is "")
//   - sorting the FilterPredicate(s)
//   - removing duplicate FilterPredicate(s)
func (fb filterBuilder) AndAnyPredicateOf(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) CompletedFilterItemBuilder {

	fb.currentFilterItem.predicates = append(
		fb.currentFilterItem.predicates,
		fb.sanitizePredicates(predicate, predicates...)...,
	)

	return fb
}

// AllPredicatesOf adds one or multiple FilterPredicate(s) to the current FilterItem expecting ALL predicates to match.
//
// It sanitizes the input:
//   - removing empty/partial FilterPredicate(s) (key or val is "")
//   - sorting the FilterPredicate(s)
//   - removing duplicate FilterPredicate(s)
func (fb filterBuilder) AllPredicatesOf(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) FilterItemBuilderLackingEventTypes {

	fb.currentFilterItem.allPredicatesMustMatch = true

	fb.currentFilterItem.predicates = append(
		fb.currentFilterItem.predicates,
		fb.sanitizePredicates(predicate, predicates...)...,
	)

	return fb
}

// AndAllPredicatesOf adds one or multiple FilterPredicate(s) to the current FilterItem expecting ALL predicates to match.
//
// It sanitizes the input:
//   - removing empty/partial FilterPredicate(s) (key or val is "")
//   - sorting the FilterPredicate(s)
//   - removing duplicate FilterPredicate(s)
func (fb filterBuilder) AndAllPredicatesOf(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) CompletedFilterItemBuilder {

	fb.currentFilterItem.allPredicatesMustMatch = true

	fb.currentFilterItem.predicates = append(
		fb.currentFilterItem.predicates,
		fb.sanitizePredicates(predicate, predicates...)...,
	)

	return fb
}

func (fb filterBuilder) sanitizePredicates(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) []FilterPredicate {

	allPredicates := append([]FilterPredicate{predicate}, predicates...)
	allPredicates = slices.DeleteFunc(allPredicates, func(e FilterPredicate) bool { return len(e.key) == 0 || len(e.val) == 0 })
	slices.SortFunc(
		allPredicates,
		func(a, b FilterPredicate) int {
			if a.key > b.key {
				return 1
			}

			if a.key < b.key {
				return -1
			}

			return 0
		})

	allPredicates = slices.Compact(allPredicates)
	allPredicates = slices.Clip(allPredicates)

	return allPredicates
}

// WithSequenceNumberHigherThan restricts the whole Filter to entries with a higher sequence number.
func (fb filterBuilder) WithSequenceNumberHigherThan(
	sequenceNumber MaxSequenceNumberUint,
) CompletedFilterItemBuilderWithSequenceNumber {

	fb.filter.sequenceNumberHigherThan = sequenceNumber

	return fb
}

// OccurredFrom restricts the whole Filter to entries at or after the given time.
func (fb filterBuilder) OccurredFrom(from time.Time) CompletedFilterItemBuilderWithOccurredFrom {
	fb.filter.occurredFrom = from

	return fb
}

// OccurredUntil restricts the whole Filter to entries at or before the given time.
func (fb filterBuilder) OccurredUntil(until time.Time) CompletedFilterItemBuilderWithOccurredUntil {
	fb.filter.occurredUntil = until

	return fb
}

// AndOccurredUntil restricts the whole Filter to entries at or before the given time.
func (fb filterBuilder) AndOccurredUntil(until time.Time) CompletedFilterItemBuilderWithOccurredFromToUntil {
	fb.filter.occurredUntil = until

	return fb
}

// OrMatching finalizes the current FilterItem and starts a new one.
func (fb filterBuilder) OrMatching() EmptyFilterItemBuilder {
	fb.filter.items = append(fb.filter.items, fb.currentFilterItem)
	fb.currentFilterItem = FilterItem{}

	return fb
}

// MatchingAnyEvent directly creates an empty filter.
func (fb filterBuilder) MatchingAnyEvent() Filter {
	return fb.filter
}

// Finalize returns the Filter once it has at least one FilterItem with at least one EventType OR one Predicate.
func (fb filterBuilder) Finalize() Filter {
	fb.filter.items = append(fb.filter.items, fb.currentFilterItem)

	return fb.filter
}
