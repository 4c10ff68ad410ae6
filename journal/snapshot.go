package journal

import (
	"encoding/json"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var (
	ErrEmptyProjectionTypeSupplied = errors.New("projection type must not be empty")
	ErrEmptyFilterHashSupplied     = errors.New("filter hash must not be empty")
	ErrInvalidSnapshotData         = errors.New("snapshot data must be valid JSON")
	ErrSavingSnapshotFailed        = errors.New("saving snapshot failed")
	ErrLoadingSnapshotFailed       = errors.New("loading snapshot failed")
	ErrDeletingSnapshotFailed      = errors.New("deleting snapshot failed")
)

// Snapshot represents a stored projection state at a specific sequence number.
// Snapshots allow projections to resume from a known sequence instead of
// replaying the full history on every query.
type Snapshot struct {
	ProjectionType string
	FilterHash     string
	SequenceNumber uint
	Data           json.RawMessage
	CreatedAt      time.Time
}

// Validate checks that the snapshot has all required fields and valid JSON data.
func (s Snapshot) Validate() error {
	if s.ProjectionType == "" {
		return ErrEmptyProjectionTypeSupplied
	}

	if s.FilterHash == "" {
		return ErrEmptyFilterHashSupplied
	}

	if !jsoniter.ConfigFastest.Valid(s.Data) {
		return ErrInvalidSnapshotData
	}

	return nil
}

// BuildSnapshot creates a validated snapshot with the current timestamp.
func BuildSnapshot(
	projectionType string,
	filterHash string,
	sequenceNumber uint,
	data json.RawMessage,
) (Snapshot, error) {

	snapshot := Snapshot{
		ProjectionType: projectionType,
		FilterHash:     filterHash,
		SequenceNumber: sequenceNumber,
		Data:           data,
		CreatedAt:      time.Now(),
	}

	if err := snapshot.Validate(); err != nil {
		return Snapshot{}, err
	}

	return snapshot, nil
}
