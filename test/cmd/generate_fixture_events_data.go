package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/accrualworks/reward-ledger-go/ledger"
)

const (
	NumAccountPopulationEvents = 9000 // Number of plain account registrations to be created - adapt these as needed
	NumRewardCycleEvents       = 1000 // Number of accumulate/claim lifecycle events to be created - adapt these as needed

	OutputDir  = "test/fixtures" // the directory to put the fixture data into - should be fine as is
	OutputFile = "events.sql"    // the file to put the fixture data into - should be fine as is
)

type EventData struct {
	OccurredAt string
	EventType  string
	Payload    string
	Metadata   string
}

var metadataUUIDs []string

func main() {
	if err := GenerateFixtureDataSQL(); err != nil {
		panic(fmt.Sprintf("Error generating fixture data: %v\n", err))
	}
}

func GenerateFixtureDataSQL() error {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return fmt.Errorf("failed to find project root: %w", err)
	}

	outputDir := filepath.Join(projectRoot, OutputDir)

	// Generate 100 UUIDs for metadata fields
	generateMetadataUUIDs()

	var events []EventData
	fakeClock := time.Unix(0, 0).UTC()

	// Generate the bulk account population
	events = append(events, generateAccountPopulationEvents(NumAccountPopulationEvents, &fakeClock)...)

	// Generate reward lifecycles with realistic patterns
	events = append(events, generateRewardCycleEvents(NumRewardCycleEvents, &fakeClock)...)

	// Create an SQL INSERT statement and write to the file
	return writeSQLToFile(events, outputDir)
}

func generateMetadataUUIDs() {
	metadataUUIDs = make([]string, 100)
	for i := 0; i < 100; i++ {
		uid, _ := uuid.NewV7()
		metadataUUIDs[i] = uid.String()
	}
}

func generateRandomMetadata() string {
	messageID := metadataUUIDs[rand.Intn(len(metadataUUIDs))]
	causationID := metadataUUIDs[rand.Intn(len(metadataUUIDs))]
	correlationID := metadataUUIDs[rand.Intn(len(metadataUUIDs))]

	return fmt.Sprintf(`{"MessageID": "%s", "CausationID": "%s", "CorrelationID": "%s"}`,
		messageID, causationID, correlationID)
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up the directory tree looking for go.mod
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the root directory
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("could not find project root (no go.mod found)")
}

func generateAccountPopulationEvents(numEvents int, fakeClock *time.Time) []EventData {
	var events []EventData

	for totalEvents := 0; totalEvents < numEvents; totalEvents++ {
		accountID, _ := uuid.NewV7()
		worked := rand.Intn(100) + 1

		*fakeClock = fakeClock.Add(time.Second)

		events = append(events, EventData{
			OccurredAt: fakeClock.Format(time.RFC3339Nano),
			EventType:  ledger.AccountAddedEventType,
			Payload:    accountAddedPayload(accountID.String(), worked, *fakeClock),
			Metadata:   generateRandomMetadata(),
		})
	}

	return events
}

//nolint:funlen
func generateRewardCycleEvents(numEvents int, fakeClock *time.Time) []EventData {
	var events []EventData

	eventsGenerated := 0

	for eventsGenerated < numEvents {
		accountID, _ := uuid.NewV7()
		worked := rand.Intn(100) + 1

		// Every lifecycle starts with registering the account
		*fakeClock = fakeClock.Add(time.Second)

		events = append(events, EventData{
			OccurredAt: fakeClock.Format(time.RFC3339Nano),
			EventType:  ledger.AccountAddedEventType,
			Payload:    accountAddedPayload(accountID.String(), worked, *fakeClock),
			Metadata:   generateRandomMetadata(),
		})
		eventsGenerated++

		if eventsGenerated >= numEvents {
			break
		}

		// Decide what happens to this account (weighted probabilities)
		action := rand.Intn(100)

		switch {
		case action < 60: // 60% chance: accumulations followed by a claim
			accumulations := rand.Intn(3) + 1 // 1-3 accumulations
			var claimedBalance uint64

			for i := 0; i < accumulations && eventsGenerated < numEvents; i++ {
				*fakeClock = fakeClock.Add(time.Duration(rand.Intn(86400)) * time.Second) // Random time up to 1 day

				distribution := randomDistributionFor(accountID.String())
				claimedBalance += distribution[accountID.String()]

				events = append(events, EventData{
					OccurredAt: fakeClock.Format(time.RFC3339Nano),
					EventType:  ledger.AmountsAccumulatedEventType,
					Payload:    amountsAccumulatedPayload(newSubmissionKey(), distribution, *fakeClock),
					Metadata:   generateRandomMetadata(),
				})
				eventsGenerated++
			}

			if eventsGenerated < numEvents {
				*fakeClock = fakeClock.Add(time.Duration(rand.Intn(2592000)) * time.Second) // Random time up to 30 days

				events = append(events, EventData{
					OccurredAt: fakeClock.Format(time.RFC3339Nano),
					EventType:  ledger.AccumulatedClaimedEventType,
					Payload:    accumulatedClaimedPayload(accountID.String(), claimedBalance, worked, *fakeClock),
					Metadata:   generateRandomMetadata(),
				})
				eventsGenerated++
			}

		case action < 80: // 20% chance: accumulated but never claimed
			if eventsGenerated < numEvents {
				*fakeClock = fakeClock.Add(time.Duration(rand.Intn(86400)) * time.Second)

				events = append(events, EventData{
					OccurredAt: fakeClock.Format(time.RFC3339Nano),
					EventType:  ledger.AmountsAccumulatedEventType,
					Payload:    amountsAccumulatedPayload(newSubmissionKey(), randomDistributionFor(accountID.String()), *fakeClock),
					Metadata:   generateRandomMetadata(),
				})
				eventsGenerated++
			}

		default: // 20% chance: registered but never rewarded
		}
	}

	return events
}

// randomDistributionFor builds a distribution that always rewards the given
// account and sometimes a second one, the way a shared submission would.
func randomDistributionFor(accountID string) map[string]uint64 {
	distribution := map[string]uint64{
		accountID: uint64(rand.Intn(1000) + 1),
	}

	if rand.Intn(100) < 40 {
		partnerID, _ := uuid.NewV7()
		distribution[partnerID.String()] = uint64(rand.Intn(1000) + 1)
	}

	return distribution
}

func newSubmissionKey() string {
	uid, _ := uuid.NewV7()

	return strings.ReplaceAll(uid.String(), "-", "")
}

func accountAddedPayload(accountID string, worked int, occurredAt time.Time) string {
	return fmt.Sprintf(`{"EventType": "%s", "AccountID": "%s", "Worked": %d, "OccurredAt": "%s"}`,
		ledger.AccountAddedEventType, accountID, worked, occurredAt.Format(time.RFC3339Nano))
}

func amountsAccumulatedPayload(submissionKey string, distribution map[string]uint64, occurredAt time.Time) string {
	accountIDs := make([]string, 0, len(distribution))
	for accountID := range distribution {
		accountIDs = append(accountIDs, accountID)
	}
	slices.Sort(accountIDs)

	quoted := make([]string, 0, len(accountIDs))
	pairs := make([]string, 0, len(accountIDs))
	for _, accountID := range accountIDs {
		quoted = append(quoted, fmt.Sprintf(`"%s"`, accountID))
		pairs = append(pairs, fmt.Sprintf(`"%s": %d`, accountID, distribution[accountID]))
	}

	return fmt.Sprintf(`{"EventType": "%s", "SubmissionID": "%s", "AccountIDs": [%s], "Distribution": {%s}, "OccurredAt": "%s"}`,
		ledger.AmountsAccumulatedEventType, submissionKey,
		strings.Join(quoted, ", "), strings.Join(pairs, ", "),
		occurredAt.Format(time.RFC3339Nano))
}

func accumulatedClaimedPayload(accountID string, balance uint64, worked int, occurredAt time.Time) string {
	return fmt.Sprintf(`{"EventType": "%s", "AccountID": "%s", "Accumulated": {"Balance": %d, "Worked": %d}, "OccurredAt": "%s"}`,
		ledger.AccumulatedClaimedEventType, accountID, balance, worked, occurredAt.Format(time.RFC3339Nano))
}

func buildSQLInsert(events []EventData) string {
	if len(events) == 0 {
		return ""
	}

	var builder strings.Builder
	// just a little hack to avoid SQL inspection in the IDE
	builder.WriteString("INSERT " + "INTO " + "events (occurred_at, event_type, payload, metadata) VALUES\n")

	for i, event := range events {
		if i > 0 {
			builder.WriteString(",\n")
		}
		builder.WriteString(fmt.Sprintf("    ('%s', '%s', '%s', '%s')",
			event.OccurredAt,
			event.EventType,
			strings.ReplaceAll(event.Payload, "'", "''"),   // Escape single quotes
			strings.ReplaceAll(event.Metadata, "'", "''"))) // Escape single quotes in metadata too
	}

	builder.WriteString(";\n")

	return builder.String()
}

func writeSQLToFile(events []EventData, outputDir string) error {
	// Create the output directory if it doesn't exist
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Build the full file path
	filePath := filepath.Join(outputDir, OutputFile)

	// Generate SQL content
	sqlContent := buildSQLInsert(events)

	// Write to the file
	if err := os.WriteFile(filePath, []byte(sqlContent), 0644); err != nil {
		return fmt.Errorf("failed to write SQL file: %w", err)
	}

	fmt.Printf("Successfully generated %d events and wrote SQL to %s\n", len(events), filePath)

	return nil
}
