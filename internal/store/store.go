package store

import "context"

// Store is the persistence boundary for test archives and the raw
// telemetry event log.
type Store interface {
	// Archive operations
	ArchiveTest(ctx context.Context, t *ArchivedTest) error
	GetArchivedTest(ctx context.Context, id string) (*ArchivedTest, error)
	ListArchivedTests(ctx context.Context) ([]*ArchivedTest, error)

	// Event log operations
	RecordEvent(ctx context.Context, testID, variantID, eventType, visitorID string, value float64) error
	GetEvents(ctx context.Context, testID string) ([]*Event, error)

	// Lifecycle
	Close() error
}
