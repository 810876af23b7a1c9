// Package remote defines the narrow contract the publisher depends on:
// bulk upload, fragment mutation, and async job polling, expressed as a
// tagged-capability interface rather than a global registry.
package remote

import "context"

// JobState is the async job lifecycle. Warning is treated as
// success.
type JobState string

const (
	JobInProgress JobState = "in_progress"
	JobCompleted JobState = "completed"
	JobWarning JobState = "warning"
	JobError JobState = "error"
	JobFailed JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// Succeeded reports whether a job state counts as a successful outcome.
func (s JobState) Succeeded() bool {
	return s == JobCompleted || s == JobWarning
}

// JobHandle identifies an in-flight asynchronous job on the remote.
type JobHandle string

// ObjectID identifies a document-scoped object on the remote, returned by
// Labeled.
type ObjectID string

// Remote is the capability set a publishing backend must implement. A
// concrete adapter (e.g. a PageSeeder-like HTTP client) satisfies this
// interface; the wire protocol itself is out of scope for this module.
type Remote interface {
	// BulkUpload uploads a zip archive of documents into folder, returning
	// a handle to the async unzip/load job.
	BulkUpload(ctx context.Context, zipBytes []byte, folder string) (JobHandle, error)

	// AwaitJob blocks until the job identified by handle reaches a
	// terminal state, returning that state (and an error detail on
	// failure).
	AwaitJob(ctx context.Context, handle JobHandle) (JobState, string, error)

	// AddFragment inserts a new fragment into the named section of docid.
	// Not idempotent; the publisher relies on a subsequent bulk upload to
	// supersede duplicate adds.
	AddFragment(ctx context.Context, docid, sectionID, fragmentID string, content []byte) error

	// ReplaceFragment overwrites fragmentID on docid. Must be safe to
	// re-execute.
	ReplaceFragment(ctx context.Context, docid, fragmentID string, content []byte) error

	// GetFragment reads back the current content of a fragment.
	GetFragment(ctx context.Context, docid, fragmentID string) ([]byte, error)

	// Labeled returns every object carrying label, for metadata
	// application. Optional: adapters without label support may return an
	// empty slice and a nil error.
	Labeled(ctx context.Context, label string) ([]ObjectID, error)
}
