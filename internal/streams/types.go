package streams

import "time"

// Status of a stream's publisher process.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
)

// StreamRecord is a point-in-time snapshot of one stream. The registry hands
// out copies; mutating a snapshot has no effect on registry state.
type StreamRecord struct {
	ID         string
	SourcePath string
	Status     Status
	LoopCount  int
	PID        int
	StartedAt  time.Time
	LastError  error
}

// OpResult reports the outcome of one stream within a bulk operation.
type OpResult struct {
	StreamID string
	Status   Status
	Err      error
}

// Service is the stream registry surface consumed by the API and supervisor.
type Service interface {
	// Upsert registers the file under its sanitized identifier. Re-upserting
	// the same path is a no-op; a different path mapping to an existing
	// identifier is rejected with NAME_COLLISION.
	Upsert(sourcePath string) (*StreamRecord, error)

	// Remove stops the stream backed by sourcePath (if running) and deletes
	// its registration.
	Remove(sourcePath string) error

	// Start launches the publisher process for the stream. loop follows the
	// ffmpeg -stream_loop contract: -1 forever, 0 play once, N>0 means N
	// extra plays. Starting a running stream is a no-op.
	Start(id string, loop int) (*StreamRecord, error)

	// Stop terminates the publisher process. Stopping a stopped stream is a
	// no-op. Returns once the process has exited.
	Stop(id string) (*StreamRecord, error)

	// StartAll starts every registered stream with its last-used loop count,
	// continuing past individual failures.
	StartAll() []OpResult

	// StopAll stops every running stream, continuing past individual failures.
	StopAll() []OpResult

	// Get returns a snapshot of one stream.
	Get(id string) (*StreamRecord, error)

	// List returns snapshots of all streams sorted by identifier.
	List() []StreamRecord
}
