// Package streams maintains the mapping from video files to live streams and
// supervises the publisher process behind each one.
package streams

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dircast/dircast/internal/events"
	"github.com/dircast/dircast/internal/ffmpeg"
	"github.com/dircast/dircast/internal/process"
)

// CommandProvider builds the publisher command line for a stream. Called
// under the stream's operation lock, so it must not call back into the
// registry.
type CommandProvider func(rec StreamRecord) (string, error)

// Options configures a Registry.
type Options struct {
	// CommandProvider is required.
	CommandProvider CommandProvider

	// EventBus receives lifecycle events when set.
	EventBus *events.Bus

	// Logger defaults to a discard logger.
	Logger *slog.Logger

	// ProcessLogger receives ffmpeg output lines. Defaults to Logger.
	ProcessLogger *slog.Logger
}

// record is the registry's mutable state for one stream. Field access is
// guarded by Registry.mu; opMu serializes start/stop/remove per stream and
// is never held while mu is held the other way around.
type record struct {
	opMu sync.Mutex

	id         string
	sourcePath string
	status     Status
	loopCount  int
	runner     *process.Runner
	startedAt  time.Time
	lastError  error
}

// Registry implements Service.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*record

	provider      CommandProvider
	bus           *events.Bus
	logger        *slog.Logger
	processLogger *slog.Logger

	wg sync.WaitGroup
}

var _ Service = (*Registry)(nil)

// NewRegistry creates a stream registry.
func NewRegistry(opts *Options) *Registry {
	if opts == nil || opts.CommandProvider == nil {
		panic("streams: CommandProvider is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	processLogger := opts.ProcessLogger
	if processLogger == nil {
		processLogger = logger
	}
	return &Registry{
		records:       make(map[string]*record),
		provider:      opts.CommandProvider,
		bus:           opts.EventBus,
		logger:        logger,
		processLogger: processLogger,
	}
}

// Upsert registers sourcePath under its sanitized identifier.
func (r *Registry) Upsert(sourcePath string) (*StreamRecord, error) {
	id := SanitizeName(sourcePath)

	r.mu.Lock()
	existing, ok := r.records[id]
	if ok {
		keptPath := existing.sourcePath
		r.mu.Unlock()
		if keptPath == sourcePath {
			return r.Get(id)
		}
		r.logger.Warn("Stream name collision, keeping first mapping",
			"stream_id", id, "kept", keptPath, "rejected", sourcePath)
		r.publish(events.NamingCollisionEvent{
			StreamID:     id,
			KeptPath:     keptPath,
			RejectedPath: sourcePath,
			Timestamp:    timestamp(),
		})
		return nil, NewStreamError(ErrCodeNameCollision,
			fmt.Sprintf("stream %q already maps to %s", id, keptPath), nil)
	}

	rec := &record{
		id:         id,
		sourcePath: sourcePath,
		status:     StatusStopped,
		loopCount:  ffmpeg.LoopForever,
	}
	r.records[id] = rec
	r.mu.Unlock()

	r.logger.Info("Registered stream", "stream_id", id, "source", sourcePath)
	r.publish(events.VideoAddedEvent{StreamID: id, Path: sourcePath, Timestamp: timestamp()})

	snap := r.snapshot(rec)
	return &snap, nil
}

// Remove stops and deregisters the stream backed by sourcePath.
func (r *Registry) Remove(sourcePath string) error {
	id := SanitizeName(sourcePath)

	r.mu.RLock()
	rec, ok := r.records[id]
	if ok && rec.sourcePath != sourcePath {
		// A collision loser disappearing must not take down the winner.
		ok = false
	}
	r.mu.RUnlock()
	if !ok {
		return NewStreamError(ErrCodeStreamNotFound,
			fmt.Sprintf("no stream registered for %s", sourcePath), nil)
	}

	rec.opMu.Lock()
	defer rec.opMu.Unlock()

	r.mu.RLock()
	runner := rec.runner
	r.mu.RUnlock()

	if runner != nil {
		runner.Stop()
		r.finalize(rec, runner)
	}

	r.mu.Lock()
	if cur, ok := r.records[id]; ok && cur == rec {
		delete(r.records, id)
	}
	r.mu.Unlock()

	r.logger.Info("Deregistered stream", "stream_id", id, "source", sourcePath)
	r.publish(events.VideoRemovedEvent{StreamID: id, Path: sourcePath, Timestamp: timestamp()})
	return nil
}

// Start launches the publisher process for the stream.
func (r *Registry) Start(id string, loop int) (*StreamRecord, error) {
	rec, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	rec.opMu.Lock()
	defer rec.opMu.Unlock()

	// Re-check after taking the op lock: a concurrent Remove may have won.
	r.mu.RLock()
	cur, ok := r.records[id]
	running := ok && rec.status == StatusRunning
	r.mu.RUnlock()
	if !ok || cur != rec {
		return nil, NewStreamError(ErrCodeStreamNotFound,
			fmt.Sprintf("stream %q not found", id), nil)
	}
	if running {
		snap := r.snapshot(rec)
		return &snap, nil
	}

	params := r.snapshot(rec)
	params.LoopCount = loop
	command, err := r.provider(params)
	if err != nil {
		r.setError(rec, err)
		return nil, NewStreamError(ErrCodeConfigError,
			fmt.Sprintf("building command for stream %q", id), err)
	}

	runner := process.NewRunner(id, command, r.logger)
	runner.SetLogParser(r.processLogger.With("stream_id", id), ffmpeg.ParseLogLevel)

	if err := runner.Start(); err != nil {
		serr := NewStreamError(ErrCodeSpawnFailed,
			fmt.Sprintf("spawning publisher for stream %q", id), err)
		r.setError(rec, serr)
		r.logger.Error("Failed to start stream", "stream_id", id, "error", err)
		return nil, serr
	}

	r.mu.Lock()
	rec.runner = runner
	rec.status = StatusRunning
	rec.loopCount = loop
	rec.startedAt = time.Now()
	rec.lastError = nil
	r.mu.Unlock()

	r.logger.Info("Started stream", "stream_id", id, "pid", runner.PID(), "loop", loop)
	r.publish(events.StreamStartedEvent{StreamID: id, LoopCount: loop, Timestamp: timestamp()})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		<-runner.Done()
		r.finalize(rec, runner)
	}()

	snap := r.snapshot(rec)
	return &snap, nil
}

// Stop terminates the publisher process for the stream.
func (r *Registry) Stop(id string) (*StreamRecord, error) {
	rec, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	rec.opMu.Lock()
	defer rec.opMu.Unlock()

	r.mu.RLock()
	runner := rec.runner
	r.mu.RUnlock()

	if runner != nil {
		runner.Stop()
		r.finalize(rec, runner)
	}

	snap := r.snapshot(rec)
	return &snap, nil
}

// StartAll starts every registered stream with its last-used loop count.
func (r *Registry) StartAll() []OpResult {
	results := make([]OpResult, 0)
	for _, id := range r.ids() {
		r.mu.RLock()
		rec, ok := r.records[id]
		loop := ffmpeg.LoopForever
		if ok {
			loop = rec.loopCount
		}
		r.mu.RUnlock()
		if !ok {
			continue
		}

		snap, err := r.Start(id, loop)
		res := OpResult{StreamID: id, Err: err}
		if snap != nil {
			res.Status = snap.Status
		}
		results = append(results, res)
	}
	return results
}

// StopAll stops every registered stream.
func (r *Registry) StopAll() []OpResult {
	results := make([]OpResult, 0)
	for _, id := range r.ids() {
		snap, err := r.Stop(id)
		res := OpResult{StreamID: id, Err: err}
		if snap != nil {
			res.Status = snap.Status
		}
		results = append(results, res)
	}
	return results
}

// Get returns a snapshot of one stream.
func (r *Registry) Get(id string) (*StreamRecord, error) {
	rec, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	snap := r.snapshot(rec)
	return &snap, nil
}

// List returns snapshots of all streams sorted by identifier.
func (r *Registry) List() []StreamRecord {
	r.mu.RLock()
	recs := make([]*record, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	out := make([]StreamRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, r.snapshot(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reconcile sweeps the table for records whose process died without the exit
// watcher having caught up yet. Safety net for the periodic supervisor tick.
func (r *Registry) Reconcile() {
	r.mu.RLock()
	type pair struct {
		rec    *record
		runner *process.Runner
	}
	var stale []pair
	for _, rec := range r.records {
		if rec.runner != nil && !rec.runner.Alive() {
			stale = append(stale, pair{rec, rec.runner})
		}
	}
	r.mu.RUnlock()

	for _, p := range stale {
		r.finalize(p.rec, p.runner)
	}
}

// Wait blocks until all exit watchers have drained. Call after StopAll during
// shutdown so no goroutines outlive the registry.
func (r *Registry) Wait() {
	r.wg.Wait()
}

// finalize transitions a record to stopped after its runner exited or was
// stopped. Idempotent: the runner identity check makes the exit watcher, Stop
// and Remove agree on exactly one transition per process.
func (r *Registry) finalize(rec *record, runner *process.Runner) {
	<-runner.Done()

	r.mu.Lock()
	if rec.runner != runner {
		r.mu.Unlock()
		return
	}
	rec.runner = nil
	rec.status = StatusStopped

	crashed := !runner.Stopped() && runner.ExitCode() != 0
	if crashed {
		rec.lastError = NewStreamError(ErrCodeProcessCrash,
			fmt.Sprintf("publisher exited with code %d", runner.ExitCode()), nil)
	}
	id := rec.id
	r.mu.Unlock()

	if crashed {
		r.logger.Error("Stream crashed", "stream_id", id, "exit_code", runner.ExitCode())
		r.publish(events.StreamCrashedEvent{
			StreamID:  id,
			ExitCode:  runner.ExitCode(),
			Timestamp: timestamp(),
		})
	} else {
		r.logger.Info("Stopped stream", "stream_id", id)
	}
	r.publish(events.StreamStoppedEvent{StreamID: id, Timestamp: timestamp()})
}

func (r *Registry) lookup(id string) (*record, error) {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return nil, NewStreamError(ErrCodeStreamNotFound,
			fmt.Sprintf("stream %q not found", id), nil)
	}
	return rec, nil
}

func (r *Registry) ids() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (r *Registry) snapshot(rec *record) StreamRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := StreamRecord{
		ID:         rec.id,
		SourcePath: rec.sourcePath,
		Status:     rec.status,
		LoopCount:  rec.loopCount,
		StartedAt:  rec.startedAt,
		LastError:  rec.lastError,
	}
	if rec.runner != nil {
		snap.PID = rec.runner.PID()
	}
	return snap
}

func (r *Registry) setError(rec *record, err error) {
	r.mu.Lock()
	rec.lastError = err
	r.mu.Unlock()
}

func (r *Registry) publish(ev events.Event) {
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
