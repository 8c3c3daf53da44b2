// Package supervisor wires the watcher, registry and media server probe
// together: startup reconciliation, hot-reload, and shutdown.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dircast/dircast/internal/ffmpeg"
	"github.com/dircast/dircast/internal/mediamtx"
	"github.com/dircast/dircast/internal/streams"
	"github.com/dircast/dircast/internal/watch"
)

// Options configures a Supervisor.
type Options struct {
	Registry *streams.Registry
	Watcher  *watch.Watcher
	Media    *mediamtx.Client // optional readiness probe
	Logger   *slog.Logger

	// ReadyTimeout bounds the wait for the media server. Default 30s.
	ReadyTimeout time.Duration

	// ReconcileInterval is the period of the safety sweep for dead
	// publishers. Default 30s.
	ReconcileInterval time.Duration

	// AutoStart starts every discovered stream as loop-forever. Default
	// behavior for a directory of looping display streams; disable for
	// API-driven operation.
	AutoStart bool
}

// Supervisor owns the startup and shutdown sequence and the watcher event
// loop.
type Supervisor struct {
	registry          *streams.Registry
	watcher           *watch.Watcher
	media             *mediamtx.Client
	logger            *slog.Logger
	readyTimeout      time.Duration
	reconcileInterval time.Duration
	autoStart         bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Supervisor.
func New(opts *Options) *Supervisor {
	readyTimeout := opts.ReadyTimeout
	if readyTimeout == 0 {
		readyTimeout = 30 * time.Second
	}
	reconcileInterval := opts.ReconcileInterval
	if reconcileInterval == 0 {
		reconcileInterval = 30 * time.Second
	}
	return &Supervisor{
		registry:          opts.Registry,
		watcher:           opts.Watcher,
		media:             opts.Media,
		logger:            opts.Logger,
		readyTimeout:      readyTimeout,
		reconcileInterval: reconcileInterval,
		autoStart:         opts.AutoStart,
	}
}

// Start performs startup reconciliation and begins the watcher loop. Errors
// here are fatal: running without the watch subscription would silently
// drop the hot-reload guarantee.
func (s *Supervisor) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.media != nil {
		readyCtx, readyCancel := context.WithTimeout(ctx, s.readyTimeout)
		err := s.media.WaitReady(readyCtx)
		readyCancel()
		if err != nil {
			return err
		}
	}

	paths, err := s.watcher.Scan()
	if err != nil {
		return fmt.Errorf("scanning video directory: %w", err)
	}
	for _, path := range paths {
		if _, err := s.registry.Upsert(path); err != nil {
			// Collisions are per-file problems, not startup failures.
			s.logger.Warn("Skipping video file", "path", path, "error", err)
		}
	}
	s.logger.Info("Initial scan complete", "streams", len(s.registry.List()))

	if s.autoStart {
		for _, res := range s.registry.StartAll() {
			if res.Err != nil {
				s.logger.Error("Failed to auto-start stream", "stream_id", res.StreamID, "error", res.Err)
			}
		}
	}

	if err := s.watcher.Start(); err != nil {
		return fmt.Errorf("watching video directory: %w", err)
	}

	s.wg.Add(1)
	go s.loop(ctx)

	return nil
}

// Stop tears everything down: watcher first so no new intents arrive, then
// all publisher processes. Returns once no children remain.
func (s *Supervisor) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if err := s.watcher.Stop(); err != nil {
		s.logger.Warn("Error stopping watcher", "error", err)
	}
	s.wg.Wait()

	for _, res := range s.registry.StopAll() {
		if res.Err != nil {
			s.logger.Error("Failed to stop stream", "stream_id", res.StreamID, "error", res.Err)
		}
	}
	s.registry.Wait()
	s.logger.Info("All streams stopped")
}

// loop is the single consumer of watcher events, serializing them into
// registry calls.
func (s *Supervisor) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-s.watcher.Events():
			s.handleEvent(ev)

		case <-ticker.C:
			s.registry.Reconcile()
		}
	}
}

func (s *Supervisor) handleEvent(ev watch.Event) {
	switch ev.Kind {
	case watch.Created:
		s.logger.Info("Video file appeared", "path", ev.Path)
		rec, err := s.registry.Upsert(ev.Path)
		if err != nil {
			s.logger.Warn("Skipping video file", "path", ev.Path, "error", err)
			return
		}
		if s.autoStart {
			if _, err := s.registry.Start(rec.ID, ffmpeg.LoopForever); err != nil {
				s.logger.Error("Failed to start stream", "stream_id", rec.ID, "error", err)
			}
		}

	case watch.Removed:
		s.logger.Info("Video file removed", "path", ev.Path)
		if err := s.registry.Remove(ev.Path); err != nil {
			// Unrecognized or collision-losing paths were never registered.
			s.logger.Debug("No stream to remove", "path", ev.Path, "error", err)
		}
	}
}
