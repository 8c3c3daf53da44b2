// Package process owns the lifecycle of external publisher subprocesses.
package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// LogParser parses a log line and returns the log level and message.
// Used to extract structured log info from process output (ffmpeg, gstreamer, etc.)
type LogParser func(line string) (level, msg string)

// Runner owns exactly one external subprocess. Start is non-blocking; the
// subprocess is observed through Done, Alive, and ExitCode. Stop is graceful
// (SIGINT, bounded grace period, then SIGKILL) and safe to call on an
// already-exited runner.
type Runner struct {
	id            string
	command       string
	cmd           *exec.Cmd
	logger        *slog.Logger
	processLogger *slog.Logger // logger for process output (nil = use logger)
	logParser     LogParser    // parses process output for log level (nil = no parsing)

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	exitCode  atomic.Int32
	stopped   atomic.Bool // Stop was requested before exit

	gracefulTimeout time.Duration // timeout for graceful shutdown before force kill
	killTimeout     time.Duration // timeout after Kill() before giving up
}

// NewRunner creates a runner for the given command string.
func NewRunner(id, command string, logger *slog.Logger) *Runner {
	return &Runner{
		id:              id,
		command:         command,
		logger:          logger,
		done:            make(chan struct{}),
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
	}
}

// SetLogParser sets a custom logger and log parser for process output.
// The logger is used for process output (e.g., module="ffmpeg").
// The parser extracts log level from process-specific output formats.
func (r *Runner) SetLogParser(logger *slog.Logger, parser LogParser) {
	r.processLogger = logger
	r.logParser = parser
}

// Command returns the command string the runner was created with.
func (r *Runner) Command() string {
	return r.command
}

// Start launches the subprocess and returns immediately. The subprocess is
// placed in its own process group so signals do not leak to the supervisor.
func (r *Runner) Start() error {
	var startErr error
	started := false

	r.startOnce.Do(func() {
		started = true
		startErr = r.start()
	})

	if !started {
		return fmt.Errorf("runner for %s already started", r.id)
	}
	return startErr
}

func (r *Runner) start() error {
	args, err := parseCommand(r.command)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("empty command")
	}

	r.cmd = exec.Command(args[0], args[1:]...)
	r.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := r.cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := r.cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := r.cmd.Start(); err != nil {
		close(r.done)
		r.exitCode.Store(-1)
		return err
	}

	r.logger.Info("Process started", "id", r.id, "pid", r.cmd.Process.Pid, "command", r.command)

	outputDone := make(chan struct{}, 2)
	go func() {
		r.streamOutput(stdout, "stdout")
		outputDone <- struct{}{}
	}()
	go func() {
		r.streamOutput(stderr, "stderr")
		outputDone <- struct{}{}
	}()

	// Monitor goroutine: drain output first, then reap the child.
	go func() {
		<-outputDone
		<-outputDone

		waitErr := r.cmd.Wait()
		code := exitCodeFromError(waitErr)
		r.exitCode.Store(int32(code))
		close(r.done)

		r.logger.Info("Process exited", "id", r.id, "exit_code", code)
	}()

	return nil
}

// PID returns the subprocess PID, or 0 if it was never started.
func (r *Runner) PID() int {
	if r.cmd == nil || r.cmd.Process == nil {
		return 0
	}
	return r.cmd.Process.Pid
}

// Done is closed when the subprocess has exited and been reaped.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Alive reports whether the subprocess is still running. Non-blocking.
func (r *Runner) Alive() bool {
	select {
	case <-r.done:
		return false
	default:
		return r.cmd != nil && r.cmd.Process != nil
	}
}

// ExitCode returns the subprocess exit code. Only meaningful after Done is
// closed; returns -1 before then.
func (r *Runner) ExitCode() int {
	select {
	case <-r.done:
		return int(r.exitCode.Load())
	default:
		return -1
	}
}

// Stopped reports whether Stop was requested before the process exited.
// Used to distinguish an orderly stop from a crash.
func (r *Runner) Stopped() bool {
	return r.stopped.Load()
}

// Stop terminates the subprocess: SIGINT, then SIGKILL after the grace
// period. Blocks until the process has exited or the kill timeout elapses.
// No-op if the process already exited.
func (r *Runner) Stop() {
	select {
	case <-r.done:
		return
	default:
	}

	r.stopOnce.Do(func() {
		r.stopped.Store(true)

		if r.cmd == nil || r.cmd.Process == nil {
			return
		}

		r.logger.Info("Sending SIGINT to process", "id", r.id, "pid", r.cmd.Process.Pid)
		if err := r.cmd.Process.Signal(syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
			r.logger.Warn("Failed to send SIGINT", "id", r.id, "error", err)
		}

		select {
		case <-r.done:
			return
		case <-time.After(r.gracefulTimeout):
		}

		r.logger.Warn("Graceful shutdown timeout, forcing kill", "id", r.id, "timeout", r.gracefulTimeout)
		if err := r.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			r.logger.Error("Failed to kill process", "id", r.id, "error", err)
		}

		select {
		case <-r.done:
		case <-time.After(r.killTimeout):
			r.logger.Error("Process did not exit after kill signal", "id", r.id)
		}
	})

	// Later callers of an in-flight Stop wait for the exit too.
	select {
	case <-r.done:
	case <-time.After(r.gracefulTimeout + r.killTimeout):
	}
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// streamOutput streams output from the subprocess through the logging system.
// Uses the configured LogParser to extract log levels from process output.
func (r *Runner) streamOutput(reader io.Reader, source string) {
	scanner := bufio.NewScanner(reader)

	logger := r.processLogger
	if logger == nil {
		logger = r.logger
	}

	for scanner.Scan() {
		line := scanner.Text()

		level, msg := "info", line
		if r.logParser != nil {
			level, msg = r.logParser(line)
		}

		switch level {
		case "fatal", "error":
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "debug", "trace":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}

	if err := scanner.Err(); err != nil {
		r.logger.Warn("Error reading output", "id", r.id, "source", source, "error", err)
	}
}

// parseCommand parses a command string into arguments
// Handles quoted strings and basic escaping.
func parseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	command = strings.TrimSpace(command)
	runes := []rune(command)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoteChar = r
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		case r == '\\' && i+1 < len(runes):
			i++ // Skip the backslash
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	if inQuote {
		return nil, fmt.Errorf("unclosed quote in command")
	}

	return args, nil
}
