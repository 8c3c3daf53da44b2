// Package cmd holds auxiliary cobra subcommands attached to the CLI root.
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dircast/dircast/internal/config"
	"github.com/dircast/dircast/internal/ffmpeg"
	"github.com/dircast/dircast/internal/logging"
	"github.com/dircast/dircast/internal/mediamtx"
	"github.com/dircast/dircast/internal/process"
	"github.com/dircast/dircast/internal/streams"
)

// CreatePlayCmd creates the play command: publish a single video file in the
// foreground without the supervisor, API, or watcher. Useful for checking
// that a file streams cleanly before dropping it into the watched directory.
func CreatePlayCmd() *cobra.Command {
	var configFile string
	var loop int
	var rtspHost string
	var rtspPort int
	var name string
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "play [video-file]",
		Short: "Publish a single video file to the media server",
		Long: `Runs one publisher process in the foreground for the given video file. ` +
			`The stream identifier is derived from the filename unless --name is given. ` +
			`Exits with the publisher's exit code; Ctrl-C stops it gracefully.`,
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			videoPath := args[0]

			loggingConfig := config.LoadLoggingConfig(configFile)
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)

			streamID := name
			if streamID == "" {
				streamID = streams.SanitizeName(videoPath)
			}
			logger := logging.GetLogger("play").With("stream_id", streamID)

			if _, err := os.Stat(videoPath); err != nil {
				logger.Error("Cannot read video file", "path", videoPath, "error", err)
				os.Exit(1)
			}

			endpoint := mediamtx.Endpoint{Host: rtspHost, RTSPPort: rtspPort}
			command := ffmpeg.BuildPublishCommand(&ffmpeg.PublishParams{
				Input:     videoPath,
				OutputURL: endpoint.PublishURL(streamID),
				LoopCount: loop,
			})

			logger.Info("Publishing", "url", endpoint.PublishURL(streamID), "loop", loop)

			runner := process.NewRunner(streamID, command, logger)
			runner.SetLogParser(logging.GetLogger("ffmpeg").With("stream_id", streamID), ffmpeg.ParseLogLevel)

			if err := runner.Start(); err != nil {
				logger.Error("Failed to start publisher", "error", err)
				os.Exit(1)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				logger.Info("Received signal, stopping publisher", "signal", sig.String())
				runner.Stop()
			case <-runner.Done():
			}

			exitCode := runner.ExitCode()
			logger.Info("Publisher exited", "exit_code", exitCode)
			os.Exit(exitCode)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "config.toml", "Path to configuration file (logging section only)")
	cmd.Flags().IntVar(&loop, "loop", ffmpeg.LoopForever,
		fmt.Sprintf("Loop count: %d forever, 0 once, N>0 for N+1 plays", ffmpeg.LoopForever))
	cmd.Flags().StringVar(&rtspHost, "rtsp-host", "localhost", "Media server RTSP host")
	cmd.Flags().IntVar(&rtspPort, "rtsp-port", 8554, "Media server RTSP port")
	cmd.Flags().StringVar(&name, "name", "", "Override the derived stream identifier")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}
