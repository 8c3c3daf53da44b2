package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dircast/dircast/cmd"
	"github.com/dircast/dircast/internal/api"
	"github.com/dircast/dircast/internal/config"
	"github.com/dircast/dircast/internal/events"
	"github.com/dircast/dircast/internal/ffmpeg"
	"github.com/dircast/dircast/internal/logging"
	"github.com/dircast/dircast/internal/mediamtx"
	"github.com/dircast/dircast/internal/metrics"
	"github.com/dircast/dircast/internal/streams"
	"github.com/dircast/dircast/internal/supervisor"
	"github.com/dircast/dircast/internal/watch"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Control API listen address" short:"p" default:":8080" toml:"server.port" env:"SERVER_PORT"`

	// Video directory settings
	VideosDir      string `help:"Directory of video files to stream" short:"d" default:"/app/videos" toml:"videos.dir" env:"VIDEOS_DIR"`
	WatchDebounce  string `help:"Quiet period before acting on a new file" default:"2s" toml:"videos.watch_debounce" env:"WATCH_DEBOUNCE"`
	AutoStart      bool   `help:"Start every discovered stream automatically" default:"true" toml:"videos.auto_start" env:"AUTO_START"`
	FFmpegArgs     string `help:"Extra arguments appended to every publisher command" default:"" toml:"videos.ffmpeg_args" env:"FFMPEG_ARGS"`

	// Media server settings
	RTSPHost     string `help:"Media server RTSP host" default:"localhost" toml:"mediamtx.rtsp_host" env:"MEDIAMTX_RTSP_HOST"`
	RTSPPort     int    `help:"Media server RTSP port" default:"8554" toml:"mediamtx.rtsp_port" env:"MEDIAMTX_RTSP_PORT"`
	MediaAPIPort int    `help:"Media server API port" default:"9997" toml:"mediamtx.api_port" env:"MEDIAMTX_API_PORT"`
	ReadyTimeout string `help:"How long to wait for the media server at startup" default:"30s" toml:"mediamtx.ready_timeout" env:"MEDIAMTX_READY_TIMEOUT"`

	// Metrics settings
	MetricsEnabled bool `help:"Enable Prometheus metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Auth settings
	AuthUsername string `help:"Basic auth username (empty disables auth)" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingStreams string `help:"Streams logging level" default:"info" toml:"logging.streams" env:"LOGGING_STREAMS"`
	LoggingWatcher string `help:"Watcher logging level" default:"info" toml:"logging.watcher" env:"LOGGING_WATCHER"`
	LoggingFFmpeg  string `help:"FFmpeg output logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"streams": opts.LoggingStreams,
				"watcher": opts.LoggingWatcher,
				"ffmpeg":  opts.LoggingFFmpeg,
				"api":     opts.LoggingAPI,
			},
		})

		logger := logging.GetLogger("main")

		debounce, err := time.ParseDuration(opts.WatchDebounce)
		if err != nil {
			debounce = 2 * time.Second
		}
		readyTimeout, err := time.ParseDuration(opts.ReadyTimeout)
		if err != nil {
			readyTimeout = 30 * time.Second
		}

		endpoint := mediamtx.Endpoint{
			Host:     opts.RTSPHost,
			RTSPPort: opts.RTSPPort,
			APIPort:  opts.MediaAPIPort,
		}
		media := mediamtx.NewClient(endpoint, logging.GetLogger("mediamtx"))

		eventBus := events.New()

		var unbindMetrics func()
		if opts.MetricsEnabled {
			unbindMetrics = metrics.Bind(eventBus)
		}

		registry := streams.NewRegistry(&streams.Options{
			CommandProvider: func(rec streams.StreamRecord) (string, error) {
				return ffmpeg.BuildPublishCommand(&ffmpeg.PublishParams{
					Input:     rec.SourcePath,
					OutputURL: endpoint.PublishURL(rec.ID),
					LoopCount: rec.LoopCount,
					ExtraArgs: strings.Fields(opts.FFmpegArgs),
				}), nil
			},
			EventBus:      eventBus,
			Logger:        logging.GetLogger("streams"),
			ProcessLogger: logging.GetLogger("ffmpeg"),
		})

		watcher := watch.NewWatcher(opts.VideosDir, logging.GetLogger("watcher"),
			watch.WithDebounce(debounce))

		sup := supervisor.New(&supervisor.Options{
			Registry:     registry,
			Watcher:      watcher,
			Media:        media,
			Logger:       logger,
			ReadyTimeout: readyTimeout,
			AutoStart:    opts.AutoStart,
		})

		apiOpts := &api.Options{
			AuthUsername:  opts.AuthUsername,
			AuthPassword:  opts.AuthPassword,
			StreamService: registry,
			MediaMTX:      media,
		}
		if opts.MetricsEnabled {
			apiOpts.PrometheusHandler = promhttp.Handler()
		}

		server := api.NewServer(apiOpts)

		hooks.OnStart(func() {
			// Children spawned before the supervisor is ready would just die,
			// so bring it up before accepting API traffic.
			if startErr := sup.Start(); startErr != nil {
				logger.Error("Failed to start supervisor", "error", startErr)
				os.Exit(1)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Stop publishers after the HTTP server stops accepting requests
			sup.Stop()

			if unbindMetrics != nil {
				unbindMetrics()
			}
		})
	})

	cli.Root().AddCommand(cmd.CreatePlayCmd())

	cli.Run()
}
