package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ferux/attendancebridge"
	"github.com/ferux/attendancebridge/internal/api"
	"github.com/ferux/attendancebridge/internal/config"
	"github.com/ferux/attendancebridge/internal/forwarder"
	"github.com/ferux/attendancebridge/internal/model"
	"github.com/ferux/attendancebridge/internal/registry"
	"github.com/ferux/attendancebridge/internal/relay"
)

func main() {
	path := flag.String("config", "./config.json", "path to config")
	envPath := flag.String("env", ".env", "path to dotenv file")
	showRevision := flag.Bool("revision", false, "show version of the application")

	flag.Parse()

	if *showRevision {
		fmt.Println(attendancebridge.Revision)
		return
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(*envPath); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Str("path", *envPath).Msg("loading dotenv file")
	}

	cfg, err := config.Load(*path)
	if err != nil {
		logger.
			Fatal().
			Err(err).
			Str("revision", attendancebridge.Revision).
			Str("branch", attendancebridge.Branch).
			Str("env", attendancebridge.Env).
			Msg("parsing config")
	}

	logger = logger.Level(logLevel(cfg))

	logger.
		Debug().
		Str("listen", cfg.Relay.Listen).
		Str("upstream", cfg.Upstream.URL).
		Str("rev", attendancebridge.Revision).
		Str("branch", attendancebridge.Branch).
		Msg("starting application")

	notifierClient, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Release:     attendancebridge.Revision,
		Environment: attendancebridge.Env,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("can't create sentry client")
	}

	fwd, err := forwarder.New(cfg.Upstream, forwarder.WithUserAgent("attendancebridge/"+attendancebridge.Revision))
	if err != nil {
		logger.Fatal().Err(err).Msg("can't create upstream client")
	}

	devices := registry.New(logger)
	devices.Subscribe(func(d registry.Device) {
		logger.Info().Str("host", d.Host).Str("sn", d.SerialNumber).Msg("device registered")
	})

	srv := relay.New(cfg.Relay, fwd,
		relay.WithLogger(logger),
		relay.WithRegistry(devices),
		relay.WithNotifier(notifierClient),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	served := make(chan error, 1)
	go func() { served <- srv.ListenAndServe(ctx) }()

	var status *api.HTTP
	if cfg.HTTP != nil && cfg.HTTP.Listen != "" {
		status = api.NewHTTP(*cfg.HTTP, srv, devices, logger, notifierClient, model.ApplicationInfo{
			Revision:    attendancebridge.Revision,
			Branch:      attendancebridge.Branch,
			Environment: attendancebridge.Env,
		})
		status.Serve()
	}

	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var stopped bool

	select {
	case sig := <-s:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err = <-served:
		stopped = true
		if err != nil {
			notifierClient.CaptureException(err, nil, sentry.NewScope())
			notifierClient.Flush(2 * time.Second)
			logger.Fatal().Err(err).Msg("tcp server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second*15)
	defer shutdownCancel()

	cancel()

	if status != nil {
		if errShut := status.Shutdown(shutdownCtx); errShut != nil {
			logger.Error().Err(errShut).Msg("error shutting down http server")
		}
	}

	if errWait := awaitServer(shutdownCtx, served, stopped); errWait != nil {
		logger.Error().Err(errWait).Msg("sessions did not finish in time")
	}

	notifierClient.Flush(2 * time.Second)
}

// awaitServer waits for relay server to return unless its result was already
// received.
func awaitServer(ctx context.Context, served <-chan error, received bool) error {
	if received {
		return nil
	}

	select {
	case <-served:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func logLevel(cfg config.Application) zerolog.Level {
	if cfg.Debug {
		return zerolog.DebugLevel
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}

	return level
}
