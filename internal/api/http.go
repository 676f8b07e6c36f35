package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/ferux/attendancebridge/internal/config"
	"github.com/ferux/attendancebridge/internal/model"
	"github.com/ferux/attendancebridge/internal/registry"
	"github.com/ferux/attendancebridge/internal/relay"
)

const (
	maxHeaderBytes = 256 * (1 << 10) // 256 KiB
	contentType    = "content-type"
	contentJSON    = "application/json"
)

// StatsProvider exposes relay counters.
type StatsProvider interface {
	Stats() relay.Stats
}

// DeviceLister exposes known devices.
type DeviceLister interface {
	Devices() []registry.Device
}

type HTTP struct {
	srv *http.Server

	stats    StatsProvider
	devices  DeviceLister
	logger   zerolog.Logger
	notifier *sentry.Client

	requestCount int64
	bootTime     time.Time
}

// NewHTTP prepares new http service
func NewHTTP(
	cfg config.HTTP,
	stats StatsProvider,
	devices DeviceLister,
	logger zerolog.Logger,
	nClient *sentry.Client,
	appInfo model.ApplicationInfo,
) *HTTP {
	to := cfg.Timeout.Std()
	srv := &http.Server{
		Addr:              cfg.Listen,
		ReadTimeout:       to,
		ReadHeaderTimeout: to,
		WriteTimeout:      to,
		IdleTimeout:       to,
		MaxHeaderBytes:    maxHeaderBytes,
	}

	api := &HTTP{
		srv:      srv,
		stats:    stats,
		devices:  devices,
		logger:   logger.With().Str("pkg", "api").Logger(),
		bootTime: time.Now(),
		notifier: nClient,
	}
	api.setupRoutes(appInfo)

	return api
}

// Serve connections
func (api *HTTP) Serve() {
	go func() {
		api.logger.Info().Str("listen", api.srv.Addr).Msg("serving http")
		err := api.srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			api.logger.Error().Err(err).Msg("interrupted")
			if api.notifier != nil {
				api.notifier.CaptureException(err, nil, sentry.NewScope())
			}
		}
	}()
}

// Shutdown the server
func (api *HTTP) Shutdown(ctx context.Context) error {
	return api.srv.Shutdown(ctx)
}

func asJSON(ctx context.Context, w http.ResponseWriter, obj interface{}, code int) {
	w.Header().Set(contentType, contentJSON)
	w.WriteHeader(code)

	err := json.NewEncoder(w).Encode(obj)
	if err != nil {
		logger := zerolog.Ctx(ctx)
		logger.Error().Err(err).Msg("encoding json")
	}
}
