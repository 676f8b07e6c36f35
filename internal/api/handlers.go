package api

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/ferux/attendancebridge/internal/fcontext"
	"github.com/ferux/attendancebridge/internal/model"
	"github.com/ferux/attendancebridge/internal/registry"
	"github.com/ferux/attendancebridge/internal/relay"
	"github.com/ferux/attendancebridge/internal/templates"
)

func (api *HTTP) handleInfo(info model.ApplicationInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var stats relay.Stats
		if api.stats != nil {
			stats = api.stats.Stats()
		}

		w.Header().Set(contentType, contentJSON)
		w.WriteHeader(http.StatusOK)

		(&templates.MarshalData{
			Revision:      info.Revision,
			Branch:        info.Branch,
			Environment:   info.Environment,
			BootTime:      api.bootTime.String(),
			Uptime:        time.Since(api.bootTime).Seconds(),
			RequestCount:  int(atomic.LoadInt64(&api.requestCount)),
			Accepted:      stats.Accepted,
			Active:        stats.Active,
			Handshakes:    stats.Handshakes,
			Forwarded:     stats.Forwarded,
			ForwardFailed: stats.ForwardFailed,
			Malformed:     stats.Malformed,
			Unrecognized:  stats.Unrecognized,
		}).WriteJSON(w)
	}
}

func (api *HTTP) handleGetDevices() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ctx = r.Context()
		if api.devices == nil {
			asJSON(ctx, w, []registry.Device{}, http.StatusOK)
			return
		}

		asJSON(ctx, w, api.devices.Devices(), http.StatusOK)
	}
}

func (api *HTTP) serveError(ctx context.Context, w http.ResponseWriter, r *http.Request, err error) {
	var (
		logger     = zerolog.Ctx(ctx)
		rid        = fcontext.RequestID(ctx)
		eventLevel = sentry.LevelFatal

		responseError model.ServiceError
	)

	if !errors.As(err, &responseError) {
		responseError.Message = err.Error()
		responseError.RequestID = rid
	}

	if responseError.Code == 0 {
		responseError.Code = http.StatusInternalServerError
	}

	if responseError.Code != http.StatusInternalServerError {
		eventLevel = sentry.LevelError
	}

	logger.Error().Err(responseError).Msg("captured error")

	// client mistakes are not worth reporting
	if api.notifier != nil && responseError.Code >= http.StatusInternalServerError {
		event := sentry.NewEvent()
		event.Message = responseError.Message
		event.Level = eventLevel
		event.Tags["request_id"] = rid
		event.Request = sentry.NewRequest(r)

		api.notifier.CaptureEvent(event, &sentry.EventHint{
			OriginalException: err,
		}, sentry.NewScope())
	}

	asJSON(ctx, w, responseError, responseError.Code)
}
