package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	stdtime "time"

	"github.com/ferux/attendancebridge/internal/model"
	"github.com/ferux/attendancebridge/internal/time"
)

// Application settings.
type Application struct {
	Debug     bool     `json:"debug"`
	LogLevel  string   `json:"log_level"`
	Relay     Relay    `json:"relay"`
	Upstream  Upstream `json:"upstream"`
	HTTP      *HTTP    `json:"http"`
	SentryDSN string   `json:"sentry_dsn"`
}

// Relay configures the device-facing TCP listener.
type Relay struct {
	Listen         string        `json:"listen"`
	IdleTimeout    time.Duration `json:"idle_timeout"`
	ReadBufferSize int           `json:"read_buffer_size"`
	MaxMessageSize int           `json:"max_message_size"`
	// ResolveDeclaredSerial makes attendance records carry the serial
	// announced by an earlier handshake from the same host instead of the
	// host address itself.
	ResolveDeclaredSerial bool `json:"resolve_declared_serial"`
}

// Upstream is the cloud attendance endpoint.
type Upstream struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
	Token   string        `json:"token"`
}

// HTTP is the status API. Nil disables it.
type HTTP struct {
	Listen  string        `json:"listen"`
	Timeout time.Duration `json:"timeout"`
}

const (
	DefaultPort           = 5002
	defaultIdleTimeout    = time.Duration(60 * stdtime.Second)
	defaultUpstreamTO     = time.Duration(10 * stdtime.Second)
	defaultHTTPTimeout    = time.Duration(10 * stdtime.Second)
	defaultReadBufferSize = 4 << 10 // 4 KiB
	defaultMaxMessageSize = 8 << 10 // 8 KiB
)

// Default returns settings used for everything missing in config file and
// environment.
func Default() Application {
	return Application{
		LogLevel: "info",
		Relay: Relay{
			Listen:         net.JoinHostPort("0.0.0.0", strconv.Itoa(DefaultPort)),
			IdleTimeout:    defaultIdleTimeout,
			ReadBufferSize: defaultReadBufferSize,
			MaxMessageSize: defaultMaxMessageSize,
		},
		Upstream: Upstream{
			Timeout: defaultUpstreamTO,
		},
	}
}

// Parse parses config from file on top of defaults. Missing file is not an
// error.
func Parse(path string) (Application, error) {
	app := Default()

	fileBytes, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return app, nil
		}

		return app, err
	}

	err = json.Unmarshal(fileBytes, &app)
	if err != nil {
		return app, fmt.Errorf("unmarshalling %s: %w", path, err)
	}

	if app.HTTP != nil && app.HTTP.Timeout == 0 {
		app.HTTP.Timeout = defaultHTTPTimeout
	}

	return app, nil
}

// Load parses file, applies environment overrides and validates result.
func Load(path string) (Application, error) {
	app, err := Parse(path)
	if err != nil {
		return app, err
	}

	err = app.ApplyEnv(os.LookupEnv)
	if err != nil {
		return app, fmt.Errorf("applying environment: %w", err)
	}

	return app, app.Validate()
}

// ApplyEnv overrides settings with environment variables.
func (app *Application) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("BRIDGE_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("BRIDGE_PORT=%q: %w", v, model.ErrInvalidParameter)
		}

		app.Relay.Listen = net.JoinHostPort("0.0.0.0", v)
	}

	if v, ok := lookup("BRIDGE_LISTEN"); ok && v != "" {
		app.Relay.Listen = v
	}

	if v, ok := lookup("BRIDGE_UPSTREAM_URL"); ok && v != "" {
		app.Upstream.URL = v
	}

	if v, ok := lookup("BRIDGE_UPSTREAM_TIMEOUT"); ok && v != "" {
		d, err := stdtime.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing BRIDGE_UPSTREAM_TIMEOUT: %w", err)
		}

		app.Upstream.Timeout = time.Duration(d)
	}

	if v, ok := lookup("BRIDGE_UPSTREAM_TOKEN"); ok && v != "" {
		app.Upstream.Token = v
	}

	if v, ok := lookup("BRIDGE_HTTP_LISTEN"); ok && v != "" {
		if app.HTTP == nil {
			app.HTTP = &HTTP{Timeout: defaultHTTPTimeout}
		}

		app.HTTP.Listen = v
	}

	if v, ok := lookup("SENTRY_DSN"); ok && v != "" {
		app.SentryDSN = v
	}

	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		app.LogLevel = v
	}

	return nil
}

// Validate checks required settings.
func (app Application) Validate() error {
	if app.Relay.Listen == "" {
		return fmt.Errorf("relay.listen is empty: %w", model.ErrMissingParameter)
	}

	if app.Upstream.URL == "" {
		return fmt.Errorf("upstream.url is empty: %w", model.ErrMissingParameter)
	}

	if app.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive: %w", model.ErrInvalidParameter)
	}

	if app.Relay.ReadBufferSize <= 0 || app.Relay.MaxMessageSize <= 0 {
		return fmt.Errorf("relay buffer sizes must be positive: %w", model.ErrInvalidParameter)
	}

	return nil
}
