/*
Package relay accepts attendance terminal connections and turns what they
send into acknowledged, forwarded attendance records.

Every connection is served by its own goroutine. Sessions share nothing but
the forwarder, the device registry and counters, so a failing device or a
failing upstream never affects other sessions or the accept loop.
*/
package relay

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ferux/attendancebridge/internal/config"
	"github.com/ferux/attendancebridge/internal/model"
)

// Forwarder delivers parsed record upstream.
type Forwarder interface {
	Forward(ctx context.Context, rec model.AttendanceRecord) model.ForwardResult
}

// Registry remembers devices announced by handshakes.
type Registry interface {
	Seen(host string, hs model.HandshakeMessage)
	Serial(host string) (string, bool)
}

// Notifier reports failures to error tracker. *sentry.Client satisfies it.
type Notifier interface {
	CaptureException(exception error, hint *sentry.EventHint, scope sentry.EventModifier) *sentry.EventID
}

const maxAcceptDelay = time.Second

type Server struct {
	cfg      config.Relay
	fwd      Forwarder
	registry Registry
	notifier Notifier
	logger   zerolog.Logger

	stats stats
	wg    sync.WaitGroup

	mu sync.Mutex
	l  net.Listener
}

type Option func(s *Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

func WithRegistry(r Registry) Option {
	return func(s *Server) { s.registry = r }
}

func WithNotifier(n Notifier) Option {
	return func(s *Server) { s.notifier = n }
}

// New prepares relay server. Nothing is bound until ListenAndServe or Serve.
func New(cfg config.Relay, fwd Forwarder, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		fwd:    fwd,
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With().Str("pkg", "relay").Logger()

	return s
}

// ListenAndServe binds configured address and serves it until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return pkgerrors.Wrap(err, "unable to listen address")
	}

	return s.Serve(ctx, l)
}

// Serve accepts connections on l. It returns nil once ctx is done and all
// sessions have finished.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.mu.Lock()
	s.l = l
	s.mu.Unlock()

	s.logger.Info().Str("listen", l.Addr().String()).Msg("tcp server listening")

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}

		errClose := l.Close()
		if errClose != nil && !errors.Is(errClose, net.ErrClosed) {
			s.logger.Warn().Err(errClose).Msg("unable to close listener properly")
		}
	}()

	defer s.wg.Wait()

	var delay time.Duration

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logger.Info().Msg("tcp server stopped")

				return nil
			}

			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay *= 2
			}

			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}

			s.logger.Warn().Err(err).Dur("retry_in", delay).Msg("accepting connection")
			time.Sleep(delay)

			continue
		}

		delay = 0

		s.stats.accepted.Add(1)
		s.wg.Add(1)

		go s.handleConnection(ctx, conn)
	}
}

// Addr returns listening address or nil if server is not serving yet.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.l == nil {
		return nil
	}

	return s.l.Addr()
}

// Stats returns current counters.
func (s *Server) Stats() Stats {
	return s.stats.snapshot()
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()

	s.stats.active.Add(1)
	defer s.stats.active.Add(-1)

	sess := newSession(s, conn)

	defer func() {
		if r := recover(); r != nil {
			sess.logger.Error().Interface("panic", r).Stringer("state", sess.State()).Msg("recovering session")
			sess.capture(pkgerrors.Errorf("session panic: %v", r))
			sess.close()
		}
	}()

	sess.run(ctx)
}
