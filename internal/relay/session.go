package relay

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ferux/attendancebridge/internal/fcontext"
	"github.com/ferux/attendancebridge/internal/model"
	"github.com/ferux/attendancebridge/internal/protocol"
)

// State of a device session.
type State uint8

const (
	StateOpen State = iota + 1
	StateReceiving
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateReceiving:
		return "receiving"
	case StateClosed:
		return "closed"
	default:
		return "undefined"
	}
}

// session serves exactly one device connection.
type session struct {
	id     string
	conn   net.Conn
	remote string
	host   string
	buf    []byte

	state     atomic.Uint32
	closeOnce sync.Once

	srv    *Server
	logger zerolog.Logger
}

func newSession(srv *Server, conn net.Conn) *session {
	remote := conn.RemoteAddr().String()

	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}

	id := uuid.New().String()

	sess := &session{
		id:     id,
		conn:   conn,
		remote: remote,
		host:   host,
		srv:    srv,
		logger: srv.logger.With().Str("session_id", id).Str("remote_addr", remote).Logger(),
	}
	sess.state.Store(uint32(StateOpen))

	return sess
}

// State returns current state of the session.
func (s *session) State() State {
	return State(s.state.Load())
}

func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.close()

	ctx = fcontext.WithSessionID(ctx, s.id)
	ctx = fcontext.WithRemoteAddr(ctx, s.remote)
	ctx = s.logger.WithContext(ctx)

	go func() {
		<-ctx.Done()
		s.close()
	}()

	s.logger.Info().Msg("device connected")

	chunk := make([]byte, s.srv.cfg.ReadBufferSize)

	for {
		err := s.extendDeadline()
		if err != nil {
			s.logger.Warn().Err(err).Msg("extending deadline")
			return
		}

		n, err := s.conn.Read(chunk)
		if n > 0 {
			s.state.CompareAndSwap(uint32(StateOpen), uint32(StateReceiving))

			if s.receive(ctx, chunk[:n]) {
				return
			}
		}

		if err != nil {
			s.logReadError(err)
			return
		}
	}
}

func (s *session) extendDeadline() error {
	idle := s.srv.cfg.IdleTimeout.Std()
	if idle <= 0 {
		return nil
	}

	return s.conn.SetDeadline(time.Now().Add(idle))
}

func (s *session) logReadError(err error) {
	switch {
	case errors.Is(err, io.EOF):
		s.logger.Info().Msg("device disconnected")
	case errors.Is(err, os.ErrDeadlineExceeded):
		s.logger.Info().Msg("device idle, disconnecting")
	case errors.Is(err, net.ErrClosed):
		s.logger.Debug().Msg("connection closed")
	default:
		s.logger.Warn().Err(err).Msg("reading from device")
	}
}

// receive appends chunk to the buffer and handles whatever message it now
// holds. It reports whether the session is over.
func (s *session) receive(ctx context.Context, chunk []byte) (done bool) {
	s.buf = append(s.buf, chunk...)

	s.logger.Debug().Int("len", len(chunk)).Int("buffered", len(s.buf)).Msg("raw data received")

	msg := protocol.Parse(s.buf)
	if msg.Kind == protocol.KindIncomplete {
		if len(s.buf) > s.srv.cfg.MaxMessageSize {
			s.srv.stats.malformed.Add(1)
			s.logger.Warn().
				Err(model.ErrMessageTooLarge).
				Int("buffered", len(s.buf)).
				Msg("discarding incomplete message")
			s.buf = s.buf[:0]
		}

		return false
	}

	raw := string(s.buf)
	s.buf = s.buf[:0]

	switch {
	case msg.Kind == protocol.KindUnrecognized:
		s.srv.stats.unrecognized.Add(1)
		s.logger.Warn().Str("raw", raw).Msg("unknown data format received")

		return false
	case msg.Err != nil:
		s.srv.stats.malformed.Add(1)
		s.logger.Error().Err(msg.Err).Str("kind", msg.Kind.String()).Str("raw", raw).Msg("failed to parse data")

		return false
	case msg.Kind == protocol.KindHandshake:
		if msg.Warn != nil {
			s.logger.Warn().Err(msg.Warn).Str("raw", raw).Msg("handshake parsed partially")
		}

		s.handleHandshake(msg.Handshake)

		return true
	default:
		s.handleAttendance(ctx, msg.Attendance, raw)

		return true
	}
}

func (s *session) handleHandshake(hs model.HandshakeMessage) {
	s.srv.stats.handshakes.Add(1)

	s.logger.Info().
		Str("sn", deref(hs.DeviceSerialNumber)).
		Str("options", deref(hs.Options)).
		Str("language", deref(hs.Language)).
		Str("pushver", deref(hs.PushVersion)).
		Msg("device handshake")

	if s.srv.registry != nil {
		s.srv.registry.Seen(s.host, hs)
	}

	err := s.write(protocol.HandshakeAck())
	if err != nil {
		s.logger.Warn().Err(err).Msg("acknowledging handshake")
	}
}

func (s *session) handleAttendance(ctx context.Context, rec model.AttendanceRecord, raw string) {
	rec.DeviceSerialNumber, rec.SerialSource = s.resolveSerial()

	logger := s.logger.With().
		Str("employee_code", rec.EmployeeCode).
		Str("verify_mode", rec.VerifyMode.String()).
		Str("timestamp", rec.Timestamp).
		Str("device_sn", rec.DeviceSerialNumber).
		Str("sn_source", rec.SerialSource.String()).
		Logger()

	logger.Info().Msg("attendance parsed")

	res := s.srv.fwd.Forward(ctx, rec)
	if !res.OK() {
		s.srv.stats.forwardFailed.Add(1)
		logger.Error().
			Err(res.Err).
			Int("status", res.StatusCode).
			Str("raw", raw).
			Msg("forwarding attendance")
		s.capture(res.Err)

		return
	}

	s.srv.stats.forwarded.Add(1)
	logger.Info().Int("status", res.StatusCode).Msg("attendance forwarded")

	err := s.write(protocol.AttendanceAck())
	if err != nil {
		logger.Warn().Err(err).Msg("acknowledging attendance")
	}
}

// resolveSerial picks serial for records of this connection. Connection host
// is used unless declared serials are enabled and known for the host.
func (s *session) resolveSerial() (string, model.SerialSource) {
	if s.srv.cfg.ResolveDeclaredSerial && s.srv.registry != nil {
		if sn, ok := s.srv.registry.Serial(s.host); ok {
			return sn, model.SerialSourceDeclared
		}
	}

	return s.host, model.SerialSourceRemoteAddr
}

func (s *session) write(data []byte) error {
	err := s.extendDeadline()
	if err != nil {
		return err
	}

	_, err = s.conn.Write(data)

	return err
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		s.state.Store(uint32(StateClosed))

		errClose := s.conn.Close()
		if errClose != nil && !errors.Is(errClose, net.ErrClosed) {
			s.logger.Warn().Err(errClose).Msg("unable to close connection properly")
		}
	})
}

func (s *session) capture(err error) {
	if s.srv.notifier == nil {
		return
	}

	scope := sentry.NewScope()
	scope.SetTag("session_id", s.id)
	scope.SetTag("remote_addr", s.remote)

	s.srv.notifier.CaptureException(err, nil, scope)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}

	return *v
}
