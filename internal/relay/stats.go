package relay

import "sync/atomic"

type stats struct {
	accepted      atomic.Int64
	active        atomic.Int64
	handshakes    atomic.Int64
	forwarded     atomic.Int64
	forwardFailed atomic.Int64
	malformed     atomic.Int64
	unrecognized  atomic.Int64
}

// Stats is a point-in-time copy of relay counters.
type Stats struct {
	Accepted      int64
	Active        int64
	Handshakes    int64
	Forwarded     int64
	ForwardFailed int64
	Malformed     int64
	Unrecognized  int64
}

func (s *stats) snapshot() Stats {
	return Stats{
		Accepted:      s.accepted.Load(),
		Active:        s.active.Load(),
		Handshakes:    s.handshakes.Load(),
		Forwarded:     s.forwarded.Load(),
		ForwardFailed: s.forwardFailed.Load(),
		Malformed:     s.malformed.Load(),
		Unrecognized:  s.unrecognized.Load(),
	}
}
