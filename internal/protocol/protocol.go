/*
Package protocol classifies and parses what attendance terminals send over
the push port.

Terminals mix two kinds of messages on the same socket: an HTTP-like GET
request announcing the device, and a bare key-value attendance telegram:

	GET /iclock/cdata?SN=ABC123&options=all&language=69&pushver=2.3.34
	PIN=202501201;VERIFYMODE=1;TIMESTAMP=2025-02-11 10:30:00

Everything here is a pure function of the buffered bytes.
*/
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ferux/attendancebridge/internal/model"
	"github.com/ferux/attendancebridge/internal/templates"
)

// Kind of buffered message.
type Kind uint8

const (
	// KindIncomplete means more bytes are needed before classifying.
	KindIncomplete Kind = iota
	KindUnrecognized
	KindHandshake
	KindAttendance
)

func (k Kind) String() string {
	switch k {
	case KindIncomplete:
		return "incomplete"
	case KindUnrecognized:
		return "unrecognized"
	case KindHandshake:
		return "handshake"
	case KindAttendance:
		return "attendance"
	default:
		return "undefined"
	}
}

const (
	handshakePrefix = "GET"
	attendanceMark  = "PIN="
)

var attendanceRe = regexp.MustCompile(`PIN=(\d+);VERIFYMODE=(\d+);TIMESTAMP=(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`)

// Classify decides what buf holds. A buffer starting with GET is a handshake
// only once its request line is terminated; a strict prefix of GET waits for
// more data. A telegram that does not match yet waits for more data until a
// line terminator arrives.
func Classify(buf []byte) Kind {
	if len(buf) < len(handshakePrefix) && bytes.HasPrefix([]byte(handshakePrefix), buf) {
		return KindIncomplete
	}

	if bytes.HasPrefix(buf, []byte(handshakePrefix)) {
		if bytes.IndexByte(buf, '\n') < 0 {
			return KindIncomplete
		}

		return KindHandshake
	}

	if bytes.Contains(buf, []byte(attendanceMark)) {
		if !attendanceRe.Match(buf) && bytes.IndexByte(buf, '\n') < 0 {
			return KindIncomplete
		}

		return KindAttendance
	}

	return KindUnrecognized
}

// Message is a classified and parsed buffer. Err is set when buffer looked
// like Kind but could not be parsed. Warn is set when it was parsed only
// partially and can still be handled.
type Message struct {
	Kind       Kind
	Handshake  model.HandshakeMessage
	Attendance model.AttendanceRecord
	Err        error
	Warn       error
}

// Parse classifies buf and parses it according to its kind.
func Parse(buf []byte) Message {
	msg := Message{Kind: Classify(buf)}

	switch msg.Kind {
	case KindHandshake:
		var err error

		msg.Handshake, err = ParseHandshake(string(buf))
		if errors.Is(err, model.ErrHandshakeQuery) {
			msg.Warn = err
		} else {
			msg.Err = err
		}
	case KindAttendance:
		msg.Attendance, msg.Err = ParseAttendance(string(buf))
	}

	return msg
}

// ParseHandshake reads SN, options, language and pushver from the query of
// the request line. Unknown keys are ignored, missing keys stay nil, a target
// without query gives no keys at all. Pairs that can not be decoded are
// skipped and reported with ErrHandshakeQuery while hs keeps everything else.
func ParseHandshake(raw string) (hs model.HandshakeMessage, err error) {
	line := raw
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}

	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != handshakePrefix {
		return hs, fmt.Errorf("request line %q: %w", line, model.ErrMalformedHandshake)
	}

	var rawQuery string

	target := fields[1]
	if idx := strings.IndexByte(target, '?'); idx >= 0 {
		rawQuery = target[idx+1:]
	}

	query, errQuery := url.ParseQuery(rawQuery)

	hs.DeviceSerialNumber = lookup(query, "SN")
	hs.Options = lookup(query, "options")
	hs.Language = lookup(query, "language")
	hs.PushVersion = lookup(query, "pushver")

	if errQuery != nil {
		return hs, fmt.Errorf("parsing query: %v: %w", errQuery, model.ErrHandshakeQuery)
	}

	return hs, nil
}

func lookup(query url.Values, key string) *string {
	values, ok := query[key]
	if !ok || len(values) == 0 {
		return nil
	}

	value := values[0]

	return &value
}

// ParseAttendance extracts PIN, VERIFYMODE and TIMESTAMP. The returned
// record has no device serial yet.
func ParseAttendance(raw string) (rec model.AttendanceRecord, err error) {
	match := attendanceRe.FindStringSubmatch(raw)
	if match == nil {
		return rec, model.ErrMalformedAttendance
	}

	return model.AttendanceRecord{
		EmployeeCode: match[1],
		VerifyMode:   model.VerifyModeFromCode(match[2]),
		Timestamp:    match[3],
	}, nil
}

// HandshakeAck is the reply to a handshake.
func HandshakeAck() []byte {
	return []byte(templates.HandshakeAck())
}

// AttendanceAck is the reply to a forwarded attendance telegram.
func AttendanceAck() []byte {
	return []byte(templates.AttendanceAck())
}
