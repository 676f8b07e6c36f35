package model

import "encoding/json"

type ServiceError struct {
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	Code int `json:"-"`
}

func (err ServiceError) Error() string {
	data, _ := json.Marshal(&err)

	return string(data)
}

type Error string

func (err Error) Error() string {
	return string(err)
}

const (
	ErrNotFound         Error = "not found"
	ErrMissingParameter Error = "missing parameter"
	ErrInvalidParameter Error = "invalid parameter"

	ErrMalformedHandshake  Error = "malformed handshake"
	ErrHandshakeQuery      Error = "partially parsed handshake query"
	ErrMalformedAttendance Error = "malformed attendance telegram"
	ErrMessageTooLarge     Error = "message too large"

	ErrMarshal         Error = "building request body"
	ErrTransport       Error = "upstream unreachable"
	ErrWrongStatusCode Error = "wrong status code"
)
