package forwarder

import (
	"context"

	"github.com/ferux/attendancebridge/internal/model"
)

// Signer computes validationToken for a record. Empty token leaves the field
// out of the request.
type Signer interface {
	Sign(ctx context.Context, rec model.AttendanceRecord) (string, error)
}

// SignerFunc adapts a function to Signer.
type SignerFunc func(ctx context.Context, rec model.AttendanceRecord) (string, error)

func (fn SignerFunc) Sign(ctx context.Context, rec model.AttendanceRecord) (string, error) {
	return fn(ctx, rec)
}

// NopSigner never produces a token.
type NopSigner struct{}

func (NopSigner) Sign(context.Context, model.AttendanceRecord) (string, error) {
	return "", nil
}
