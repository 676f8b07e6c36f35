package fcontext

import (
	"context"
)

type requestID struct{}

type sessionID struct{}

type remoteAddr struct{}

// WithRequestID adds request id to ctx
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestID{}, rid)
}

// RequestID gets request id from context.
func RequestID(ctx context.Context) string {
	rid, _ := ctx.Value(requestID{}).(string)
	return rid
}

// WithSessionID adds device session id to ctx.
func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sessionID{}, sid)
}

// SessionID gets device session id from context.
func SessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sessionID{}).(string)
	return sid
}

// WithRemoteAddr adds remote address of the device connection to ctx.
func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, remoteAddr{}, addr)
}

// RemoteAddr gets remote address of the device connection from context.
func RemoteAddr(ctx context.Context) string {
	addr, _ := ctx.Value(remoteAddr{}).(string)
	return addr
}
