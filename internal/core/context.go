package core

import "context"

type contextKey int

const (
	ctxKeyIPAddress contextKey = iota
	ctxKeyUserAgent
)

// WithClientInfo attaches the caller's IP address and User-Agent so a run
// can record where it came from.
func WithClientInfo(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyIPAddress, ip)
	return context.WithValue(ctx, ctxKeyUserAgent, userAgent)
}

// IPAddressFromContext returns the IP stored by WithClientInfo.
func IPAddressFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyIPAddress).(string)
	return v
}

// UserAgentFromContext returns the User-Agent stored by WithClientInfo.
func UserAgentFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserAgent).(string)
	return v
}
