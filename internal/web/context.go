package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/casesync/internal/core"
)

// withRequestMetadata attaches the client IP and User-Agent for run history.
// RemoteAddr has already been rewritten by TrustedRealIP.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return core.WithClientInfo(ctx, ip, r.UserAgent())
}
