package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"watchdesk/pkg/requestcontext"
)

// ClientMetadata extracts client IP address and User-Agent from the request
// and stores them, plus a short device label, in requestcontext for audit
// events.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), ua)
		ctx = requestcontext.WithDevice(ctx, DeviceLabel(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceLabel summarises a User-Agent as "<browser> <version> on <os>",
// prefixed with "mobile" or "bot" where it applies. Empty input yields "".
func DeviceLabel(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	name, version := ua.Browser()

	var b strings.Builder
	switch {
	case ua.Bot():
		b.WriteString("bot ")
	case ua.Mobile():
		b.WriteString("mobile ")
	}
	b.WriteString(name)
	if version != "" {
		b.WriteString(" " + version)
	}
	if os := ua.OS(); os != "" {
		b.WriteString(" on " + os)
	}
	return strings.TrimSpace(b.String())
}

// ClientIPFromRequest extracts the real client IP, honouring proxy headers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For may hold "client, proxy1, proxy2"; the first is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" or "[::1]:port".
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}

	return "unknown"
}
