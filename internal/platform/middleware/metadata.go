package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"dojotrack/pkg/requestcontext"
)

// ClientMetadata extracts client IP, raw User-Agent, and a parsed device name
// from the request and adds them to the context. Audit events attach these so
// security review can tell a browser link flow from a scripted one.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawUA := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(
			r.Context(),
			clientIPFromRequest(r),
			rawUA,
			deviceNameFromUA(rawUA),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIPFromRequest(r *http.Request) string {
	// First hop in X-Forwarded-For is the original client when behind the
	// edge proxy.
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func deviceNameFromUA(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	browser, version := ua.Browser()
	parts := make([]string, 0, 3)
	if browser != "" {
		if version != "" {
			browser += " " + version
		}
		parts = append(parts, browser)
	}
	if os := ua.OS(); os != "" {
		parts = append(parts, os)
	}
	if ua.Mobile() {
		parts = append(parts, "mobile")
	}
	return strings.Join(parts, ", ")
}
