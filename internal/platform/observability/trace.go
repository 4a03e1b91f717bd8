package observability

import (
	"net/http"
	"strings"

	"github.com/swiftmart/api/internal/platform/requestctx"
)

const traceparentHeader = "traceparent"

// TraceMiddleware extracts W3C traceparent metadata and stores it on the
// request context so logs and error envelopes can carry the trace id.
func TraceMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, ok := parseTraceparent(r.Header.Get(traceparentHeader))
			if ok {
				r = r.WithContext(requestctx.WithTrace(r.Context(), info))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// parseTraceparent handles the version-00 format: 00-<32 hex>-<16 hex>-<2 hex>.
func parseTraceparent(header string) (requestctx.TraceInfo, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return requestctx.TraceInfo{}, false
	}
	parts := strings.Split(header, "-")
	if len(parts) != 4 {
		return requestctx.TraceInfo{}, false
	}
	traceID := strings.ToLower(parts[1])
	spanID := strings.ToLower(parts[2])
	if len(traceID) != 32 || !isHex(traceID) || len(spanID) != 16 || !isHex(spanID) {
		return requestctx.TraceInfo{}, false
	}
	if traceID == strings.Repeat("0", 32) {
		return requestctx.TraceInfo{}, false
	}
	sampled := strings.HasSuffix(parts[3], "1")
	return requestctx.TraceInfo{TraceID: traceID, SpanID: spanID, Sampled: sampled}, true
}

func isHex(value string) bool {
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
