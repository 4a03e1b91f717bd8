package observability

import (
	"net/http"
	"strings"
)

// SanitizeMethod normalises an HTTP method for log output.
func SanitizeMethod(method string) string {
	method = strings.ToUpper(strings.TrimSpace(method))
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return method
	default:
		return "OTHER"
	}
}

// SanitizeRoute strips control characters and bounds the length of a route pattern.
func SanitizeRoute(route string) string {
	return sanitizeString(route, 256)
}

// SanitizeUserID bounds user identifiers before they reach log output.
func SanitizeUserID(uid string) string {
	return sanitizeString(uid, 128)
}

func sanitizeString(value string, limit int) string {
	value = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, value)
	value = strings.TrimSpace(value)
	if limit > 0 && len(value) > limit {
		value = value[:limit]
	}
	return value
}
