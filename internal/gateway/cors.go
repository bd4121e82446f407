package gateway

import "net/http"

// fallbackOrigin is echoed to any requester not on the allow-list.
const fallbackOrigin = "https://ebluvu.github.io"

// allowedOrigins is the fixed CORS allow-list: the production widget host
// plus the local Live Server ports used during development.
var allowedOrigins = map[string]struct{}{
	"https://ebluvu.github.io": {},
	"http://127.0.0.1:5500":    {},
	"http://localhost:5500":    {},
	"http://127.0.0.1:5501":    {},
	"http://localhost:5501":    {},
}

const (
	allowMethods = "GET, POST, DELETE, OPTIONS"
	allowHeaders = "Content-Type"
)

// allowOrigin returns the exact origin when allow-listed, otherwise the fallback.
func allowOrigin(origin string) string {
	if _, ok := allowedOrigins[origin]; ok {
		return origin
	}
	return fallbackOrigin
}

// setCORS writes the CORS headers for a request from origin.
func setCORS(h http.Header, origin string) {
	h.Set("Access-Control-Allow-Origin", allowOrigin(origin))
	h.Set("Access-Control-Allow-Methods", allowMethods)
	h.Set("Access-Control-Allow-Headers", allowHeaders)
}
