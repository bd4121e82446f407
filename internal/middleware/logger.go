// Package middleware provides reusable HTTP middleware for the servers.
package middleware

import (
	"log"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// wrappedWriter captures the status code and body size written by downstream handlers.
type wrappedWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (rw *wrappedWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *wrappedWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Logger logs method, path, status code, response size, duration and the
// request id assigned by chi's RequestID middleware.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &wrappedWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)
		log.Printf("[%s] %s %s %d %dB %s", chiMiddleware.GetReqID(r.Context()), r.Method, r.URL.Path, ww.statusCode, ww.bytes, time.Since(start))
	})
}
