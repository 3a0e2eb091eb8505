package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/muurk/serlink/internal/logging"
)

// requestLogger logs one line per request through the logging package.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, status,
				ww.BytesWritten(), time.Since(start), middleware.GetReqID(r.Context()))
		}()

		next.ServeHTTP(ww, r)
	})
}

// noCache mirrors the page's cache meta tags in the response headers.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}
