package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"culture_metrics/internal/adapters/observability"
)

// Timeout puts a deadline of d on the request context. Handlers map the
// deadline to a 504 problem; a handler that wrote nothing gets a bare 504.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return chimw.Timeout(d)
}

// recorder keeps the first status written so metrics and logs agree with what
// the client actually received.
type recorder struct {
	http.ResponseWriter
	status int
}

// WriteHeader forwards only the first status; the timeout middleware may try a
// second one after the handler already answered.
func (w *recorder) WriteHeader(code int) {
	if w.status != 0 {
		return
	}
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *recorder) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Observe records one histogram sample and one access log line per request.
// Metrics-bearing responses also log the cache state they were served from.
func Observe(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			took := time.Since(start)
			route := routeOf(r)
			observability.ObserveHTTP(route, r.Method, rec.code(), took)

			ev := l.Info()
			if rec.code() >= http.StatusInternalServerError {
				ev = l.Warn()
			}
			if c := chi.URLParam(r, "company"); c != "" {
				ev = ev.Str("company", c)
			}
			if st := rec.Header().Get(cacheStateHeader); st != "" {
				ev = ev.Str("cache_state", st)
			}
			ev.Str("request_id", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("route", route).
				Int("status", rec.code()).
				Dur("duration", took).
				Str("remote", r.RemoteAddr).
				Str("ua", r.UserAgent()).
				Msg("http_request")
		})
	}
}

// routeOf prefers the chi pattern so metric labels stay bounded; unmatched
// requests collapse into one label.
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
