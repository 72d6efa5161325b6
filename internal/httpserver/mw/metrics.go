package mw

import (
	"net/http"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/beacon/internal/metrics"
)

// Metrics records request counts, latencies and in-flight requests.
// A nil registry disables it.
func Metrics(m *metrics.Registry) func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inFlight := m.HTTPRequestsInFlight.WithLabelValues(r.Method)
			inFlight.Inc()
			defer inFlight.Dec()

			start := time.Now()
			ww := &statusWriter{ResponseWriter: w}

			next.ServeHTTP(ww, r)

			// The pattern is known only after routing.
			endpoint := routePattern(r)
			m.HTTPRequestsTotal.WithLabelValues(endpoint, r.Method, strconv.Itoa(ww.code())).Inc()
			m.HTTPRequestDuration.WithLabelValues(endpoint, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
