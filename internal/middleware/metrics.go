package middleware

import (
	"crypto/subtle"
	"net/http"
)

// metricsRealm is the basic-auth realm announced for the scrape endpoint.
const metricsRealm = `Basic realm="devismail metrics"`

// MetricsAuthMiddleware guards the Prometheus scrape endpoint with HTTP
// basic auth. The scrape credentials come from METRICS_USERNAME and
// METRICS_PASSWORD; leaving both empty disables auth for local
// development.
type MetricsAuthMiddleware struct {
	username string
	password string
}

// NewMetricsAuthMiddleware creates a new metrics auth middleware.
func NewMetricsAuthMiddleware(username, password string) *MetricsAuthMiddleware {
	return &MetricsAuthMiddleware{
		username: username,
		password: password,
	}
}

// Handler returns middleware that requires the scrape credentials.
func (m *MetricsAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.username == "" && m.password == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()

		// Both comparisons always run, in constant time.
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(m.username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(m.password)) == 1

		if !ok || !userOK || !passOK {
			w.Header().Set("WWW-Authenticate", metricsRealm)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
