package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	loginFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_login_failures_total",
		Help: "Failed admin credential checks.",
	})

	lockoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_lockouts_total",
		Help: "Times the admin gate entered the locked state.",
	})

	commitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_payment_commits_total",
			Help: "Payment reconciliation commits by result.",
		},
		[]string{"result"},
	)
)

// Init registers the metrics with the default registry. Call once from main.
func Init() {
	prometheus.MustRegister(loginFailuresTotal, lockoutsTotal, commitsTotal)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// LoginFailure counts one failed credential check.
func LoginFailure() { loginFailuresTotal.Inc() }

// Lockout counts one transition into the locked state.
func Lockout() { lockoutsTotal.Inc() }

// Commit counts one commit attempt with its result ("ok", "rejected", "network_error").
func Commit(result string) { commitsTotal.WithLabelValues(result).Inc() }
