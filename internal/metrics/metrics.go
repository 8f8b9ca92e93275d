// Package metrics exposes the DTPG driver's per-run counters as Prometheus
// collectors: detected/undetectable/aborted fault counts and CNF generation
// latency, the instrumentation-side counterpart of the
// github.com/prometheus/client_golang dependency the rest of the retrieval
// pack only exercises as a query client (jhkimqd-chaos-utils's
// pkg/monitoring/prometheus.Client reads a running Prometheus server; this
// package is what that server would be scraping).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors holds every metric a Driver run reports, named after the
// teacher-adjacent vocabulary (mDetCount/mRedCount/mAbortCount/mCnfGenTime)
// spec.md §9's stats section expects a DTPG manager to track.
type Collectors struct {
	DetCount   prometheus.Counter
	UntestCount prometheus.Counter
	AbortCount prometheus.Counter
	CnfGenTime prometheus.Histogram
	CnfClauses prometheus.Histogram
}

// NewCollectors registers a fresh set of collectors against reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests, multiple
// concurrent runs) or prometheus.DefaultRegisterer to expose on the global
// /metrics endpoint.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		DetCount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "fanatpg",
			Subsystem: "dtpg",
			Name:      "detected_faults_total",
			Help:      "Faults for which a test pattern was found.",
		}),
		UntestCount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "fanatpg",
			Subsystem: "dtpg",
			Name:      "untestable_faults_total",
			Help:      "Faults whose propagation CNF was proven UNSAT.",
		}),
		AbortCount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "fanatpg",
			Subsystem: "dtpg",
			Name:      "aborted_faults_total",
			Help:      "Faults the SAT solver gave up on (conflict budget exceeded).",
		}),
		CnfGenTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fanatpg",
			Subsystem: "structenc",
			Name:      "cnf_build_seconds",
			Help:      "Wall-clock CNF build time of one DTPG run, summed over its PropCones.",
			Buckets:   prometheus.DefBuckets,
		}),
		CnfClauses: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fanatpg",
			Subsystem: "structenc",
			Name:      "cnf_clauses",
			Help:      "Clause count of one DTPG run's whole CNF, as reported by its solver.",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 12),
		}),
	}
}

// Handler returns the HTTP handler to serve on --metrics-addr.
func Handler() http.Handler { return promhttp.Handler() }
