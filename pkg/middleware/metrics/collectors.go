package metrics

import "github.com/prometheus/client_golang/prometheus"

// Dispatch outcomes, used as the outcome label of dispatch_total.
const (
	OutcomeHandled  = "handled"
	OutcomeFallback = "fallback"
	OutcomeNotFound = "not_found"
	OutcomeFault    = "fault"
)

var (
	responseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "response_time",
			Help:    "http response time.",
			Buckets: []float64{0.005, 0.05, 0.5, 1, 5, 10, 30, 60},
		},
	)

	totalHttpRequestsToUri = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests_to_uri", Help: "http requests to uri"},
		[]string{"code", "uri", "method"},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests", Help: "http requests by code, and method"},
		[]string{"code", "method"},
	)

	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dispatch_total", Help: "dispatched requests by controller, method and outcome"},
		[]string{"controller", "method", "outcome"},
	)

	dispatchFaults = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dispatch_faults_total", Help: "handler invocations that raised a fault"},
	)

	compileDiagnostics = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "compile_diagnostics_total", Help: "compile diagnostics by severity"},
		[]string{"severity"},
	)
)

func init() {
	prometheus.MustRegister(
		responseTime,
		totalHttpRequestsToUri,
		totalHttpRequests,
		dispatchTotal,
		dispatchFaults,
		compileDiagnostics,
	)
}

// ObserveDispatch records the outcome of one dispatched request. Controller and
// method come from the request path, so callers should pass the resolved names only
// for routes that exist.
func ObserveDispatch(controller, method, outcome string) {
	dispatchTotal.WithLabelValues(controller, method, outcome).Inc()
	if outcome == OutcomeFault {
		dispatchFaults.Inc()
	}
}

// ObserveDiagnostics adds n diagnostics of the given severity ("warning" or "error").
func ObserveDiagnostics(severity string, n int) {
	if n > 0 {
		compileDiagnostics.WithLabelValues(severity).Add(float64(n))
	}
}
