package daemon

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theirongolddev/chainfund/internal/model"
)

// Metrics holds the daemon's Prometheus collectors. Each service owns its
// registry so several services can coexist in one process.
type Metrics struct {
	reg *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	polls             *prometheus.CounterVec
	pollDuration      prometheus.Histogram
	campaigns         *prometheus.GaugeVec
	loans             *prometheus.GaugeVec
}

// NewMetrics creates and registers the daemon collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chainfund_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chainfund_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chainfund_polls_total",
			Help: "Ledger polls by result.",
		}, []string{"result"}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chainfund_poll_duration_seconds",
			Help:    "Histogram of full ledger refresh durations.",
			Buckets: prometheus.DefBuckets,
		}),
		campaigns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chainfund_campaigns",
			Help: "Campaigns in the last snapshot by state (open, ended).",
		}, []string{"state"}),
		loans: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chainfund_loans",
			Help: "Loans in the last snapshot by stage.",
		}, []string{"stage"}),
	}

	m.reg.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.polls,
		m.pollDuration,
		m.campaigns,
		m.loans,
	)
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Flush keeps the event stream working behind the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// WrapHandler counts and times requests to route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Poll records one refresh attempt.
func (m *Metrics) Poll(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.polls.WithLabelValues(result).Inc()
	m.pollDuration.Observe(d.Seconds())
}

// Observe publishes the gauges for snap.
func (m *Metrics) Observe(snap Snapshot) {
	if m == nil {
		return
	}
	m.campaigns.WithLabelValues("open").Set(float64(snap.OpenCampaigns))
	m.campaigns.WithLabelValues("ended").Set(float64(snap.Campaigns - snap.OpenCampaigns))
	for _, stage := range []model.LoanStage{model.StagePending, model.StageActive, model.StageRepaid, model.StageDefaulted, model.StageUnknown} {
		m.loans.WithLabelValues(string(stage)).Set(float64(snap.LoansByStage[stage]))
	}
}
