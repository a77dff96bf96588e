package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	loadsTotal   *prometheus.CounterVec
	rowsTotal    *prometheus.CounterVec
	tickers      prometheus.Gauge
	latency      *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		loadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_loads_total",
				Help: "Total number of data source loads by result",
			},
			[]string{"source", "result"},
		),
		rowsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_rows_total",
				Help: "Total number of rows read, by parse outcome",
			},
			[]string{"outcome"},
		),
		tickers: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "screener_tickers",
				Help: "Number of tickers passing the active filters",
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "screener_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// RecordLoad counts one load attempt.
func (r *Recorder) RecordLoad(source, result string) {
	r.loadsTotal.WithLabelValues(source, result).Inc()
}

// RecordRows adds parsed and rejected row counts.
func (r *Recorder) RecordRows(parsed, rejected int) {
	r.rowsTotal.WithLabelValues("parsed").Add(float64(parsed))
	r.rowsTotal.WithLabelValues("rejected").Add(float64(rejected))
}

// RecordTickers sets the size of the latest ticker list.
func (r *Recorder) RecordTickers(n int) {
	r.tickers.Set(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordHTTPRequest counts one served HTTP request.
func (r *Recorder) RecordHTTPRequest(method, route, status string) {
	r.httpRequests.WithLabelValues(method, route, status).Inc()
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordLoad(string, string)        {}
func (Nop) RecordRows(int, int)              {}
func (Nop) RecordTickers(int)                {}
func (Nop) RecordLatency(string, float64)    {}
func (Nop) RecordHTTPRequest(_, _, _ string) {}
