package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordLoad("file", "ok")
	r.RecordLoad("file", "ok")
	r.RecordLoad("file", "error")
	r.RecordRows(10, 2)
	r.RecordTickers(4)
	r.RecordLatency("list_tickers", 0.01)
	r.RecordHTTPRequest("GET", "/api/tickers", "200")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.loadsTotal.WithLabelValues("file", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.loadsTotal.WithLabelValues("file", "error")))
	assert.Equal(t, 10.0, testutil.ToFloat64(r.rowsTotal.WithLabelValues("parsed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.rowsTotal.WithLabelValues("rejected")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.tickers))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("GET", "/api/tickers", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}

func TestRegistriesAreIndependent(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegistry(prometheus.NewRegistry())
		NewWithRegistry(prometheus.NewRegistry())
	})
}
