// Package monitoring exposes Prometheus metrics for the API and poller
// binaries on a dedicated registry, so default Go runtime collectors from
// other libraries never leak into the scrape.
package monitoring

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	HTTPRequests *prometheus.CounterVec // route, status labels

	PredictionsServed prometheus.Counter
	PredictionsEmpty  prometheus.Counter

	RowsIngested prometheus.Counter
	RowsSkipped  prometheus.Counter

	PollDuration    prometheus.Histogram
	SnapshotRecords prometheus.Gauge

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delays_http_requests_total",
			Help: "Total HTTP requests served, by route and status class.",
		}, []string{"route", "status"}),
		PredictionsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delays_predictions_served_total",
			Help: "Total predictions computed and returned.",
		}),
		PredictionsEmpty: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delays_predictions_empty_total",
			Help: "Total prediction requests with insufficient history.",
		}),
		RowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delays_rows_ingested_total",
			Help: "Total stop time rows written to the history store.",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delays_rows_skipped_total",
			Help: "Total stop time rows skipped as stale or duplicate.",
		}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "delays_poll_duration_seconds",
			Help:    "Duration of one trip updates poll cycle.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		SnapshotRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "delays_session_snapshot_records",
			Help: "Record count of the most recently built prediction session.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delays_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delays_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "delays_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
	}

	// Register
	reg.MustRegister(
		c.HTTPRequests,
		c.PredictionsServed, c.PredictionsEmpty,
		c.RowsIngested, c.RowsSkipped,
		c.PollDuration, c.SnapshotRecords,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
	)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// NATSPublishedInc, NATSPublishErrInc and NATSSetConnected satisfy the
// publisher's metrics interface.
func (c *Collector) NATSPublishedInc()  { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

// RowsIngestedAdd and RowsSkippedAdd satisfy the poller's metrics
// interface.
func (c *Collector) RowsIngestedAdd(n int) { c.RowsIngested.Add(float64(n)) }
func (c *Collector) RowsSkippedAdd(n int)  { c.RowsSkipped.Add(float64(n)) }

// ObservePoll records one poll cycle duration.
func (c *Collector) ObservePoll(started time.Time) {
	c.PollDuration.Observe(time.Since(started).Seconds())
}

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
