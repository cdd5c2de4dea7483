// Package obs holds the process-wide logging and Prometheus setup.
package obs

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Auction metrics
var (
	bidsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_bids_total",
			Help: "Bids processed, by result.",
		},
		[]string{"result"},
	)

	nominationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_nominations_total",
			Help: "Nominations processed, by result.",
		},
		[]string{"result"},
	)

	settlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_settlements_total",
			Help: "Settled schools, by outcome and trigger.",
		},
		[]string{"outcome", "trigger"},
	)

	eventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_events_published_total",
			Help: "Events handed to a broadcast sink, by sink and result.",
		},
		[]string{"sink", "result"},
	)

	activeAuctions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "auction_active",
		Help: "Auctions that have not completed.",
	})

	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "auction_websocket_connections",
		Help: "Open WebSocket subscriber connections.",
	})

	outboxPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "auction_outbox_batch_size",
		Help: "Unsent outbox rows picked up by the last relay pass.",
	})
)

var registerOnce sync.Once

// Init registers all metrics with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			bidsTotal, nominationsTotal, settlementsTotal, eventsPublishedTotal,
			activeAuctions, wsConnections, outboxPending,
		)
	})
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveBid counts a bid attempt. result is "accepted" or the rejection kind.
func ObserveBid(result string) { bidsTotal.WithLabelValues(result).Inc() }

// ObserveNomination counts a nomination attempt.
func ObserveNomination(result string) { nominationsTotal.WithLabelValues(result).Inc() }

// ObserveSettlement counts a settled school.
func ObserveSettlement(outcome, trigger string) {
	settlementsTotal.WithLabelValues(outcome, trigger).Inc()
}

// ObservePublish counts an event delivery attempt to a sink.
func ObservePublish(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	eventsPublishedTotal.WithLabelValues(sink, result).Inc()
}

// ObserveDrop counts an event the sink never saw.
func ObserveDrop(sink string) {
	eventsPublishedTotal.WithLabelValues(sink, "dropped").Inc()
}

// AuctionOpened and AuctionClosed track the active auction gauge.
func AuctionOpened() { activeAuctions.Inc() }
func AuctionClosed() { activeAuctions.Dec() }

// ConnectionOpened and ConnectionClosed track WebSocket subscribers.
func ConnectionOpened() { wsConnections.Inc() }
func ConnectionClosed() { wsConnections.Dec() }

// SetOutboxBatch records how many rows the relay picked up.
func SetOutboxBatch(n int) { outboxPending.Set(float64(n)) }

// Instrument wraps a handler with request count, latency and in-flight metrics.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses per-auction REST paths so label cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	const prefix = "/api/auctions/"
	if rest, ok := strings.CutPrefix(path, prefix); ok {
		parts := strings.Split(rest, "/")
		if len(parts) == 2 && parts[0] != "" && parts[1] == "state" {
			return prefix + ":id/state"
		}
	}
	return path
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the instrumented writer.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.code = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
