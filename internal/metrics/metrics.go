package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Bid outcome label values.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeBusy     = "busy"
	OutcomeError    = "error"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	BidsTotal        *prometheus.CounterVec
	BidLatencyMS     prometheus.Histogram
	AuctionsClosed   prometheus.Counter
	ConnectedClients prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec
	HTTPLatencyMS    *prometheus.HistogramVec
}

// New registers all collectors against reg. Tests pass a private registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BidsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auctra",
			Name:      "bids_total",
			Help:      "Bid placement attempts by outcome.",
		}, []string{"outcome"}),
		BidLatencyMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "auctra",
			Name:      "bid_duration_ms",
			Help:      "Bid placement latency in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
		AuctionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auctra",
			Name:      "auctions_closed_total",
			Help:      "Auctions transitioned from active to closed.",
		}),
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auctra",
			Name:      "websocket_clients",
			Help:      "Currently connected websocket clients.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auctra",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		HTTPLatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "auctra",
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
	}

	reg.MustRegister(
		m.BidsTotal, m.BidLatencyMS, m.AuctionsClosed,
		m.ConnectedClients, m.HTTPRequests, m.HTTPLatencyMS,
	)
	return m
}

// Handler exposes the default registry for the /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}
