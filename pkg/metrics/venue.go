package metrics

import "github.com/prometheus/client_golang/prometheus"

var VenueRequestsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mangogate_venue_requests_total",
		Help: "number of venue calls issued, by call name and result",
	}, []string{"call", "result"})

var VenueRequestDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "mangogate_venue_request_duration_seconds",
		Help:    "venue call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2.0, 12),
	}, []string{"call"})

var AccountsCreatedMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mangogate_accounts_created_total",
		Help: "number of isolated-margin accounts created on the venue",
	}, []string{"group"})

var OrdersSubmittedMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mangogate_orders_submitted_total",
		Help: "number of order operations submitted, by operation kind",
	}, []string{"kind"})

var ConnectorInstancesMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "mangogate_connector_instances",
		Help: "number of live connector instances in the registry",
	})

func init() {
	prometheus.MustRegister(
		VenueRequestsMetric,
		VenueRequestDurationMetric,
		AccountsCreatedMetric,
		OrdersSubmittedMetric,
		ConnectorInstancesMetric,
	)
}
