package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the ad server.
type Metrics struct {
	// Delivery metrics
	DeliveryRequests *prometheus.CounterVec
	DeliveryLatency  *prometheus.HistogramVec
	BannersServed    *prometheus.CounterVec
	EmptyDeliveries  *prometheus.CounterVec

	// Tracking metrics
	Impressions *prometheus.CounterVec
	Clicks      *prometheus.CounterVec

	// Frequency cap metrics
	FreqCapRejections *prometheus.CounterVec

	// Admin metrics
	AdminRequests *prometheus.CounterVec
	AdminErrors   *prometheus.CounterVec

	// Inventory gauges
	ActiveBanners    prometheus.Gauge
	ActivePlacements prometheus.Gauge

	// Storage metrics
	StoreLatency *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Geo metrics
	GeoLookupLatency *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		DeliveryRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delivery_requests_total",
				Help:      "Total banner delivery requests",
			},
			[]string{"placement_id", "device"},
		),
		DeliveryLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "delivery_latency_seconds",
				Help:      "Delivery selection latency in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
			[]string{"placement_id"},
		),
		BannersServed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "banners_served_total",
				Help:      "Total banners returned by delivery",
			},
			[]string{"placement_id", "rotation"},
		),
		EmptyDeliveries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "empty_deliveries_total",
				Help:      "Delivery requests that returned no banners",
			},
			[]string{"placement_id"},
		),

		Impressions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "impressions_total",
				Help:      "Total recorded impressions",
			},
			[]string{"placement_id"},
		),
		Clicks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "clicks_total",
				Help:      "Total recorded clicks",
			},
			[]string{"placement_id"},
		),

		FreqCapRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "freq_cap_rejections_total",
				Help:      "Banners withheld due to session frequency caps",
			},
			[]string{"banner_id"},
		),

		AdminRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_requests_total",
				Help:      "Admin API requests by entity and method",
			},
			[]string{"entity", "method"},
		),
		AdminErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_errors_total",
				Help:      "Admin API errors by kind",
			},
			[]string{"entity", "kind"},
		),

		ActiveBanners: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_banners",
				Help:      "Number of banners currently in active status",
			},
		),
		ActivePlacements: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_placements",
				Help:      "Number of configured placements",
			},
		),

		StoreLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_latency_seconds",
				Help:      "Document store operation latency",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"store", "op"},
		),

		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"endpoint", "ip"},
		),

		GeoLookupLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "geo_lookup_latency_seconds",
				Help:      "GeoIP lookup latency",
				Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01},
			},
			[]string{"cache_hit"},
		),
	}
	return m
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDelivery records one delivery request and its outcome.
func (m *Metrics) RecordDelivery(placementID, device, rotation string, served int, latency time.Duration) {
	m.DeliveryRequests.WithLabelValues(placementID, device).Inc()
	m.DeliveryLatency.WithLabelValues(placementID).Observe(latency.Seconds())
	if served == 0 {
		m.EmptyDeliveries.WithLabelValues(placementID).Inc()
		return
	}
	m.BannersServed.WithLabelValues(placementID, rotation).Add(float64(served))
}

// RecordImpression records a tracked impression.
func (m *Metrics) RecordImpression(placementID string) {
	m.Impressions.WithLabelValues(placementID).Inc()
}

// RecordClick records a tracked click.
func (m *Metrics) RecordClick(placementID string) {
	m.Clicks.WithLabelValues(placementID).Inc()
}

// RecordFreqCapRejection records a banner withheld by its frequency cap.
func (m *Metrics) RecordFreqCapRejection(bannerID string) {
	m.FreqCapRejections.WithLabelValues(bannerID).Inc()
}

// RecordAdminRequest records an admin API call.
func (m *Metrics) RecordAdminRequest(entity, method string) {
	m.AdminRequests.WithLabelValues(entity, method).Inc()
}

// RecordAdminError records an admin API error by kind.
func (m *Metrics) RecordAdminError(entity, kind string) {
	m.AdminErrors.WithLabelValues(entity, kind).Inc()
}

// UpdateInventoryCounts updates the active banner and placement gauges.
func (m *Metrics) UpdateInventoryCounts(banners, placements int) {
	m.ActiveBanners.Set(float64(banners))
	m.ActivePlacements.Set(float64(placements))
}

// RecordStoreOp records a document store operation.
func (m *Metrics) RecordStoreOp(store, op string, latency time.Duration) {
	m.StoreLatency.WithLabelValues(store, op).Observe(latency.Seconds())
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(endpoint, ip string) {
	m.RateLimitHits.WithLabelValues(endpoint, ip).Inc()
}

// RecordGeoLookup records a geo lookup.
func (m *Metrics) RecordGeoLookup(cacheHit bool, latency time.Duration) {
	hit := "false"
	if cacheHit {
		hit = "true"
	}
	m.GeoLookupLatency.WithLabelValues(hit).Observe(latency.Seconds())
}
