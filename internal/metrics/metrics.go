package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fenestra_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fenestra_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LeadsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fenestra_leads_created_total",
			Help: "Total number of leads created by buyers.",
		},
	)

	SlotsSoldTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fenestra_slots_sold_total",
			Help: "Total number of lead slots sold across all purchases.",
		},
	)

	PurchaseRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fenestra_purchase_rejections_total",
			Help: "Total number of rejected purchase attempts by reason.",
		},
		[]string{"reason"},
	)

	QuotaResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fenestra_quota_resets_total",
			Help: "Total number of monthly free-quota resets performed.",
		},
	)

	FreeQuotaSqftAppliedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fenestra_free_quota_sqft_applied_total",
			Help: "Total free-quota sqft applied against lead purchases.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		LeadsCreatedTotal,
		SlotsSoldTotal,
		PurchaseRejectionsTotal,
		QuotaResetsTotal,
		FreeQuotaSqftAppliedTotal,
	)
}
