package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskgate_reports_total",
		Help: "The total number of rating reports processed",
	}, []string{"status"})

	ReportRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskgate_report_rejects_total",
		Help: "Total report ingestion rejections",
	}, []string{"reason"})

	RiskChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskgate_risk_checks_total",
		Help: "Total trade-time policy evaluations",
	}, []string{"mode"})

	SwapsBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskgate_swaps_blocked_total",
		Help: "Total trades rejected by the circuit breaker",
	})

	RatingOverrides = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskgate_rating_overrides_total",
		Help: "Total manual rating overrides (unverified path)",
	})

	FeeBps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "riskgate_fee_bps",
		Help:    "Applied liquidity fee in basis points",
		Buckets: []float64{50, 70, 85, 100, 150, 200, 300, 500},
	})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "riskgate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
