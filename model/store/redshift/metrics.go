package redshift

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricStatusSuccess     = "success"
	metricStatusUnsupported = "unsupported_condition"
	metricStatusMalformed   = "malformed_request"
	metricStatusError       = "error"
)

var (
	viewCompilations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "explore",
		Name:      "view_compilations_total",
		Help:      "Total number of analysis view compilations by analysis kind and status.",
	}, []string{"kind", "status"})

	viewSQLBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "explore",
		Name:      "view_sql_bytes",
		Help:      "Size of the compiled view statements.",
		Buckets:   prometheus.ExponentialBuckets(1024, 2, 10),
	}, []string{"kind"})
)
