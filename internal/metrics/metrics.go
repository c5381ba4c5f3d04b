// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LogEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "admin_history",
		Name:      "log_entries_total",
		Help:      "Admin log entries written, by action.",
	}, []string{"action"})

	RenderFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "admin_history",
		Name:      "render_fallbacks_total",
		Help:      "Stored change messages shown as raw text because they could not be parsed.",
	})
)
