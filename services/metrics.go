package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var toggleTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "feed_toggle_total",
		Help: "Total number of committed like/follow toggles by resulting state",
	},
	[]string{"relation", "result"},
)

func recordToggle(relation string, active bool) {
	result := "off"
	if active {
		result = "on"
	}
	toggleTotal.WithLabelValues(relation, result).Inc()
}
