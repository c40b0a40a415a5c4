package collection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var counterRatesStored = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "ratesbot",
		Subsystem: "collection",
		Name:      "rates_stored_total",
	},
)

func observeStored() {
	counterRatesStored.Inc()
}
