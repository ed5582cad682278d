package mq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kycdoc_mq_connection_state",
		Help: "Broker connection state (0 disconnected, 1 connecting, 2 connected, 3 closing)",
	})

	reconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kycdoc_mq_reconnects_total",
		Help: "Total number of background reconnections started after a connection loss",
	})

	publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kycdoc_mq_published_total",
		Help: "Total publish attempts by result",
	}, []string{"result"})

	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kycdoc_mq_deliveries_total",
		Help: "Total deliveries by outcome (ack, requeued, dead_lettered)",
	}, []string{"outcome"})
)
