package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kycdoc_documents_generated_total",
		Help: "Total number of documents generated and persisted",
	})

	startFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kycdoc_worker_start_failures_total",
		Help: "Total number of failed consumer start attempts",
	})
)
