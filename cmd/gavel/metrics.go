package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var updatesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gavel_updates_received",
	Help: "Number of updates received from the long-poll loop",
}, []string{"kind"})

var pollErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gavel_poll_errors",
	Help: "Number of failed getUpdates polls",
})
