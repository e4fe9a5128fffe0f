package modqueue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var itemsAdded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modqueue_items_added",
	Help: "Number of pending items added to the queue",
})

var itemsEvicted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modqueue_items_evicted",
	Help: "Number of items evicted by age-based cleanup",
})

var decisionsMade = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modqueue_decisions_made",
	Help: "Number of moderation decisions recorded",
}, []string{"status"})
