package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var submissionsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "engine_submissions_processed",
	Help: "Number of inbound submissions processed",
}, []string{"outcome"})

var dialogsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "engine_dialogs_opened",
	Help: "Number of interactive dialogs opened",
}, []string{"kind"})

var transportFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "engine_transport_failures",
	Help: "Number of failed outbound transport calls, by operation",
}, []string{"op"})

var forbiddenActions = promauto.NewCounter(prometheus.CounterOpts{
	Name: "engine_forbidden_actions",
	Help: "Number of actions denied by role checks",
})
