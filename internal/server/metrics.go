package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts session events for the optional /metrics endpoint.
type Metrics struct {
	HandsPlayed    prometheus.Counter
	ActionsApplied *prometheus.CounterVec
	TurnTimeouts   prometheus.Counter
	Disconnects    prometheus.Counter
	ProtocolErrors prometheus.Counter
}

// NewMetrics registers the session collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HandsPlayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dealerd",
			Name:      "hands_played_total",
			Help:      "Hands dealt to completion.",
		}),
		ActionsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealerd",
			Name:      "actions_applied_total",
			Help:      "Player actions applied, by action type.",
		}, []string{"action"}),
		TurnTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dealerd",
			Name:      "turn_timeouts_total",
			Help:      "Turns resolved by the timeout fold.",
		}),
		Disconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dealerd",
			Name:      "disconnects_total",
			Help:      "Clients dropped mid-session.",
		}),
		ProtocolErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dealerd",
			Name:      "protocol_errors_total",
			Help:      "Invalid or illegal client messages answered with an error.",
		}),
	}
}
