package kernel

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome classifies one dispatch.
type Outcome string

const (
	// OutcomeUnmatched means no command matched the message.
	OutcomeUnmatched Outcome = "unmatched"
	// OutcomeHelp means the matched command answered with its help text.
	OutcomeHelp Outcome = "help"
	// OutcomeExecuted means the matched command ran successfully.
	OutcomeExecuted Outcome = "executed"
	// OutcomeRejected means the command refused the input with a user reply.
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed means the command failed unexpectedly.
	OutcomeFailed Outcome = "failed"
)

// Metrics holds dispatch collectors.
type Metrics struct {
	commands  *prometheus.CounterVec
	unmatched prometheus.Counter
	duration  *prometheus.HistogramVec
}

// NewMetrics creates dispatch collectors and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	metrics := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scorebot",
			Name:      "commands_total",
			Help:      "Dispatched commands by command name and outcome.",
		}, []string{"command", "outcome"}),
		unmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scorebot",
			Name:      "unmatched_messages_total",
			Help:      "Inbound messages no command matched.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scorebot",
			Name:      "command_duration_seconds",
			Help:      "Time spent dispatching matched commands.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
	}
	if registerer == nil {
		return metrics, nil
	}

	for _, collector := range []prometheus.Collector{metrics.commands, metrics.unmatched, metrics.duration} {
		if err := registerer.Register(collector); err != nil {
			return nil, fmt.Errorf("register dispatch metrics: %w", err)
		}
	}

	return metrics, nil
}

func (m *Metrics) observe(command string, outcome Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	if outcome == OutcomeUnmatched {
		m.unmatched.Inc()
		return
	}
	m.commands.WithLabelValues(command, string(outcome)).Inc()
	m.duration.WithLabelValues(command).Observe(elapsed.Seconds())
}
