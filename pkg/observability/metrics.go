package observability

import (
	"context"

	"github.com/aretw0/proofreader/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the proofreader collectors.
type Metrics struct {
	Turns         *prometheus.CounterVec
	ModelCalls    *prometheus.CounterVec
	ModelDuration *prometheus.HistogramVec
	Resets        prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proofreader_turns_total",
				Help: "Total number of conversation turns by outcome",
			},
			[]string{"outcome"},
		),
		ModelCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proofreader_model_calls_total",
				Help: "Total number of model requests by purpose and result",
			},
			[]string{"purpose", "result"},
		),
		ModelDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "proofreader_model_call_duration_seconds",
				Help:    "Duration of model requests",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"purpose"},
		),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proofreader_resets_total",
			Help: "Total number of conversation resets",
		}),
	}

	for _, c := range []prometheus.Collector{m.Turns, m.ModelCalls, m.ModelDuration, m.Resets} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			m.Turns.WithLabelValues(e.Outcome).Inc()
		},
		OnModelCall: func(ctx context.Context, e *domain.ModelEvent) {
			result := "ok"
			if e.IsError {
				result = "error"
			}
			m.ModelCalls.WithLabelValues(e.Purpose, result).Inc()
			m.ModelDuration.WithLabelValues(e.Purpose).Observe(e.Duration.Seconds())
		},
		OnReset: func(ctx context.Context, e *domain.EventBase) {
			m.Resets.Inc()
		},
	}
}
