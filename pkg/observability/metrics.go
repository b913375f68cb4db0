package observability

import (
	"context"
	"errors"

	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the evaluator collectors.
type Metrics struct {
	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram
	nodeEvaluations *prometheus.CounterVec
	nodeDuration    *prometheus.HistogramVec
}

// Run outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// NewMetrics creates the collectors and registers them with reg. Collectors
// already registered by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dynamo_runs_total",
			Help: "Runs of a workspace by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dynamo_run_duration_seconds",
			Help:    "Duration of workspace runs.",
			Buckets: prometheus.DefBuckets,
		}),
		nodeEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dynamo_node_evaluations_total",
			Help: "Node evaluations by kind and result.",
		}, []string{"kind", "result"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dynamo_node_duration_seconds",
			Help:    "Duration of node evaluations by kind.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"kind"}),
	}

	var err error
	if m.runs, err = register(reg, m.runs); err != nil {
		return nil, err
	}
	if m.runDuration, err = register(reg, m.runDuration); err != nil {
		return nil, err
	}
	if m.nodeEvaluations, err = register(reg, m.nodeEvaluations); err != nil {
		return nil, err
	}
	if m.nodeDuration, err = register(reg, m.nodeDuration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			outcome := OutcomeCompleted
			switch {
			case e.Cancelled:
				outcome = OutcomeCancelled
			case e.Failed > 0:
				outcome = OutcomeFailed
			}
			m.runs.WithLabelValues(outcome).Inc()
			m.runDuration.Observe(e.Duration.Seconds())
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeEvaluations.WithLabelValues(kindLabel(e.Kind), "ok").Inc()
			m.nodeDuration.WithLabelValues(kindLabel(e.Kind)).Observe(e.Duration.Seconds())
		},
		OnNodeError: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeEvaluations.WithLabelValues(kindLabel(e.Kind), "error").Inc()
			m.nodeDuration.WithLabelValues(kindLabel(e.Kind)).Observe(e.Duration.Seconds())
		},
	}
}

// kindLabel folds custom node ids into one label value so that every
// definition does not create its own series.
func kindLabel(kind string) string {
	if _, err := uuid.Parse(kind); err == nil {
		return domain.KindFunction
	}
	return kind
}
