package flagdecide

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flagdecide/go-server-sdk/api"
)

// Metrics holds the Prometheus collectors fed by the evaluation hook.
type Metrics struct {
	DecisionsTotal   *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	DecisionDuration *prometheus.HistogramVec
}

// NewMetrics creates the decision collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flagdecide_decisions_total",
			Help: "Total number of flag decisions.",
		}, []string{"flag", "variation", "reason"}),

		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flagdecide_decision_errors_total",
			Help: "Total number of failed decide calls and hook errors.",
		}, []string{"kind"}),

		DecisionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flagdecide_decision_duration_seconds",
			Help:    "Decide call latency in seconds, hooks included.",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}, []string{"flag"}),
	}

	for _, c := range []prometheus.Collector{m.DecisionsTotal, m.ErrorsTotal, m.DecisionDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hook returns an EvalHook recording every decide call.
func (m *Metrics) Hook() *EvalHook {
	return NewEvalHook(
		nil,
		nil,
		func(context *HookContext, decision *api.Decision) error {
			if decision.FlagKey != "" {
				m.DecisionsTotal.WithLabelValues(decision.FlagKey, decision.VariationKey, string(decision.Reason)).Inc()
			}
			if !context.StartedAt.IsZero() {
				m.DecisionDuration.WithLabelValues(context.FlagKey).Observe(time.Since(context.StartedAt).Seconds())
			}
			return nil
		},
		func(context *HookContext, evalError error) error {
			m.ErrorsTotal.WithLabelValues(errorKind(evalError)).Inc()
			return nil
		},
	)
}

// RegisterEventMetrics exposes the client's event queue counters.
func (m *Metrics) RegisterEventMetrics(reg prometheus.Registerer, c *Client) error {
	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "flagdecide_events_flushed_total",
			Help: "Total number of events handed to the dispatcher.",
		}, func() float64 {
			flushed, _, _ := c.EventMetrics()
			return float64(flushed)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "flagdecide_event_payloads_reported_total",
			Help: "Total number of event payloads with a final dispatch result.",
		}, func() float64 {
			_, reported, _ := c.EventMetrics()
			return float64(reported)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "flagdecide_events_dropped_total",
			Help: "Total number of events dropped by a full queue or failed dispatch.",
		}, func() float64 {
			_, _, dropped := c.EventMetrics()
			return float64(dropped)
		}),
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// NewMetricsHook registers decision metrics with reg and returns the hook
// that records them.
func NewMetricsHook(reg prometheus.Registerer) (*EvalHook, error) {
	m, err := NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	return m.Hook(), nil
}

func errorKind(err error) string {
	var notFound *FlagNotFoundError
	var before *BeforeHookError
	var after *AfterHookError
	switch {
	case errors.As(err, &notFound):
		return "flag_not_found"
	case errors.As(err, &before):
		return "before_hook"
	case errors.As(err, &after):
		return "after_hook"
	default:
		return "other"
	}
}
