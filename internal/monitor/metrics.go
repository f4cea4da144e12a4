package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/conformer/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the driver's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	messages *prometheus.CounterVec
	sent     *prometheus.CounterVec
	steps    *prometheus.CounterVec
	sessions *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conformer_messages_received_total",
			Help: "Packets received from the debug server.",
		}, []string{"method", "tag"}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conformer_messages_sent_total",
			Help: "Requests written to the debug server.",
		}, []string{"method"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conformer_steps_total",
			Help: "Script steps started.",
		}, []string{"method", "kind"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conformer_sessions_total",
			Help: "Finished sessions by outcome.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conformer_session_duration_seconds",
			Help:    "Wall time of one method's session.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	m.Registry.MustRegister(m.messages, m.sent, m.steps, m.sessions, m.duration)
	return m
}

// Hooks returns lifecycle hooks that record metrics.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	var mu sync.Mutex
	started := map[string]time.Time{}

	return domain.LifecycleHooks{
		OnSessionStart: func(_ context.Context, e *domain.SessionEvent) {
			mu.Lock()
			started[e.Method] = e.Timestamp
			mu.Unlock()
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			status := string(domain.StatusPassed)
			if e.Err != nil {
				status = string(domain.StatusFailed)
			}
			m.sessions.WithLabelValues(e.Method, status).Inc()

			mu.Lock()
			start, ok := started[e.Method]
			delete(started, e.Method)
			mu.Unlock()
			if ok {
				m.duration.WithLabelValues(e.Method).Observe(e.Timestamp.Sub(start).Seconds())
			}
		},
		OnStep: func(_ context.Context, e *domain.StepEvent) {
			m.steps.WithLabelValues(e.Method, e.Kind).Inc()
		},
		OnSend: func(_ context.Context, e *domain.MessageEvent) {
			m.sent.WithLabelValues(e.Method).Inc()
		},
		OnReceive: func(_ context.Context, e *domain.MessageEvent) {
			m.messages.WithLabelValues(e.Method, e.Tag).Inc()
		},
	}
}
