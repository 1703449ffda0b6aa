// Package jobmetrics instruments asynq task handlers.
package jobmetrics

import (
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded per task attempt.
const (
	OutcomeDelivered = "delivered"
	OutcomeRetry     = "retry"
	OutcomeDropped   = "dropped"
)

// Metrics holds the task collectors.
type Metrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the collectors. A nil registerer shares one set on the
// default registry.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker times one attempt.
type Tracker struct {
	metrics *Metrics
	task    string
	start   time.Time
}

// Track starts timing an attempt of task.
func (m *Metrics) Track(task string) *Tracker {
	return &Tracker{metrics: m, task: task, start: time.Now()}
}

// End records the attempt and returns err unchanged. Errors wrapping
// asynq.SkipRetry count as dropped.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil {
		return err
	}
	t.metrics.attempts.WithLabelValues(t.task, Outcome(err)).Inc()
	t.metrics.duration.WithLabelValues(t.task).Observe(time.Since(t.start).Seconds())
	return err
}

// AddDropped counts a task abandoned before an attempt was made.
func (m *Metrics) AddDropped(task string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(task, OutcomeDropped).Inc()
}

// Outcome classifies a handler result.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeDelivered
	case errors.Is(err, asynq.SkipRetry):
		return OutcomeDropped
	}
	return OutcomeRetry
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mendaur_task_attempts_total",
		Help: "Task attempts by task type and outcome.",
	}, []string{"task", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mendaur_task_duration_seconds",
		Help:    "Task handler duration in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"task"})
	registerer.MustRegister(attempts, duration)
	return &Metrics{attempts: attempts, duration: duration}
}
