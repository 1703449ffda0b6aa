package jobmetrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerOutcomes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	const task = "notification:deliver"

	assert.NoError(t, m.Track(task).End(nil))
	boom := errors.New("backend down")
	assert.Equal(t, boom, m.Track(task).End(boom))
	skip := fmt.Errorf("rejected: %w", asynq.SkipRetry)
	assert.ErrorIs(t, m.Track(task).End(skip), asynq.SkipRetry)
	m.AddDropped(task)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues(task, OutcomeDelivered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues(task, OutcomeRetry)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues(task, OutcomeDropped)))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddDropped("x")
	assert.NoError(t, m.Track("x").End(nil))
}
