package jobs

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendaur/mendaur-admin/internal/gateway"
	jobmetrics "github.com/mendaur/mendaur-admin/internal/jobs"
)

type senderStub struct {
	err   error
	token string
	sent  []gateway.Notification
}

func (s *senderStub) CreateNotification(ctx context.Context, token string, n gateway.Notification) error {
	s.token = token
	s.sent = append(s.sent, n)
	return s.err
}

func newJob(sender NotificationSender) *NotificationDeliverJob {
	return NewNotificationDeliverJob(sender, "svc-token", nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func notificationTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := NewNotificationTask(gateway.Notification{UserID: 11, Judul: "Setoran Disetujui", Pesan: "ok", Tipe: "success"})
	require.NoError(t, err)
	assert.Equal(t, TaskNotificationDeliver, task.Type())
	return task
}

func TestNotificationDeliverSendsWithServiceToken(t *testing.T) {
	sender := &senderStub{}
	err := newJob(sender).Handle(context.Background(), notificationTask(t))
	require.NoError(t, err)
	assert.Equal(t, "svc-token", sender.token)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(11), sender.sent[0].UserID)
}

func TestNotificationDeliverRetriesTransientErrors(t *testing.T) {
	sender := &senderStub{err: &gateway.TransportError{Op: "notifications.create", Err: errors.New("refused")}}
	err := newJob(sender).Handle(context.Background(), notificationTask(t))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))

	sender.err = &gateway.Failure{Status: http.StatusServiceUnavailable, Message: "down"}
	err = newJob(sender).Handle(context.Background(), notificationTask(t))
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestNotificationDeliverSkipsPermanentRejections(t *testing.T) {
	sender := &senderStub{err: &gateway.Failure{Status: http.StatusUnprocessableEntity, Message: "user_id invalid"}}
	err := newJob(sender).Handle(context.Background(), notificationTask(t))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestNotificationDeliverBadPayload(t *testing.T) {
	sender := &senderStub{}
	err := newJob(sender).Handle(context.Background(), asynq.NewTask(TaskNotificationDeliver, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Empty(t, sender.sent)
}

func TestNotificationDeliverRequiresToken(t *testing.T) {
	job := NewNotificationDeliverJob(&senderStub{}, "", nil, nil)
	err := job.Handle(context.Background(), notificationTask(t))
	require.Error(t, err)
}
