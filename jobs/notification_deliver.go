package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"

	"github.com/mendaur/mendaur-admin/internal/gateway"
	jobmetrics "github.com/mendaur/mendaur-admin/internal/jobs"
)

// NotificationSender creates notifications on the backend.
type NotificationSender interface {
	CreateNotification(ctx context.Context, token string, n gateway.Notification) error
}

// NotificationDeliverJob sends queued notifications with the service token.
type NotificationDeliverJob struct {
	Sender  NotificationSender
	Token   string
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewNotificationDeliverJob initialises the handler.
func NewNotificationDeliverJob(sender NotificationSender, token string, logger *slog.Logger, metrics *jobmetrics.Metrics) *NotificationDeliverJob {
	return &NotificationDeliverJob{Sender: sender, Token: token, Logger: logger, Metrics: metrics}
}

// Handle delivers one notification. Backend rejections other than 5xx and
// 429 are permanent and skip retries.
func (j *NotificationDeliverJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Sender == nil {
		return errors.New("notification deliver: handler not configured")
	}
	var payload NotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.metrics().AddDropped(TaskNotificationDeliver)
		return fmt.Errorf("notification deliver: decode: %v: %w", err, asynq.SkipRetry)
	}
	if j.Token == "" {
		return errors.New("notification deliver: service token not configured")
	}

	tracker := j.metrics().Track(TaskNotificationDeliver)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	err := j.Sender.CreateNotification(ctx, j.Token, payload.Notification)
	if err == nil {
		j.logger().Info("notification redelivered",
			slog.Int64("user_id", payload.Notification.UserID),
			slog.String("judul", payload.Notification.Judul))
		return nil
	}
	var failure *gateway.Failure
	if errors.As(err, &failure) && failure.Status < http.StatusInternalServerError && failure.Status != http.StatusTooManyRequests {
		j.logger().Warn("notification rejected by backend",
			slog.Int("status", failure.Status),
			slog.String("message", failure.Message),
			slog.Int64("user_id", payload.Notification.UserID))
		return fmt.Errorf("notification deliver: %v: %w", err, asynq.SkipRetry)
	}
	return fmt.Errorf("notification deliver: %w", err)
}

func (j *NotificationDeliverJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *NotificationDeliverJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}
