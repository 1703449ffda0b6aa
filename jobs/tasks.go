package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mendaur/mendaur-admin/internal/gateway"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNotificationDeliver redelivers a notification the console could not
	// send inline.
	TaskNotificationDeliver = "notification:deliver"
)

// NotificationMaxRetry bounds redelivery attempts.
const NotificationMaxRetry = 8

// NotificationPayload describes one notification awaiting delivery.
type NotificationPayload struct {
	Notification gateway.Notification `json:"notification"`
	QueuedAt     time.Time            `json:"queued_at"`
}

// NewNotificationTask constructs an Asynq task.
func NewNotificationTask(n gateway.Notification) (*asynq.Task, error) {
	data, err := json.Marshal(NotificationPayload{Notification: n, QueuedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDeliver, data, asynq.MaxRetry(NotificationMaxRetry), asynq.Queue(QueueDefault)), nil
}
