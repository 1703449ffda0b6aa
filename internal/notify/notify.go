// Package notify sends user notifications as a side effect of admin
// actions. Delivery problems never fail the action that triggered them.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mendaur/mendaur-admin/internal/gateway"
)

// Sender creates a notification on the backend.
type Sender interface {
	CreateNotification(ctx context.Context, token string, n gateway.Notification) error
}

// Enqueuer hands a notification to the redelivery queue.
type Enqueuer interface {
	EnqueueNotification(ctx context.Context, n gateway.Notification) error
}

// Notifier is the fire-and-forget helper.
type Notifier struct {
	sender  Sender
	queue   Enqueuer
	logger  *slog.Logger
	timeout time.Duration
}

// New constructs a Notifier. queue may be nil.
func New(sender Sender, queue Enqueuer, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{sender: sender, queue: queue, logger: logger, timeout: 5 * time.Second}
}

// Notify creates the notification with the admin's token. Errors are logged
// and swallowed; transient ones are handed to the redelivery queue.
func (n *Notifier) Notify(ctx context.Context, token string, msg gateway.Notification) {
	if n == nil || n.sender == nil {
		return
	}
	if msg.UserID <= 0 {
		n.logger.Warn("notification skipped, no recipient", slog.String("judul", msg.Judul))
		return
	}
	// The triggering request may already be answered; keep values, drop cancellation.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	err := n.sender.CreateNotification(ctx, token, msg)
	if err == nil {
		return
	}
	n.logger.Warn("notification failed",
		slog.Int64("user_id", msg.UserID),
		slog.String("judul", msg.Judul),
		slog.Any("error", err))
	if n.queue == nil || !retryable(err) {
		return
	}
	if qerr := n.queue.EnqueueNotification(ctx, msg); qerr != nil {
		n.logger.Error("notification enqueue failed", slog.Int64("user_id", msg.UserID), slog.Any("error", qerr))
	}
}

func retryable(err error) bool {
	if gateway.IsTransport(err) {
		return true
	}
	var failure *gateway.Failure
	if errors.As(err, &failure) {
		return failure.Status >= http.StatusInternalServerError || failure.Status == http.StatusTooManyRequests
	}
	return false
}
