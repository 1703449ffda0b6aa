package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mendaur/mendaur-admin/internal/platform/db"
)

// ApprovalAction enumerates approval log actions.
type ApprovalAction string

const (
	// ApprovalApprove marks an approve decision.
	ApprovalApprove ApprovalAction = "APPROVE"
	// ApprovalReject marks a reject decision.
	ApprovalReject ApprovalAction = "REJECT"
)

// ApprovalLog represents a single admin decision on a backend item.
type ApprovalLog struct {
	ID      uuid.UUID
	Kind    string
	ItemID  string
	ActorID string
	Action  ApprovalAction
	Status  string
	Note    string
	At      time.Time
}

// ApprovalRecorder persists the decision trail of the console. The backend
// stays the source of truth for item state.
type ApprovalRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewApprovalRecorder constructs ApprovalRecorder.
func NewApprovalRecorder(pool *pgxpool.Pool, logger *slog.Logger) *ApprovalRecorder {
	return &ApprovalRecorder{pool: pool, logger: logger}
}

// Record writes the decision and its audit_logs entry in one transaction.
func (r *ApprovalRecorder) Record(ctx context.Context, log ApprovalLog) error {
	if r == nil || r.pool == nil {
		return errors.New("approval recorder not initialised")
	}
	if err := log.validate(); err != nil {
		return err
	}
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.At.IsZero() {
		log.At = time.Now().UTC()
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO approvals (id, kind, item_id, actor_id, action, status, note, at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			log.ID, log.Kind, log.ItemID, log.ActorID, string(log.Action), log.Status, log.Note, log.At); err != nil {
			return err
		}
		return insertAudit(ctx, tx, AuditLog{
			ActorID:  log.ActorID,
			Action:   "approval." + strings.ToLower(string(log.Action)),
			Entity:   log.Kind,
			EntityID: log.ItemID,
			Meta:     map[string]any{"approval_id": log.ID.String(), "status": log.Status, "note": log.Note},
			At:       log.At,
		})
	})
	if err != nil {
		r.logger.Error("record approval", slog.Any("error", err), slog.String("kind", log.Kind), slog.String("item", log.ItemID))
		return err
	}
	return nil
}

func (l ApprovalLog) validate() error {
	switch {
	case l.Kind == "":
		return errors.New("approval kind required")
	case l.ItemID == "":
		return errors.New("approval item id required")
	case l.ActorID == "":
		return errors.New("approval actor required")
	case l.Action != ApprovalApprove && l.Action != ApprovalReject:
		return fmt.Errorf("approval action %q not supported", l.Action)
	}
	return nil
}

// List returns the recorded decisions for an item, oldest first.
func (r *ApprovalRecorder) List(ctx context.Context, kind, itemID string) ([]ApprovalLog, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("approval recorder not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, kind, item_id, actor_id, action, status, note, at
FROM approvals WHERE kind=$1 AND item_id=$2 ORDER BY at ASC`, kind, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []ApprovalLog
	for rows.Next() {
		var l ApprovalLog
		var action string
		if err := rows.Scan(&l.ID, &l.Kind, &l.ItemID, &l.ActorID, &action, &l.Status, &l.Note, &l.At); err != nil {
			return nil, err
		}
		l.Action = ApprovalAction(action)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
