package approval

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mendaur/mendaur-admin/internal/auth"
	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/shared"
)

// Decision describes a committed transition handed to post-commit hooks.
type Decision struct {
	Kind   Kind
	Action string
	Item   gateway.Item
	Actor  *auth.Identity
	Note   string
}

// Hook runs after the backend accepted a transition. Errors are logged and
// never change the outcome.
type Hook interface {
	AfterDecision(ctx context.Context, d Decision) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, d Decision) error

// AfterDecision implements Hook.
func (f HookFunc) AfterDecision(ctx context.Context, d Decision) error { return f(ctx, d) }

// Notifier is the fire-and-forget notification helper.
type Notifier interface {
	Notify(ctx context.Context, token string, n gateway.Notification)
}

// NotificationHook tells the submitter about the decision.
func NotificationHook(n Notifier) Hook {
	return HookFunc(func(ctx context.Context, d Decision) error {
		msg := Message(d)
		token := ""
		if d.Actor != nil {
			token = d.Actor.Token
		}
		n.Notify(ctx, token, msg)
		return nil
	})
}

// RecordHook appends the decision to the approvals trail.
func RecordHook(recorder *shared.ApprovalRecorder) Hook {
	return HookFunc(func(ctx context.Context, d Decision) error {
		action := shared.ApprovalApprove
		if d.Action == ActionReject {
			action = shared.ApprovalReject
		}
		actor := ""
		if d.Actor != nil {
			actor = d.Actor.UserID
		}
		return recorder.Record(ctx, shared.ApprovalLog{
			Kind:    string(d.Kind),
			ItemID:  strconv.FormatInt(d.Item.ID, 10),
			ActorID: actor,
			Action:  action,
			Status:  d.Item.Status,
			Note:    d.Note,
		})
	})
}

// DecisionObserver counts decisions.
type DecisionObserver interface {
	ObserveDecision(kind, action string)
}

// MetricsHook counts the decision.
func MetricsHook(o DecisionObserver) Hook {
	return HookFunc(func(ctx context.Context, d Decision) error {
		o.ObserveDecision(string(d.Kind), d.Action)
		return nil
	})
}

// Invalidator drops cached aggregates.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// InvalidateHook expires cached dashboard counters.
func InvalidateHook(inv Invalidator) Hook {
	return HookFunc(func(ctx context.Context, d Decision) error {
		return inv.Bump(ctx)
	})
}

// Message builds the submitter notification for a decision.
func Message(d Decision) gateway.Notification {
	item := d.Item
	n := gateway.Notification{
		UserID:     item.UserID,
		RelatedID:  strconv.FormatInt(item.ID, 10),
		RelatedRef: string(d.Kind),
	}
	if d.Action == ActionReject {
		n.Tipe = "warning"
		reason := strings.TrimSpace(item.AlasanPenolakan)
		switch d.Kind {
		case KindDeposit:
			n.Judul = "Setoran Ditolak"
			n.Pesan = fmt.Sprintf("Setoran %s Anda ditolak. Alasan: %s", item.JenisSampah, reason)
		case KindRedemption:
			n.Judul = "Penukaran Ditolak"
			n.Pesan = fmt.Sprintf("Penukaran %s ditolak dan poin Anda dikembalikan. Alasan: %s", item.NamaProduk, reason)
		case KindWithdrawal:
			n.Judul = "Penarikan Ditolak"
			n.Pesan = fmt.Sprintf("Penarikan %s ditolak. Alasan: %s", shared.FormatRupiah(item.JumlahPenarikan.Float()), reason)
		}
		return n
	}
	n.Tipe = "success"
	switch d.Kind {
	case KindDeposit:
		n.Judul = "Setoran Disetujui"
		n.Pesan = fmt.Sprintf("Setoran %s seberat %s kg telah disetujui. Anda mendapatkan %s poin.",
			item.JenisSampah, shared.FormatDecimal(item.BeratKg.Float(), 2), shared.FormatInt(int64(item.PoinDidapat)))
	case KindRedemption:
		n.Judul = "Penukaran Disetujui"
		n.Pesan = fmt.Sprintf("Penukaran %s telah disetujui dan siap diambil.", item.NamaProduk)
	case KindWithdrawal:
		n.Judul = "Penarikan Berhasil"
		n.Pesan = fmt.Sprintf("Penarikan %s ke rekening %s %s telah diproses.",
			shared.FormatRupiah(item.JumlahPenarikan.Float()), item.NamaBank, item.NomorRekening)
	}
	return n
}
