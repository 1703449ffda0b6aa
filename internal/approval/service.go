package approval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mendaur/mendaur-admin/internal/auth"
	"github.com/mendaur/mendaur-admin/internal/confirm"
	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/rbac"
	"github.com/mendaur/mendaur-admin/internal/shared"
)

// Backend is the slice of the gateway client the workflow uses.
type Backend interface {
	ListItems(ctx context.Context, token string, res gateway.Resource, query url.Values) ([]gateway.Item, bool, error)
	GetItem(ctx context.Context, token string, res gateway.Resource, id string) (gateway.Item, error)
	ApproveItem(ctx context.Context, token string, res gateway.Resource, id string, payload gateway.Payload) (gateway.Item, error)
	RejectItem(ctx context.Context, token string, res gateway.Resource, id string, payload gateway.Payload) (gateway.Item, error)
}

// Locker allows one in-flight mutation per key.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

var listQuery = url.Values{"per_page": {"500"}}

// Service implements the approve/reject workflow.
type Service struct {
	backend   Backend
	snapshots SnapshotStore
	locker    Locker
	hooks     []Hook
	history   HistoryReader
	logger    *slog.Logger
	guard     rbac.Guard
	now       func() time.Time
}

// NewService constructs the workflow. snapshots and locker may be nil.
func NewService(backend Backend, snapshots SnapshotStore, locker Locker, logger *slog.Logger, hooks ...Hook) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend:   backend,
		snapshots: snapshots,
		locker:    locker,
		hooks:     hooks,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List fetches the queue, stores it as the admin's snapshot and returns
// the filtered page. When the backend fails the previous snapshot is served
// as stale; fixtures are served only when nothing was loaded before.
func (s *Service) List(ctx context.Context, identity *auth.Identity, kind Kind, f Filter) (Page, error) {
	if err := s.authorize(identity, kind); err != nil {
		return Page{}, err
	}
	return s.refresh(ctx, identity, kind, f)
}

// View filters the last snapshot without contacting the backend.
func (s *Service) View(ctx context.Context, identity *auth.Identity, kind Kind, f Filter) (Page, error) {
	if err := s.authorize(identity, kind); err != nil {
		return Page{}, err
	}
	snap, ok := s.load(ctx, scopeOf(identity), kind)
	if !ok {
		return Page{Kind: kind, Items: []gateway.Item{}, Pagination: shared.NewPagination(f.Page, f.PerPage, 0)}, nil
	}
	return paginate(kind, snap, f), nil
}

// Approve moves a pending item to its approved terminal state.
func (s *Service) Approve(ctx context.Context, identity *auth.Identity, kind Kind, id string, in ApproveInput) (Outcome, error) {
	if err := s.authorize(identity, kind); err != nil {
		return Outcome{}, err
	}
	if err := validateApprove(kind, id, in); err != nil {
		return Outcome{}, err
	}
	scope := scopeOf(identity)
	snap, hasSnap := s.load(ctx, scope, kind)
	if kind == KindDeposit {
		original := in.OriginalWeight
		if seen, ok := find(snap.Items, id); hasSnap && ok && seen.BeratKg > 0 {
			original = seen.BeratKg.Float()
		}
		if err := s.confirmWeight(identity, kind, original, in); err != nil {
			return Outcome{}, err
		}
	}

	release, err := s.acquire(ctx, kind, id)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	current, err := s.pending(ctx, identity, kind, id)
	if err != nil {
		return Outcome{}, err
	}
	switch kind {
	case KindDeposit:
		if err := s.confirmWeight(identity, kind, current.BeratKg.Float(), in); err != nil {
			return Outcome{}, err
		}
	case KindRedemption:
		if current.PoinDigunakan > 0 && in.Points != current.PoinDigunakan {
			return Outcome{}, invalid("poin", "tidak sesuai dengan poin penukaran")
		}
	case KindWithdrawal:
		if current.JumlahPenarikan > 0 && math.Abs(in.Amount-current.JumlahPenarikan.Float()) > 0.005 {
			return Outcome{}, invalid("jumlah_penarikan", "tidak sesuai dengan jumlah pengajuan")
		}
	}

	echo, err := s.backend.ApproveItem(ctx, identity.Token, kind.Resource(), id, approvePayload(kind, in))
	if err != nil {
		return Outcome{}, err
	}

	patched := current
	patched.Status = kind.ApprovedStatus()
	if Terminal(echo.Status) {
		patched.Status = strings.ToLower(echo.Status)
	}
	if note := strings.TrimSpace(in.Note); note != "" {
		patched.CatatanAdmin = note
	}
	if kind == KindDeposit {
		patched.BeratKg = gateway.Number(in.Weight)
		patched.PoinDidapat = in.Points
		patched.PoinPending = 0
	}
	return s.commit(ctx, identity, kind, ActionApprove, patched, strings.TrimSpace(in.Note), snap, hasSnap), nil
}

// Reject moves a pending item to rejected. A non-blank reason is required.
func (s *Service) Reject(ctx context.Context, identity *auth.Identity, kind Kind, id string, in RejectInput) (Outcome, error) {
	if err := s.authorize(identity, kind); err != nil {
		return Outcome{}, err
	}
	if err := validateID(id); err != nil {
		return Outcome{}, err
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return Outcome{}, invalid("alasan_penolakan", "wajib diisi")
	}
	scope := scopeOf(identity)
	snap, hasSnap := s.load(ctx, scope, kind)

	release, err := s.acquire(ctx, kind, id)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	current, err := s.pending(ctx, identity, kind, id)
	if err != nil {
		return Outcome{}, err
	}
	payload := gateway.Payload{"alasan_penolakan": reason}
	note := strings.TrimSpace(in.Note)
	if note != "" {
		payload["catatan_admin"] = note
	}
	if _, err := s.backend.RejectItem(ctx, identity.Token, kind.Resource(), id, payload); err != nil {
		return Outcome{}, err
	}

	patched := current
	patched.Status = StatusRejected
	patched.AlasanPenolakan = reason
	if note != "" {
		patched.CatatanAdmin = note
	}
	return s.commit(ctx, identity, kind, ActionReject, patched, reason, snap, hasSnap), nil
}

// commit applies the optimistic patch, runs hooks and re-fetches.
func (s *Service) commit(ctx context.Context, identity *auth.Identity, kind Kind, action string, patched gateway.Item, note string, snap Snapshot, hasSnap bool) Outcome {
	scope := scopeOf(identity)
	if hasSnap {
		snap.Items = replace(snap.Items, patched)
		s.save(ctx, scope, kind, snap)
	}
	s.logger.Info("approval decision",
		slog.String("kind", string(kind)),
		slog.String("action", action),
		slog.Int64("item", patched.ID),
		slog.String("status", patched.Status),
		slog.String("actor", identity.UserID))

	s.runHooks(ctx, Decision{Kind: kind, Action: action, Item: patched, Actor: identity, Note: note})

	page, err := s.refresh(ctx, identity, kind, Filter{})
	if err != nil {
		s.logger.Warn("re-fetch after decision", slog.String("kind", string(kind)), slog.Any("error", err))
		if !hasSnap {
			snap = Snapshot{FetchedAt: s.now()}
		}
		if _, ok := find(snap.Items, strconv.FormatInt(patched.ID, 10)); !ok {
			snap.Items = append([]gateway.Item{patched}, snap.Items...)
		}
		page = paginate(kind, snap, Filter{})
		page.Stale = true
	}
	return Outcome{Item: patched, List: page}
}

func (s *Service) refresh(ctx context.Context, identity *auth.Identity, kind Kind, f Filter) (Page, error) {
	scope := scopeOf(identity)
	items, degraded, err := s.backend.ListItems(ctx, identity.Token, kind.Resource(), listQuery)
	if err == nil && !degraded {
		snap := Snapshot{Items: items, FetchedAt: s.now()}
		s.save(ctx, scope, kind, snap)
		return paginate(kind, snap, f), nil
	}
	if prev, ok := s.load(ctx, scope, kind); ok && !prev.Degraded {
		s.logger.Warn("serving previous snapshot", slog.String("kind", string(kind)), slog.Bool("degraded", degraded), slog.Any("error", err))
		page := paginate(kind, prev, f)
		page.Stale = true
		return page, nil
	}
	if err != nil {
		return Page{}, err
	}
	snap := Snapshot{Items: items, Degraded: true, FetchedAt: s.now()}
	s.save(ctx, scope, kind, snap)
	return paginate(kind, snap, f), nil
}

func (s *Service) pending(ctx context.Context, identity *auth.Identity, kind Kind, id string) (gateway.Item, error) {
	current, err := s.backend.GetItem(ctx, identity.Token, kind.Resource(), id)
	if err != nil {
		return gateway.Item{}, err
	}
	if !strings.EqualFold(current.Status, StatusPending) {
		return gateway.Item{}, fmt.Errorf("%w: %s #%s is %s", ErrNotPending, kind, id, current.Status)
	}
	return current, nil
}

func (s *Service) authorize(identity *auth.Identity, kind Kind) error {
	if _, ok := kinds[kind]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err := s.guard.Authorize(identity, kind.Permission()); err != nil {
		return fmt.Errorf("%w: requires %s", ErrForbidden, kind.Permission())
	}
	return nil
}

// confirmWeight refuses a correction of more than WeightEpsilon unless the
// corrected weight was retyped. A zero original means nothing was reported.
func (s *Service) confirmWeight(identity *auth.Identity, kind Kind, original float64, in ApproveInput) error {
	if original <= 0 || !weightChanged(original, in.Weight) {
		return nil
	}
	phrase := strconv.FormatFloat(in.Weight, 'f', 2, 64)
	dialog := confirm.Dialog{Phrase: phrase, Permission: kind.Permission()}
	if err := dialog.Check(identity, in.Confirmation, false); err != nil {
		if errors.Is(err, confirm.ErrForbidden) {
			return ErrForbidden
		}
		return &ConfirmationError{Phrase: phrase, Original: original, Corrected: in.Weight}
	}
	return nil
}

// weightChanged reports a difference above WeightEpsilon. The tolerance
// absorbs float noise so 5.51 vs 5.50 counts as exactly 0.01.
func weightChanged(original, corrected float64) bool {
	return math.Abs(corrected-original) > WeightEpsilon+weightTolerance
}

func (s *Service) acquire(ctx context.Context, kind Kind, id string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Acquire(ctx, shared.SubmissionKey(string(kind), id))
	if errors.Is(err, shared.ErrSubmissionInFlight) {
		return nil, fmt.Errorf("%w: %s #%s", ErrInFlight, kind, id)
	}
	if err != nil {
		return nil, err
	}
	return release, nil
}

func (s *Service) runHooks(ctx context.Context, d Decision) {
	for i, hook := range s.hooks {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					s.logger.Error("post-commit hook panicked", slog.Int("hook", i), slog.Any("panic", rec))
				}
			}()
			if err := hook.AfterDecision(ctx, d); err != nil {
				s.logger.Warn("post-commit hook failed", slog.Int("hook", i), slog.String("kind", string(d.Kind)), slog.Any("error", err))
			}
		}()
	}
}

func (s *Service) load(ctx context.Context, scope string, kind Kind) (Snapshot, bool) {
	if s.snapshots == nil {
		return Snapshot{}, false
	}
	snap, ok, err := s.snapshots.Load(ctx, scope, kind)
	if err != nil {
		s.logger.Warn("load snapshot", slog.String("kind", string(kind)), slog.Any("error", err))
		return Snapshot{}, false
	}
	return snap, ok
}

func (s *Service) save(ctx context.Context, scope string, kind Kind, snap Snapshot) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(ctx, scope, kind, snap); err != nil {
		s.logger.Warn("save snapshot", slog.String("kind", string(kind)), slog.Any("error", err))
	}
}

func validateID(id string) error {
	if n, err := strconv.ParseInt(id, 10, 64); err != nil || n <= 0 {
		return invalid("id", "tidak valid")
	}
	return nil
}

func validateApprove(kind Kind, id string, in ApproveInput) error {
	if err := validateID(id); err != nil {
		return err
	}
	switch kind {
	case KindDeposit:
		if in.Points <= 0 {
			return invalid("poin", "harus lebih dari 0")
		}
		if !positive(in.Weight) {
			return invalid("berat_kg", "harus lebih dari 0")
		}
	case KindRedemption:
		if in.Points <= 0 {
			return invalid("poin", "harus lebih dari 0")
		}
	case KindWithdrawal:
		if !positive(in.Amount) {
			return invalid("jumlah_penarikan", "harus lebih dari 0")
		}
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func approvePayload(kind Kind, in ApproveInput) gateway.Payload {
	payload := gateway.Payload{}
	switch kind {
	case KindDeposit:
		payload["poin_didapat"] = in.Points
		payload["berat_kg"] = in.Weight
	case KindRedemption:
		payload["poin_digunakan"] = in.Points
	case KindWithdrawal:
		payload["jumlah_penarikan"] = in.Amount
	}
	if note := strings.TrimSpace(in.Note); note != "" {
		payload["catatan_admin"] = note
	}
	return payload
}

func find(items []gateway.Item, id string) (gateway.Item, bool) {
	for _, item := range items {
		if strconv.FormatInt(item.ID, 10) == id {
			return item, true
		}
	}
	return gateway.Item{}, false
}

func replace(items []gateway.Item, patched gateway.Item) []gateway.Item {
	out := make([]gateway.Item, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ID == patched.ID {
			out[i] = patched
			return out
		}
	}
	return append([]gateway.Item{patched}, out...)
}

// scopeOf keys snapshots per admin; the token hash covers profiles without an id.
func scopeOf(identity *auth.Identity) string {
	if identity == nil {
		return "anonymous"
	}
	if identity.UserID != "" {
		return "user:" + identity.UserID
	}
	sum := sha256.Sum256([]byte(identity.Token))
	return "token:" + hex.EncodeToString(sum[:8])
}

// HistoryReader lists recorded decisions for an item.
type HistoryReader interface {
	List(ctx context.Context, kind, itemID string) ([]shared.ApprovalLog, error)
}

// UseHistory enables History. Without a reader History returns nothing.
func (s *Service) UseHistory(reader HistoryReader) {
	s.history = reader
}

// History returns the decisions recorded for an item, oldest first.
func (s *Service) History(ctx context.Context, identity *auth.Identity, kind Kind, id string) ([]shared.ApprovalLog, error) {
	if err := s.authorize(identity, kind); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []shared.ApprovalLog{}, nil
	}
	return s.history.List(ctx, string(kind), id)
}
