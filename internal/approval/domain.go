// Package approval drives the admin review of waste deposits, product
// redemptions and cash withdrawals.
package approval

import (
	"fmt"
	"strings"
	"time"

	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/rbac"
	"github.com/mendaur/mendaur-admin/internal/shared"
)

// Kind identifies an approval queue.
type Kind string

// Queues.
const (
	KindDeposit    Kind = "deposit"
	KindRedemption Kind = "redemption"
	KindWithdrawal Kind = "withdrawal"
)

// Item statuses as reported by the backend.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
)

// Decision actions.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// WeightEpsilon is the largest weight edit that needs no extra confirmation.
const WeightEpsilon = 0.01

const weightTolerance = 1e-9

type kindSpec struct {
	resource   gateway.Resource
	permission string
	approved   string
	label      string
}

var kinds = map[Kind]kindSpec{
	KindDeposit:    {resource: gateway.Deposits, permission: rbac.PermApproveDeposit, approved: StatusApproved, label: "Setoran"},
	KindRedemption: {resource: gateway.Redemptions, permission: rbac.PermApproveRedemption, approved: StatusApproved, label: "Penukaran"},
	KindWithdrawal: {resource: gateway.Withdrawals, permission: rbac.PermApproveWithdrawal, approved: StatusCompleted, label: "Penarikan"},
}

// Kinds lists every queue in display order.
func Kinds() []Kind {
	return []Kind{KindDeposit, KindRedemption, KindWithdrawal}
}

// ParseKind accepts the singular kind or its backend resource name.
func ParseKind(raw string) (Kind, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for k, spec := range kinds {
		if raw == string(k) || raw == spec.resource.Name {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
}

// Permission returns the token required to act on the queue.
func (k Kind) Permission() string { return kinds[k].permission }

// Resource returns the backend collection.
func (k Kind) Resource() gateway.Resource { return kinds[k].resource }

// ApprovedStatus is the terminal status an approval moves the item to.
func (k Kind) ApprovedStatus() string { return kinds[k].approved }

// Label is the Indonesian display name.
func (k Kind) Label() string { return kinds[k].label }

// Terminal reports whether status can no longer transition.
func Terminal(status string) bool {
	switch strings.ToLower(status) {
	case StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// ApproveInput carries the admin-entered values of an approval.
type ApproveInput struct {
	// Points is the payout for deposits and the cost confirmation for redemptions.
	Points int `json:"poin"`
	// Weight is the verified weight in kg for deposits.
	Weight float64 `json:"berat_kg"`
	// OriginalWeight is the weight the admin saw; used when no snapshot is loaded.
	OriginalWeight float64 `json:"berat_awal,omitempty"`
	// Amount confirms the withdrawal amount in rupiah.
	Amount float64 `json:"jumlah_penarikan"`
	Note   string  `json:"catatan_admin"`
	// Confirmation is the typed phrase for a weight correction.
	Confirmation string `json:"confirmation"`
}

// RejectInput carries a rejection.
type RejectInput struct {
	Reason string `json:"alasan_penolakan"`
	Note   string `json:"catatan_admin"`
}

// Filter narrows a snapshot. Applying it is idempotent.
type Filter struct {
	Search  string
	Status  string
	From    time.Time
	To      time.Time
	Page    int
	PerPage int
}

// Page is one filtered, paginated view of a queue.
type Page struct {
	Kind       Kind              `json:"kind"`
	Items      []gateway.Item    `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
	// Degraded marks fixture data served while the backend is unreachable.
	Degraded bool `json:"degraded"`
	// Stale marks a previously fetched snapshot served after a failed refresh.
	Stale     bool      `json:"stale"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Outcome is the result of a successful transition.
type Outcome struct {
	Item gateway.Item `json:"item"`
	List Page         `json:"list"`
}
