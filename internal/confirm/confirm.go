// Package confirm gates destructive or high-impact actions behind a
// permission check and an optional typed phrase.
package confirm

import (
	"errors"

	"github.com/mendaur/mendaur-admin/internal/rbac"
)

// Reasons a confirmation is refused.
var (
	ErrForbidden      = errors.New("confirm: permission required")
	ErrPhraseMismatch = errors.New("confirm: confirmation phrase does not match")
	ErrProcessing     = errors.New("confirm: action already processing")
)

// DeletePhrase must be typed to confirm a delete.
const DeletePhrase = "HAPUS"

// Dialog describes one confirmation step.
type Dialog struct {
	Title      string `json:"title,omitempty"`
	Message    string `json:"message,omitempty"`
	Phrase     string `json:"phrase,omitempty"`
	Permission string `json:"permission"`
}

// Check returns the reason the dialog would refuse, or nil.
func (d Dialog) Check(subject rbac.Subject, typed string, processing bool) error {
	if processing {
		return ErrProcessing
	}
	var guard rbac.Guard
	if d.Permission == "" || !guard.Allowed(subject, d.Permission) {
		return ErrForbidden
	}
	if d.Phrase != "" && typed != d.Phrase {
		return ErrPhraseMismatch
	}
	return nil
}

// CanConfirm reports whether the confirm control should be enabled.
func (d Dialog) CanConfirm(subject rbac.Subject, typed string, processing bool) bool {
	return d.Check(subject, typed, processing) == nil
}

// Confirm runs fn only when CanConfirm holds. It has no side effects of its own.
func (d Dialog) Confirm(subject rbac.Subject, typed string, processing bool, fn func() error) error {
	if err := d.Check(subject, typed, processing); err != nil {
		return err
	}
	return fn()
}
