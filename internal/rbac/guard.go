package rbac

import (
	"fmt"
	"reflect"

	"github.com/mendaur/mendaur-admin/internal/platform/httpx"
)

// Guard is the one authorization check. It performs no I/O.
type Guard struct{}

// Authorize returns an error wrapping httpx.ErrForbidden when the subject is
// missing or lacks perm.
func (Guard) Authorize(subject Subject, perm string) error {
	if isNil(subject) {
		return fmt.Errorf("%w: not signed in", httpx.ErrForbidden)
	}
	if !subject.HasPermission(perm) {
		return fmt.Errorf("%w: missing permission %s", httpx.ErrForbidden, perm)
	}
	return nil
}

// Allowed is the boolean form of Authorize.
func (g Guard) Allowed(subject Subject, perm string) bool {
	return g.Authorize(subject, perm) == nil
}

// Affordances maps every known permission to whether the subject holds it.
// The front end uses it to disable controls before the user clicks.
func (g Guard) Affordances(subject Subject) map[string]bool {
	out := make(map[string]bool, len(Known()))
	for _, perm := range Known() {
		out[perm] = g.Allowed(subject, perm)
	}
	return out
}

func isNil(subject Subject) bool {
	if subject == nil {
		return true
	}
	v := reflect.ValueOf(subject)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
