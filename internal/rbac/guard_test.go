package rbac_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendaur/mendaur-admin/internal/platform/httpx"
	"github.com/mendaur/mendaur-admin/internal/rbac"
)

type grants map[string]bool

func (g grants) HasPermission(perm string) bool { return g[perm] }

type ptrSubject struct{ perms []string }

func (s *ptrSubject) HasPermission(perm string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.perms {
		if p == perm {
			return true
		}
	}
	return false
}

func TestGuardAuthorize(t *testing.T) {
	var guard rbac.Guard

	require.NoError(t, guard.Authorize(grants{rbac.PermApproveDeposit: true}, rbac.PermApproveDeposit))

	err := guard.Authorize(grants{rbac.PermApproveDeposit: true}, rbac.PermApproveWithdrawal)
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))

	assert.ErrorIs(t, guard.Authorize(nil, rbac.PermViewDashboard), httpx.ErrForbidden)

	var missing *ptrSubject
	assert.ErrorIs(t, guard.Authorize(missing, rbac.PermViewDashboard), httpx.ErrForbidden)
}

func TestGuardAffordances(t *testing.T) {
	var guard rbac.Guard
	aff := guard.Affordances(&ptrSubject{perms: []string{rbac.PermManageContent}})
	assert.Len(t, aff, len(rbac.Known()))
	assert.True(t, aff[rbac.PermManageContent])
	assert.False(t, aff[rbac.PermApproveDeposit])
}

func TestConsoleRole(t *testing.T) {
	assert.True(t, rbac.ConsoleRole(rbac.RoleAdmin))
	assert.True(t, rbac.ConsoleRole(rbac.RoleSuperadmin))
	assert.False(t, rbac.ConsoleRole(rbac.RoleNasabah))
	assert.True(t, rbac.ValidRole(rbac.RoleNasabah))
	assert.False(t, rbac.ValidRole("root"))
}

func TestMiddleware(t *testing.T) {
	subject := grants{rbac.PermViewReports: true}
	mw := rbac.Middleware{Resolve: func(r *http.Request) (rbac.Subject, bool) {
		if r.Header.Get("X-Test-Anon") != "" {
			return nil, false
		}
		return subject, true
	}}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	cases := []struct {
		name    string
		handler http.Handler
		anon    bool
		want    int
	}{
		{"any granted", mw.RequireAny(rbac.PermExportReports, rbac.PermViewReports)(ok), false, http.StatusNoContent},
		{"any denied", mw.RequireAny(rbac.PermExportReports)(ok), false, http.StatusForbidden},
		{"all denied", mw.RequireAll(rbac.PermViewReports, rbac.PermExportReports)(ok), false, http.StatusForbidden},
		{"all granted", mw.RequireAll(" VIEW_REPORTS ")(ok), false, http.StatusNoContent},
		{"anonymous", mw.RequireAny(rbac.PermViewReports)(ok), true, http.StatusUnauthorized},
		{"session only", mw.RequireSession(ok), false, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.anon {
				req.Header.Set("X-Test-Anon", "1")
			}
			rec := httptest.NewRecorder()
			tc.handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
