package dashboard_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendaur/mendaur-admin/internal/auth"
	"github.com/mendaur/mendaur-admin/internal/dashboard"
	"github.com/mendaur/mendaur-admin/internal/rbac"
)

func newRouter(service *dashboard.Service, identity *auth.Identity) http.Handler {
	handler := dashboard.NewHandler(nil, service, rbac.Middleware{Resolve: auth.Resolve})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.ContextWithIdentity(req.Context(), identity)))
		})
	})
	r.Route("/dashboard", handler.MountDashboard)
	r.Route("/reports", handler.MountReports)
	return r
}

func TestHandlerExportCSV(t *testing.T) {
	service := dashboard.NewService(&stubBackend{items: deposits()}, nil, nil, nil)
	router := newRouter(service, admin(rbac.PermViewReports, rbac.PermExportReports))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/deposit/export.csv?status=approved", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "laporan-deposit-")
	assert.Contains(t, rec.Body.String(), "Kardus")
	assert.NotContains(t, rec.Body.String(), "Logam")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/deposit/export.pdf", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/refund", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerGatesByPermission(t *testing.T) {
	backend := &stubBackend{items: deposits()}
	service := dashboard.NewService(backend, nil, nil, nil)
	router := newRouter(service, admin(rbac.PermViewReports))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/deposit/export.csv", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/overview", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, backend.overviewCalls.Load())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/withdrawal", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
