package content_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendaur/mendaur-admin/internal/auth"
	"github.com/mendaur/mendaur-admin/internal/content"
	"github.com/mendaur/mendaur-admin/internal/rbac"
)

func newRouter(service *content.Service, identity *auth.Identity) http.Handler {
	handler := content.NewHandler(nil, service, rbac.Middleware{Resolve: auth.Resolve})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if identity != nil {
				req = req.WithContext(auth.ContextWithIdentity(req.Context(), identity))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/content", handler.MountRoutes)
	return r
}

func TestHandlerMultipartCreate(t *testing.T) {
	fake := &fakeBackend{}
	service, _ := newService(t, serve(t, fake, false))
	router := newRouter(service, admin(rbac.PermManageProducts))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("nama", "Ecobrick"))
	require.NoError(t, writer.WriteField("harga_poin", "40"))
	require.NoError(t, writer.WriteField("stok", "5"))
	part, err := writer.CreateFormFile("gambar", "ecobrick.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte("jpeg"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/content/products", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"foto"}, fake.uploads)
}

func TestHandlerDeleteNeedsConfirmation(t *testing.T) {
	fake := &fakeBackend{products: []map[string]any{{"id": 1, "nama": "Tumbler"}}}
	service, _ := newService(t, serve(t, fake, false))
	router := newRouter(service, admin(rbac.PermManageProducts))

	req := httptest.NewRequest(http.MethodDelete, "/content/products/1", strings.NewReader(`{"confirmation":"hapus"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, true, decoded["confirmation_required"])
	assert.Equal(t, "HAPUS", decoded["phrase"])

	req = httptest.NewRequest(http.MethodDelete, "/content/products/1?confirmation=HAPUS", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerGatesResources(t *testing.T) {
	fake := &fakeBackend{}
	service, _ := newService(t, serve(t, fake, false))

	rec := httptest.NewRecorder()
	newRouter(service, admin(rbac.PermManageContent)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/content/products", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	newRouter(service, admin(rbac.PermManageContent)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/content/invoices", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	newRouter(service, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/content/articles", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, fake.requests)
}
