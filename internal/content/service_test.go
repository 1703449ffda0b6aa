package content_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendaur/mendaur-admin/internal/auth"
	"github.com/mendaur/mendaur-admin/internal/content"
	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/rbac"
	"github.com/mendaur/mendaur-admin/internal/shared"
	_ "github.com/mendaur/mendaur-admin/testing"
)

// fakeBackend serves /api/admin/produk and /api/admin/notifications from memory.
type fakeBackend struct {
	mu            sync.Mutex
	products      []map[string]any
	nextID        int
	requests      []string
	uploads       []string
	notifications []map[string]any
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
	reply := func(status int, data any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 300, "data": data})
	}
	switch {
	case r.URL.Path == "/api/admin/notifications" && r.Method == http.MethodPost:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.notifications = append(b.notifications, body)
		reply(http.StatusCreated, body)
	case r.URL.Path == "/api/admin/produk" && r.Method == http.MethodGet:
		reply(http.StatusOK, map[string]any{"data": b.products})
	case r.URL.Path == "/api/admin/produk" && r.Method == http.MethodPost:
		record := map[string]any{}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			_ = r.ParseMultipartForm(1 << 20)
			for k, v := range r.MultipartForm.Value {
				record[k] = v[0]
			}
			for k := range r.MultipartForm.File {
				b.uploads = append(b.uploads, k)
			}
		} else {
			_ = json.NewDecoder(r.Body).Decode(&record)
		}
		b.nextID++
		record["id"] = b.nextID
		b.products = append(b.products, record)
		reply(http.StatusCreated, record)
	case strings.HasPrefix(r.URL.Path, "/api/admin/produk/") && r.Method == http.MethodDelete:
		id := strings.TrimPrefix(r.URL.Path, "/api/admin/produk/")
		for i, p := range b.products {
			if strconv.Itoa(p["id"].(int)) == id {
				b.products = append(b.products[:i], b.products[i+1:]...)
				reply(http.StatusOK, nil)
				return
			}
		}
		reply(http.StatusNotFound, nil)
	default:
		reply(http.StatusNotFound, nil)
	}
}

type auditStub struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *auditStub) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func newService(t *testing.T, backend content.Backend) (*content.Service, *auditStub) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	audit := &auditStub{}
	return content.NewService(backend, audit, shared.NewSubmissionGuard(client, time.Minute), nil), audit
}

func serve(t *testing.T, fake *fakeBackend, fallback bool) *gateway.Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return gateway.NewClient(gateway.Options{BaseURL: srv.URL + "/api", Fallback: fallback, Timeout: time.Second})
}

func admin(perms ...string) *auth.Identity {
	return auth.NewIdentity("tok", rbac.RoleAdmin, []byte(`{"id": 9, "nama": "Admin"}`), nil, perms)
}

func TestCreateThenListIncludesEntity(t *testing.T) {
	fake := &fakeBackend{}
	service, audit := newService(t, serve(t, fake, false))
	identity := admin(rbac.PermManageProducts)

	result, err := service.Create(context.Background(), identity, "products", content.Submission{
		Fields: map[string]any{"nama": "Tumbler Bambu", "harga_poin": "150", "stok": 10, "unknown": "dropped"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1", result.Record.ID())
	require.Len(t, result.List.Items, 1)
	assert.Equal(t, "Tumbler Bambu", result.List.Items[0]["nama"])
	assert.NotContains(t, result.List.Items[0], "unknown")
	assert.False(t, result.List.Degraded)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, "create", audit.logs[0].Action)
	assert.Equal(t, "products", audit.logs[0].Entity)
	assert.Equal(t, "9", audit.logs[0].ActorID)
}

func TestCreateWithImageUsesMultipart(t *testing.T) {
	fake := &fakeBackend{}
	service, _ := newService(t, serve(t, fake, false))

	_, err := service.Create(context.Background(), admin(rbac.PermManageProducts), "products", content.Submission{
		Fields: map[string]any{"nama": "Tas Daur Ulang", "harga_poin": 80, "stok": 3},
		Image:  &gateway.File{Name: "tas.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"foto"}, fake.uploads)
	assert.Equal(t, "Tas Daur Ulang", fake.products[0]["nama"])
}

func TestCreateValidatesBeforeCalling(t *testing.T) {
	fake := &fakeBackend{}
	service, audit := newService(t, serve(t, fake, false))

	_, err := service.Create(context.Background(), admin(rbac.PermManageProducts), "products", content.Submission{
		Fields: map[string]any{"harga_poin": 0},
	})
	var verr *content.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["nama"])
	assert.Equal(t, "gt", verr.Fields["harga_poin"])
	assert.Empty(t, fake.requests)
	assert.Empty(t, audit.logs)
}

func TestPermissionRefusedWithoutCall(t *testing.T) {
	fake := &fakeBackend{}
	service, _ := newService(t, serve(t, fake, false))
	ctx := context.Background()
	identity := admin(rbac.PermManageContent)

	_, err := service.List(ctx, identity, "products", "")
	require.ErrorIs(t, err, content.ErrForbidden)
	_, err = service.Create(ctx, identity, "waste-prices", content.Submission{Fields: map[string]any{"nama_jenis": "Kardus", "harga_per_kg": 2000}})
	require.ErrorIs(t, err, content.ErrForbidden)
	_, err = service.Delete(ctx, nil, "products", "1", "HAPUS")
	require.ErrorIs(t, err, content.ErrForbidden)
	_, err = service.List(ctx, identity, "invoices", "")
	require.ErrorIs(t, err, content.ErrUnknownResource)
	assert.Empty(t, fake.requests)
}

func TestDeleteRequiresPhrase(t *testing.T) {
	fake := &fakeBackend{products: []map[string]any{{"id": 1, "nama": "Tumbler"}}, nextID: 1}
	service, audit := newService(t, serve(t, fake, false))
	ctx := context.Background()
	identity := admin(rbac.PermManageProducts)

	_, err := service.Delete(ctx, identity, "products", "1", "hapus")
	require.ErrorIs(t, err, content.ErrConfirmationRequired)
	assert.Empty(t, fake.requests)

	listing, err := service.Delete(ctx, identity, "products", "1", "HAPUS")
	require.NoError(t, err)
	assert.Empty(t, listing.Items)
	assert.Equal(t, []string{"DELETE /api/admin/produk/1", "GET /api/admin/produk"}, fake.requests)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "delete", audit.logs[0].Action)
}

func TestNotificationsAreCreateOnly(t *testing.T) {
	fake := &fakeBackend{}
	service, _ := newService(t, serve(t, fake, false))
	ctx := context.Background()
	identity := admin(rbac.PermSendNotifications)

	result, err := service.Create(ctx, identity, "notifications", content.Submission{
		Fields: map[string]any{"user_id": "3", "judul": "Jadwal berubah", "pesan": "Penjemputan pindah ke Sabtu", "tipe": "info"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Record["user_id"])
	require.Len(t, fake.notifications, 1)
	assert.Equal(t, float64(3), fake.notifications[0]["user_id"])

	_, err = service.Update(ctx, identity, "notifications", "1", content.Submission{})
	require.ErrorIs(t, err, content.ErrReadOnly)
	_, err = service.Delete(ctx, identity, "notifications", "1", "HAPUS")
	require.ErrorIs(t, err, content.ErrReadOnly)
}

func TestListFallsBackToFixturesWhenUnreachable(t *testing.T) {
	client := gateway.NewClient(gateway.Options{BaseURL: "http://127.0.0.1:1", Fallback: true, Timeout: time.Second})
	service, _ := newService(t, client)

	listing, err := service.List(context.Background(), admin(rbac.PermManageContent), "articles", "")
	require.NoError(t, err)
	assert.True(t, listing.Degraded)
	expected, err := gateway.FixtureList[gateway.Record](gateway.Articles)
	require.NoError(t, err)
	assert.Equal(t, expected, listing.Items)
}

func TestSearchIsIdempotent(t *testing.T) {
	items := []gateway.Record{
		{"id": float64(1), "nama": "Tumbler Bambu"},
		{"id": float64(2), "nama": "Tas Kain"},
		{"id": float64(12), "judul": "Cara memilah"},
	}
	once := content.Search(items, "TA")
	assert.Len(t, once, 1)
	assert.Equal(t, once, content.Search(once, "TA"))
	assert.Len(t, content.Search(items, "1"), 2)
	assert.Len(t, content.Search(items, " "), 3)
}
