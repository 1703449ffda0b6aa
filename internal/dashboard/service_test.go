package dashboard_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendaur/mendaur-admin/internal/approval"
	"github.com/mendaur/mendaur-admin/internal/auth"
	"github.com/mendaur/mendaur-admin/internal/dashboard"
	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/platform/cache"
	"github.com/mendaur/mendaur-admin/internal/rbac"
	_ "github.com/mendaur/mendaur-admin/testing"
)

type stubBackend struct {
	overviewCalls atomic.Int32
	listCalls     atomic.Int32
	degraded      bool
	gate          chan struct{}
	items         []gateway.Item
}

func (s *stubBackend) Overview(ctx context.Context, token string) (gateway.Overview, bool, error) {
	s.overviewCalls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return gateway.Overview{}, false, ctx.Err()
		}
	}
	return gateway.Overview{TotalUsers: 120, PendingDeposits: 4, TotalWasteKg: 310.5}, s.degraded, nil
}

func (s *stubBackend) ListItems(ctx context.Context, token string, res gateway.Resource, query url.Values) ([]gateway.Item, bool, error) {
	s.listCalls.Add(1)
	return s.items, false, nil
}

type stubRenderer struct {
	html string
}

func (r *stubRenderer) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	r.html = html
	return []byte("%PDF-1.7"), nil
}

func newStatsCache(t *testing.T) *cache.JSON {
	t.Helper()
	mr := miniredis.RunT(t)
	return cache.NewJSON(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "mendaur:stats", time.Minute)
}

func admin(perms ...string) *auth.Identity {
	return auth.NewIdentity("tok", rbac.RoleAdmin, []byte(`{"id": 1}`), nil, perms)
}

func day(d int) gateway.Timestamp {
	return gateway.Timestamp{Time: time.Date(2024, 5, d, 9, 0, 0, 0, time.UTC)}
}

func deposits() []gateway.Item {
	return []gateway.Item{
		{ID: 1, NamaUser: "Siti", Status: "approved", JenisSampah: "Kardus", BeratKg: 5.5, PoinDidapat: 55, CreatedAt: day(1)},
		{ID: 2, NamaUser: "Budi", Status: "approved", JenisSampah: "Plastik", BeratKg: 1000.25, PoinDidapat: 1200, CreatedAt: day(2)},
		{ID: 3, NamaUser: "Dewi", Status: "pending", JenisSampah: "Logam", BeratKg: 3, PoinPending: 30, CreatedAt: day(3)},
		{ID: 4, NamaUser: "Siti", Status: "rejected", JenisSampah: "Kaca", BeratKg: 2, CreatedAt: day(9)},
	}
}

func TestOverviewRequiresPermission(t *testing.T) {
	backend := &stubBackend{}
	service := dashboard.NewService(backend, newStatsCache(t), nil, nil)

	_, err := service.Overview(context.Background(), admin(rbac.PermViewReports))
	require.ErrorIs(t, err, dashboard.ErrForbidden)
	assert.Zero(t, backend.overviewCalls.Load())
}

func TestOverviewIsCachedUntilBumped(t *testing.T) {
	backend := &stubBackend{}
	statsCache := newStatsCache(t)
	service := dashboard.NewService(backend, statsCache, nil, nil)
	ctx := context.Background()
	identity := admin(rbac.PermViewDashboard)

	first, err := service.Overview(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, 120, first.TotalUsers)
	second, err := service.Overview(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, first.TotalUsers, second.TotalUsers)
	assert.Equal(t, int32(1), backend.overviewCalls.Load())

	require.NoError(t, statsCache.Bump(ctx))
	_, err = service.Overview(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, int32(2), backend.overviewCalls.Load())
}

func TestDegradedOverviewIsNotCached(t *testing.T) {
	backend := &stubBackend{degraded: true}
	service := dashboard.NewService(backend, newStatsCache(t), nil, nil)
	ctx := context.Background()
	identity := admin(rbac.PermViewDashboard)

	stats, err := service.Overview(ctx, identity)
	require.NoError(t, err)
	assert.True(t, stats.Degraded)
	_, err = service.Overview(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, int32(2), backend.overviewCalls.Load())
}

func TestConcurrentOverviewMissesShareOneCall(t *testing.T) {
	backend := &stubBackend{gate: make(chan struct{})}
	service := dashboard.NewService(backend, nil, nil, nil)
	identity := admin(rbac.PermViewDashboard)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats, err := service.Overview(context.Background(), identity)
			assert.NoError(t, err)
			assert.Equal(t, 120, stats.TotalUsers)
		}()
	}
	require.Eventually(t, func() bool { return backend.overviewCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(backend.gate)
	wg.Wait()
	assert.Equal(t, int32(1), backend.overviewCalls.Load())
}

func TestCancelledLeaderDoesNotFailWaiters(t *testing.T) {
	backend := &stubBackend{gate: make(chan struct{})}
	service := dashboard.NewService(backend, nil, nil, nil)
	identity := admin(rbac.PermViewDashboard)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := service.Overview(leaderCtx, identity)
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return backend.overviewCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		stats dashboard.Stats
		err   error
	}
	follower := make(chan result, 1)
	go func() {
		stats, err := service.Overview(context.Background(), identity)
		follower <- result{stats, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(backend.gate)
	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, 120, got.stats.TotalUsers)
	assert.Equal(t, int32(1), backend.overviewCalls.Load())
}

func TestPollerRefreshesUntilCancelled(t *testing.T) {
	backend := &stubBackend{}
	service := dashboard.NewService(backend, newStatsCache(t), nil, nil)
	poller := dashboard.NewPoller(service, "service-token", 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return backend.overviewCalls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollerWithoutTokenDoesNothing(t *testing.T) {
	backend := &stubBackend{}
	service := dashboard.NewService(backend, nil, nil, nil)

	dashboard.NewPoller(service, "", time.Millisecond, nil).Run(context.Background())
	assert.Zero(t, backend.overviewCalls.Load())
}

func TestSummarizeTotalsSettledItems(t *testing.T) {
	rep := dashboard.Summarize(approval.KindDeposit, deposits(), approval.Filter{Page: 2, PerPage: 1})

	assert.Equal(t, 4, rep.Count)
	assert.Equal(t, map[string]int{"approved": 2, "pending": 1, "rejected": 1}, rep.ByStatus)
	assert.InDelta(t, 1005.75, rep.TotalWeightKg, 1e-9)
	assert.Equal(t, 1255, rep.TotalPoints)
	assert.Len(t, rep.Items, 4)

	filtered := dashboard.Summarize(approval.KindDeposit, deposits(), approval.Filter{Search: "siti"})
	assert.Equal(t, 2, filtered.Count)
	assert.Equal(t, 55, filtered.TotalPoints)
}

func TestWriteCSVUsesIndonesianFormatting(t *testing.T) {
	rep := dashboard.Summarize(approval.KindDeposit, deposits(), approval.Filter{})
	var buf bytes.Buffer
	require.NoError(t, dashboard.WriteCSV(&buf, rep))

	reader := csv.NewReader(&buf)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(records), 5)
	assert.Equal(t, []string{"ID", "Tanggal", "Nasabah", "Jenis Sampah", "Berat (kg)", "Poin", "Status"}, records[0])
	assert.Equal(t, []string{"2", "02-05-2024", "Budi", "Plastik", "1.000,25", "1.200", "approved"}, records[2])
	assert.Contains(t, records, []string{"Total berat (kg)", "1.005,75"})
}

func TestExportPDF(t *testing.T) {
	backend := &stubBackend{items: deposits()}
	renderer := &stubRenderer{}
	service := dashboard.NewService(backend, nil, renderer, nil)
	ctx := context.Background()

	_, _, err := service.ExportPDF(ctx, admin(rbac.PermViewReports), approval.KindDeposit, approval.Filter{})
	require.ErrorIs(t, err, dashboard.ErrForbidden)
	assert.Zero(t, backend.listCalls.Load())

	rep, pdf, err := service.ExportPDF(ctx, admin(rbac.PermExportReports), approval.KindDeposit, approval.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(pdf))
	assert.Contains(t, renderer.html, "Laporan Setoran")
	assert.Contains(t, renderer.html, "1.005,75")
	assert.Contains(t, rep.Filename("pdf"), "laporan-deposit-")

	_, _, err = dashboard.NewService(backend, nil, nil, nil).ExportPDF(ctx, admin(rbac.PermExportReports), approval.KindDeposit, approval.Filter{})
	require.ErrorIs(t, err, dashboard.ErrRendererUnavailable)
}
