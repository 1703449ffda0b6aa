// Package dashboard serves the overview counters, the periodic stats
// refresh and the approval reports with their CSV and PDF exports.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mendaur/mendaur-admin/internal/approval"
	"github.com/mendaur/mendaur-admin/internal/auth"
	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/platform/cache"
	"github.com/mendaur/mendaur-admin/internal/platform/httpx"
	"github.com/mendaur/mendaur-admin/internal/rbac"
)

var (
	// ErrForbidden is returned when the identity lacks the dashboard or report permission.
	ErrForbidden = fmt.Errorf("dashboard: %w", httpx.ErrForbidden)
	// ErrRendererUnavailable is returned for PDF exports without a renderer.
	ErrRendererUnavailable = fmt.Errorf("dashboard: pdf renderer not configured")
)

// Backend is the slice of the gateway client the dashboard reads from.
type Backend interface {
	Overview(ctx context.Context, token string) (gateway.Overview, bool, error)
	ListItems(ctx context.Context, token string, res gateway.Resource, query url.Values) ([]gateway.Item, bool, error)
}

// Renderer converts HTML into PDF.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Stats is the overview as served to the console.
type Stats struct {
	gateway.Overview
	Degraded  bool      `json:"degraded"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Service implements the dashboard and reports.
type Service struct {
	backend  Backend
	cache    *cache.JSON
	renderer Renderer
	logger   *slog.Logger
	guard    rbac.Guard
	group    singleflight.Group
	now      func() time.Time
}

// NewService constructs the service. statsCache and renderer may be nil.
func NewService(backend Backend, statsCache *cache.JSON, renderer Renderer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend:  backend,
		cache:    statsCache,
		renderer: renderer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Overview returns cached stats or fetches them. Concurrent misses share
// one backend call.
func (s *Service) Overview(ctx context.Context, identity *auth.Identity) (Stats, error) {
	if err := s.authorize(identity, rbac.PermViewDashboard); err != nil {
		return Stats{}, err
	}
	key := s.key(ctx)
	if key != "" {
		var cached Stats
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("stats cache read", slog.Any("error", err))
		}
		if hit {
			return cached, nil
		}
	}
	return s.load(ctx, identity.Token, key)
}

// Refresh fetches the stats and replaces the cached copy.
func (s *Service) Refresh(ctx context.Context, token string) (Stats, error) {
	return s.load(ctx, token, s.key(ctx))
}

func (s *Service) key(ctx context.Context) string {
	if s.cache == nil {
		return ""
	}
	key, err := s.cache.BuildKey(ctx, "overview")
	if err != nil {
		s.logger.Warn("stats cache key", slog.Any("error", err))
		return ""
	}
	return key
}

// load coalesces concurrent fetches. The shared fetch is detached from the
// first caller so its cancellation does not fail the other waiters.
func (s *Service) load(ctx context.Context, token, key string) (Stats, error) {
	resultChan := s.group.DoChan("overview", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return s.fetch(fetchCtx, token, key)
	})
	select {
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Stats{}, res.Err
		}
		return res.Val.(Stats), nil
	}
}

// fetch never caches fixture stats.
func (s *Service) fetch(ctx context.Context, token, key string) (Stats, error) {
	overview, degraded, err := s.backend.Overview(ctx, token)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Overview: overview, Degraded: degraded, FetchedAt: s.now()}
	if key != "" && !degraded {
		if err := s.cache.Set(ctx, key, stats); err != nil {
			s.logger.Warn("stats cache write", slog.Any("error", err))
		}
	}
	return stats, nil
}

func (s *Service) authorize(identity *auth.Identity, perm string) error {
	if err := s.guard.Authorize(identity, perm); err != nil {
		return fmt.Errorf("%w: requires %s", ErrForbidden, perm)
	}
	return nil
}

// Report builds the summary of one approval queue.
func (s *Service) Report(ctx context.Context, identity *auth.Identity, kind approval.Kind, f approval.Filter) (Report, error) {
	if err := s.authorize(identity, rbac.PermViewReports); err != nil {
		return Report{}, err
	}
	return s.report(ctx, identity, kind, f)
}

func (s *Service) report(ctx context.Context, identity *auth.Identity, kind approval.Kind, f approval.Filter) (Report, error) {
	if kind.Resource().Name == "" {
		return Report{}, fmt.Errorf("%w: %q", approval.ErrUnknownKind, kind)
	}
	items, degraded, err := s.backend.ListItems(ctx, identity.Token, kind.Resource(), url.Values{"per_page": {"500"}})
	if err != nil {
		return Report{}, err
	}
	rep := Summarize(kind, items, f)
	rep.Degraded = degraded
	rep.GeneratedAt = s.now()
	return rep, nil
}
