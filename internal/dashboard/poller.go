package dashboard

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval is the stats refresh period.
const DefaultInterval = 30 * time.Second

// fetchTimeout bounds one shared overview fetch.
const fetchTimeout = 15 * time.Second

// Poller keeps the cached overview warm using the service token. It is the
// only recurring background activity of the console.
type Poller struct {
	service  *Service
	token    string
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller constructs a Poller. A non-positive interval uses DefaultInterval.
func NewPoller(service *Service, token string, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{service: service, token: token, interval: interval, logger: logger}
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	if p.token == "" {
		p.logger.Info("stats poller disabled, no service token")
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("stats poller stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()
	stats, err := p.service.Refresh(ctx, p.token)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("stats refresh failed", slog.Any("error", err))
		}
		return
	}
	if stats.Degraded {
		p.logger.Warn("stats refresh served fixtures")
	}
}
