package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/clubfig/clubfig/internal/auth/domain"
	"github.com/clubfig/clubfig/internal/auth/store"
)

// TokenGauges receives refresh-token counts. obs.Metrics implements it.
type TokenGauges interface {
	SetRefreshTokenCounts(domain.RefreshTokenCounts)
}

// TokenStatsCollector periodically counts refresh tokens by state and
// publishes the counts. It only reads; expired rows are never removed.
type TokenStatsCollector struct {
	Store    store.Store
	Gauges   TokenGauges
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewTokenStatsCollector defaults a non-positive interval to one minute.
func NewTokenStatsCollector(s store.Store, gauges TokenGauges, logger *slog.Logger, interval time.Duration) *TokenStatsCollector {
	if interval <= 0 {
		interval = time.Minute
	}

	return &TokenStatsCollector{
		Store:    s,
		Gauges:   gauges,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the collector in the background until Stop is called.
func (c *TokenStatsCollector) Start() {
	go c.run()
	c.Logger.Info("token stats collector started", "interval", c.Interval)
}

// Stop blocks until an in-flight collection has finished.
func (c *TokenStatsCollector) Stop() {
	close(c.stopCh)
	<-c.doneCh
	c.Logger.Info("token stats collector stopped")
}

func (c *TokenStatsCollector) run() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	c.Collect(context.Background())

	for {
		select {
		case <-ticker.C:
			c.Collect(context.Background())
		case <-c.stopCh:
			return
		}
	}
}

// Collect takes one snapshot. Errors are logged and the gauges keep their
// previous values.
func (c *TokenStatsCollector) Collect(ctx context.Context) {
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}

	counts, err := c.Store.RefreshTokens().CountRefreshTokens(ctx, now)
	if err != nil {
		c.Logger.Error("failed to count refresh tokens", "error", err)
		return
	}

	c.Gauges.SetRefreshTokenCounts(counts)
	c.Logger.Debug("refresh token stats collected",
		"active", counts.Active, "revoked", counts.Revoked, "expired", counts.Expired)
}
