package service_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/clubfig/clubfig/internal/auth/domain"
	"github.com/clubfig/clubfig/internal/auth/service"
	"github.com/clubfig/clubfig/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type recordingGauges struct {
	mu     sync.Mutex
	counts []domain.RefreshTokenCounts
}

func (g *recordingGauges) SetRefreshTokenCounts(c domain.RefreshTokenCounts) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counts = append(g.counts, c)
}

func (g *recordingGauges) last() (domain.RefreshTokenCounts, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.counts) == 0 {
		return domain.RefreshTokenCounts{}, false
	}
	return g.counts[len(g.counts)-1], true
}

func TestTokenStatsCollector(t *testing.T) {
	h := newHarness(t)
	h.login(t, testPassword)
	revoked := h.login(t, testPassword).Session
	_, err := h.auth.Revoke(context.Background(), revoked.RefreshToken, 0, "")
	require.NoError(t, err)

	gauges := &recordingGauges{}
	c := service.NewTokenStatsCollector(h.store, gauges, slogx.Discard(), time.Hour)
	c.Now = h.clock.Now

	c.Collect(context.Background())
	got, ok := gauges.last()
	require.True(t, ok)
	require.Equal(t, domain.RefreshTokenCounts{Active: 1, Revoked: 1}, got)
}

func TestTokenStatsCollectorStartStop(t *testing.T) {
	h := newHarness(t)
	gauges := &recordingGauges{}
	c := service.NewTokenStatsCollector(h.store, gauges, slog.New(slog.DiscardHandler), 0)
	require.Equal(t, time.Minute, c.Interval)

	c.Start()
	require.Eventually(t, func() bool {
		_, ok := gauges.last()
		return ok
	}, time.Second, 10*time.Millisecond)
	c.Stop()
}
