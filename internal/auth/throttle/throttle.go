// Package throttle counts login attempts per key over a fixed window.
package throttle

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrUnavailable = errors.New("throttle: backend unavailable")

// Limiter records one attempt for key and reports whether it is still within
// the allowed number for the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Key joins the parts of a throttle key.
func Key(parts ...string) string {
	n := len("login")
	for _, p := range parts {
		n += len(p) + 1
	}
	b := make([]byte, 0, n)
	b = append(b, "login"...)
	for _, p := range parts {
		b = append(b, ':')
		b = append(b, p...)
	}
	return string(b)
}

// Memory is a process-local Limiter, used when no redis is configured.
type Memory struct {
	Max    int
	Window time.Duration
	Now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

func NewMemory(max int, win time.Duration) *Memory {
	return &Memory{Max: max, Window: win, windows: make(map[string]*window)}
}

func (m *Memory) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.windows == nil {
		m.windows = make(map[string]*window)
	}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		if len(m.windows) > 10000 {
			m.sweep(now)
		}
		w = &window{resetAt: now.Add(m.Window)}
		m.windows[key] = w
	}
	w.count++
	return w.count <= m.Max, nil
}

func (m *Memory) sweep(now time.Time) {
	for k, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, k)
		}
	}
}
