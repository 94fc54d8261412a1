package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

// Memory is an in-process fixed-window limiter
type Memory struct {
	config  Config
	mu      sync.Mutex
	windows map[string]*window
	done    chan struct{}
	once    sync.Once
}

// NewMemory creates an in-process limiter. A background goroutine drops
// expired windows until Close is called.
func NewMemory(config Config) *Memory {
	if config.Requests <= 0 {
		config.Requests = DefaultConfig().Requests
	}
	if config.Window <= 0 {
		config.Window = DefaultConfig().Window
	}
	m := &Memory{
		config:  config,
		windows: make(map[string]*window),
		done:    make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.windows[key]
	if w == nil || now.Sub(w.start) >= m.config.Window {
		w = &window{start: now}
		m.windows[key] = w
	}

	if w.count >= m.config.Requests {
		return Result{
			Allowed:    false,
			RetryAfter: m.config.Window - now.Sub(w.start),
		}, nil
	}

	w.count++
	return Result{
		Allowed:   true,
		Remaining: m.config.Requests - w.count,
	}, nil
}

func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, key)
	return nil
}

func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(m.config.Window)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for key, w := range m.windows {
				if now.Sub(w.start) >= m.config.Window {
					delete(m.windows, key)
				}
			}
			m.mu.Unlock()
		}
	}
}
