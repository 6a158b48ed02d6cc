// Package heartbeat periodically reports that a long-running bump session
// is still alive, so a silent chat channel means something is wrong.
package heartbeat

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultInterval = 6 * time.Hour

type Service struct {
	interval time.Duration
	status   func() string
	onBeat   func(message string)
	mu       sync.Mutex
	stopCh   chan struct{}
	running  bool
}

type Config struct {
	// Interval defaults to six hours.
	Interval time.Duration
	// Status describes the session. An empty status skips the beat.
	Status func() string
	OnBeat func(message string)
}

func NewService(cfg Config) *Service {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		interval: interval,
		status:   cfg.Status,
		onBeat:   cfg.OnBeat,
		stopCh:   make(chan struct{}),
	}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.tick()
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

func (s *Service) TriggerNow() {
	s.tick()
}

func (s *Service) tick() {
	if s.status == nil || s.onBeat == nil {
		return
	}
	status := s.status()
	if status == "" {
		slog.Debug("heartbeat: no status, skipping")
		return
	}
	slog.Debug("heartbeat: beat", "status", status)
	s.onBeat("Still running. " + status)
}
