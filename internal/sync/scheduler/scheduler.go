// Package scheduler provides background sync scheduling: periodic full
// syncs while online plus debounced on-demand requests.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/quillnote/backend/internal/logging"
	syncpkg "github.com/quillnote/backend/internal/sync"
)

// Scheduler manages background sync passes over a sync engine.
type Scheduler struct {
	engine       syncpkg.Syncer
	syncInterval time.Duration
	debounce     time.Duration
	syncTimeout  time.Duration

	requestCh chan bool
	stopCh    chan struct{}
	wg        sync.WaitGroup

	mu           sync.RWMutex
	isRunning    bool
	isOnline     bool
	lastSyncTime time.Time
}

// Config holds scheduler configuration.
type Config struct {
	SyncInterval time.Duration // how often to sync when online (default: 15 minutes)
	Debounce     time.Duration // how long to coalesce non-urgent requests (default: 5 seconds)
	SyncTimeout  time.Duration // per-pass deadline (default: 5 minutes)
}

// DefaultConfig returns default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval: 15 * time.Minute,
		Debounce:     5 * time.Second,
		SyncTimeout:  5 * time.Minute,
	}
}

// New creates a Scheduler.
func New(engine syncpkg.Syncer, config *Config) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}

	return &Scheduler{
		engine:       engine,
		syncInterval: config.SyncInterval,
		debounce:     config.Debounce,
		syncTimeout:  config.SyncTimeout,
		requestCh:    make(chan bool, 1),
		stopCh:       make(chan struct{}),
		isOnline:     true, // assume online initially
	}
}

// Start starts the background scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	logging.Info("Background sync scheduler started", nil)
}

// Stop stops the scheduler gracefully, waiting for an in-flight pass.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	logging.Info("Background sync scheduler stopped", nil)
}

// Request asks for a sync pass. startNow bypasses debouncing; otherwise
// bursts of requests coalesce into one pass. Never blocks.
func (s *Scheduler) Request(startNow bool) {
	for {
		select {
		case s.requestCh <- startNow:
			return
		default:
		}
		if !startNow {
			// A request is already queued; it covers this one.
			return
		}
		// Absorb the queued request so the urgent one can take its slot,
		// then retry the send. Urgent subsumes whatever was absorbed, so
		// no upgrade is lost even if another request races in between.
		select {
		case <-s.requestCh:
		default:
		}
	}
}

// SetOnlineStatus changes the online status. Coming back online queues
// a debounced sync to drain changes made while offline.
func (s *Scheduler) SetOnlineStatus(isOnline bool) {
	s.mu.Lock()
	wasOnline := s.isOnline
	s.isOnline = isOnline
	s.mu.Unlock()

	if wasOnline != isOnline {
		logging.Info("Online status changed",
			map[string]interface{}{
				"was_online": wasOnline,
				"is_online":  isOnline,
			})
	}
	if !wasOnline && isOnline {
		s.Request(false)
	}
}

// IsOnline reports the current online status.
func (s *Scheduler) IsOnline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isOnline
}

// LastSyncTime returns when the scheduler last completed a pass.
func (s *Scheduler) LastSyncTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSyncTime
}

// loop multiplexes periodic ticks, debounced requests and shutdown.
func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	var debounceTimer *time.Timer
	var debounceC <-chan time.Time
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return

		case startNow := <-s.requestCh:
			if startNow {
				if debounceTimer != nil {
					debounceTimer.Stop()
					debounceC = nil
				}
				s.runSync(ctx)
				continue
			}
			if debounceTimer == nil {
				debounceTimer = time.NewTimer(s.debounce)
				debounceC = debounceTimer.C
			} else {
				if !debounceTimer.Stop() {
					select {
					case <-debounceTimer.C:
					default:
					}
				}
				debounceTimer.Reset(s.debounce)
				debounceC = debounceTimer.C
			}

		case <-debounceC:
			debounceC = nil
			s.runSync(ctx)

		case <-ticker.C:
			if s.IsOnline() {
				s.runSync(ctx)
			}
		}
	}
}

// runSync executes one full sync pass. The engine rejects overlapping
// passes itself; the scheduler only gates on connectivity.
func (s *Scheduler) runSync(ctx context.Context) {
	if !s.IsOnline() {
		logging.Debug("Skipping sync - scheduler is offline", nil)
		return
	}

	syncCtx, cancel := context.WithTimeout(ctx, s.syncTimeout)
	defer cancel()

	result := s.engine.FullSync(syncCtx)

	s.mu.Lock()
	s.lastSyncTime = time.Now()
	s.mu.Unlock()

	logging.Info("Scheduled sync completed",
		map[string]interface{}{
			"success":    result.Success,
			"uploaded":   result.Uploaded,
			"downloaded": result.Downloaded,
			"conflicts":  result.ConflictsResolved,
			"errors":     len(result.Errors),
		})
}
