package invalidation

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fleetops/logistics-client/pkg/cache"
)

// Proactive invalidation intervals. Dashboard aggregates and delivery lists
// change server-side without any local mutation signal, so their staleness
// is bounded by time rather than by events.
const (
	DashboardInterval  = 5 * time.Minute
	DeliveriesInterval = 2 * time.Minute
)

// Scheduler runs the fixed-interval proactive invalidation timers against a
// cache manager.
type Scheduler struct {
	manager *cache.Manager
	logger  zerolog.Logger

	dashboardEvery  time.Duration
	deliveriesEvery time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler with the default intervals.
func NewScheduler(manager *cache.Manager) *Scheduler {
	return &Scheduler{
		manager:         manager,
		logger:          log.With().Str("component", "invalidation-scheduler").Logger(),
		dashboardEvery:  DashboardInterval,
		deliveriesEvery: DeliveriesInterval,
	}
}

// SetIntervals overrides the timer intervals. Must be called before Start.
func (s *Scheduler) SetIntervals(dashboard, deliveries time.Duration) {
	s.dashboardEvery = dashboard
	s.deliveriesEvery = deliveries
}

// Start launches the two invalidation loops. They run until the context is
// cancelled or Stop is called. Starting an already running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go s.loop(ctx, &wg, s.dashboardEvery, dashboardPattern)
	go s.loop(ctx, &wg, s.deliveriesEvery, deliveriesPattern)

	done := s.done
	go func() {
		wg.Wait()
		close(done)
	}()

	s.logger.Info().
		Dur("dashboard_every", s.dashboardEvery).
		Dur("deliveries_every", s.deliveriesEvery).
		Msg("proactive invalidation timers started")
}

// Stop halts the timers and waits for the loops to exit. Safe to call more
// than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info().Msg("proactive invalidation timers stopped")
}

func (s *Scheduler) loop(ctx context.Context, wg *sync.WaitGroup, every time.Duration, pattern *regexp.Regexp) {
	defer wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count := s.manager.Invalidate(pattern)
			s.logger.Debug().
				Str("pattern", pattern.String()).
				Int("count", count).
				Msg("interval invalidation")
		}
	}
}
