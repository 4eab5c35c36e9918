package scheduler

import (
	"time"

	"github.com/flexystyles/storefront-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

type WriteRetrier interface {
	Retry() int
}

type SessionEvictor interface {
	EvictIdle(maxIdle time.Duration) int
}

type CheckoutSweeper interface {
	SweepStale(maxAge time.Duration) int
}

// CartSchedule is when housekeeping runs and what counts as stale.
type CartSchedule struct {
	Spec           string
	SessionIdleTTL time.Duration
	CheckoutTTL    time.Duration
}

// CartScheduler periodically retries parked cart writes, forgets idle
// sessions and releases abandoned checkouts.
type CartScheduler struct {
	cron      *cron.Cron
	schedule  CartSchedule
	writes    WriteRetrier
	sessions  SessionEvictor
	checkouts CheckoutSweeper
}

func NewCartScheduler(writes WriteRetrier, sessions SessionEvictor, checkouts CheckoutSweeper, schedule CartSchedule) *CartScheduler {
	if schedule.Spec == "" {
		schedule.Spec = "@every 1m"
	}
	return &CartScheduler{
		cron:      cron.New(),
		schedule:  schedule,
		writes:    writes,
		sessions:  sessions,
		checkouts: checkouts,
	}
}

// Start registers the housekeeping job and starts the cron loop.
func (s *CartScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule.Spec, func() { s.RunOnce() }); err != nil {
		logger.Error("Failed to add cron job for cart housekeeping", err, map[string]interface{}{
			"spec": s.schedule.Spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Cart scheduler started", map[string]interface{}{
		"spec": s.schedule.Spec,
	})
	return nil
}

// RunOnce performs one housekeeping pass.
func (s *CartScheduler) RunOnce() {
	retried := s.writes.Retry()

	evicted := 0
	if s.schedule.SessionIdleTTL > 0 {
		evicted = s.sessions.EvictIdle(s.schedule.SessionIdleTTL)
	}

	swept := 0
	if s.schedule.CheckoutTTL > 0 {
		swept = s.checkouts.SweepStale(s.schedule.CheckoutTTL)
	}

	logger.Debug("Cart housekeeping finished", map[string]interface{}{
		"retried_writes":   retried,
		"evicted_sessions": evicted,
		"swept_checkouts":  swept,
	})
}

// Stop waits for a running pass to finish.
func (s *CartScheduler) Stop() {
	logger.Info("Stopping cart scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Cart scheduler stopped", nil)
}
