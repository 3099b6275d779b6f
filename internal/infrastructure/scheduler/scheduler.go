package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/badge"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/chainsync"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/reconcile"
)

// Config holds the cron specs and job parameters
type Config struct {
	ChainSyncSpec  string
	SweepSpec      string
	BadgeSpec      string
	BadgeThreshold int64
	JobTimeout     time.Duration
}

// Scheduler runs the background jobs: chain synchronization, the pending
// sweep and the badge aggregation. Each job is wrapped so a slow run skips
// the next tick instead of overlapping it.
type Scheduler struct {
	cron         *cron.Cron
	cfg          Config
	synchronizer *chainsync.Synchronizer
	sweep        *reconcile.Sweep
	badges       *badge.Aggregator
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

// NewScheduler creates the job scheduler
func NewScheduler(
	cfg Config,
	synchronizer *chainsync.Synchronizer,
	sweep *reconcile.Sweep,
	badges *badge.Aggregator,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *Scheduler {
	if cfg.JobTimeout == 0 {
		cfg.JobTimeout = 5 * time.Minute
	}

	cronLogger := &cronLogAdapter{logger: logger}
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	return &Scheduler{
		cron:         c,
		cfg:          cfg,
		synchronizer: synchronizer,
		sweep:        sweep,
		badges:       badges,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Start registers the jobs and begins scheduling
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"chain_sync", s.cfg.ChainSyncSpec, s.runChainSync},
		{"pending_sweep", s.cfg.SweepSpec, s.runSweep},
		{"badge_aggregation", s.cfg.BadgeSpec, s.runBadges},
	}

	for _, job := range jobs {
		job := job
		_, err := s.cron.AddFunc(job.spec, func() {
			ctx, cancel := s.timeProvider.WithTimeout(context.Background(), s.cfg.JobTimeout)
			defer cancel()

			started := s.timeProvider.Now()
			if err := job.run(ctx); err != nil {
				s.logger.Error("Scheduled job failed", map[string]any{
					"job":   job.name,
					"error": err.Error(),
				})
				return
			}
			s.logger.Debug("Scheduled job completed", map[string]any{
				"job":      job.name,
				"duration": s.timeProvider.Since(started).String(),
			})
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s (%q): %w", job.name, job.spec, err)
		}
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", map[string]any{
		"chain_sync": s.cfg.ChainSyncSpec,
		"sweep":      s.cfg.SweepSpec,
		"badges":     s.cfg.BadgeSpec,
	})
	return nil
}

// Stop halts scheduling and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped", nil)
}

func (s *Scheduler) runChainSync(ctx context.Context) error {
	if s.synchronizer == nil {
		return nil
	}
	return s.synchronizer.Sync(ctx)
}

func (s *Scheduler) runSweep(ctx context.Context) error {
	if s.sweep == nil {
		return nil
	}
	return s.sweep.Run(ctx)
}

func (s *Scheduler) runBadges(ctx context.Context) error {
	if s.badges == nil {
		return nil
	}
	return s.badges.CheckThresholdBadge(ctx, entity.BadgeGoldenMotor, s.cfg.BadgeThreshold)
}

// cronLogAdapter bridges the cron logger interface onto the structured logger
type cronLogAdapter struct {
	logger coreport.Logger
}

func (a *cronLogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Debug(msg, fieldsOf(keysAndValues))
}

func (a *cronLogAdapter) Error(err error, msg string, keysAndValues ...any) {
	fields := fieldsOf(keysAndValues)
	fields["error"] = err.Error()
	a.logger.Error(msg, fields)
}

func fieldsOf(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
