package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	dpdsync "github.com/kskby/dpd/pkg/dpd/sync"
)

// runScheduler drives the sync pipeline on a fixed interval until the
// context is cancelled.
func (s *Server) runScheduler(ctx context.Context) {
	interval, err := time.ParseDuration(s.cfg.SyncInterval)
	if err != nil || interval <= 0 {
		s.logger.Warn("Sync scheduler disabled",
			zap.String("interval", s.cfg.SyncInterval))
		return
	}

	s.logger.Info("Sync scheduler started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.runSync(ctx); err != nil {
				s.logger.Error("Scheduled sync failed", zap.Error(err))
			}
		}
	}
}

// runSync executes one pipeline invocation. Concurrent callers share a
// single run through the singleflight group.
func (s *Server) runSync(ctx context.Context) (dpdsync.Status, error) {
	result, err, _ := s.syncGroup.Do("sync", func() (any, error) {
		start := time.Now()

		status, err := s.orchestrator.Advance(ctx)
		if err != nil {
			s.metrics.RecordSyncRun("", "error", time.Since(start).Seconds())
			return dpdsync.Status{}, err
		}

		s.metrics.RecordSyncRun(string(status.Step), "ok", time.Since(start).Seconds())
		s.metrics.SetSyncStep(syncStepNames(), string(status.Step))
		return status, nil
	})
	if err != nil {
		return dpdsync.Status{}, err
	}
	return result.(dpdsync.Status), nil
}

func syncStepNames() []string {
	return []string{
		string(dpdsync.StepLoadLocations),
		string(dpdsync.StepLoadLocationsLimited),
		string(dpdsync.StepLoadCashPay),
		string(dpdsync.StepDeleteTerminals),
		string(dpdsync.StepLoadTerminalsUnlimited),
		string(dpdsync.StepLoadTerminalsLimited),
		string(dpdsync.StepFinished),
	}
}
