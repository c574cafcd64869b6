package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type statusSweeper interface {
	SweepToday(ctx context.Context) (int64, error)
}

// SchedulerService runs the periodic attendance sweep.
type SchedulerService struct {
	cron    *cron.Cron
	sweeper statusSweeper
	logger  *zap.Logger
	timeout time.Duration
	spec    string
}

// NewSchedulerService builds a scheduler for the given cron spec. An empty
// spec disables scheduling.
func NewSchedulerService(spec string, sweeper statusSweeper, loc *time.Location, logger *zap.Logger) *SchedulerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SchedulerService{
		cron:    cron.New(cron.WithLocation(loc)),
		sweeper: sweeper,
		logger:  logger,
		timeout: time.Minute,
		spec:    spec,
	}
}

// Start registers the sweep and starts the cron runner.
func (s *SchedulerService) Start() error {
	if s.spec == "" {
		s.logger.Info("attendance sweep disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, s.RunSweep); err != nil {
		return fmt.Errorf("schedule attendance sweep %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("attendance sweep scheduled", zap.String("schedule", s.spec))
	return nil
}

// Stop halts the runner and waits for a running sweep to finish.
func (s *SchedulerService) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("attendance sweep still running at shutdown")
	}
}

// RunSweep performs one sweep of today's attendance.
func (s *SchedulerService) RunSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	changed, err := s.sweeper.SweepToday(ctx)
	if err != nil {
		s.logger.Error("attendance sweep failed", zap.Error(err))
		return
	}
	s.logger.Debug("attendance sweep finished", zap.Int64("changed", changed))
}
