package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/orphanscan/internal/core/reconcile"
	"github.com/example/orphanscan/internal/ports/primary"
)

// PassFunc performs one complete pass, including any per-pass setup such
// as logging in and loading the plugin configuration.
type PassFunc func(ctx context.Context) (*reconcile.RunResult, error)

// ScheduleServiceImpl implements the ScheduleService interface with a cron
// schedule. Passes never overlap: a tick arriving while a pass is still
// running is skipped.
type ScheduleServiceImpl struct {
	pass       PassFunc
	schedule   cron.Schedule
	spec       string
	runOnStart bool
	logger     *slog.Logger
}

// ParseSchedule parses a standard five-field cron expression or a
// descriptor such as "@hourly" or "@every 30m".
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return schedule, nil
}

// NewScheduleService creates a scheduler running pass on spec.
func NewScheduleService(pass PassFunc, spec string, runOnStart bool, logger *slog.Logger) (*ScheduleServiceImpl, error) {
	schedule, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduleServiceImpl{
		pass:       pass,
		schedule:   schedule,
		spec:       spec,
		runOnStart: runOnStart,
		logger:     logger,
	}, nil
}

// Next returns the first activation after t.
func (s *ScheduleServiceImpl) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Watch runs passes until ctx is done, then waits for a running pass to
// return.
func (s *ScheduleServiceImpl) Watch(ctx context.Context) error {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	c.Schedule(s.schedule, cron.FuncJob(func() { s.runPass(ctx) }))

	s.logger.Info("watch started", "schedule", s.spec, "next", s.Next(time.Now()).Format(time.RFC3339))

	if s.runOnStart {
		s.runPass(ctx)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	s.logger.Info("watch stopped")
	return nil
}

func (s *ScheduleServiceImpl) runPass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	result, err := s.pass(ctx)
	if err != nil {
		s.logger.Error("pass failed", "error", err)
		return
	}
	s.logger.Info("pass finished", "run_id", result.RunID, "status", result.Status(), "next", s.Next(time.Now()).Format(time.RFC3339))
}

// Ensure ScheduleServiceImpl implements the interface
var _ primary.ScheduleService = (*ScheduleServiceImpl)(nil)
