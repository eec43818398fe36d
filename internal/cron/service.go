package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/mksagencies/storefront-backend/pkg/logger"
	"github.com/mksagencies/storefront-backend/pkg/metrics"
)

// Schedule is a daily wall-clock time in UTC.
type Schedule struct {
	Hour   int
	Minute int
}

// Next returns the first occurrence of the schedule strictly after now.
func (s Schedule) Next(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s Schedule) valid() bool {
	return s.Hour >= 0 && s.Hour < 24 && s.Minute >= 0 && s.Minute < 60
}

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Schedule Schedule
	Now      func() time.Time
}

// Service runs the registered jobs once a day under the lock.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	schedule Schedule
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if !params.Schedule.valid() {
		return nil, fmt.Errorf("invalid schedule %02d:%02d", params.Schedule.Hour, params.Schedule.Minute)
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		schedule: params.Schedule,
		now:      now,
	}, nil
}

// Run sleeps until each scheduled time and runs a cycle, until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	for {
		next := s.schedule.Next(s.now())
		wait := next.Sub(s.now())
		s.logg.Info(s.logg.WithField(ctx, "next_run", next), "cron.waiting")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-timer.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logg.Error(ctx, "scheduled run failed", err)
			}
		}
	}
}

// RunOnce runs every job now if the lock can be taken. A held lock is not an
// error; the cycle is skipped.
func (s *Service) RunOnce(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another cron instance is running; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	s.logg.Info(jobCtx, "job start")

	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
}
