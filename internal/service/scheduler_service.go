package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a scheduled unit of work. It gets a context bounded by the job's
// timeout and cancelled when the scheduler's parent context is.
type Job func(ctx context.Context) error

// SchedulerService runs the periodic sync and the daily digest.
// A job whose previous run has not returned yet is skipped, not queued.
type SchedulerService struct {
	cron   *cron.Cron
	ctx    context.Context
	logger cron.Logger
}

// NewSchedulerService builds a scheduler whose jobs inherit ctx.
func NewSchedulerService(ctx context.Context, loc *time.Location) *SchedulerService {
	logger := cron.VerbosePrintfLogger(log.New(os.Stdout, "[cron] ", log.LstdFlags))
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:    ctx,
		logger: logger,
	}
}

// ScheduleEvery registers job to run every interval. Intervals are rounded
// down to whole seconds, with a one second floor.
func (s *SchedulerService) ScheduleEvery(name string, interval, timeout time.Duration, job Job) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("%s: interval must be positive", name)
	}
	every := interval.Truncate(time.Second)
	if every < time.Second {
		every = time.Second
	}
	return s.cron.AddJob("@every "+every.String(), s.wrap(name, timeout, job))
}

// ScheduleDaily registers job to run once a day at the HH:MM local time.
func (s *SchedulerService) ScheduleDaily(name, at string, timeout time.Duration, job Job) (cron.EntryID, error) {
	spec, err := dailySpec(at)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return s.cron.AddJob(spec, s.wrap(name, timeout, job))
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to return.
func (s *SchedulerService) Stop() {
	<-s.cron.Stop().Done()
}

// Entries reports how many jobs are registered.
func (s *SchedulerService) Entries() int {
	return len(s.cron.Entries())
}

func (s *SchedulerService) wrap(name string, timeout time.Duration, job Job) cron.Job {
	return cron.FuncJob(func() {
		ctx := s.ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		start := time.Now()
		err := job(ctx)
		switch {
		case err == nil:
			s.logger.Info("job done", "name", name, "took", time.Since(start).Round(time.Millisecond))
		case errors.Is(err, context.Canceled):
			// shutting down
		default:
			s.logger.Error(err, "job failed", "name", name)
		}
	})
}

// dailySpec turns "HH:MM" into a standard five-field cron spec.
func dailySpec(at string) (string, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(at), ":")
	if !ok {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", at)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", at)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", at)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
