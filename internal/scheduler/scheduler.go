package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/guttosm/nsepulse/internal/logger"
)

// Job is one scheduled unit of work, typically a full screening run.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron schedule. Overlapping runs are skipped: a
// tick that fires while the previous run is still going is dropped.
type Scheduler struct {
	cron *cron.Cron
	job  Job
	ctx  context.Context
	log  zerolog.Logger
}

// New parses spec (six fields, seconds first, or a descriptor such as
// "@every 1h") in loc and registers job. A nil loc means time.Local.
func New(ctx context.Context, spec string, loc *time.Location, job Job) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	log := logger.Component("scheduler")
	s := &Scheduler{job: job, ctx: ctx, log: log}
	s.cron = cron.New(
		cron.WithSeconds(),
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: log})),
	)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("register screening job %q: %w", spec, err)
	}
	return s, nil
}

// Start starts the cron loop in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	if next := s.Next(); !next.IsZero() {
		s.log.Info().Time("next_run", next).Msg("scheduler started")
	}
}

// Stop stops scheduling new runs and waits for a running one to return or
// ctx to expire, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out with a run in progress")
	}
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes the job immediately on the caller's goroutine.
func (s *Scheduler) RunNow() {
	s.tick()
}

// Next returns the next scheduled activation, or the zero time if the
// scheduler has not been started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	if s.ctx.Err() != nil {
		return
	}
	start := time.Now()
	s.log.Info().Msg("scheduled screening started")
	if err := s.job(s.ctx); err != nil {
		s.log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("scheduled screening failed")
		return
	}
	s.log.Info().Dur("elapsed", time.Since(start)).Msg("scheduled screening finished")
}

// LoadLocation resolves name, falling back to a fixed +05:30 zone for
// "Asia/Kolkata" when the host has no tz database.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	if name == "Asia/Kolkata" {
		return time.FixedZone("IST", 5*3600+30*60), nil
	}
	return nil, err
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
