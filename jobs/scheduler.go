// Package jobs runs the recurring maintenance sweeps.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/taskhub-server/internal/config"
	"github.com/jrsteele09/taskhub-server/users"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const jobTimeout = 5 * time.Minute

// SessionCleaner is the part of the session store the sweeps need.
type SessionCleaner interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
	InvalidateAllUserSessions(ctx context.Context, userID string) (int64, error)
}

// Scheduler owns the cron runner and the sweep jobs registered on it.
type Scheduler struct {
	cron      *cron.Cron
	sessions  SessionCleaner
	users     users.Repo
	retention time.Duration
	nowFunc   func() time.Time

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// SchedulerOption defines a function type to modify the Scheduler instance.
type SchedulerOption func(*Scheduler)

func WithNowTime(nowFunc func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.nowFunc = nowFunc
	}
}

// NewScheduler registers the session sweep and the user purge on their configured schedules.
func NewScheduler(cleaner SessionCleaner, userRepo users.Repo, cfg config.SessionConfig, options ...SchedulerOption) (*Scheduler, error) {
	if cleaner == nil {
		return nil, errors.New("[NewScheduler] session cleaner is required")
	}
	if userRepo == nil {
		return nil, errors.New("[NewScheduler] user repo is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewScheduler] session config is required")
	}

	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		sessions:  cleaner,
		users:     userRepo,
		retention: cfg.GetUserPurgeRetention(),
		nowFunc:   time.Now,
		ctx:       context.Background(),
	}
	for _, opt := range options {
		opt(s)
	}

	if _, err := s.cron.AddFunc(cfg.GetSessionCleanupSchedule(), s.run("session-sweep", s.sweepSessions)); err != nil {
		return nil, fmt.Errorf("[NewScheduler] session sweep schedule %q: %w", cfg.GetSessionCleanupSchedule(), err)
	}
	if _, err := s.cron.AddFunc(cfg.GetUserPurgeSchedule(), s.run("user-purge", s.purgeUsers)); err != nil {
		return nil, fmt.Errorf("[NewScheduler] user purge schedule %q: %w", cfg.GetUserPurgeSchedule(), err)
	}
	return s, nil
}

// Start begins running jobs in the background. Jobs stop when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.cron.Start()
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("job scheduler started")
}

// Stop halts scheduling and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn().Msg("job scheduler stopped before running jobs finished")
	}
	cancel()
}

func (s *Scheduler) jobContext() (context.Context, context.CancelFunc) {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	return context.WithTimeout(parent, jobTimeout)
}

// run adapts a sweep to a cron func. Failures are logged and the schedule continues.
func (s *Scheduler) run(name string, job func(ctx context.Context) (int64, error)) func() {
	return func() {
		ctx, cancel := s.jobContext()
		defer cancel()

		started := time.Now()
		n, err := job(ctx)
		if err != nil {
			log.Err(err).Str("job", name).Msg("scheduled job failed")
			return
		}
		log.Info().Str("job", name).Int64("count", n).Dur("took", time.Since(started)).Msg("scheduled job finished")
	}
}

// SweepSessions removes expired and inactive sessions immediately.
func (s *Scheduler) SweepSessions(ctx context.Context) (int64, error) {
	return s.sweepSessions(ctx)
}

// PurgeDeletedUsers hard-deletes users soft-deleted longer than the retention window.
func (s *Scheduler) PurgeDeletedUsers(ctx context.Context) (int64, error) {
	return s.purgeUsers(ctx)
}

func (s *Scheduler) sweepSessions(ctx context.Context) (int64, error) {
	return s.sessions.CleanupExpiredSessions(ctx)
}

// purgeUsers deletes a user's sessions before the user so no session outlives its owner.
// One failing user does not stop the rest.
func (s *Scheduler) purgeUsers(ctx context.Context) (int64, error) {
	cutoff := s.nowFunc().Add(-s.retention)
	candidates, err := s.users.ListDeletedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("[Scheduler.purgeUsers] ListDeletedBefore: %w", err)
	}

	var (
		purged int64
		errs   []error
	)
	for _, u := range candidates {
		if _, err := s.sessions.InvalidateAllUserSessions(ctx, u.ID); err != nil {
			errs = append(errs, fmt.Errorf("sessions of %s: %w", u.ID, err))
			continue
		}
		if err := s.users.Delete(ctx, u.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", u.ID, err))
			continue
		}
		purged++
	}
	if len(errs) > 0 {
		return purged, fmt.Errorf("[Scheduler.purgeUsers] %d of %d users not purged: %w", len(errs), len(candidates), errors.Join(errs...))
	}
	return purged, nil
}

// cronLogger routes the cron runner's own messages to zerolog.
type cronLogger struct{}

var _ cron.Logger = cronLogger{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
