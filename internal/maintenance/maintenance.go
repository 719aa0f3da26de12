// Package maintenance runs the scheduled housekeeping jobs of the identity service.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/lobkit/identity/internal/config"
)

// DefaultPasswordResetExpirySchedule is used when no schedule is configured.
const DefaultPasswordResetExpirySchedule = "@every 1h"

// ErrExpirerNil is returned when no PasswordResetExpirer is passed to New.
var ErrExpirerNil = errors.New("password reset expirer is nil")

// PasswordResetExpirer expires stale password resets.
type PasswordResetExpirer interface {
	ExpirePasswordResets(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Scheduler runs the maintenance jobs on their cron schedules.
type Scheduler struct {
	cron    *cron.Cron
	expirer PasswordResetExpirer
	maxAge  time.Duration
	timeout time.Duration
}

// New creates a Scheduler expiring password resets older than maxAge on the configured schedule.
func New(cfg config.Maintenance, expirer PasswordResetExpirer, maxAge time.Duration) (*Scheduler, error) {
	if expirer == nil {
		return nil, ErrExpirerNil
	}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger{}),
			cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
		),
		expirer: expirer,
		maxAge:  maxAge,
		timeout: time.Minute,
	}

	schedule := cfg.PasswordResetExpirySchedule
	if schedule == "" {
		schedule = DefaultPasswordResetExpirySchedule
	}

	if _, err := s.cron.AddFunc(schedule, s.ExpirePasswordResets); err != nil {
		return nil, fmt.Errorf("invalid password reset expiry schedule %q: %w", schedule, err)
	}

	log.Info().Str("schedule", schedule).Dur("max_age", maxAge).Msg("scheduled password reset expiry")

	return s, nil
}

// Start starts the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("maintenance scheduler started")
}

// Stop stops the scheduler and waits for running jobs to complete.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("maintenance scheduler stopped")
}

// Entries returns the number of scheduled jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// ExpirePasswordResets runs the password reset expiry job once.
func (s *Scheduler) ExpirePasswordResets() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	expired, err := s.expirer.ExpirePasswordResets(ctx, s.maxAge)
	if err != nil {
		log.Error().Err(err).Msg("failed to expire password resets")
		return
	}

	log.Debug().Int64("expired", expired).Msg("password reset expiry finished")
}

// cronLogger writes cron's own log lines to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
