package scheduler

import (
	"context"
	"os"
	"time"

	"github.com/grocerwatch/backend/internal/domain"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "scheduler").Logger()

// runTimeout bounds a single reconciliation run; bulk fetches finish in
// seconds, so anything longer is stuck.
const runTimeout = 2 * time.Minute

// Config pins the weekly trigger to a weekday and a wall-clock time.
type Config struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

// Runner is the reconciliation trigger the scheduler drives. The service
// serializes runs itself, so overlapping triggers are safe.
type Runner interface {
	RunReconciliation(ctx context.Context) (*domain.SpecialsSnapshot, []error)
}

// Run fires one reconciliation immediately, then once per week at the
// configured weekday and time, until ctx is cancelled. Failures are logged
// and the next cycle still runs.
func Run(ctx context.Context, runner Runner, cfg Config) {
	logger.Info().Str("weekday", cfg.Weekday.String()).
		Int("hour", cfg.Hour).Int("minute", cfg.Minute).Msg("started")

	runOnce(ctx, runner)

	for {
		wait := untilNext(time.Now(), cfg)
		timer := time.NewTimer(wait)
		logger.Info().Dur("wait", wait).Msg("next run scheduled")

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info().Msg("stopping")
			return
		case <-timer.C:
			runOnce(ctx, runner)
		}
	}
}

func runOnce(ctx context.Context, runner Runner) {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	snapshot, warnings := runner.RunReconciliation(runCtx)
	for _, w := range warnings {
		logger.Warn().Err(w).Msg("reconciliation warning")
	}
	if snapshot == nil {
		logger.Error().Msg("reconciliation produced no snapshot")
	}
}

// untilNext returns the duration from now to the next configured weekday and
// time. A trigger time earlier today counts as this week's and pushes the
// next run a full week out.
func untilNext(now time.Time, cfg Config) time.Duration {
	days := (int(cfg.Weekday) - int(now.Weekday()) + 7) % 7
	next := time.Date(now.Year(), now.Month(), now.Day(), cfg.Hour, cfg.Minute, 0, 0, now.Location())
	next = next.AddDate(0, 0, days)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next.Sub(now)
}
