package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const cleanupTimeout = 30 * time.Second

// Sweeper removes records that can no longer be used.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// CleanupJob periodically sweeps dead PIN records. Lazy expiry already keeps
// validation correct; the sweep only bounds memory.
type CleanupJob struct {
	sweeper  Sweeper
	interval time.Duration
	cron     *cron.Cron
}

func NewCleanupJob(sweeper Sweeper, interval time.Duration) *CleanupJob {
	logger := cronLogger{}
	return &CleanupJob{
		sweeper:  sweeper,
		interval: interval,
		cron: cron.New(cron.WithLogger(logger), cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		)),
	}
}

// Start runs one sweep immediately and then every interval.
func (j *CleanupJob) Start() error {
	if j.interval < time.Second {
		return fmt.Errorf("cleanup interval must be at least 1s, got %s", j.interval)
	}
	schedule := fmt.Sprintf("@every %s", j.interval)
	if _, err := j.cron.AddFunc(schedule, j.cleanup); err != nil {
		return fmt.Errorf("schedule cleanup job: %w", err)
	}

	go j.cleanup()
	j.cron.Start()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
	return nil
}

// Stop waits for a running sweep to finish.
func (j *CleanupJob) Stop() {
	<-j.cron.Stop().Done()
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	j.runCleanup(ctx, "pin records", j.sweeper.SweepExpired)
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}

// cronLogger routes cron's internal logging through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
