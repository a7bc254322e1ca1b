// Package keepalive pings every configured connection on a schedule and
// logs pool statistics, so dead databases surface in the logs instead of
// on the first query.
package keepalive

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/driftworks/sqlbridge/internal/pool"
)

const pingTimeout = 10 * time.Second

// Runner schedules periodic pings over a connector pool.
type Runner struct {
	cron *cron.Cron
	pool *pool.Manager
}

// New creates a runner that pings every interval.
func New(mgr *pool.Manager, interval time.Duration) (*Runner, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("keepalive interval must be positive, got %s", interval)
	}

	r := &Runner{
		cron: cron.New(),
		pool: mgr,
	}
	if _, err := r.cron.AddFunc(fmt.Sprintf("@every %s", interval), r.run); err != nil {
		return nil, fmt.Errorf("failed to schedule keepalive: %w", err)
	}
	return r, nil
}

// Start begins the schedule.
func (r *Runner) Start() {
	r.cron.Start()
	log.Info().Msg("Keepalive started")
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Keepalive stopped")
}

func (r *Runner) run() {
	for _, name := range r.pool.Names() {
		conn, err := r.pool.Get(name)
		if err != nil {
			log.Error().Err(err).Str("connection", name).Msg("Keepalive skipped connection")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err = conn.Ping(ctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("connection", name).Msg("Keepalive ping failed")
			continue
		}

		stats := conn.Stats()
		log.Debug().
			Str("connection", name).
			Int("open", stats.OpenConnections).
			Int("in_use", stats.InUse).
			Int("idle", stats.Idle).
			Msg("Keepalive ping ok")
	}
}
