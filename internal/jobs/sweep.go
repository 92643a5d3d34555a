package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carevault/access-server-go/internal/repository"
	"github.com/carevault/access-server-go/internal/service"
)

// SweepJob reconciles time-based state on a fixed interval: overdue access
// tokens are demoted to expired (tokens are retained, never deleted), doctor
// sessions past their hard expiry are deactivated, and idle sessions are
// revoked through the manager. Each target fails in isolation.
type SweepJob struct {
	tokens   repository.AccessTokenRepository
	sessions repository.DoctorSessionRepository
	manager  *service.SessionManager
	interval time.Duration
	done     chan struct{}
}

func NewSweepJob(
	tokens repository.AccessTokenRepository,
	sessions repository.DoctorSessionRepository,
	manager *service.SessionManager,
	interval time.Duration,
) *SweepJob {
	return &SweepJob{
		tokens:   tokens,
		sessions: sessions,
		manager:  manager,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *SweepJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("sweep job started")
}

func (j *SweepJob) Stop() {
	close(j.done)
	log.Info().Msg("sweep job stopped")
}

func (j *SweepJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *SweepJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()

	j.runSweep(ctx, "overdue tokens", func(ctx context.Context) (int64, error) {
		return j.tokens.ExpireOverdue(ctx, now)
	})
	j.runSweep(ctx, "expired sessions", func(ctx context.Context) (int64, error) {
		return j.sessions.DeactivateExpired(ctx, now)
	})

	if revoked := j.manager.SweepIdle(ctx); revoked > 0 {
		log.Info().Int("count", revoked).Msg("revoked idle sessions")
	}
}

func (j *SweepJob) runSweep(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to sweep %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("swept %s", name)
	}
}
