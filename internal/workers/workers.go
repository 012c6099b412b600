// Package workers holds housekeeping jobs that run outside request handling.
package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type TrialExpirer interface {
	ExpireTrials(ctx context.Context, now int64) (int64, error)
}

type Maintenance struct {
	sessions SessionPurger
	tenants  TrialExpirer
	now      func() time.Time
}

func NewMaintenance(sessions SessionPurger, tenants TrialExpirer) *Maintenance {
	return &Maintenance{sessions: sessions, tenants: tenants, now: time.Now}
}

// PurgeSessions deletes server-side sessions past their expiry.
func (m *Maintenance) PurgeSessions(ctx context.Context) error {
	n, err := m.sessions.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	log.Info().Int64("count", n).Msg("Worker: purged expired sessions")
	return nil
}

// ExpireTrials persists the inactive status of lapsed trials. Requests
// already treat them as inactive; this keeps stored data in step.
func (m *Maintenance) ExpireTrials(ctx context.Context) error {
	n, err := m.tenants.ExpireTrials(ctx, m.now().Unix())
	if err != nil {
		return err
	}
	log.Info().Int64("count", n).Msg("Worker: expired trial subscriptions")
	return nil
}

// RunOnce runs every job, logging failures without stopping.
func (m *Maintenance) RunOnce(ctx context.Context) {
	if err := m.PurgeSessions(ctx); err != nil {
		log.Error().Err(err).Msg("Worker: session purge failed")
	}
	if err := m.ExpireTrials(ctx); err != nil {
		log.Error().Err(err).Msg("Worker: trial expiry failed")
	}
}

// Run repeats RunOnce every interval until ctx is cancelled.
func (m *Maintenance) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}
