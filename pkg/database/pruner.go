package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Pruner deletes old audit entries on a cron schedule
type Pruner struct {
	store     *AuditStore
	retention time.Duration
	cron      *cron.Cron
}

// NewPruner schedules store.Prune. schedule accepts standard five-field
// expressions and descriptors such as "@daily" or "@every 1h".
func NewPruner(store *AuditStore, schedule string, retention time.Duration) (*Pruner, error) {
	p := &Pruner{
		store:     store,
		retention: retention,
		cron:      cron.New(),
	}
	if _, err := p.cron.AddFunc(schedule, func() { p.RunOnce(context.Background()) }); err != nil {
		return nil, errors.Wrapf(err, "invalid prune schedule %q", schedule)
	}
	return p, nil
}

// RunOnce prunes immediately and returns the number of removed entries.
func (p *Pruner) RunOnce(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	removed, err := p.store.Prune(ctx, p.retention)
	if err != nil {
		log.Warn().Err(err).Msg("Audit prune failed")
		return 0
	}
	log.Info().Int64("removed", removed).Dur("retention", p.retention).Msg("Pruned audit log")
	return removed
}

// Start runs the schedule until ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) {
	p.cron.Start()
	log.Info().Int("entries", len(p.cron.Entries())).Msg("Audit pruner started")

	<-ctx.Done()
	<-p.cron.Stop().Done()
}
