package refresh

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/engiverse/engiverse-backend/internal/ingest/service"
)

const staleBatchLimit = 50

// ProjectSource lists projects due for a fresh report.
type ProjectSource interface {
	ListStaleIDs(ctx context.Context, cutoff time.Time, limit int) ([]int64, error)
}

// Refresher re-analyzes projects whose last report is older than maxAge.
// Runs nightly; each pass is best-effort and rate limited against the
// analysis service.
type Refresher struct {
	projects ProjectSource
	orch     *service.Orchestrator
	limiter  *rate.Limiter
	maxAge   time.Duration
	cron     *cron.Cron
}

func New(projects ProjectSource, orch *service.Orchestrator, maxAge time.Duration, rps float64) *Refresher {
	return &Refresher{
		projects: projects,
		orch:     orch,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		maxAge:   maxAge,
		cron:     cron.New(),
	}
}

// Start schedules the nightly refresh pass.
func (r *Refresher) Start() error {
	_, err := r.cron.AddFunc("0 0 * * *", func() {
		r.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	log.Info().Dur("max_age", r.maxAge).Msg("report refresh scheduler started (nightly)")
	r.cron.Start()
	return nil
}

func (r *Refresher) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}

// RunOnce refreshes one batch of stale projects.
func (r *Refresher) RunOnce(ctx context.Context) {
	cutoff := time.Now().Add(-r.maxAge)
	ids, err := r.projects.ListStaleIDs(ctx, cutoff, staleBatchLimit)
	if err != nil {
		log.Error().Err(err).Msg("list stale projects")
		return
	}

	refreshed := 0
	for _, id := range ids {
		if err := r.limiter.Wait(ctx); err != nil {
			return
		}
		if _, err := r.orch.AnalyzeProject(ctx, id); err != nil {
			log.Warn().Err(err).Int64("project_id", id).Msg("refresh analysis failed")
			continue
		}
		refreshed++
	}

	log.Info().Int("stale", len(ids)).Int("refreshed", refreshed).Msg("report refresh pass complete")
}
