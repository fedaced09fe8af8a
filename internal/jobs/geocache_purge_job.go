package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/pkg/logger"
	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
	"github.com/robfig/cron/v3"
)

// Purger removes expired geocode cache entries.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// GeoCachePurgeJob evicts stale geocode results on a cron schedule.
type GeoCachePurgeJob struct {
	purger  Purger
	spec    string
	timeout time.Duration
	cron    *cron.Cron
	log     logger.Logger
}

// NewGeoCachePurgeJob takes a six-field cron spec (seconds first).
func NewGeoCachePurgeJob(purger Purger, spec string, log logger.Logger) *GeoCachePurgeJob {
	return &GeoCachePurgeJob{
		purger:  purger,
		spec:    spec,
		timeout: 30 * time.Second,
		cron:    cron.New(cron.WithSeconds()),
		log:     log,
	}
}

func (j *GeoCachePurgeJob) Start() error {
	if _, err := j.cron.AddFunc(j.spec, func() { j.run(context.Background()) }); err != nil {
		return fmt.Errorf("schedule geocache purge %q: %w", j.spec, err)
	}

	j.cron.Start()
	j.log.Info(wrap.WithAction(context.Background(), "geocache_purge_start"), "geocache purge job started", "spec", j.spec)
	return nil
}

// Stop waits for a running purge to finish.
func (j *GeoCachePurgeJob) Stop() {
	<-j.cron.Stop().Done()
	j.log.Info(wrap.WithAction(context.Background(), "geocache_purge_stop"), "geocache purge job stopped")
}

func (j *GeoCachePurgeJob) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(wrap.WithAction(ctx, types.ActionGeoCachePurged), j.timeout)
	defer cancel()

	n, err := j.purger.Purge(ctx)
	if err != nil {
		j.log.Error(wrap.ErrorCtx(ctx, err), "geocache purge failed", err)
		return
	}
	if n > 0 {
		j.log.Info(ctx, "expired geocode entries removed", "count", n)
	}
}
