package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/droply/pkg/logger"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) Purge(context.Context) (int64, error) {
	p.calls.Add(1)
	return 3, p.err
}

func TestGeoCachePurgeJob_Schedules(t *testing.T) {
	p := &countingPurger{}
	job := NewGeoCachePurgeJob(p, "* * * * * *", logger.Nop())

	require.NoError(t, job.Start())
	require.Eventually(t, func() bool { return p.calls.Load() > 0 }, 3*time.Second, 20*time.Millisecond)
	job.Stop()
}

func TestGeoCachePurgeJob_InvalidSpec(t *testing.T) {
	job := NewGeoCachePurgeJob(&countingPurger{}, "every hour", logger.Nop())
	require.Error(t, job.Start())
}

func TestGeoCachePurgeJob_RunSurvivesErrors(t *testing.T) {
	p := &countingPurger{err: errors.New("disk I/O error")}
	job := NewGeoCachePurgeJob(p, "0 0 * * * *", logger.Nop())

	job.run(context.Background())
	job.run(context.Background())
	assert.Equal(t, int32(2), p.calls.Load())
}
