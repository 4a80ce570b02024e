package worker_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mnarita/kioku/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j *testJob) Name() string                  { return j.name }
func (j *testJob) Run(ctx context.Context) error { return j.run(ctx) }

func TestPool_RunsSubmittedJobs(t *testing.T) {
	p := worker.NewPool(2, 8)
	p.Start(context.Background())

	var ran int32
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		err := p.Submit(&testJob{name: "count", run: func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			wg.Done()
			return nil
		}})
		require.NoError(t, err)
	}
	wg.Wait()
	p.Stop()

	assert.Equal(t, int32(3), atomic.LoadInt32(&ran))
}

func TestPool_SubmitRejectsWhenFull(t *testing.T) {
	p := worker.NewPool(1, 1)

	noop := &testJob{name: "noop", run: func(ctx context.Context) error { return nil }}
	require.NoError(t, p.Submit(noop))
	assert.ErrorIs(t, p.Submit(noop), worker.ErrQueueFull)
	assert.Equal(t, 1, p.QueueSize())
}

type fakeRebuilder struct {
	ids []int64
}

func (f *fakeRebuilder) RebuildDeckStats(ctx context.Context, deckID int64) error {
	f.ids = append(f.ids, deckID)
	return nil
}

func TestRebuildStatsJob(t *testing.T) {
	r := &fakeRebuilder{}
	job := &worker.RebuildStatsJob{Rebuilder: r, DeckID: 7}

	assert.Equal(t, "rebuild-stats", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []int64{7}, r.ids)
}
