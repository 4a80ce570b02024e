package jobs

import (
	"github.com/mnarita/kioku/internal/worker"
)

// WorkerQueue implements JobQueue using the worker pool
type WorkerQueue struct {
	pool      *worker.Pool
	rebuilder worker.StatsRebuilder
}

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(pool *worker.Pool, rebuilder worker.StatsRebuilder) JobQueue {
	return &WorkerQueue{pool: pool, rebuilder: rebuilder}
}

func (q *WorkerQueue) EnqueueRebuild(deckID int64) error {
	return q.pool.Submit(&worker.RebuildStatsJob{
		Rebuilder: q.rebuilder,
		DeckID:    deckID,
	})
}
