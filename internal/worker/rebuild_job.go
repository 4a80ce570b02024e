package worker

import (
	"context"

	"github.com/mnarita/kioku/internal/logger"
)

// StatsRebuilder is implemented by the study service. Defined here so
// the job does not depend on the services package.
type StatsRebuilder interface {
	RebuildDeckStats(ctx context.Context, deckID int64) error
}

// RebuildStatsJob replays a deck's full test history to rebuild its
// day statistics, off the request path.
type RebuildStatsJob struct {
	Rebuilder StatsRebuilder
	DeckID    int64
}

func (j *RebuildStatsJob) Name() string {
	return "rebuild-stats"
}

func (j *RebuildStatsJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("deck_id", j.DeckID)
	log.Debug("rebuilding day statistics")
	return j.Rebuilder.RebuildDeckStats(ctx, j.DeckID)
}
