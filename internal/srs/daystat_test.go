package srs_test

import (
	"testing"
	"time"

	"github.com/mnarita/kioku/internal/srs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayStats_IncrementalCounters(t *testing.T) {
	s := srs.NewDayStats()

	s.NewCard(100, true)
	s.CardTested(100, 50, true, false, false, false)
	s.NewCard(100, false)
	s.CardTested(100, 30, true, true, false, false)

	require.Equal(t, 1, s.Len())
	row := s.Row(0)
	assert.Equal(t, srs.Day(100), row.Day)
	assert.Equal(t, 2, row.Tested)
	assert.Equal(t, 2, row.Included)
	assert.Equal(t, 1, row.Wrong)
	assert.Equal(t, 80, row.TimeSpent)
	assert.Equal(t, 2, row.ItemCount)
	assert.Equal(t, 1, row.GroupCount, "the second card joined an already tested group")
}

func TestDayStats_CumulativeCarryForward(t *testing.T) {
	s := srs.NewDayStats()
	s.NewCard(100, true)
	s.CardTested(100, 50, true, false, false, false)

	// Two days later a card becomes learned; the cumulative counters
	// carry forward, the daily ones start fresh.
	s.CardTested(102, 10, true, false, true, false)
	require.Equal(t, 2, s.Len())
	row := s.Row(1)
	assert.Equal(t, srs.Day(102), row.Day)
	assert.Equal(t, 1, row.Tested)
	assert.Equal(t, 0, row.Included)
	assert.Equal(t, 10, row.TimeSpent)
	assert.Equal(t, 1, row.Learned)
	assert.Equal(t, 1, row.ItemCount)
	assert.Equal(t, 1, row.LearnedCount)

	// A failure the next day clears the learned state again.
	s.CardTested(103, 5, true, true, false, true)
	row = s.Row(2)
	assert.Equal(t, 0, row.LearnedCount)
	assert.Equal(t, 1, row.Wrong)
}

func TestDayStats_CardDeleted(t *testing.T) {
	s := srs.NewDayStats()
	s.NewCard(100, true)
	s.CardTested(100, 50, true, false, true, false)

	s.CardDeleted(105, true, true)
	row := s.Row(s.Len() - 1)
	assert.Equal(t, srs.Day(105), row.Day)
	assert.Equal(t, 0, row.ItemCount)
	assert.Equal(t, 0, row.GroupCount)
	assert.Equal(t, 0, row.LearnedCount)
}

func TestDayStats_MergeAndSplit(t *testing.T) {
	s := srs.NewDayStats()
	s.NewCard(10, true)
	s.NewCard(10, true)

	s.GroupsMerged(10)
	assert.Equal(t, 1, s.Row(0).GroupCount)

	s.GroupsSplit(10)
	assert.Equal(t, 2, s.Row(0).GroupCount)
}

func TestDayStats_StaleDayFallsToLatestRow(t *testing.T) {
	s := srs.NewDayStats()
	s.NewCard(100, true)
	s.CardTested(100, 50, true, false, false, false)

	// Days never move backwards; an event stamped with an older day
	// lands on the most recent row.
	s.CardTested(99, 20, true, false, false, false)
	require.Equal(t, 1, s.Len())
	row := s.Row(0)
	assert.Equal(t, srs.Day(100), row.Day)
	assert.Equal(t, 2, row.Tested)
	assert.Equal(t, 70, row.TimeSpent)
}

// Replays several days of answers through the incremental counters, then
// rebuilds from the reconstructed event history and expects row-for-row
// identical aggregates.
func TestRebuildDayStats_MatchesIncremental(t *testing.T) {
	now := testBase
	d := srs.NewDeck(1, "vocab", srs.NewProfile())
	d.SetClock(func() time.Time { return now })

	c0, _ := d.CreateCard(srs.NoHandle, 0)
	c1, _ := d.CreateCard(c0, 1)
	c2, _ := d.CreateCard(srs.NoHandle, 2)

	require.True(t, d.StartTestDay())
	_, err := d.Answer(c0, srs.AnswerCorrect, 100)
	require.NoError(t, err)
	_, err = d.Answer(c1, srs.AnswerCorrect, 80)
	require.NoError(t, err)
	_, err = d.Answer(c2, srs.AnswerCorrect, 120)
	require.NoError(t, err)

	now = testBase.AddDate(0, 0, 2)
	require.True(t, d.StartTestDay())
	_, err = d.Answer(c0, srs.AnswerCorrect, 60)
	require.NoError(t, err)

	now = testBase.AddDate(0, 0, 5)
	require.True(t, d.StartTestDay())
	_, err = d.Answer(c0, srs.AnswerWrong, 90)
	require.NoError(t, err)

	now = testBase.AddDate(0, 0, 70)
	require.True(t, d.StartTestDay())
	_, err = d.Answer(c1, srs.AnswerCorrect, 40)
	require.NoError(t, err)

	want := d.Days().Rows()
	require.Len(t, want, 4)
	last := want[len(want)-1]
	require.Equal(t, 1, last.Learned, "the 70-day gap marked the card learned")
	require.Equal(t, 1, last.LearnedCount)

	d.RebuildDayStats(d.DayStatEvents())

	assert.Equal(t, want, d.Days().Rows())
	c, err := d.CardAt(c1)
	require.NoError(t, err)
	assert.True(t, c.Learned, "the rebuild recomputed the learned flag")
}

func TestDayStatEvents_InfersCorrectnessFromLevels(t *testing.T) {
	now := testBase
	d := srs.NewDeck(1, "vocab", srs.NewProfile())
	d.SetClock(func() time.Time { return now })

	h, _ := d.CreateCard(srs.NoHandle, 0)
	d.StartTestDay()
	_, err := d.Answer(h, srs.AnswerCorrect, 10)
	require.NoError(t, err)

	now = testBase.AddDate(0, 0, 2)
	d.StartTestDay()
	_, err = d.Answer(h, srs.AnswerCorrect, 10)
	require.NoError(t, err)

	now = testBase.AddDate(0, 0, 4)
	d.StartTestDay()
	_, err = d.Answer(h, srs.AnswerWrong, 10)
	require.NoError(t, err)

	events := d.DayStatEvents()
	require.Len(t, events, 3)
	assert.True(t, events[0].Correct)
	assert.True(t, events[1].Correct)
	assert.False(t, events[2].Correct, "a level drop reads as a failure")
}
