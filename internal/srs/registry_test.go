package srs_test

import (
	"testing"
	"time"

	"github.com/mnarita/kioku/internal/srs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateAndLookup(t *testing.T) {
	r := srs.NewRegistry(nil)
	require.NotNil(t, r.Profile())

	d1 := r.CreateDeck("kanji")
	d2 := r.CreateDeck("vocab")
	assert.Equal(t, int64(1), d1.ID())
	assert.Equal(t, int64(2), d2.ID())

	got, err := r.GetDeck(d1.ID())
	require.NoError(t, err)
	assert.Same(t, d1, got)

	_, err = r.GetDeck(99)
	assert.ErrorIs(t, err, srs.ErrNoDeck)

	assert.Equal(t, []*srs.Deck{d1, d2}, r.Decks())
}

func TestRegistry_AddDeckBumpsIDs(t *testing.T) {
	r := srs.NewRegistry(nil)
	loaded := srs.NewDeck(7, "loaded", r.Profile())
	require.NoError(t, r.AddDeck(loaded))

	assert.Error(t, r.AddDeck(srs.NewDeck(7, "dup", r.Profile())))

	d := r.CreateDeck("fresh")
	assert.Equal(t, int64(8), d.ID(), "ids at or below a loaded deck are never handed out")
}

func TestRegistry_RemoveDeck(t *testing.T) {
	r := srs.NewRegistry(nil)
	d1 := r.CreateDeck("a")
	d2 := r.CreateDeck("b")

	require.NoError(t, r.RemoveDeck(d1.ID()))
	assert.ErrorIs(t, r.RemoveDeck(d1.ID()), srs.ErrNoDeck)
	assert.Equal(t, []*srs.Deck{d2}, r.Decks())

	// The removed id is not reused.
	d3 := r.CreateDeck("c")
	assert.Equal(t, int64(3), d3.ID())
}

func TestRegistry_FixStats(t *testing.T) {
	r := srs.NewRegistry(nil)
	d := r.CreateDeck("vocab")
	now := testBase
	d.SetClock(func() time.Time { return now })

	h, _ := d.CreateCard(srs.NoHandle, 0)
	d.StartTestDay()
	_, err := d.Answer(h, srs.AnswerCorrect, 50)
	require.NoError(t, err)
	now = testBase.AddDate(0, 0, 3)
	d.StartTestDay()
	_, err = d.Answer(h, srs.AnswerCorrect, 30)
	require.NoError(t, err)

	want := d.Days().Rows()
	r.FixStats()
	assert.Equal(t, want, d.Days().Rows())
}
