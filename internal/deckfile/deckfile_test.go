package deckfile_test

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/mnarita/kioku/internal/deckfile"
	"github.com/mnarita/kioku/internal/srs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 18, 12, 0, 0, 0, time.UTC)

// buildDeck runs a few days of answers so the stream carries card
// histories, estimator data, day rows, group links and a tested queue.
func buildDeck(t *testing.T) *srs.Deck {
	t.Helper()
	now := base
	d := srs.NewDeck(9, "vocab", srs.NewProfile())
	d.SetClock(func() time.Time { return now })

	c0, err := d.CreateCard(srs.NoHandle, 100)
	require.NoError(t, err)
	c1, err := d.CreateCard(c0, 101)
	require.NoError(t, err)
	c2, err := d.CreateCard(srs.NoHandle, 102)
	require.NoError(t, err)

	d.StartTestDay()
	_, err = d.Answer(c0, srs.AnswerCorrect, 120)
	require.NoError(t, err)
	_, err = d.Answer(c1, srs.AnswerWrong, 80)
	require.NoError(t, err)
	_, err = d.Answer(c1, srs.AnswerCorrect, 40)
	require.NoError(t, err)

	now = base.AddDate(0, 0, 2)
	d.StartTestDay()
	_, err = d.Answer(c0, srs.AnswerEasy, 60)
	require.NoError(t, err)
	_, err = d.Answer(c2, srs.AnswerRetry, 200)
	require.NoError(t, err)
	return d
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	d := buildDeck(t)

	var first bytes.Buffer
	require.NoError(t, deckfile.Encode(&first, d))

	decoded, warnings, err := deckfile.Decode(bytes.NewReader(first.Bytes()), srs.NewProfile())
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, d.ID(), decoded.ID())
	assert.Equal(t, d.Name(), decoded.Name())
	assert.Equal(t, d.TestDay(), decoded.TestDay())
	assert.Equal(t, d.CardCount(), decoded.CardCount())
	assert.Equal(t, d.TestedToday(), decoded.TestedToday())
	assert.Equal(t, d.Days().Rows(), decoded.Days().Rows())

	for h := srs.Handle(0); int(h) < d.CardCount(); h++ {
		want, _ := d.CardAt(h)
		got, _ := decoded.CardAt(h)
		assert.Equal(t, want.Level, got.Level)
		assert.Equal(t, want.Spacing, got.Spacing)
		assert.Equal(t, want.TestDate, got.TestDate)
		assert.Equal(t, want.ItemDate, got.ItemDate)
		assert.Equal(t, want.Repeats, got.Repeats)
		assert.Equal(t, want.TestLevel, got.TestLevel)
		assert.Equal(t, want.AnswerCounts, got.AnswerCounts)
		assert.Equal(t, want.GroupNext, got.GroupNext)
		assert.Equal(t, want.UserData, got.UserData)
		assert.Equal(t, want.TimeSpentTotal, got.TimeSpentTotal)
		assert.Equal(t, len(want.Stats), len(got.Stats))
		// Multipliers are stored at 1/1000 precision.
		assert.InDelta(t, want.Multiplier, got.Multiplier, 0.001)
	}

	// Re-encoding the decoded deck reproduces the stream byte for byte;
	// the multiplier quantization is stable across cycles.
	var second bytes.Buffer
	require.NoError(t, deckfile.Encode(&second, decoded))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestEncodeDecode_EmptyDeck(t *testing.T) {
	d := srs.NewDeck(1, "", srs.NewProfile())

	var buf bytes.Buffer
	require.NoError(t, deckfile.Encode(&buf, d))

	decoded, warnings, err := deckfile.Decode(bytes.NewReader(buf.Bytes()), srs.NewProfile())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 0, decoded.CardCount())
	assert.Equal(t, srs.Day(-1), decoded.TestDay())
}

func TestDecode_BadMagic(t *testing.T) {
	_, _, err := deckfile.Decode(bytes.NewReader([]byte("XXXXxxxxxxxx")), srs.NewProfile())
	assert.ErrorIs(t, err, deckfile.ErrBadMagic)
}

func TestDecode_BadVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("KDKF")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(9)))

	_, _, err := deckfile.Decode(bytes.NewReader(buf.Bytes()), srs.NewProfile())
	assert.ErrorIs(t, err, deckfile.ErrBadVersion)
}

// header writes a valid stream prefix up to and including the card
// count, with an empty name and no test day.
func header(t *testing.T, cardCount uint32) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("KDKF")
	for _, v := range []any{uint16(1), uint32(7), uint16(0), uint16(0), cardCount} {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}
	return &buf
}

func TestDecode_CardCountOutOfBounds(t *testing.T) {
	buf := header(t, 1<<21)
	_, _, err := deckfile.Decode(bytes.NewReader(buf.Bytes()), srs.NewProfile())
	assert.ErrorIs(t, err, deckfile.ErrStreamSize)
}

func TestDecode_NameLengthOutOfBounds(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("KDKF")
	for _, v := range []any{uint16(1), uint32(7), uint16(2000)} {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}
	_, _, err := deckfile.Decode(bytes.NewReader(buf.Bytes()), srs.NewProfile())
	assert.ErrorIs(t, err, deckfile.ErrStreamSize)
}

func TestDecode_InvalidStatDate(t *testing.T) {
	buf := header(t, 1)
	// One stat row whose packed day carries month 13.
	badDay := uint16(24)<<9 | uint16(13)<<5 | 1
	for _, v := range []any{uint16(1), badDay} {
		require.NoError(t, binary.Write(buf, binary.LittleEndian, v))
	}
	_, _, err := deckfile.Decode(bytes.NewReader(buf.Bytes()), srs.NewProfile())
	assert.ErrorIs(t, err, deckfile.ErrInvalidDate)
}

func TestDecode_TruncatedStreamSalvagesCards(t *testing.T) {
	day := srs.DayOf(base)
	mkCard := func(userData int64) *srs.Card {
		return &srs.Card{
			Level:      1,
			Multiplier: 2.5,
			Spacing:    srs.DaySeconds,
			TestDate:   base.Unix() - srs.DaySeconds,
			ItemDate:   base.Unix() - srs.DaySeconds,
			UserData:   userData,
			Stats: []srs.CardStat{
				{Day: day - 1, Level: 1, Multiplier: 2.5, TimeSpent: 50},
			},
		}
	}
	cards := []*srs.Card{mkCard(1), mkCard(2), mkCard(3)}
	cards[0].GroupNext = 1
	cards[1].GroupNext = 0
	cards[2].GroupNext = 2
	d := srs.LoadDeck(9, "vocab", srs.NewProfile(), cards, nil, nil, nil, day)

	var buf bytes.Buffer
	require.NoError(t, deckfile.Encode(&buf, d))

	// Header is 23 bytes, each one-stat card record 53; cutting inside
	// the second record leaves exactly one salvageable card.
	cut := 23 + 53 + 10
	require.Greater(t, buf.Len(), cut)

	decoded, warnings, err := deckfile.Decode(bytes.NewReader(buf.Bytes()[:cut]), srs.NewProfile())
	require.NoError(t, err)
	require.NotEmpty(t, warnings)
	assert.Equal(t, 1, decoded.CardCount())
	assert.Equal(t, day, decoded.TestDay())

	c, err := decoded.CardAt(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.UserData)
	assert.Equal(t, srs.Handle(0), c.GroupNext, "group links repair to singletons")

	// Day statistics were rebuilt from the salvaged history.
	require.Equal(t, 1, decoded.Days().Len())
	row := decoded.Days().Row(0)
	assert.Equal(t, day-1, row.Day)
	assert.Equal(t, 1, row.Tested)
	assert.Equal(t, 1, row.Included)
	assert.Equal(t, 50, row.TimeSpent)
	assert.Equal(t, 1, row.ItemCount)
	assert.Equal(t, 1, row.GroupCount)
}

func TestEncodeDecode_LargeRepeatCount(t *testing.T) {
	cards := []*srs.Card{{Multiplier: 2.5, Repeats: 300, UserData: 1}}
	d := srs.LoadDeck(3, "vocab", srs.NewProfile(), cards, nil, nil, nil, srs.DayOf(base))

	var buf bytes.Buffer
	require.NoError(t, deckfile.Encode(&buf, d))

	decoded, warnings, err := deckfile.Decode(bytes.NewReader(buf.Bytes()), srs.NewProfile())
	require.NoError(t, err)
	assert.Empty(t, warnings)

	c, err := decoded.CardAt(0)
	require.NoError(t, err)
	assert.Equal(t, 300, c.Repeats, "repeat counts above one byte survive the round trip")
}

func TestDecode_RepairsNonCyclicGroupTable(t *testing.T) {
	d := srs.NewDeck(9, "vocab", srs.NewProfile())
	_, err := d.CreateCard(srs.NoHandle, 1)
	require.NoError(t, err)
	_, err = d.CreateCard(srs.NoHandle, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, deckfile.Encode(&buf, d))

	// The group table sits right before the empty tested list: point both
	// cards at card 1 so card 0's chain never closes back on itself.
	raw := buf.Bytes()
	binary.LittleEndian.PutUint32(raw[len(raw)-12:], 1)
	binary.LittleEndian.PutUint32(raw[len(raw)-8:], 1)

	decoded, warnings, err := deckfile.Decode(bytes.NewReader(raw), srs.NewProfile())
	require.NoError(t, err)
	assert.Empty(t, warnings)

	cards := decoded.Cards()
	assert.Equal(t, srs.Handle(0), cards[0].GroupNext, "broken link repairs to a singleton")
	assert.Equal(t, srs.Handle(1), cards[1].GroupNext)

	next, err := decoded.DeleteCard(0)
	require.NoError(t, err)
	assert.Equal(t, srs.NoHandle, next)
	assert.Equal(t, 1, decoded.CardCount())
}

func TestProfileRoundTrip(t *testing.T) {
	p := &srs.Profile{CardCount: 17, MultiplierAverage: 2.31}

	var buf bytes.Buffer
	require.NoError(t, deckfile.EncodeProfile(&buf, p))

	got, err := deckfile.DecodeProfile(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDecodeProfile_BadMagic(t *testing.T) {
	_, err := deckfile.DecodeProfile(bytes.NewReader([]byte("XXXXxxxxxxxxxx")))
	assert.ErrorIs(t, err, deckfile.ErrBadMagic)
}
