// Package deckfile encodes and decodes the persisted binary layout of a
// study deck: the card records with their per-day histories, the time
// estimator histograms, the day statistics, the group-successor table
// and the tested-today list. All integers are fixed-width little
// endian, durations are tenth-seconds, and dates are bit-packed
// year/month/day (plus seconds of day for timestamps).
package deckfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/mnarita/kioku/internal/srs"
)

var (
	// ErrBadMagic is returned when the stream is not a deck file.
	ErrBadMagic = errors.New("deckfile: bad magic")
	// ErrBadVersion is returned for unknown format versions.
	ErrBadVersion = errors.New("deckfile: unsupported version")
	// ErrStreamSize is returned when a declared record length exceeds
	// sane bounds; rejected before any allocation happens.
	ErrStreamSize = errors.New("deckfile: declared size out of bounds")
	// ErrInvalidDate is returned when a stored date fails to parse;
	// fatal for the record's container.
	ErrInvalidDate = errors.New("deckfile: invalid date field")
)

var magic = [4]byte{'K', 'D', 'K', 'F'}

const version = 1

// Sane upper bounds checked before allocating anything.
const (
	maxCards      = 1 << 20
	maxStats      = 1 << 14
	maxLevels     = 1 << 10
	maxBuckets    = 1 << 10
	maxDayRows    = 1 << 20
	maxNameLength = 1 << 10
)

const multiplierScale = 1000

type countingWriter struct {
	w   io.Writer
	err error
}

func (cw *countingWriter) write(v any) {
	if cw.err != nil {
		return
	}
	cw.err = binary.Write(cw.w, binary.LittleEndian, v)
}

type reader struct {
	r   io.Reader
	err error
}

func (rd *reader) read(v any) {
	if rd.err != nil {
		return
	}
	rd.err = binary.Read(rd.r, binary.LittleEndian, v)
}

func (rd *reader) u8() uint8   { var v uint8; rd.read(&v); return v }
func (rd *reader) u16() uint16 { var v uint16; rd.read(&v); return v }
func (rd *reader) u32() uint32 { var v uint32; rd.read(&v); return v }
func (rd *reader) u64() uint64 { var v uint64; rd.read(&v); return v }
func (rd *reader) i16() int16  { var v int16; rd.read(&v); return v }
func (rd *reader) i32() int32  { var v int32; rd.read(&v); return v }

// Encode writes the deck in the persisted layout.
func Encode(w io.Writer, d *srs.Deck) error {
	cw := &countingWriter{w: w}
	cw.write(magic)
	cw.write(uint16(version))
	cw.write(uint32(d.ID()))

	name := []byte(d.Name())
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	cw.write(uint16(len(name)))
	cw.write(name)

	testDay, err := packDay(d.TestDay())
	if err != nil {
		return err
	}
	cw.write(testDay)

	cards := d.Cards()
	cw.write(uint32(len(cards)))
	for _, c := range cards {
		if err := encodeCard(cw, c); err != nil {
			return err
		}
	}

	encodeTimes(cw, d.Times())
	if err := encodeDays(cw, d.Days()); err != nil {
		return err
	}

	// Group-successor table.
	for _, c := range cards {
		cw.write(uint32(c.GroupNext))
	}

	tested := d.TestedToday()
	cw.write(uint32(len(tested)))
	for _, h := range tested {
		cw.write(uint32(h))
	}
	return cw.err
}

func encodeCard(cw *countingWriter, c *srs.Card) error {
	if len(c.Stats) > maxStats {
		return fmt.Errorf("%w: %d stat rows", ErrStreamSize, len(c.Stats))
	}
	cw.write(uint16(len(c.Stats)))
	for _, st := range c.Stats {
		day, err := packDay(st.Day)
		if err != nil {
			return err
		}
		cw.write(day)
		cw.write(int16(st.Level))
		cw.write(packMultiplier(st.Multiplier))
		cw.write(uint32(st.TimeSpent))
	}

	testDate, err := packDateTime(c.TestDate)
	if err != nil {
		return err
	}
	itemDate, err := packDateTime(c.ItemDate)
	if err != nil {
		return err
	}
	cw.write(testDate)
	cw.write(itemDate)
	for _, n := range c.AnswerCounts {
		cw.write(uint16(n))
	}
	cw.write(int16(c.Level))
	cw.write(packMultiplier(c.Multiplier))
	cw.write(uint32(c.Spacing))
	cw.write(uint16(c.Repeats))
	cw.write(int16(c.TestLevel))
	cw.write(uint32(c.TimeSpentTotal))
	var learned uint8
	if c.Learned {
		learned = 1
	}
	cw.write(learned)
	cw.write(uint64(c.UserData))
	return cw.err
}

func encodeTimes(cw *countingWriter, t *srs.TimeEstimator) {
	levels := t.LevelCount()
	cw.write(uint16(levels))
	for level := 0; level < levels; level++ {
		repeats := t.RepeatSamples(level)
		cw.write(uint8(len(repeats)))
		for _, r := range repeats {
			cw.write(int16(r))
		}
		buckets := t.BucketCount(level)
		cw.write(uint16(buckets))
		for rep := 0; rep < buckets; rep++ {
			durations := t.BucketDurations(level, rep)
			cw.write(uint8(len(durations)))
			for _, d := range durations {
				cw.write(uint32(d))
			}
		}
	}
}

func encodeDays(cw *countingWriter, s *srs.DayStats) error {
	cw.write(uint32(s.Len()))
	for i := 0; i < s.Len(); i++ {
		r := s.Row(i)
		day, err := packDay(r.Day)
		if err != nil {
			return err
		}
		cw.write(day)
		cw.write(uint32(r.TimeSpent))
		cw.write(uint32(r.Tested))
		cw.write(uint32(r.Included))
		cw.write(uint32(r.Wrong))
		cw.write(uint32(r.Learned))
		cw.write(uint32(r.ItemCount))
		cw.write(uint32(r.GroupCount))
		cw.write(uint32(r.LearnedCount))
	}
	return cw.err
}

// Decode reads a deck from the persisted layout. Recoverable damage (a
// card count disagreeing with the records actually present) is repaired
// by truncation and reported through the returned warnings; anything
// else fails the whole deck.
func Decode(r io.Reader, profile *srs.Profile) (*srs.Deck, []string, error) {
	rd := &reader{r: r}
	var warnings []string

	var m [4]byte
	rd.read(&m)
	if rd.err != nil {
		return nil, nil, rd.err
	}
	if m != magic {
		return nil, nil, ErrBadMagic
	}
	if v := rd.u16(); v != version {
		if rd.err != nil {
			return nil, nil, rd.err
		}
		return nil, nil, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}

	deckID := int64(rd.u32())
	nameLen := int(rd.u16())
	if rd.err != nil {
		return nil, nil, rd.err
	}
	if nameLen > maxNameLength {
		return nil, nil, fmt.Errorf("%w: name length %d", ErrStreamSize, nameLen)
	}
	nameBytes := make([]byte, nameLen)
	rd.read(nameBytes)

	testDay, err := unpackDay(rd.u16())
	if rd.err != nil {
		return nil, nil, rd.err
	}
	if err != nil {
		return nil, nil, err
	}

	cardCount := int(rd.u32())
	if rd.err != nil {
		return nil, nil, rd.err
	}
	if cardCount > maxCards {
		return nil, nil, fmt.Errorf("%w: %d cards", ErrStreamSize, cardCount)
	}

	cards := make([]*srs.Card, 0, cardCount)
	for i := 0; i < cardCount; i++ {
		c, err := decodeCard(rd)
		if err != nil {
			if isTruncation(err) {
				warnings = append(warnings, fmt.Sprintf(
					"card count %d disagrees with records present, kept %d", cardCount, len(cards)))
				return finishTruncated(deckID, string(nameBytes), profile, cards, testDay), warnings, nil
			}
			return nil, nil, err
		}
		cards = append(cards, c)
	}

	times, err := decodeTimes(rd)
	if err != nil {
		return nil, nil, err
	}
	days, err := decodeDays(rd)
	if err != nil {
		return nil, nil, err
	}

	for i := range cards {
		next := rd.u32()
		if rd.err != nil {
			return nil, nil, rd.err
		}
		cards[i].GroupNext = srs.Handle(next)
	}

	testedCount := int(rd.u32())
	if rd.err != nil {
		return nil, nil, rd.err
	}
	if testedCount > cardCount {
		return nil, nil, fmt.Errorf("%w: %d tested entries", ErrStreamSize, testedCount)
	}
	tested := make([]srs.Handle, 0, testedCount)
	for i := 0; i < testedCount; i++ {
		tested = append(tested, srs.Handle(rd.u32()))
	}
	if rd.err != nil {
		return nil, nil, rd.err
	}

	return srs.LoadDeck(deckID, string(nameBytes), profile, cards, times, days, tested, testDay), warnings, nil
}

// finishTruncated builds a usable deck from the records salvaged before
// the stream ran out: estimator, day stats and group links are gone, so
// groups repair to singletons and the stats rebuild from the histories.
func finishTruncated(id int64, name string, profile *srs.Profile, cards []*srs.Card, testDay srs.Day) *srs.Deck {
	for i := range cards {
		cards[i].GroupNext = srs.Handle(i)
	}
	d := srs.LoadDeck(id, name, profile, cards, nil, nil, nil, testDay)
	d.RebuildDayStats(d.DayStatEvents())
	return d
}

func isTruncation(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func decodeCard(rd *reader) (*srs.Card, error) {
	statCount := int(rd.u16())
	if rd.err != nil {
		return nil, rd.err
	}
	if statCount > maxStats {
		return nil, fmt.Errorf("%w: %d stat rows", ErrStreamSize, statCount)
	}
	c := &srs.Card{GroupNext: srs.NoHandle}
	for i := 0; i < statCount; i++ {
		day, err := unpackDay(rd.u16())
		if rd.err != nil {
			return nil, rd.err
		}
		if err != nil {
			return nil, err
		}
		st := srs.CardStat{
			Day:        day,
			Level:      int(rd.i16()),
			Multiplier: unpackMultiplier(rd.u16()),
			TimeSpent:  int(rd.u32()),
		}
		c.Stats = append(c.Stats, st)
	}

	testDate, err := unpackDateTime(rd.u32())
	if rd.err != nil {
		return nil, rd.err
	}
	if err != nil {
		return nil, err
	}
	itemDate, err := unpackDateTime(rd.u32())
	if rd.err != nil {
		return nil, rd.err
	}
	if err != nil {
		return nil, err
	}
	c.TestDate = testDate
	c.ItemDate = itemDate
	for i := range c.AnswerCounts {
		c.AnswerCounts[i] = int(rd.u16())
	}
	c.Level = int(rd.i16())
	c.Multiplier = unpackMultiplier(rd.u16())
	c.Spacing = int64(rd.u32())
	c.Repeats = int(rd.u16())
	c.TestLevel = int(rd.i16())
	c.TimeSpentTotal = int(rd.u32())
	c.Learned = rd.u8() != 0
	c.UserData = int64(rd.u64())
	if rd.err != nil {
		return nil, rd.err
	}
	return c, nil
}

func decodeTimes(rd *reader) (*srs.TimeEstimator, error) {
	t := srs.NewTimeEstimator()
	levels := int(rd.u16())
	if rd.err != nil {
		return nil, rd.err
	}
	if levels > maxLevels {
		return nil, fmt.Errorf("%w: %d estimator levels", ErrStreamSize, levels)
	}
	for level := 0; level < levels; level++ {
		repeatCount := int(rd.u8())
		repeats := make([]int, 0, repeatCount)
		for i := 0; i < repeatCount; i++ {
			repeats = append(repeats, int(rd.i16()))
		}
		if rd.err != nil {
			return nil, rd.err
		}
		t.LoadRepeatSamples(level, repeats)

		buckets := int(rd.u16())
		if rd.err != nil {
			return nil, rd.err
		}
		if buckets > maxBuckets {
			return nil, fmt.Errorf("%w: %d estimator buckets", ErrStreamSize, buckets)
		}
		for rep := 0; rep < buckets; rep++ {
			durCount := int(rd.u8())
			durations := make([]int, 0, durCount)
			for i := 0; i < durCount; i++ {
				durations = append(durations, int(rd.u32()))
			}
			if rd.err != nil {
				return nil, rd.err
			}
			t.LoadBucket(level, rep, durations)
		}
	}
	return t, nil
}

func decodeDays(rd *reader) (*srs.DayStats, error) {
	s := srs.NewDayStats()
	count := int(rd.u32())
	if rd.err != nil {
		return nil, rd.err
	}
	if count > maxDayRows {
		return nil, fmt.Errorf("%w: %d day rows", ErrStreamSize, count)
	}
	rows := make([]srs.DayStat, 0, count)
	for i := 0; i < count; i++ {
		day, err := unpackDay(rd.u16())
		if rd.err != nil {
			return nil, rd.err
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, srs.DayStat{
			Day:          day,
			TimeSpent:    int(rd.u32()),
			Tested:       int(rd.u32()),
			Included:     int(rd.u32()),
			Wrong:        int(rd.u32()),
			Learned:      int(rd.u32()),
			ItemCount:    int(rd.u32()),
			GroupCount:   int(rd.u32()),
			LearnedCount: int(rd.u32()),
		})
	}
	if rd.err != nil {
		return nil, rd.err
	}
	s.LoadRows(rows)
	return s, nil
}

func packMultiplier(m float64) uint16 {
	v := int(m*multiplierScale + 0.5)
	if v < 0 {
		v = 0
	}
	if v > 0xFFFF {
		v = 0xFFFF
	}
	return uint16(v)
}

func unpackMultiplier(v uint16) float64 {
	return float64(v) / multiplierScale
}
