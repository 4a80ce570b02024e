package srs

// DayStat is one aggregate row per calendar day of testing. The daily
// fields (TimeSpent through Learned) describe that day only; the three
// Count fields are cumulative and carry forward from the previous row.
type DayStat struct {
	Day Day
	// TimeSpent is tenth-seconds spent testing that day.
	TimeSpent int
	// Tested is how many distinct cards were tested that day.
	Tested int
	// Included is how many cards entered testing for the first time.
	Included int
	// Wrong counts failed answers (Wrong and Retry) that day.
	Wrong int
	// Learned is how many cards became learned that day.
	Learned int
	// ItemCount is the cumulative number of cards in testing.
	ItemCount int
	// GroupCount is the cumulative number of groups in testing.
	GroupCount int
	// LearnedCount is the cumulative number of learned cards.
	LearnedCount int
}

// DayStats aggregates one deck's testing activity per calendar day.
// Rows are kept in ascending day order and are append-only except for
// the trailing row, which the incremental operations mutate.
type DayStats struct {
	rows []DayStat
}

// NewDayStats returns an empty aggregator.
func NewDayStats() *DayStats {
	return &DayStats{}
}

// Len returns the number of day rows.
func (s *DayStats) Len() int {
	return len(s.rows)
}

// Row returns a copy of the i-th day row.
func (s *DayStats) Row(i int) DayStat {
	return s.rows[i]
}

// Rows returns a copy of all day rows.
func (s *DayStats) Rows() []DayStat {
	return append([]DayStat(nil), s.rows...)
}

// LoadRows replaces the row list, used when decoding a persisted deck.
func (s *DayStats) LoadRows(rows []DayStat) {
	s.rows = append([]DayStat(nil), rows...)
}

// ensure returns the row for day, creating it if needed. A new row
// carries the cumulative counters forward from the previous row and
// starts the daily fields at zero. Days never move backwards; a stale
// day falls through to the most recent row.
func (s *DayStats) ensure(day Day) *DayStat {
	if n := len(s.rows); n > 0 {
		last := &s.rows[n-1]
		if last.Day >= day {
			return last
		}
		s.rows = append(s.rows, DayStat{
			Day:          day,
			ItemCount:    last.ItemCount,
			GroupCount:   last.GroupCount,
			LearnedCount: last.LearnedCount,
		})
		return &s.rows[len(s.rows)-1]
	}
	s.rows = append(s.rows, DayStat{Day: day})
	return &s.rows[0]
}

// NewCard records a card entering testing for the first time. newGroup
// is set when the card's group had no tested member before it.
func (s *DayStats) NewCard(day Day, newGroup bool) {
	r := s.ensure(day)
	r.Included++
	r.ItemCount++
	if newGroup {
		r.GroupCount++
	}
}

// CardDeleted retracts a tested card's contribution from the cumulative
// counters. lastInGroup is set when no other tested member remains in
// the card's group; learned mirrors the card's flag immediately before
// deletion.
func (s *DayStats) CardDeleted(day Day, lastInGroup, learned bool) {
	r := s.ensure(day)
	r.ItemCount--
	if lastInGroup {
		r.GroupCount--
	}
	if learned {
		r.LearnedCount--
	}
}

// CardTested records one answer. firstToday is set on the card's first
// showing of the day, wrong on failed answers, and the two learned
// flags on transitions of the card's learned state.
func (s *DayStats) CardTested(day Day, spentTenths int, firstToday, wrong, becameLearned, becameUnlearned bool) {
	r := s.ensure(day)
	r.TimeSpent += spentTenths
	if firstToday {
		r.Tested++
	}
	if wrong {
		r.Wrong++
	}
	if becameLearned {
		r.Learned++
		r.LearnedCount++
	}
	if becameUnlearned {
		r.LearnedCount--
	}
}

// GroupsMerged records two tested groups collapsing into one.
func (s *DayStats) GroupsMerged(day Day) {
	r := s.ensure(day)
	r.GroupCount--
}

// GroupsSplit records a tested card leaving a group that keeps other
// tested members, the inverse of a merge.
func (s *DayStats) GroupsSplit(day Day) {
	r := s.ensure(day)
	r.GroupCount++
}

// rowForUndo returns a copy of the row holding day, and whether one
// exists, for the undo snapshot.
func (s *DayStats) rowForUndo(day Day) (DayStat, bool) {
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].Day == day {
			return s.rows[i], true
		}
		if s.rows[i].Day < day {
			break
		}
	}
	return DayStat{}, false
}

// restoreRow puts a previously snapshotted row back. When the row did
// not exist before the mutation it is removed again; a single answer
// can only ever have created the trailing row.
func (s *DayStats) restoreRow(day Day, row DayStat, existed bool) {
	n := len(s.rows)
	if n == 0 {
		return
	}
	if !existed {
		if s.rows[n-1].Day == day {
			s.rows = s.rows[:n-1]
		}
		return
	}
	for i := n - 1; i >= 0; i-- {
		if s.rows[i].Day == day {
			s.rows[i] = row
			return
		}
		if s.rows[i].Day < day {
			return
		}
	}
}

// TestEvent is one historical answer used by the full-rebuild path:
// the card it was given on, the index of the day row it belongs to in
// that card's history, and whether it was a success.
type TestEvent struct {
	Card    Handle
	Stat    int
	Correct bool
}

// RebuildDayStats rebuilds the aggregator from scratch by replaying the
// full event history in chronological order. It recomputes every daily
// and cumulative counter and each card's learned flag, producing rows
// identical to what the incremental path built for the same sequence.
func (d *Deck) RebuildDayStats(events []TestEvent) {
	stats := NewDayStats()

	seen := make([]bool, len(d.cards))
	groupTested := make(map[Handle]bool, len(d.cards))
	lastTestedDay := make([]Day, len(d.cards))
	for i := range lastTestedDay {
		lastTestedDay[i] = -1
	}
	for _, c := range d.cards {
		c.Learned = false
	}

	for _, ev := range events {
		if ev.Card < 0 || int(ev.Card) >= len(d.cards) {
			continue
		}
		c := d.cards[ev.Card]
		if ev.Stat < 0 || ev.Stat >= len(c.Stats) {
			continue
		}
		st := c.Stats[ev.Stat]
		day := st.Day

		if !seen[ev.Card] {
			rep := d.groupRep(ev.Card)
			stats.NewCard(day, !groupTested[rep])
			seen[ev.Card] = true
			groupTested[rep] = true
		}

		firstToday := lastTestedDay[ev.Card] != day
		spent := 0
		if firstToday {
			spent = st.TimeSpent
		}

		becameLearned := false
		if ev.Correct && !c.Learned && firstToday && ev.Stat > 0 {
			if day-c.Stats[ev.Stat-1].Day >= learnedGapDays {
				becameLearned = true
				c.Learned = true
			}
		}
		becameUnlearned := false
		if !ev.Correct && c.Learned {
			becameUnlearned = true
			c.Learned = false
		}

		stats.CardTested(day, spent, firstToday, !ev.Correct, becameLearned, becameUnlearned)
		lastTestedDay[ev.Card] = day
	}

	d.days = stats
}

// DayStatEvents reconstructs a best-effort event history from the cards'
// per-day stat rows, for rebuilds after bulk load where the true answer
// log is gone. Repeat answers within a day collapse into one event and
// correctness is inferred from level movement.
func (d *Deck) DayStatEvents() []TestEvent {
	var events []TestEvent
	for h, c := range d.cards {
		for i := range c.Stats {
			correct := true
			if i > 0 && c.Stats[i].Level < c.Stats[i-1].Level {
				correct = false
			}
			events = append(events, TestEvent{Card: Handle(h), Stat: i, Correct: correct})
		}
	}
	sortTestEvents(d, events)
	return events
}

func sortTestEvents(d *Deck, events []TestEvent) {
	// Insertion sort on (day, card, stat); histories are short and
	// mostly ordered already.
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && eventLess(d, events[j], events[j-1]); j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
}

func eventLess(d *Deck, a, b TestEvent) bool {
	da := d.cards[a.Card].Stats[a.Stat].Day
	db := d.cards[b.Card].Stats[b.Stat].Day
	if da != db {
		return da < db
	}
	if a.Card != b.Card {
		return a.Card < b.Card
	}
	return a.Stat < b.Stat
}
