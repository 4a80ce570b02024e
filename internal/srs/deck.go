package srs

import (
	"errors"
	"time"
)

var (
	// ErrNoCard is returned for handles that do not resolve to a card.
	ErrNoCard = errors.New("srs: no such card")
	// ErrBadAnswer is returned for answer kinds outside the four grades.
	ErrBadAnswer = errors.New("srs: invalid answer kind")
	// ErrNoTestDay is returned when an answer is committed before
	// StartTestDay ran for the current day.
	ErrNoTestDay = errors.New("srs: test day not started")
	// ErrNoUndo is returned when there is no committed answer to revert.
	ErrNoUndo = errors.New("srs: nothing to undo")
)

// stabilizedLevel is the level at which a card's multiplier is
// considered representative of its difficulty and enters the student
// profile average.
const stabilizedLevel = 3

// Deck owns the study cards of one deck and implements the per-answer
// scheduling state machine. A deck is single-writer: the only
// concurrency is the read-only next-card prefetch, which every mutator
// cancels and joins before touching state.
type Deck struct {
	id      int64
	name    string
	profile *Profile
	times   *TimeEstimator
	days    *DayStats
	cards   []*Card
	tested  []Handle
	testDay Day

	undo *undoState
	pf   prefetcher

	// now is the deck's clock, swappable in tests and during
	// ChangeLastAnswer replay.
	now func() time.Time
}

// NewDeck creates an empty deck calibrated by the given student profile.
func NewDeck(id int64, name string, profile *Profile) *Deck {
	return &Deck{
		id:      id,
		name:    name,
		profile: profile,
		times:   NewTimeEstimator(),
		days:    NewDayStats(),
		testDay: -1,
		now:     time.Now,
	}
}

// LoadDeck reconstructs a deck from persisted state. Group links that
// are out of range or that never close back into a cycle are repaired
// to singletons so the cycle invariant holds.
func LoadDeck(id int64, name string, profile *Profile, cards []*Card, times *TimeEstimator, days *DayStats, tested []Handle, testDay Day) *Deck {
	d := NewDeck(id, name, profile)
	d.cards = cards
	if times != nil {
		d.times = times
	}
	if days != nil {
		d.days = days
	}
	d.testDay = testDay
	for h, c := range cards {
		if c.GroupNext < 0 || int(c.GroupNext) >= len(cards) {
			c.GroupNext = Handle(h)
		}
		if c.Level >= stabilizedLevel {
			c.profiled = true
		}
	}
	for h := range cards {
		if !d.inGroupCycle(Handle(h)) {
			cards[h].GroupNext = Handle(h)
		}
	}
	for _, h := range tested {
		if h >= 0 && int(h) < len(cards) {
			d.tested = append(d.tested, h)
		}
	}
	return d
}

// ID returns the deck identifier.
func (d *Deck) ID() int64 { return d.id }

// Name returns the deck name.
func (d *Deck) Name() string { return d.name }

// SetName renames the deck.
func (d *Deck) SetName(name string) { d.name = name }

// SetClock replaces the deck's time source.
func (d *Deck) SetClock(now func() time.Time) { d.now = now }

// CardCount returns the number of cards in the deck.
func (d *Deck) CardCount() int { return len(d.cards) }

// TestDay returns the day StartTestDay last ran, or -1.
func (d *Deck) TestDay() Day { return d.testDay }

// Times exposes the deck's time estimator.
func (d *Deck) Times() *TimeEstimator { return d.times }

// Days exposes the deck's day statistics.
func (d *Deck) Days() *DayStats { return d.days }

// Cards exposes the card arena for persistence; callers must not mutate.
func (d *Deck) Cards() []*Card { return d.cards }

// TestedToday returns a copy of the tested-today queue, ordered by most
// recent answer last.
func (d *Deck) TestedToday() []Handle {
	return append([]Handle(nil), d.tested...)
}

// TestSize returns the number of cards tested today.
func (d *Deck) TestSize() int { return len(d.tested) }

// TestCard returns the i-th entry of the tested-today queue.
func (d *Deck) TestCard(i int) (Handle, error) {
	if i < 0 || i >= len(d.tested) {
		return NoHandle, ErrNoCard
	}
	return d.tested[i], nil
}

func (d *Deck) card(h Handle) (*Card, error) {
	if h < 0 || int(h) >= len(d.cards) {
		return nil, ErrNoCard
	}
	return d.cards[h], nil
}

// CardAt returns the card behind a handle; callers must not mutate it.
func (d *Deck) CardAt(h Handle) (*Card, error) {
	return d.card(h)
}

// CardLevel returns a card's current spacing level.
func (d *Deck) CardLevel(h Handle) (int, error) {
	c, err := d.card(h)
	if err != nil {
		return 0, err
	}
	return c.Level, nil
}

// CardSpacing returns a card's current spacing in seconds.
func (d *Deck) CardSpacing(h Handle) (int64, error) {
	c, err := d.card(h)
	if err != nil {
		return 0, err
	}
	return c.Spacing, nil
}

// CardNextTestDate returns the time a card next comes due.
func (d *Deck) CardNextTestDate(h Handle) (time.Time, error) {
	c, err := d.card(h)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(c.DueUnix(), 0).UTC(), nil
}

// CardByUserData translates an external item id back to a handle.
func (d *Deck) CardByUserData(userData int64) Handle {
	for h, c := range d.cards {
		if c.UserData == userData {
			return Handle(h)
		}
	}
	return NoHandle
}

// CardEta estimates the tenth-seconds needed to finish testing a card
// today, covering its remaining expected showings.
func (d *Deck) CardEta(h Handle) (int, error) {
	c, err := d.card(h)
	if err != nil {
		return 0, err
	}
	level := c.Level
	reps := d.times.TypicalRepeats(level)
	if reps < c.Repeats+1 {
		reps = c.Repeats + 1
	}
	eta := 0
	for r := c.Repeats; r < reps; r++ {
		eta += d.times.Estimate(level, r)
	}
	return eta, nil
}

// NewCardEta estimates the tenth-seconds the first showing of a brand
// new card will take.
func (d *Deck) NewCardEta() int {
	return d.times.Estimate(0, 0)
}

// inGroupCycle reports whether following h's successor chain returns to
// h within the arena size. Persisted group tables can carry in-range
// links that never close a cycle; the predecessor walks in DeleteCard
// and SplitGroup only terminate for true cycles.
func (d *Deck) inGroupCycle(h Handle) bool {
	n := d.cards[h].GroupNext
	for i := 0; i < len(d.cards); i++ {
		if n == h {
			return true
		}
		n = d.cards[n].GroupNext
	}
	return false
}

// groupMembers returns every handle in h's group cycle, starting at h.
func (d *Deck) groupMembers(h Handle) []Handle {
	members := []Handle{h}
	for n := d.cards[h].GroupNext; n != h && len(members) <= len(d.cards); n = d.cards[n].GroupNext {
		members = append(members, n)
	}
	return members
}

// groupRep returns the smallest handle of h's group, a stable canonical
// representative of the cycle.
func (d *Deck) groupRep(h Handle) Handle {
	rep := h
	for _, m := range d.groupMembers(h) {
		if m < rep {
			rep = m
		}
	}
	return rep
}

func (d *Deck) groupHasOtherTested(h Handle) bool {
	for _, m := range d.groupMembers(h) {
		if m != h && d.cards[m].Tested() {
			return true
		}
	}
	return false
}

func (d *Deck) groupHasTested(h Handle) bool {
	for _, m := range d.groupMembers(h) {
		if d.cards[m].Tested() {
			return true
		}
	}
	return false
}

func (d *Deck) sameGroup(a, b Handle) bool {
	for _, m := range d.groupMembers(a) {
		if m == b {
			return true
		}
	}
	return false
}

// CreateCard adds a new card. When group is a valid handle the card
// joins that card's group cycle; otherwise it forms a singleton group.
// userData is the caller's opaque item reference.
func (d *Deck) CreateCard(group Handle, userData int64) (Handle, error) {
	d.cancelPrefetch()
	d.undo = nil

	c := &Card{
		Multiplier: d.profile.BaseMultiplier(),
		UserData:   userData,
	}
	h := Handle(len(d.cards))
	if group != NoHandle {
		gc, err := d.card(group)
		if err != nil {
			return NoHandle, err
		}
		c.GroupNext = gc.GroupNext
		d.cards = append(d.cards, c)
		gc.GroupNext = h
	} else {
		c.GroupNext = h
		d.cards = append(d.cards, c)
	}
	return h, nil
}

// DeleteCard removes a card, retracting its contribution from the day
// statistics and the student profile, then compacts the handle space:
// every handle above the removed slot shifts down by one. The returned
// handle is the next member of the card's group, already adjusted, or
// NoHandle for a singleton.
func (d *Deck) DeleteCard(h Handle) (Handle, error) {
	c, err := d.card(h)
	if err != nil {
		return NoHandle, err
	}
	d.cancelPrefetch()
	d.undo = nil

	next := c.GroupNext
	if next == h {
		next = NoHandle
	}

	if c.Tested() {
		d.days.CardDeleted(DayOf(d.now()), !d.groupHasOtherTested(h), c.Learned)
	}
	if c.profiled {
		d.profile.RemoveMultiplier(c.Multiplier)
	}

	// Unlink from the group cycle.
	if c.GroupNext != h {
		p := c.GroupNext
		for d.cards[p].GroupNext != h {
			p = d.cards[p].GroupNext
		}
		d.cards[p].GroupNext = c.GroupNext
	}

	// Drop from the tested-today queue.
	for i := 0; i < len(d.tested); i++ {
		if d.tested[i] == h {
			d.tested = append(d.tested[:i], d.tested[i+1:]...)
			i--
		}
	}

	// Compact the arena and renumber.
	d.cards = append(d.cards[:h], d.cards[h+1:]...)
	for _, cc := range d.cards {
		if cc.GroupNext > h {
			cc.GroupNext--
		}
	}
	for i, th := range d.tested {
		if th > h {
			d.tested[i] = th - 1
		}
	}
	if next > h {
		next--
	}
	return next, nil
}

// DeleteCardGroup removes every card of h's group cycle, retracting all
// of their contributions before the handles compact.
func (d *Deck) DeleteCardGroup(h Handle) error {
	if _, err := d.card(h); err != nil {
		return err
	}
	for h != NoHandle {
		next, err := d.DeleteCard(h)
		if err != nil {
			return err
		}
		h = next
	}
	return nil
}

// MergeGroups splices the group cycles of a and b into one. Merging a
// group with itself is a no-op.
func (d *Deck) MergeGroups(a, b Handle) error {
	ca, err := d.card(a)
	if err != nil {
		return err
	}
	cb, err := d.card(b)
	if err != nil {
		return err
	}
	if d.sameGroup(a, b) {
		return nil
	}
	d.cancelPrefetch()
	d.undo = nil

	bothTested := d.groupHasTested(a) && d.groupHasTested(b)
	ca.GroupNext, cb.GroupNext = cb.GroupNext, ca.GroupNext
	if bothTested {
		d.days.GroupsMerged(DayOf(d.now()))
	}
	return nil
}

// SplitGroup detaches a card from its group cycle into a singleton.
func (d *Deck) SplitGroup(h Handle) error {
	c, err := d.card(h)
	if err != nil {
		return err
	}
	if c.GroupNext == h {
		return nil
	}
	d.cancelPrefetch()
	d.undo = nil

	remainderTested := d.groupHasOtherTested(h)
	p := c.GroupNext
	for d.cards[p].GroupNext != h {
		p = d.cards[p].GroupNext
	}
	d.cards[p].GroupNext = c.GroupNext
	c.GroupNext = h
	if c.Tested() && remainderTested {
		d.days.GroupsSplit(DayOf(d.now()))
	}
	return nil
}

// StartTestDay opens a new test day: per-day counters reset on every
// card, the previous day's repeat counts feed the time estimator, and
// the tested-today queue clears. Returns false without effect when the
// current day is already open.
func (d *Deck) StartTestDay() bool {
	today := DayOf(d.now())
	if d.testDay == today {
		return false
	}
	d.cancelPrefetch()
	d.undo = nil

	for _, c := range d.cards {
		if c.Repeats > 0 {
			d.times.AddRepeat(c.TestLevel, c.Repeats)
		}
		c.Repeats = 0
		c.TestLevel = 0
		c.AnswerCounts = [answerKindCount]int{}
	}
	d.tested = d.tested[:0]
	d.testDay = today
	return true
}

// answerOutcome is the scheduling result of one answer, computed without
// side effects.
type answerOutcome struct {
	level      int
	multiplier float64
	spacing    int64
	testDate   int64
	mutates    bool
}

// predictAnswer runs the answer state machine without mutating anything.
// The machine is keyed by the level at the card's first showing today
// and by how many times it has been shown since.
func (d *Deck) predictAnswer(h Handle, c *Card, kind AnswerKind, now time.Time) answerOutcome {
	out := answerOutcome{
		level:      c.Level,
		multiplier: c.Multiplier,
		spacing:    c.Spacing,
		testDate:   c.TestDate,
	}
	firstToday := c.Repeats == 0
	testLevel := c.TestLevel
	if firstToday {
		testLevel = c.Level
	}

	if testLevel == 0 {
		// A card never successfully tested before today. Repeat
		// showings return the values fixed at the first showing.
		if !firstToday {
			return out
		}
		out.mutates = true
		out.level = 1
		out.spacing = DaySeconds
		out.testDate = now.Unix()
		if kind == AnswerEasy {
			out.multiplier = EasyMultiplier(c.Multiplier)
			out.spacing = 3 * DaySeconds
		}
		return out
	}

	if kind.Correct() {
		if !firstToday {
			// Level and spacing were already stepped at the first
			// showing today.
			return out
		}
		lvl, mult, sp := c.Level, c.Multiplier, c.Spacing
		elapsed := now.Unix() - c.TestDate
		if elapsed > int64(float64(sp)/AcceptRate(lvl)) {
			// The review came long after its window. Catch the level
			// and spacing up to the interval the student actually
			// retained before applying the normal step.
			for int64(float64(sp)*mult) < elapsed {
				sp = int64(float64(sp) * mult)
				lvl++
			}
			sp = elapsed
		}
		sp = int64(float64(sp) * mult)
		lvl++
		if kind == AnswerEasy {
			sp = int64(float64(sp) * 1.3)
			mult = EasyMultiplier(mult)
		}
		sp = d.fixCardSpacing(h, now.Unix(), lvl, sp)
		if sp < DaySeconds {
			sp = DaySeconds
		}
		out.mutates = true
		out.level, out.multiplier, out.spacing, out.testDate = lvl, mult, sp, now.Unix()
		return out
	}

	// Wrong or Retry on a card that was at level >= 1 this morning.
	lvl, origMult, sp := c.Level, c.Multiplier, c.Spacing
	mult := origMult
	hardReset := kind == AnswerWrong && c.failuresToday() > 0

	newLvl := lvl
	switch {
	case hardReset:
		newLvl = 1
	case kind == AnswerRetry:
		newLvl = lvl - 1
	default:
		newLvl = lvl - 2
	}
	if newLvl < lvl-5 {
		newLvl = lvl - 5
	}
	if newLvl < 1 {
		newLvl = 1
	}

	// The multiplier only shrinks once the card had a real interval;
	// same-day churn of a one-day card says nothing about difficulty.
	if sp >= 2*DaySeconds {
		if kind == AnswerWrong {
			mult = WrongMultiplier(mult)
		} else {
			mult = RetryMultiplier(mult)
		}
	}

	if hardReset {
		sp = DaySeconds
	} else {
		for i := lvl; i > newLvl; i-- {
			sp = int64(float64(sp) / origMult)
		}
		sp = d.fixCardSpacing(h, now.Unix(), newLvl, sp)
	}
	if sp < DaySeconds {
		sp = DaySeconds
	}
	out.mutates = true
	out.level, out.multiplier, out.spacing, out.testDate = newLvl, mult, sp, now.Unix()
	return out
}

// PredictSpacing computes the spacing an answer would produce, without
// committing anything. Used for interval previews; calling it any
// number of times leaves observable state untouched.
func (d *Deck) PredictSpacing(h Handle, kind AnswerKind) (int64, error) {
	if !kind.Valid() {
		return 0, ErrBadAnswer
	}
	c, err := d.card(h)
	if err != nil {
		return 0, err
	}
	out := d.predictAnswer(h, c, kind, d.now())
	return out.spacing, nil
}

// Answer commits one graded answer: it runs the state machine, applies
// the outcome to the card, records timing, updates the day statistics
// and student profile, reorders the tested-today queue, and arms the
// undo snapshot. spentTenths is the answer duration in tenth-seconds.
// The new spacing is returned.
func (d *Deck) Answer(h Handle, kind AnswerKind, spentTenths int) (int64, error) {
	if !kind.Valid() {
		return 0, ErrBadAnswer
	}
	c, err := d.card(h)
	if err != nil {
		return 0, err
	}
	now := d.now()
	today := DayOf(now)
	if d.testDay != today {
		return 0, ErrNoTestDay
	}
	if spentTenths < 0 {
		spentTenths = 0
	}
	d.cancelPrefetch()

	firstToday := c.Repeats == 0
	testLevel := c.TestLevel
	if firstToday {
		testLevel = c.Level
	}
	repIndex := c.Repeats

	d.undo = d.snapshotUndo(h, c, kind, spentTenths, now, testLevel, repIndex, today)

	out := d.predictAnswer(h, c, kind, now)
	neverTested := !c.Tested()

	becameLearned := false
	becameUnlearned := false
	if kind.Correct() {
		if !c.Learned && firstToday && c.Tested() && today-DayOfUnix(c.TestDate) >= learnedGapDays {
			becameLearned = true
		}
	} else if c.Learned {
		becameUnlearned = true
	}

	if neverTested {
		d.days.NewCard(today, !d.groupHasOtherTested(h))
	}

	if firstToday {
		// The snapshot level stays 0 for a brand new card all day; the
		// state machine keys on it for repeat showings.
		c.TestLevel = testLevel
	}
	if out.mutates {
		c.Level = out.level
		c.Multiplier = out.multiplier
		c.Spacing = out.spacing
		c.TestDate = out.testDate
	}
	c.ItemDate = now.Unix()
	c.Repeats++
	c.AnswerCounts[kind]++
	c.lastAnswer = kind
	if becameLearned {
		c.Learned = true
	}
	if becameUnlearned {
		c.Learned = false
	}

	st := c.todayStat(today)
	st.Level = c.Level
	st.Multiplier = c.Multiplier
	st.TimeSpent += spentTenths
	c.TimeSpentTotal += spentTenths

	d.times.AddTime(testLevel, repIndex, spentTenths)
	d.days.CardTested(today, spentTenths, firstToday, !kind.Correct(), becameLearned, becameUnlearned)
	d.updateProfileMembership(c)
	d.touchTested(h)

	return c.Spacing, nil
}

// IncreaseSpacingLevel manually raises a card one level, growing the
// spacing by the card's multiplier.
func (d *Deck) IncreaseSpacingLevel(h Handle) error {
	c, err := d.card(h)
	if err != nil {
		return err
	}
	if !c.Tested() {
		return ErrNoCard
	}
	d.cancelPrefetch()
	d.undo = d.snapshotAdjust(h, c)

	c.Level++
	c.Spacing = int64(float64(c.Spacing) * c.Multiplier)
	c.Spacing = d.fixCardSpacing(h, c.TestDate, c.Level, c.Spacing)
	if c.Spacing < DaySeconds {
		c.Spacing = DaySeconds
	}
	d.updateProfileMembership(c)
	return nil
}

// DecreaseSpacingLevel manually lowers a card one level, shrinking the
// spacing by the card's multiplier.
func (d *Deck) DecreaseSpacingLevel(h Handle) error {
	c, err := d.card(h)
	if err != nil {
		return err
	}
	if !c.Tested() || c.Level <= 1 {
		return ErrNoCard
	}
	d.cancelPrefetch()
	d.undo = d.snapshotAdjust(h, c)

	c.Level--
	c.Spacing = int64(float64(c.Spacing) / c.Multiplier)
	c.Spacing = d.fixCardSpacing(h, c.TestDate, c.Level, c.Spacing)
	if c.Spacing < DaySeconds {
		c.Spacing = DaySeconds
	}
	d.updateProfileMembership(c)
	return nil
}

// ResetCardStudyData returns a card to the never-tested state,
// retracting its statistics and profile contributions.
func (d *Deck) ResetCardStudyData(h Handle) error {
	c, err := d.card(h)
	if err != nil {
		return err
	}
	d.cancelPrefetch()
	d.undo = nil

	if c.Tested() {
		d.days.CardDeleted(DayOf(d.now()), !d.groupHasOtherTested(h), c.Learned)
	}
	if c.profiled {
		d.profile.RemoveMultiplier(c.Multiplier)
	}
	for i := 0; i < len(d.tested); i++ {
		if d.tested[i] == h {
			d.tested = append(d.tested[:i], d.tested[i+1:]...)
			i--
		}
	}

	group := c.GroupNext
	userData := c.UserData
	*c = Card{
		Multiplier: d.profile.BaseMultiplier(),
		GroupNext:  group,
		UserData:   userData,
	}
	return nil
}

func (d *Deck) updateProfileMembership(c *Card) {
	if !c.profiled && c.Level >= stabilizedLevel {
		d.profile.AddMultiplier(c.Multiplier)
		c.profiled = true
	} else if c.profiled && c.Level < stabilizedLevel {
		d.profile.RemoveMultiplier(c.Multiplier)
		c.profiled = false
	}
}

// touchTested moves a handle to the back of the tested-today queue so
// the queue stays ordered by most recent answer.
func (d *Deck) touchTested(h Handle) {
	for i := 0; i < len(d.tested); i++ {
		if d.tested[i] == h {
			d.tested = append(d.tested[:i], d.tested[i+1:]...)
			i--
		}
	}
	d.tested = append(d.tested, h)
}
