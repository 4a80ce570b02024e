package srs

import "time"

// undoState captures everything a single committed answer (or manual
// level adjustment) can touch: the card itself, the timing bucket the
// answer fed, the day-stat row of the answer's day, the student profile
// counters, and the tested-today queue. Exactly one level is retained.
type undoState struct {
	handle   Handle
	card     Card
	isAnswer bool

	kind  AnswerKind
	spent int
	when  time.Time

	hasBucket   bool
	bucketLevel int
	bucketRep   int
	bucketLen   int
	bucketEta   int

	day           Day
	dayRow        DayStat
	dayRowExisted bool

	profile Profile
	tested  []Handle
}

// snapshotUndo records the pre-answer state of everything Answer will
// mutate. Must run before any mutation.
func (d *Deck) snapshotUndo(h Handle, c *Card, kind AnswerKind, spent int, when time.Time, testLevel, repIndex int, today Day) *undoState {
	u := &undoState{
		handle:      h,
		card:        c.clone(),
		isAnswer:    true,
		kind:        kind,
		spent:       spent,
		when:        when,
		hasBucket:   true,
		bucketLevel: testLevel,
		bucketRep:   repIndex,
		bucketLen:   d.times.BucketLen(testLevel, repIndex),
		bucketEta:   d.times.CachedEta(testLevel, repIndex),
		day:         today,
		profile:     *d.profile,
		tested:      append([]Handle(nil), d.tested...),
	}
	u.dayRow, u.dayRowExisted = d.days.rowForUndo(today)
	return u
}

// snapshotAdjust records the pre-mutation state of a manual level
// adjustment, which touches only the card and the profile.
func (d *Deck) snapshotAdjust(h Handle, c *Card) *undoState {
	today := DayOf(d.now())
	u := &undoState{
		handle:  h,
		card:    c.clone(),
		day:     today,
		profile: *d.profile,
		tested:  append([]Handle(nil), d.tested...),
	}
	u.dayRow, u.dayRowExisted = d.days.rowForUndo(today)
	return u
}

// CanUndo reports whether a committed mutation is available to revert.
func (d *Deck) CanUndo() bool {
	return d.undo != nil
}

// RevertUndo restores the card, the touched time-estimator bucket, the
// touched day-stat row and the student profile to their exact values
// before the most recent committed answer or level adjustment. Only one
// level of undo exists; the snapshot is consumed.
func (d *Deck) RevertUndo() error {
	if d.undo == nil {
		return ErrNoUndo
	}
	d.cancelPrefetch()
	u := d.undo
	d.undo = nil

	c, err := d.card(u.handle)
	if err != nil {
		return err
	}
	c.restore(u.card)
	if u.hasBucket {
		d.times.RestoreBucket(u.bucketLevel, u.bucketRep, u.bucketLen, u.bucketEta)
	}
	d.days.restoreRow(u.day, u.dayRow, u.dayRowExisted)
	*d.profile = u.profile
	d.tested = append(d.tested[:0], u.tested...)
	return nil
}

// ChangeLastAnswer reverts the most recent committed answer and replays
// it with a different grade, at the original timestamp and duration.
func (d *Deck) ChangeLastAnswer(kind AnswerKind) (int64, error) {
	if !kind.Valid() {
		return 0, ErrBadAnswer
	}
	if d.undo == nil || !d.undo.isAnswer {
		return 0, ErrNoUndo
	}
	u := *d.undo
	if err := d.RevertUndo(); err != nil {
		return 0, err
	}
	saved := d.now
	d.now = func() time.Time { return u.when }
	defer func() { d.now = saved }()
	return d.Answer(u.handle, kind, u.spent)
}
