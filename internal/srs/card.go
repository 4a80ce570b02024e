package srs

// Handle is a stable opaque reference to a card within one deck. Handles
// are dense: deleting a card shifts every handle above the removed slot
// down by one, so a handle is only valid until the next deletion.
type Handle int32

// NoHandle marks the absence of a card reference.
const NoHandle Handle = -1

// AnswerKind is the grade the student gives an answer.
type AnswerKind int

const (
	// AnswerRetry means the student wants to see the card again soon;
	// a soft failure.
	AnswerRetry AnswerKind = iota
	// AnswerCorrect is a normal successful answer.
	AnswerCorrect
	// AnswerWrong is a failed answer.
	AnswerWrong
	// AnswerEasy is a successful answer that came too easily; the card
	// should grow its interval faster.
	AnswerEasy

	answerKindCount = 4
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerRetry:
		return "retry"
	case AnswerCorrect:
		return "correct"
	case AnswerWrong:
		return "wrong"
	case AnswerEasy:
		return "easy"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the four answer kinds.
func (k AnswerKind) Valid() bool {
	return k >= AnswerRetry && k <= AnswerEasy
}

// Correct reports whether the answer counts as a success.
func (k AnswerKind) Correct() bool {
	return k == AnswerCorrect || k == AnswerEasy
}

// learnedGapDays is the gap after which a correct answer marks a card as
// learned for good (two months of retention).
const learnedGapDays = 61

// CardStat is one row of a card's per-day testing history, appended the
// first time the card is tested on a calendar day and updated in place
// for the rest of that day.
type CardStat struct {
	Day        Day
	Level      int
	Multiplier float64
	TimeSpent  int // tenth-seconds spent on the card that day
}

// Card is one reviewable unit of study.
type Card struct {
	// Level is the current spaced-repetition stage; 0 means the card has
	// never been successfully tested.
	Level int
	// Multiplier is the per-card factor by which spacing grows on
	// success, never below MinMultiplier.
	Multiplier float64
	// Spacing is the interval in seconds to the next due date, at least
	// one day once the card has been tested.
	Spacing int64
	// TestDate is the Unix time the current test cycle started (the
	// moment of the answer that produced the current spacing).
	TestDate int64
	// ItemDate is the Unix time of the most recent answer.
	ItemDate int64
	// Repeats counts how many times the card was shown today.
	Repeats int
	// TestLevel is the level snapshotted at the start of today's first
	// showing; 0 outside a test day or for never-tested cards.
	TestLevel int
	// AnswerCounts tallies each answer kind given today.
	AnswerCounts [answerKindCount]int
	// Stats is the append-only per-day testing history.
	Stats []CardStat
	// GroupNext links the cycle of cards that must not become due on the
	// same day. A singleton group points at itself.
	GroupNext Handle
	// Learned is set once a correct answer follows a gap of at least 61
	// days, and cleared again by a failure.
	Learned bool
	// TimeSpentTotal is the lifetime tenth-seconds spent on the card.
	TimeSpentTotal int
	// UserData is an opaque payload for the surrounding study layer,
	// typically the index of the dictionary item the card tests.
	UserData int64

	// profiled marks cards counted into the student profile average.
	profiled bool
	// lastAnswer is the kind of today's most recent answer; transient,
	// only meaningful while Repeats > 0.
	lastAnswer AnswerKind
}

// Tested reports whether the card has ever been tested.
func (c *Card) Tested() bool {
	return len(c.Stats) > 0
}

// DueUnix returns the Unix time the card next comes due. Never-tested
// cards are due immediately.
func (c *Card) DueUnix() int64 {
	if !c.Tested() {
		return 0
	}
	return c.TestDate + c.Spacing
}

// DueDay returns the calendar day the card next comes due.
func (c *Card) DueDay() Day {
	return DayOfUnix(c.DueUnix())
}

// failuresToday counts today's Wrong and Retry answers.
func (c *Card) failuresToday() int {
	return c.AnswerCounts[AnswerWrong] + c.AnswerCounts[AnswerRetry]
}

// clone returns a deep value copy of the card, detached from the
// original's history slice.
func (c *Card) clone() Card {
	cp := *c
	cp.Stats = append([]CardStat(nil), c.Stats...)
	return cp
}

// restore overwrites the card with a previously cloned value.
func (c *Card) restore(snap Card) {
	*c = snap
	c.Stats = append([]CardStat(nil), snap.Stats...)
}

// todayStat returns the history row for the given day, creating it if
// the card has not been tested that day yet.
func (c *Card) todayStat(day Day) *CardStat {
	if n := len(c.Stats); n > 0 && c.Stats[n-1].Day == day {
		return &c.Stats[n-1]
	}
	c.Stats = append(c.Stats, CardStat{Day: day, Level: c.Level, Multiplier: c.Multiplier})
	return &c.Stats[len(c.Stats)-1]
}
