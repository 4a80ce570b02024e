package srs

// DefaultMultiplier is the growth factor assigned to cards while the
// student profile has too few samples to provide a calibrated average.
const DefaultMultiplier = 2.5

// MinMultiplier is the floor below which a card's growth factor never
// drops, matching the classic SM-2 minimum ease.
const MinMultiplier = 1.3

// minProfileSamples is how many stabilized cards must be recorded before
// BaseMultiplier switches from the fixed default to the running average.
const minProfileSamples = 10

// Profile holds cross-deck calibration data for a single student: a
// running mean of the multiplier of every card that has stabilized
// (reached level 3) across all of the student's decks.
//
// The profile is threaded explicitly into deck operations rather than
// held as process-global state, so separate students and test runs stay
// isolated.
type Profile struct {
	CardCount         int
	MultiplierAverage float64
}

// NewProfile returns an empty profile.
func NewProfile() *Profile {
	return &Profile{}
}

// BaseMultiplier returns the multiplier assigned to newly created cards.
// Until enough stabilized cards have been observed it stays at the fixed
// default.
func (p *Profile) BaseMultiplier() float64 {
	if p.CardCount < minProfileSamples {
		return DefaultMultiplier
	}
	return p.MultiplierAverage
}

// AddMultiplier folds the multiplier of a newly stabilized card into the
// running average.
func (p *Profile) AddMultiplier(m float64) {
	p.MultiplierAverage = (p.MultiplierAverage*float64(p.CardCount) + m) / float64(p.CardCount+1)
	p.CardCount++
}

// RemoveMultiplier rolls a previously added multiplier back out of the
// running average, used when a stabilized card is deleted or drops back
// below the stabilization threshold.
func (p *Profile) RemoveMultiplier(m float64) {
	if p.CardCount <= 1 {
		p.CardCount = 0
		p.MultiplierAverage = 0
		return
	}
	p.MultiplierAverage = (p.MultiplierAverage*float64(p.CardCount) - m) / float64(p.CardCount-1)
	p.CardCount--
}

// EasyMultiplier returns the grown multiplier after an Easy answer.
func EasyMultiplier(m float64) float64 {
	return m + 0.15
}

// WrongMultiplier returns the shrunk multiplier after a Wrong answer.
func WrongMultiplier(m float64) float64 {
	if m-0.32 < MinMultiplier {
		return MinMultiplier
	}
	return m - 0.32
}

// RetryMultiplier returns the shrunk multiplier after a Retry answer.
func RetryMultiplier(m float64) float64 {
	if m-0.14 < MinMultiplier {
		return MinMultiplier
	}
	return m - 0.14
}

// acceptRates is the tolerated fraction of early/late reviews per level.
// Higher levels tolerate less relative drift because their absolute
// intervals are already long.
var acceptRates = [12]float64{
	0.800, 0.830, 0.860, 0.885, 0.905, 0.920,
	0.933, 0.943, 0.950, 0.955, 0.959, 0.961,
}

// AcceptRate returns the acceptance rate for a spacing level, clamped
// for levels outside [1,12].
func AcceptRate(level int) float64 {
	if level < 1 {
		level = 1
	}
	if level > len(acceptRates) {
		level = len(acceptRates)
	}
	return acceptRates[level-1]
}
