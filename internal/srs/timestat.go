package srs

const (
	// maxDurationSamples caps the per-bucket ring of observed answer
	// durations; older samples fall off the end.
	maxDurationSamples = 255
	// maxRepeatSamples caps the per-level ring of observed repeat counts.
	maxRepeatSamples = 100
	// minEstimateSamples is the sample count below which an estimate is
	// blended toward the bootstrap value.
	minEstimateSamples = 10

	// Bootstrap constants, in tenth-seconds. A brand new card takes about
	// three minutes the first time; repeat showings take about thirty
	// seconds, creeping up to forty as the repeat index grows.
	newCardBootstrapEta = 1800
	repeatBootstrapEta  = 300
	repeatBootstrapStep = 20
	repeatBootstrapCeil = 400

	etaSmoothing = 0.15
)

// timeBucket holds the answer durations observed for one (level, repeat
// index) pair, newest first, plus the ETA last computed from them.
type timeBucket struct {
	durations []int
	cachedEta int
}

type levelTimes struct {
	repeats []int // repeat counts observed at this level, newest first
	buckets []*timeBucket
}

// TimeEstimator accumulates per-deck answer timing keyed by (level,
// repeat index) and predicts how long the next answer will take.
// Durations are tenth-seconds throughout.
type TimeEstimator struct {
	levels []*levelTimes
}

// NewTimeEstimator returns an empty estimator.
func NewTimeEstimator() *TimeEstimator {
	return &TimeEstimator{}
}

func (t *TimeEstimator) level(level int, create bool) *levelTimes {
	if level < 0 {
		return nil
	}
	if level >= len(t.levels) {
		if !create {
			return nil
		}
		for len(t.levels) <= level {
			t.levels = append(t.levels, &levelTimes{})
		}
	}
	if t.levels[level] == nil {
		if !create {
			return nil
		}
		t.levels[level] = &levelTimes{}
	}
	return t.levels[level]
}

func (t *TimeEstimator) bucket(level, rep int, create bool) *timeBucket {
	lt := t.level(level, create)
	if lt == nil || rep < 0 {
		return nil
	}
	if rep >= len(lt.buckets) {
		if !create {
			return nil
		}
		for len(lt.buckets) <= rep {
			lt.buckets = append(lt.buckets, &timeBucket{})
		}
	}
	if lt.buckets[rep] == nil {
		if !create {
			return nil
		}
		lt.buckets[rep] = &timeBucket{}
	}
	return lt.buckets[rep]
}

// AddTime records an observed answer duration for a (level, repeat
// index) bucket and refreshes that bucket's cached ETA.
func (t *TimeEstimator) AddTime(level, rep, tenths int) {
	if level < 0 || rep < 0 || tenths < 0 {
		return
	}
	b := t.bucket(level, rep, true)
	b.durations = append([]int{tenths}, b.durations...)
	if len(b.durations) > maxDurationSamples {
		b.durations = b.durations[:maxDurationSamples]
	}
	b.cachedEta = t.Estimate(level, rep)
}

// AddRepeat records how many times a card at the given level was shown
// during one test day.
func (t *TimeEstimator) AddRepeat(level, count int) {
	if level < 0 || count <= 0 {
		return
	}
	lt := t.level(level, true)
	lt.repeats = append([]int{count}, lt.repeats...)
	if len(lt.repeats) > maxRepeatSamples {
		lt.repeats = lt.repeats[:maxRepeatSamples]
	}
}

// TypicalRepeats returns the average observed repeat count at a level,
// or 1 when nothing has been recorded yet.
func (t *TimeEstimator) TypicalRepeats(level int) int {
	lt := t.level(level, false)
	if lt == nil || len(lt.repeats) == 0 {
		return 1
	}
	sum := 0
	for _, r := range lt.repeats {
		sum += r
	}
	avg := (sum + len(lt.repeats)/2) / len(lt.repeats)
	if avg < 1 {
		avg = 1
	}
	return avg
}

// bootstrapEta is the fixed prediction used before any timing data
// exists for a bucket.
func bootstrapEta(level, rep int) int {
	if rep == 0 {
		if level == 0 {
			return newCardBootstrapEta
		}
		return repeatBootstrapEta
	}
	eta := repeatBootstrapEta + repeatBootstrapStep*rep
	if eta > repeatBootstrapCeil {
		eta = repeatBootstrapCeil
	}
	return eta
}

// smoothedAvg folds the ring buffer oldest to newest so recent answers
// dominate the estimate.
func smoothedAvg(durations []int) int {
	avg := float64(durations[len(durations)-1])
	for i := len(durations) - 2; i >= 0; i-- {
		avg = avg*(1-etaSmoothing) + float64(durations[i])*etaSmoothing
	}
	return int(avg + 0.5)
}

// Estimate predicts the duration of the rep-th showing today of a card
// at the given level. Buckets with little data fall back to the next
// lower level scaled by 0.9, bottoming out at the bootstrap constants;
// partially filled buckets blend the two.
func (t *TimeEstimator) Estimate(level, rep int) int {
	if level < 0 {
		level = 0
	}
	if rep < 0 {
		rep = 0
	}
	b := t.bucket(level, rep, false)
	n := 0
	if b != nil {
		n = len(b.durations)
	}
	if n >= minEstimateSamples {
		eta := smoothedAvg(b.durations)
		b.cachedEta = eta
		return eta
	}
	var fallback int
	if level == 0 {
		fallback = bootstrapEta(level, rep)
	} else {
		fallback = t.Estimate(level-1, rep) * 9 / 10
	}
	if n == 0 {
		return fallback
	}
	eta := (smoothedAvg(b.durations)*n + fallback*(minEstimateSamples-n)) / minEstimateSamples
	b.cachedEta = eta
	return eta
}

// BucketLen returns the number of durations stored for a bucket.
func (t *TimeEstimator) BucketLen(level, rep int) int {
	b := t.bucket(level, rep, false)
	if b == nil {
		return 0
	}
	return len(b.durations)
}

// CachedEta returns the ETA last computed for a bucket.
func (t *TimeEstimator) CachedEta(level, rep int) int {
	b := t.bucket(level, rep, false)
	if b == nil {
		return 0
	}
	return b.cachedEta
}

// RestoreBucket trims a bucket back to a previously observed length and
// cached ETA. Used by the undo path; only the newest entries are
// dropped, matching what a single answer could have added.
func (t *TimeEstimator) RestoreBucket(level, rep, length, eta int) {
	b := t.bucket(level, rep, false)
	if b == nil {
		return
	}
	if len(b.durations) > length {
		b.durations = b.durations[len(b.durations)-length:]
	}
	b.cachedEta = eta
}

// LevelCount returns how many levels have timing data.
func (t *TimeEstimator) LevelCount() int {
	return len(t.levels)
}

// RepeatSamples returns a copy of the observed repeat counts at a level.
func (t *TimeEstimator) RepeatSamples(level int) []int {
	lt := t.level(level, false)
	if lt == nil {
		return nil
	}
	return append([]int(nil), lt.repeats...)
}

// BucketCount returns how many repeat-index buckets exist at a level.
func (t *TimeEstimator) BucketCount(level int) int {
	lt := t.level(level, false)
	if lt == nil {
		return 0
	}
	return len(lt.buckets)
}

// BucketDurations returns a copy of the duration ring for a bucket.
func (t *TimeEstimator) BucketDurations(level, rep int) []int {
	b := t.bucket(level, rep, false)
	if b == nil {
		return nil
	}
	return append([]int(nil), b.durations...)
}

// LoadRepeatSamples replaces the repeat ring of a level, used when
// decoding a persisted deck.
func (t *TimeEstimator) LoadRepeatSamples(level int, samples []int) {
	lt := t.level(level, true)
	if len(samples) > maxRepeatSamples {
		samples = samples[:maxRepeatSamples]
	}
	lt.repeats = append([]int(nil), samples...)
}

// LoadBucket replaces the duration ring of a bucket, used when decoding
// a persisted deck.
func (t *TimeEstimator) LoadBucket(level, rep int, durations []int) {
	b := t.bucket(level, rep, true)
	if len(durations) > maxDurationSamples {
		durations = durations[:maxDurationSamples]
	}
	b.durations = append([]int(nil), durations...)
	if len(b.durations) > 0 {
		b.cachedEta = t.Estimate(level, rep)
	}
}
