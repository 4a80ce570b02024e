package srs

// Conflict avoidance: two cards of the same group coming due on the
// same day waste a session by testing equivalent knowledge twice, so a
// freshly computed spacing is re-placed among the group siblings at day
// granularity before it is committed.

// acceptWidthDays is the half-width, in days, of the window around a due
// date inside which a review still counts as on time.
func acceptWidthDays(spacing int64, level int) Day {
	w := int64(float64(spacing) * (1 - AcceptRate(level)) / 1.8)
	days := Day(w / DaySeconds)
	if days < 1 {
		days = 1
	}
	return days
}

type dayWindow struct {
	first, last Day
}

func (w dayWindow) overlaps(o dayWindow) bool {
	return w.first <= o.last && w.last >= o.first
}

func (w dayWindow) containsStrict(d Day) bool {
	return d > w.first && d < w.last
}

func (w dayWindow) contains(d Day) bool {
	return d >= w.first && d <= w.last
}

// fixCardSpacing searches for a spacing close to the candidate that does
// not land inside any group sibling's acceptance window. Best effort:
// when no safe slot exists near the candidate the spacing is returned
// unmodified. Read-only with respect to deck state.
func (d *Deck) fixCardSpacing(h Handle, testDate int64, level int, spacing int64) int64 {
	if spacing < DaySeconds {
		spacing = DaySeconds
	}
	baseDay := DayOfUnix(testDate)
	due := DayOfUnix(testDate + spacing)
	diff := acceptWidthDays(spacing, level)
	own := dayWindow{due - diff, due + diff}

	var wins []dayWindow
	for _, sib := range d.groupMembers(h) {
		if sib == h {
			continue
		}
		s := d.cards[sib]
		if !s.Tested() {
			continue
		}
		sd := s.DueDay()
		sw := acceptWidthDays(s.Spacing, s.Level)
		wins = append(wins, dayWindow{sd - sw, sd + sw})
	}
	if len(wins) == 0 {
		return spacing
	}

	conflict := false
	for _, w := range wins {
		if w.overlaps(own) {
			conflict = true
			break
		}
	}
	if !conflict {
		return spacing
	}

	// The window boundaries are the candidate safe dates; a boundary
	// strictly inside some other sibling's window is no safer than the
	// original date and is discarded.
	best := noDay
	bestDist := Day(0)
	for _, w := range wins {
		for _, cand := range [2]Day{w.first, w.last} {
			if cand <= baseDay {
				continue
			}
			inside := false
			for _, o := range wins {
				if o.containsStrict(cand) {
					inside = true
					break
				}
			}
			if inside {
				continue
			}
			dist := absDay(cand - due)
			if best == noDay || dist < bestDist || (dist == bestDist && cand < best) {
				best = cand
				bestDist = dist
			}
		}
	}
	if best != noDay {
		return spacing + int64(best-due)*DaySeconds
	}

	// Last resort: a neighboring day, if it is completely clear.
	for _, delta := range [2]Day{-1, 1} {
		cand := due + delta
		if cand <= baseDay {
			continue
		}
		free := true
		for _, w := range wins {
			if w.contains(cand) {
				free = false
				break
			}
		}
		if free {
			return spacing + int64(delta)*DaySeconds
		}
	}
	return spacing
}

// noDay is a sentinel used by the conflict search.
const noDay = Day(-1 << 30)
