package srs

import "time"

// DaySeconds is the length of a scheduling day. All spacing values are
// expressed in seconds and only ever grow in whole-day steps once a card
// has been tested.
const DaySeconds = 86400

// Day is a calendar day expressed as days since the Unix epoch, in UTC.
// Scheduling, conflict search and day statistics all work at this
// granularity.
type Day int32

// DayOf returns the day containing t.
func DayOf(t time.Time) Day {
	return Day(t.UTC().Unix() / DaySeconds)
}

// DayOfUnix returns the day containing the Unix timestamp sec.
func DayOfUnix(sec int64) Day {
	if sec < 0 {
		return Day((sec - DaySeconds + 1) / DaySeconds)
	}
	return Day(sec / DaySeconds)
}

// Time returns the UTC midnight starting the day.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*DaySeconds, 0).UTC()
}

// Unix returns the Unix timestamp of the day's UTC midnight.
func (d Day) Unix() int64 {
	return int64(d) * DaySeconds
}

func absDay(d Day) Day {
	if d < 0 {
		return -d
	}
	return d
}
