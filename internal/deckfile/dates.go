package deckfile

import (
	"fmt"
	"time"

	"github.com/mnarita/kioku/internal/srs"
)

// Dates are bit-packed. A day-only date fits a uint16:
//
//	bits 9..15  year - 2000
//	bits 5..8   month
//	bits 0..4   day of month
//
// A timestamp fits a uint32 by adding the second of day:
//
//	bits 26..31 year - 2000
//	bits 22..25 month
//	bits 17..21 day of month
//	bits 0..16  second of day
//
// Zero means "no date" in both encodings.

const packEpochYear = 2000

func packDay(d srs.Day) (uint16, error) {
	if d < 0 {
		return 0, nil
	}
	t := d.Time()
	y := t.Year() - packEpochYear
	if y < 0 || y > 127 {
		return 0, fmt.Errorf("%w: year %d", ErrInvalidDate, t.Year())
	}
	return uint16(y)<<9 | uint16(t.Month())<<5 | uint16(t.Day()), nil
}

func unpackDay(v uint16) (srs.Day, error) {
	if v == 0 {
		return -1, nil
	}
	year := int(v>>9) + packEpochYear
	month := int(v >> 5 & 0xF)
	day := int(v & 0x1F)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return srs.DayOf(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)), nil
}

func packDateTime(unix int64) (uint32, error) {
	if unix <= 0 {
		return 0, nil
	}
	t := time.Unix(unix, 0).UTC()
	y := t.Year() - packEpochYear
	if y < 0 || y > 63 {
		return 0, fmt.Errorf("%w: year %d", ErrInvalidDate, t.Year())
	}
	sec := t.Hour()*3600 + t.Minute()*60 + t.Second()
	return uint32(y)<<26 | uint32(t.Month())<<22 | uint32(t.Day())<<17 | uint32(sec), nil
}

func unpackDateTime(v uint32) (int64, error) {
	if v == 0 {
		return 0, nil
	}
	year := int(v>>26) + packEpochYear
	month := int(v >> 22 & 0xF)
	day := int(v >> 17 & 0x1F)
	sec := int(v & 0x1FFFF)
	if month < 1 || month > 12 || day < 1 || day > 31 || sec >= DaySecondsInt {
		return 0, fmt.Errorf("%w: %04d-%02d-%02d +%ds", ErrInvalidDate, year, month, day, sec)
	}
	return time.Date(year, time.Month(month), day, 0, 0, sec, 0, time.UTC).Unix(), nil
}

// DaySecondsInt mirrors srs.DaySeconds for bounds checks.
const DaySecondsInt = srs.DaySeconds
