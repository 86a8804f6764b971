// Package timeutil provides clock arithmetic over "HH:MM" strings.
//
// All times are naive wall-clock values with no date or timezone attached;
// arithmetic wraps modulo 24 hours.
package timeutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MinutesPerDay is the wraparound modulus for clock arithmetic.
const MinutesPerDay = 24 * 60

// ToDecimal converts "HH:MM" to decimal hours (e.g. "09:30" -> 9.5).
func ToDecimal(s string) (float64, error) {
	h, m, err := parse(s)
	if err != nil {
		return 0, err
	}
	return float64(h) + float64(m)/60, nil
}

// FromDecimal converts decimal hours back to "HH:MM".
// Negative input clamps to 0; values >= 24 wrap around. Minutes are rounded
// to the nearest integer, rolling :60 over into the next hour.
func FromDecimal(d float64) string {
	if d < 0 {
		d = 0
	}
	d = math.Mod(d, 24)

	hours := int(d)
	minutes := int(math.Round((d - float64(hours)) * 60))
	if minutes >= 60 {
		minutes = 0
		hours = (hours + 1) % 24
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}

// IsValid reports whether s is a well-formed, zero-padded 24-hour time
// string (hour 00-23, minute 00-59). Used as the guard before committing
// any gesture result.
func IsValid(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for i, c := range s {
		if i != 2 && (c < '0' || c > '9') {
			return false
		}
	}
	h, m, err := parse(s)
	if err != nil {
		return false
	}
	return h >= 0 && h < 24 && m >= 0 && m < 60
}

// DurationMinutes returns the number of minutes from start to end.
// When end is earlier than start the span is assumed to cross midnight.
func DurationMinutes(start, end string) (int, error) {
	sh, sm, err := parse(start)
	if err != nil {
		return 0, fmt.Errorf("parse start: %w", err)
	}
	eh, em, err := parse(end)
	if err != nil {
		return 0, fmt.Errorf("parse end: %w", err)
	}

	minutes := (eh*60 + em) - (sh*60 + sm)
	if minutes < 0 {
		minutes += MinutesPerDay
	}
	return minutes, nil
}

// AddMinutes adds mins to a time of day, wrapping past midnight by clock
// arithmetic rather than calendar rollover.
func AddMinutes(start string, mins int) (string, error) {
	h, m, err := parse(start)
	if err != nil {
		return "", err
	}
	total := ((h*60+m+mins)%MinutesPerDay + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", total/60, total%60), nil
}

// Snap rounds minute to the nearest multiple of cellDur and formats the
// result, rolling a snapped :60 into the next hour and clamping the hour
// to the 0-23 range.
func Snap(hour, minute, cellDur int) string {
	if cellDur <= 0 {
		cellDur = 1
	}
	snapped := int(math.Round(float64(minute)/float64(cellDur))) * cellDur
	if snapped >= 60 {
		snapped = 0
		hour++
	}
	if hour < 0 {
		hour = 0
	}
	if hour > 23 {
		hour = 23
	}
	return fmt.Sprintf("%02d:%02d", hour, snapped)
}

func parse(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time format: %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	return hour, minute, nil
}
