// Package timeslot maps wall-clock times onto the aligned capture
// schedule. A Token packs a calendar minute into a decimal-grouped
// integer so that numeric comparison of two tokens is chronological
// comparison at minute granularity.
package timeslot

import "time"

// Token encodes a calendar minute as YYMMDDHHMM, two decimal digits
// per group, most significant first. Valid for dates within one
// century; tokens from different centuries do not compare correctly.
type Token uint64

// Encode zeroes the seconds of t, adds minutesToAdd with normal
// calendar rollover (minute, hour, day, month), and packs the result.
func Encode(t time.Time, minutesToAdd int) Token {
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()+minutesToAdd, 0, 0, t.Location())

	tok := Token(t.Year() % 100)
	tok = tok*100 + Token(t.Month())
	tok = tok*100 + Token(t.Day())
	tok = tok*100 + Token(t.Hour())
	tok = tok*100 + Token(t.Minute())
	return tok
}

// NextBoundary returns how long to wait from now until the next
// wall-clock multiple of the sampling interval, along with the token
// for that instant. The boundary is aligned to the hour rather than
// relative to now, so repeated cycles cannot accumulate drift.
func NextBoundary(now time.Time, intervalMinutes int) (time.Duration, Token) {
	minutesToWait := intervalMinutes - now.Minute()%intervalMinutes
	seconds := minutesToWait*60 - now.Second()
	return time.Duration(seconds) * time.Second, Encode(now, minutesToWait)
}
