package unit

import (
	"strings"
	"time"
)

// Status is a per-day availability marker.
type Status byte

const (
	// StatusAvailable marks a bookable day.
	StatusAvailable Status = 'A'
	// StatusBooked marks a day taken by a booking.
	StatusBooked Status = 'B'
	// StatusBlocked marks a day closed by the owner (maintenance, hold).
	StatusBlocked Status = 'X'
)

// Period is a half-open date range [Start, End) carrying a non-available status.
type Period struct {
	Start  time.Time
	End    time.Time
	Status Status
}

// Availability is a compact per-date status string covering a rolling horizon.
// Markers[i] is the status of From+i days.
type Availability struct {
	From    time.Time
	Markers string
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// HorizonDays returns the number of days between from and from+months.
func HorizonDays(from time.Time, months int) int {
	start := Day(from)
	return int(start.AddDate(0, months, 0).Sub(start).Hours() / 24)
}

// NewAvailability renders periods into markers for [from, from+days).
// Later periods override earlier ones on overlapping days.
func NewAvailability(from time.Time, days int, periods []Period) Availability {
	start := Day(from)
	if days <= 0 {
		return Availability{From: start}
	}
	buf := []byte(strings.Repeat(string(StatusAvailable), days))
	for _, p := range periods {
		if p.Status == StatusAvailable || p.Status == 0 {
			continue
		}
		lo := dayOffset(start, p.Start)
		hi := dayOffset(start, p.End)
		if lo < 0 {
			lo = 0
		}
		if hi > days {
			hi = days
		}
		for i := lo; i < hi; i++ {
			buf[i] = byte(p.Status)
		}
	}
	return Availability{From: start, Markers: string(buf)}
}

// Days returns the horizon length.
func (a Availability) Days() int { return len(a.Markers) }

// StatusOn returns the marker for the given day; false when outside the horizon.
func (a Availability) StatusOn(day time.Time) (Status, bool) {
	i := dayOffset(a.From, day)
	if i < 0 || i >= len(a.Markers) {
		return 0, false
	}
	return Status(a.Markers[i]), true
}

// AvailableBetween reports whether every night in [checkIn, checkOut) is available.
// Nights outside the horizon count as unavailable.
func (a Availability) AvailableBetween(checkIn, checkOut time.Time) bool {
	lo := dayOffset(a.From, checkIn)
	hi := dayOffset(a.From, checkOut)
	if hi <= lo {
		hi = lo + 1
	}
	if lo < 0 || hi > len(a.Markers) {
		return false
	}
	for i := lo; i < hi; i++ {
		if a.Markers[i] != byte(StatusAvailable) {
			return false
		}
	}
	return true
}

// AvailableShifted reports whether the stay fits when moved by up to ±flexDays.
func (a Availability) AvailableShifted(checkIn, checkOut time.Time, flexDays int) bool {
	if a.AvailableBetween(checkIn, checkOut) {
		return true
	}
	for s := 1; s <= flexDays; s++ {
		if a.AvailableBetween(checkIn.AddDate(0, 0, -s), checkOut.AddDate(0, 0, -s)) ||
			a.AvailableBetween(checkIn.AddDate(0, 0, s), checkOut.AddDate(0, 0, s)) {
			return true
		}
	}
	return false
}

func dayOffset(from, t time.Time) int {
	return int(Day(t).Sub(Day(from)).Hours() / 24)
}
