package recurrence

import "time"

// YearEnd returns December 31 of t's year.
func YearEnd(t time.Time) time.Time {
	return time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, t.Location())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateInMonth builds the date year/month/day, clipping day to the month
// length. Month overflow rolls into following years.
func DateInMonth(year int, month time.Month, day int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, loc)
}

// AddMonths advances t by n calendar months keeping its day of month,
// clipped to the length of the target month (Jan 31 + 1 = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	return DateInMonth(t.Year(), t.Month()+time.Month(n), t.Day(), t.Location())
}

// NextWeekday returns the first date on or after t that falls on wd.
func NextWeekday(t time.Time, wd time.Weekday) time.Time {
	offset := (int(wd) - int(t.Weekday()) + 7) % 7
	return t.AddDate(0, 0, offset)
}

// CountWeekdays counts the days falling on wd between from and to inclusive.
func CountWeekdays(from, to time.Time, wd time.Weekday) int {
	n := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == wd {
			n++
		}
	}
	return n
}

// CountMonths counts the calendar months from t's month through December.
func CountMonths(t time.Time) int {
	n := 0
	for m := t.Month(); m <= time.December; m++ {
		n++
	}
	return n
}

// Truncate drops the clock part of t, keeping it in UTC.
func Truncate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
