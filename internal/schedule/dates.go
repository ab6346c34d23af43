package schedule

import (
	"fmt"
	"time"
)

// truncateToDay drops the time-of-day component, keeping the calendar day.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddCalendarMonths advances a date by whole calendar months. When the target
// month has fewer days than the source day-of-month, the result clamps to the
// last valid day of the target month instead of rolling over into the month
// after (time.AddDate would roll Jan 31 + 1 month into Mar 2/3).
func AddCalendarMonths(d time.Time, months int) time.Time {
	d = truncateToDay(d)
	year, month, day := d.Date()

	m := int(month) + months
	y := year + (m-1)/12
	m = (m-1)%12 + 1
	if m <= 0 {
		m += 12
		y--
	}

	last := daysInMonth(y, time.Month(m))
	if day > last {
		day = last
	}
	return time.Date(y, time.Month(m), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysSince returns the number of whole calendar days from to now, negative
// when now precedes the reference date.
func DaysSince(ref, now time.Time) int {
	ref = truncateToDay(ref)
	now = truncateToDay(now)
	return int(now.Sub(ref).Hours() / 24)
}

// Age renders a birth date as a human age string: whole months while under
// one year ("11 months"), whole years afterwards ("1 year"). Both units round
// down when the current day-of-month has not yet reached the birth
// day-of-month.
func Age(birthDate, now time.Time) string {
	birthDate = truncateToDay(birthDate)
	now = truncateToDay(now)

	years := now.Year() - birthDate.Year()
	if int(now.Month()) < int(birthDate.Month()) ||
		(now.Month() == birthDate.Month() && now.Day() < birthDate.Day()) {
		years--
	}

	if years == 0 {
		months := (now.Year()-birthDate.Year())*12 + int(now.Month()) - int(birthDate.Month())
		if now.Day() < birthDate.Day() {
			months--
		}
		return fmt.Sprintf("%d month%s", months, plural(months))
	}

	return fmt.Sprintf("%d year%s", years, plural(years))
}

func plural(n int) string {
	if n != 1 {
		return "s"
	}
	return ""
}
