package services

import (
	"time"

	"subwatch/internal/core"
)

// NextBillingDate advances one cadence step from current. The anchor date
// carries the billing intent: a subscription anchored on the 31st lands on
// the last day of every destination month instead of skipping short months,
// while any other anchor day is clamped to 28 so the step never rolls over
// into the following month.
func NextBillingDate(current core.Date, freq core.Frequency, anchor core.Date) core.Date {
	switch freq {
	case core.Daily:
		return core.DateOf(current.AddDate(0, 0, 1))
	case core.Weekly:
		return core.DateOf(current.AddDate(0, 0, 7))
	case core.Biweekly:
		return core.DateOf(current.AddDate(0, 0, 14))
	case core.Semimonthly:
		return nextSemimonthly(current, anchor)
	case core.Yearly:
		return nextYearly(current, anchor)
	default:
		return nextMonthly(current, anchor)
	}
}

func nextMonthly(current, anchor core.Date) core.Date {
	year, month := current.Year(), current.Month()
	month++
	if month > time.December {
		month = time.January
		year++
	}
	return core.NewDate(year, int(month), targetDay(anchor.Day(), year, month))
}

func nextYearly(current, anchor core.Date) core.Date {
	year := current.Year() + 1
	month := anchor.Month()
	return core.NewDate(year, int(month), targetDay(anchor.Day(), year, month))
}

// nextSemimonthly bills twice per month: once on the anchor day and once
// fifteen days later, both clamped to the destination month's length.
func nextSemimonthly(current, anchor core.Date) core.Date {
	year, month := current.Year(), current.Month()
	last := lastDayOfMonth(year, month)
	d1 := targetDay(anchor.Day(), year, month)
	d2 := anchor.Day() + 15
	if d2 > last {
		d2 = last
	}
	if d2 < d1 {
		d1, d2 = d2, d1
	}

	switch {
	case current.Day() < d1:
		return core.NewDate(year, int(month), d1)
	case current.Day() < d2:
		return core.NewDate(year, int(month), d2)
	default:
		month++
		if month > time.December {
			month = time.January
			year++
		}
		return core.NewDate(year, int(month), targetDay(anchor.Day(), year, month))
	}
}

// targetDay resolves the anchor day inside a destination month. Day 31 means
// "end of month"; everything else is capped at 28 so February always works.
func targetDay(anchorDay int, year int, month time.Month) int {
	if anchorDay == 31 {
		return lastDayOfMonth(year, month)
	}
	if anchorDay > 28 {
		return 28
	}
	if anchorDay < 1 {
		return 1
	}
	return anchorDay
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
