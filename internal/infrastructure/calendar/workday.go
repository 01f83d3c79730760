package calendar

import (
	"context"
	"time"
)

// KST is the timezone every run-scheduling decision is made in.
var KST = time.FixedZone("KST", 9*60*60)

// maxBacktrackDays bounds the search for the previous workday so a broken
// holiday table cannot loop forever.
const maxBacktrackDays = 14

// Workdays answers scheduling questions for the daily run. CustomHolidays
// are operator-declared rest days (YYYY-MM-DD) on top of the public ones.
type Workdays struct {
	holidays       *HolidayClient
	customHolidays map[string]bool
}

// NewWorkdays builds a scheduling helper over the holiday source.
func NewWorkdays(holidays *HolidayClient, customHolidays []string) *Workdays {
	return &Workdays{
		holidays:       holidays,
		customHolidays: setOf(customHolidays...),
	}
}

// IsRestDay reports whether the date is a weekend, a public holiday or an
// operator-declared rest day.
func (w *Workdays) IsRestDay(ctx context.Context, day time.Time) bool {
	day = day.In(KST)
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return true
	}
	key := day.Format("2006-01-02")
	if w.customHolidays[key] {
		return true
	}
	return w.holidays.Holidays(ctx, day.Year())[key]
}

// ShouldSkip reports whether today's run should not execute at all, with the
// reason for the log.
func (w *Workdays) ShouldSkip(ctx context.Context, now time.Time) (bool, string) {
	day := now.In(KST)
	switch {
	case day.Weekday() == time.Saturday || day.Weekday() == time.Sunday:
		return true, "weekend"
	case w.customHolidays[day.Format("2006-01-02")]:
		return true, "declared rest day"
	case w.holidays.Holidays(ctx, day.Year())[day.Format("2006-01-02")]:
		return true, "public holiday"
	default:
		return false, ""
	}
}

// LastWorkDay walks backwards from the day before now to the most recent
// workday, giving up after two weeks and settling for yesterday.
func (w *Workdays) LastWorkDay(ctx context.Context, now time.Time) time.Time {
	check := now.In(KST).AddDate(0, 0, -1)
	for i := 0; i < maxBacktrackDays; i++ {
		if !w.IsRestDay(ctx, check) {
			return check
		}
		check = check.AddDate(0, 0, -1)
	}
	return now.In(KST).AddDate(0, 0, -1)
}

// OrderWindow computes the order-fetch window for a run at now: noon on the
// last workday through noon today, KST. After a normal weekday this is 24
// hours; after consecutive rest days the window stretches to cover them.
func (w *Workdays) OrderWindow(ctx context.Context, now time.Time) (start, end time.Time) {
	day := now.In(KST)
	last := w.LastWorkDay(ctx, day)

	start = time.Date(last.Year(), last.Month(), last.Day(), 12, 0, 0, 0, KST)
	end = time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, KST)
	return start, end
}
