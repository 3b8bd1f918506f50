package domain

import "time"

const week = 7 * 24 * time.Hour

// TrailingWeek is [now-7d, now).
func TrailingWeek(now time.Time) (start, stop time.Time) {
	return now.Add(-week), now
}

// MostRecentMonday returns midnight of the most recent Monday at or before
// now, in now's location. On a Monday it is that day's midnight.
func MostRecentMonday(now time.Time) time.Time {
	// Monday is 0 days since Monday, Sunday is 6.
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	y, m, d := now.Date()
	return time.Date(y, m, d-daysSinceMonday, 0, 0, 0, 0, now.Location())
}

// LastFullWeek is the Monday-to-Monday week ending at MostRecentMonday(now).
// Calendar days are used so a DST change inside the week keeps both bounds
// at local midnight.
func LastFullWeek(now time.Time) (start, stop time.Time) {
	stop = MostRecentMonday(now)
	return stop.AddDate(0, 0, -7), stop
}
