package utils

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date form used by range selections.
const DateLayout = "2006-01-02"

// ParseDateOrTime reads either a calendar date, taken as midnight in loc, or
// an RFC3339 timestamp.
func ParseDateOrTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither %s nor RFC3339", s, DateLayout)
	}
	return t, nil
}
