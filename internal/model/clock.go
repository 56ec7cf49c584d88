package model

import (
	"regexp"
	"time"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// IsClockTime reports whether s is a 24-hour "HH:MM" value with two digits each.
func IsClockTime(s string) bool {
	return clockPattern.MatchString(s)
}

// ClockMinute formats t as "HH:MM" in loc.
func ClockMinute(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("15:04")
}
