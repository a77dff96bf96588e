package util

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

var isoDate = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// ParseDate parses a calendar date. YYYY-MM-DD and YYYY/MM/DD are matched
// first; anything else goes through a generic date-text parse. The result is
// UTC midnight of the written date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if m := isoDate.FindStringSubmatch(strings.ReplaceAll(s, "/", "-")); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		// time.Date normalises 2024-02-30 into March; reject instead
		if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
			return time.Time{}, false
		}
		return t, true
	}
	t, err := cast.ToTimeE(s)
	if err != nil {
		return time.Time{}, false
	}
	return Day(t), true
}

// Day truncates t to UTC midnight of its calendar date in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBefore returns the calendar date n days before day.
func DaysBefore(day time.Time, n int) time.Time {
	return Day(day).AddDate(0, 0, -n)
}
