package window

import (
	"fmt"
	"sort"
	"time"

	"ScreenerView/internal/domain/models"
	"ScreenerView/pkg/util"
)

// Policy selects the recent part of one ticker's date-ascending series.
// The returned slice may share memory with records and must not be modified.
type Policy interface {
	Name() string
	Select(records []models.Record, now time.Time) []models.Record
}

const (
	PolicyLastNRecords = "last_n_records"
	PolicyLastNDays    = "last_n_days"
)

type lastNRecords struct{ n int }

// LastNRecords keeps the final n records, fewer when the series is shorter.
func LastNRecords(n int) Policy { return lastNRecords{n: max(n, 0)} }

func (p lastNRecords) Name() string { return fmt.Sprintf("%s(%d)", PolicyLastNRecords, p.n) }

func (p lastNRecords) Select(records []models.Record, _ time.Time) []models.Record {
	if len(records) <= p.n {
		return records
	}
	return records[len(records)-p.n:]
}

type lastNDays struct{ n int }

// LastNCalendarDays keeps records dated in [now-n days, now], both ends
// inclusive, at calendar-day granularity. With a wall-clock now the result
// changes from one day to the next even when the data does not.
func LastNCalendarDays(n int) Policy { return lastNDays{n: max(n, 0)} }

func (p lastNDays) Name() string { return fmt.Sprintf("%s(%d)", PolicyLastNDays, p.n) }

func (p lastNDays) Select(records []models.Record, now time.Time) []models.Record {
	to := util.Day(now)
	from := util.DaysBefore(to, p.n)
	lo := sort.Search(len(records), func(i int) bool { return !records[i].Date.Before(from) })
	hi := sort.Search(len(records), func(i int) bool { return records[i].Date.After(to) })
	if lo >= hi {
		return nil
	}
	return records[lo:hi]
}

// FromConfig builds a policy from its config name and size.
func FromConfig(name string, size int) (Policy, error) {
	if size < 0 {
		return nil, fmt.Errorf("window size cannot be negative: %d", size)
	}
	switch name {
	case PolicyLastNRecords, "":
		return LastNRecords(size), nil
	case PolicyLastNDays:
		return LastNCalendarDays(size), nil
	default:
		return nil, fmt.Errorf("unknown window policy %q", name)
	}
}

// Anchor decides which instant a window is evaluated against.
type Anchor string

const (
	// AnchorWallClock evaluates windows against the current time.
	AnchorWallClock Anchor = "wall_clock"
	// AnchorDatasetLatest evaluates windows against the newest record date.
	AnchorDatasetLatest Anchor = "dataset_latest"
)

// ParseAnchor maps a config value to an Anchor.
func ParseAnchor(s string) (Anchor, error) {
	switch a := Anchor(s); a {
	case "", AnchorWallClock:
		return AnchorWallClock, nil
	case AnchorDatasetLatest:
		return a, nil
	default:
		return "", fmt.Errorf("unknown window anchor %q", s)
	}
}

// Resolve returns the evaluation instant. An empty dataset falls back to the
// wall clock.
func (a Anchor) Resolve(now, latest time.Time) time.Time {
	if a == AnchorDatasetLatest && !latest.IsZero() {
		return latest
	}
	return now
}
