package usecase

import (
	"time"

	"ScreenerView/internal/domain/models"
	"ScreenerView/internal/services/filters"
	"ScreenerView/internal/services/partition"
	"ScreenerView/internal/services/window"
)

// BuildTickerSet returns the sorted tickers whose window passes every active
// filter. It is a pure function of its arguments; with no active filters the
// whole ticker list is returned.
func BuildTickerSet(p *partition.Partition, policy window.Policy, active []filters.Filter, now time.Time) []string {
	tickers := p.Tickers()
	out := make([]string, 0, len(tickers))
	for _, ticker := range tickers {
		win := policy.Select(p.Series(ticker), now)
		if passesAll(win, active) {
			out = append(out, ticker)
		}
	}
	// Tickers() is sorted and unique, so out is too.
	return out
}

func passesAll(win []models.Record, active []filters.Filter) bool {
	for _, f := range active {
		if !f.Pass(win) {
			return false
		}
	}
	return true
}
