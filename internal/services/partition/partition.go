package partition

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ScreenerView/internal/domain/models"
)

// DuplicatePolicy decides what happens to records sharing (ticker, date).
type DuplicatePolicy string

const (
	// KeepAll keeps every duplicate in input order.
	KeepAll   DuplicatePolicy = "keep_all"
	FirstWins DuplicatePolicy = "first_wins"
	LastWins  DuplicatePolicy = "last_wins"
)

// ParseDuplicatePolicy maps a config value to a policy.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.TrimSpace(s)); p {
	case "", KeepAll:
		return KeepAll, nil
	case FirstWins, LastWins:
		return p, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q", s)
	}
}

// Enricher post-processes one ticker's sorted series before publication.
type Enricher func(series []models.Record) []models.Record

// Partition maps ticker to its date-ordered records. It is never mutated
// after Group returns; accessors hand out copies. A nil *Partition is empty.
type Partition struct {
	series   map[string][]models.Record
	tickers  []string
	total    int
	rejected int
	latest   time.Time
}

type options struct {
	duplicates DuplicatePolicy
	rejected   int
	enrich     Enricher
}

// Option configures Group.
type Option func(*options)

// WithDuplicates sets the duplicate (ticker, date) policy.
func WithDuplicates(p DuplicatePolicy) Option {
	return func(o *options) { o.duplicates = p }
}

// WithRejected carries the parser's rejection counter into the partition.
func WithRejected(n int) Option {
	return func(o *options) { o.rejected = n }
}

// WithEnricher runs fn over every ticker series after sorting.
func WithEnricher(fn Enricher) Option {
	return func(o *options) { o.enrich = fn }
}

// Group partitions records by ticker and stable-sorts each series by date.
// Records with a blank ticker are ignored.
func Group(records []models.Record, opts ...Option) *Partition {
	o := options{duplicates: KeepAll}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Partition{
		series:   make(map[string][]models.Record),
		rejected: o.rejected,
	}
	for _, r := range records {
		if strings.TrimSpace(r.Ticker) == "" {
			continue
		}
		p.series[r.Ticker] = append(p.series[r.Ticker], r)
	}

	for ticker, s := range p.series {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
		s = dedupe(s, o.duplicates)
		if o.enrich != nil {
			s = o.enrich(s)
		}
		p.series[ticker] = s
		p.total += len(s)
		if last := s[len(s)-1].Date; last.After(p.latest) {
			p.latest = last
		}
		p.tickers = append(p.tickers, ticker)
	}
	sort.Strings(p.tickers)
	return p
}

func dedupe(s []models.Record, policy DuplicatePolicy) []models.Record {
	if policy == KeepAll || len(s) < 2 {
		return s
	}
	out := s[:0]
	for i := 0; i < len(s); {
		j := i + 1
		for j < len(s) && s[j].Date.Equal(s[i].Date) {
			j++
		}
		if policy == FirstWins {
			out = append(out, s[i])
		} else {
			out = append(out, s[j-1])
		}
		i = j
	}
	return out
}

// Tickers returns the sorted ticker list.
func (p *Partition) Tickers() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.tickers))
	copy(out, p.tickers)
	return out
}

// Series returns the shared, read-only series of one ticker. Callers must
// not modify it; use Records for a copy.
func (p *Partition) Series(ticker string) []models.Record {
	if p == nil {
		return nil
	}
	return p.series[ticker]
}

// Records returns a copy of one ticker's series, or nil for unknown tickers.
func (p *Partition) Records(ticker string) []models.Record {
	s := p.Series(ticker)
	if s == nil {
		return nil
	}
	out := make([]models.Record, len(s))
	copy(out, s)
	return out
}

// Has reports whether ticker has at least one record.
func (p *Partition) Has(ticker string) bool {
	return len(p.Series(ticker)) > 0
}

// Len returns the total number of records.
func (p *Partition) Len() int {
	if p == nil {
		return 0
	}
	return p.total
}

// Rejected returns the number of rows dropped by the parser.
func (p *Partition) Rejected() int {
	if p == nil {
		return 0
	}
	return p.rejected
}

// LatestDate returns the most recent record date, zero for an empty partition.
func (p *Partition) LatestDate() time.Time {
	if p == nil {
		return time.Time{}
	}
	return p.latest
}

// Flags returns the sorted distinct non-blank values of field over every record.
func (p *Partition) Flags(field string) []string {
	if p == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, s := range p.series {
		for _, r := range s {
			if v := r.Text(field); v != "" {
				seen[v] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
