package parser

import (
	"errors"
	"sort"
	"strings"

	"ScreenerView/internal/domain/models"
	"ScreenerView/pkg/util"
)

// ErrBlankRow is returned for rows whose cells are all empty. Blank rows are
// skipped, not rejected.
var ErrBlankRow = errors.New("blank row")

type column struct {
	name    string
	indexes []int
}

// Parser converts rows of one header into records. Header indexes are
// resolved once in New; Parse holds no state and is safe for concurrent use.
type Parser struct {
	ticker, date           []int
	open, high, low, close []int
	volume                 []int
	indicators             []column
}

// New resolves the header against schema.
func New(header []string, schema Schema) *Parser {
	positions := make(map[string][]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		positions[h] = append(positions[h], i)
	}

	claimed := make(map[string]bool)
	resolve := func(aliases []string) []int {
		var idx []int
		for _, a := range aliases {
			claimed[a] = true
			idx = append(idx, positions[a]...)
		}
		return idx
	}

	p := &Parser{}
	for _, f := range schema.Fields {
		claimed[f.Name] = true
		idx := resolve(f.Aliases)
		switch f.Name {
		case FieldTicker:
			p.ticker = idx
		case FieldDate:
			p.date = idx
		case FieldOpen:
			p.open = idx
		case FieldHigh:
			p.high = idx
		case FieldLow:
			p.low = idx
		case FieldClose:
			p.close = idx
		case FieldVolume:
			p.volume = idx
		default:
			if len(idx) > 0 {
				p.indicators = append(p.indicators, column{name: f.Name, indexes: idx})
			}
		}
	}

	// unclaimed headers are indicators under their own name, in header order
	var extra []string
	for h := range positions {
		if !claimed[h] {
			extra = append(extra, h)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return positions[extra[i]][0] < positions[extra[j]][0] })
	for _, h := range extra {
		p.indicators = append(p.indicators, column{name: h, indexes: positions[h]})
	}
	return p
}

// Parse converts one row. It returns ErrBlankRow for empty rows and an error
// wrapping models.ErrRowRejected for invalid ones.
func (p *Parser) Parse(row []string) (models.Record, error) {
	if util.IsBlankRow(row) {
		return models.Record{}, ErrBlankRow
	}

	var rec models.Record
	rec.Ticker = cell(row, p.ticker)
	if rec.Ticker == "" {
		return models.Record{}, models.ErrMissingTicker
	}

	raw := cell(row, p.date)
	date, ok := util.ParseDate(raw)
	if !ok {
		return models.Record{}, models.ErrDateUnparseable
	}
	rec.Date = date

	prices := []struct {
		dst  *float64
		idx  []int
		name string
	}{
		{&rec.Open, p.open, FieldOpen},
		{&rec.High, p.high, FieldHigh},
		{&rec.Low, p.low, FieldLow},
		{&rec.Close, p.close, FieldClose},
	}
	for _, pr := range prices {
		v, ok := util.ParseFloat(cell(row, pr.idx))
		if !ok {
			return models.Record{}, &FieldError{Field: pr.name, Err: models.ErrMissingPrice}
		}
		*pr.dst = v
	}

	if v, ok := util.ParseFloat(cell(row, p.volume)); ok {
		rec.Volume = &v
	}

	for _, c := range p.indicators {
		text := cell(row, c.indexes)
		if text == "" {
			continue
		}
		if rec.Indicators == nil {
			rec.Indicators = make(map[string]models.Value, len(p.indicators))
		}
		rec.Indicators[c.name] = models.NewValue(text)
	}
	return rec, nil
}

// Indicators lists the indicator names this parser will populate.
func (p *Parser) Indicators() []string {
	out := make([]string, len(p.indicators))
	for i, c := range p.indicators {
		out[i] = c.name
	}
	return out
}

// FieldError names the field that caused a rejection.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Err.Error() + ": " + e.Field }

func (e *FieldError) Unwrap() error { return e.Err }

// cell returns the first non-blank trimmed cell among idx.
func cell(row []string, idx []int) string {
	for _, i := range idx {
		if i < len(row) {
			if v := strings.TrimSpace(row[i]); v != "" {
				return v
			}
		}
	}
	return ""
}
