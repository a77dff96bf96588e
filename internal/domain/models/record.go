package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Value is one indicator cell: the trimmed text and, when the text is a
// finite number, its parsed form.
type Value struct {
	Text  string
	Num   float64
	IsNum bool
}

// NewValue builds a Value from a raw cell.
func NewValue(raw string) Value {
	v := Value{Text: strings.TrimSpace(raw)}
	if v.Text == "" {
		return v
	}
	if f, err := strconv.ParseFloat(v.Text, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		v.Num = f
		v.IsNum = true
	}
	return v
}

// NumberValue builds a numeric Value.
func NumberValue(f float64) Value {
	return Value{Text: strconv.FormatFloat(f, 'f', -1, 64), Num: f, IsNum: true}
}

// Blank reports whether the cell is empty after trimming.
func (v Value) Blank() bool { return v.Text == "" }

// Float returns the numeric form of the value, if any.
func (v Value) Float() (float64, bool) { return v.Num, v.IsNum }

// Record is one daily bar of one ticker.
type Record struct {
	Ticker     string
	Date       time.Time // UTC midnight of the calendar date
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     *float64
	Indicators map[string]Value
	Seq        int // position in the source, used for stable ordering
}

// HasVolume reports whether the volume cell was present and numeric.
func (r Record) HasVolume() bool { return r.Volume != nil }

// Indicator returns the indicator stored under its logical name.
func (r Record) Indicator(name string) (Value, bool) {
	v, ok := r.Indicators[name]
	if !ok || v.Blank() {
		return Value{}, false
	}
	return v, true
}

// Text returns the trimmed text of an indicator, "" when absent.
func (r Record) Text(name string) string {
	v, _ := r.Indicator(name)
	return v.Text
}

// Float returns the numeric form of an indicator.
func (r Record) Float(name string) (float64, bool) {
	v, ok := r.Indicator(name)
	if !ok {
		return 0, false
	}
	return v.Float()
}

// DateString renders the record date as YYYY-MM-DD.
func (r Record) DateString() string { return r.Date.Format(time.DateOnly) }
