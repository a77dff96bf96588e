package parser

import (
	"sort"
	"strings"
)

// Logical names of the mandatory and well-known fields.
const (
	FieldTicker = "Ticker"
	FieldDate   = "Date"
	FieldOpen   = "Open"
	FieldHigh   = "High"
	FieldLow    = "Low"
	FieldClose  = "Close"
	FieldVolume = "Volume"

	FieldBBFlag  = "BB_Flag"
	FieldBBUpper = "BB_Upper"
	FieldBBLower = "BB_Lower"
	FieldSMA22   = "SMA_22"
	FieldSMA52   = "SMA_52"
	FieldSMA200  = "SMA_200"
	FieldSTD22   = "STD_22"
	FieldRSI14   = "RSI_14"
	FieldSenkouA = "Senkou_Span_A"
	FieldSenkouB = "Senkou_Span_B"
)

// Field is one logical column and the header spellings accepted for it,
// in preference order.
type Field struct {
	Name    string
	Aliases []string
}

// Schema declares the logical fields a parser resolves. Headers that match no
// alias are kept as indicators under their own trimmed name.
type Schema struct {
	Fields []Field
}

// DefaultSchema returns the field aliases seen in the published datasets.
func DefaultSchema() Schema {
	return Schema{Fields: []Field{
		{Name: FieldTicker, Aliases: []string{"Ticker", "ticker", "Symbol", "symbol"}},
		{Name: FieldDate, Aliases: []string{"Date", "date"}},
		{Name: FieldOpen, Aliases: []string{"Open", "open"}},
		{Name: FieldHigh, Aliases: []string{"High", "high"}},
		{Name: FieldLow, Aliases: []string{"Low", "low"}},
		{Name: FieldClose, Aliases: []string{"Close", "close"}},
		{Name: FieldVolume, Aliases: []string{"Volume", "volume"}},
		{Name: FieldBBFlag, Aliases: []string{"BB_Flag", `BB\_Flag`, "BB Flag"}},
		{Name: FieldBBUpper, Aliases: []string{"BB_Upper", "BB_upper"}},
		{Name: FieldBBLower, Aliases: []string{"BB_Lower", "BB_lower"}},
		{Name: FieldSMA22, Aliases: []string{FieldSMA22}},
		{Name: FieldSMA52, Aliases: []string{FieldSMA52}},
		{Name: FieldSMA200, Aliases: []string{FieldSMA200}},
		{Name: FieldSTD22, Aliases: []string{FieldSTD22}},
		{Name: FieldRSI14, Aliases: []string{FieldRSI14}},
		{Name: FieldSenkouA, Aliases: []string{FieldSenkouA}},
		{Name: FieldSenkouB, Aliases: []string{FieldSenkouB}},
	}}
}

// WithAliases returns a copy of s where each entry replaces the aliases of an
// existing field or appends a new one. New fields are appended in name order
// so the result does not depend on map iteration.
func (s Schema) WithAliases(aliases map[string][]string) Schema {
	out := Schema{Fields: make([]Field, len(s.Fields))}
	copy(out.Fields, s.Fields)

	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		list := cleanAliases(aliases[name])
		if strings.TrimSpace(name) == "" || len(list) == 0 {
			continue
		}
		replaced := false
		for i := range out.Fields {
			if out.Fields[i].Name == name {
				out.Fields[i] = Field{Name: name, Aliases: list}
				replaced = true
				break
			}
		}
		if !replaced {
			out.Fields = append(out.Fields, Field{Name: name, Aliases: list})
		}
	}
	return out
}

func cleanAliases(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
